package floorplan

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// parallelEpsilon is the relative cross-product magnitude below which two
// directions are treated as parallel.
const parallelEpsilon = 1e-9

func distance(a, b orb.Point) float64 {
	return math.Hypot(b[0]-a[0], b[1]-a[1])
}

// cross returns the z component of (a-o) x (b-o).
func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

func lerp(a, b orb.Point, t float64) orb.Point {
	return orb.Point{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t}
}

// project returns the parameter t of the orthogonal projection of p onto the
// line through a and b (t=0 at a, t=1 at b).
func project(a, b, p orb.Point) float64 {
	dx, dy := b[0]-a[0], b[1]-a[1]
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return 0
	}
	return ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / l2
}

// pointLess orders points lexicographically by x, then y.
func pointLess(a, b orb.Point) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	return a[1] < b[1]
}

// signedArea returns the shoelace area of a ring; positive for
// counter-clockwise rings. The ring may be open or closed.
func signedArea(r orb.Ring) float64 {
	n := len(r)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		a := r[i]
		b := r[(i+1)%n]
		sum += a[0]*b[1] - b[0]*a[1]
	}
	return sum / 2
}

// closeRing returns r with its first point appended when it is not already closed.
func closeRing(r orb.Ring) orb.Ring {
	if len(r) == 0 || r.Closed() {
		return r
	}
	return append(r, r[0])
}

// reverseRing reverses r in place.
func reverseRing(r orb.Ring) {
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
}

// onSegment reports whether p is within tol of segment ab.
func onSegment(a, b, p orb.Point, tol float64) bool {
	return planar.DistanceFromSegment(a, b, p) <= tol
}

// properlyCross reports whether open segments p1p2 and q1q2 cross at a
// single point interior to both.
func properlyCross(p1, p2, q1, q2 orb.Point) bool {
	d1 := cross(q1, q2, p1)
	d2 := cross(q1, q2, p2)
	d3 := cross(p1, p2, q1)
	d4 := cross(p1, p2, q2)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

// segmentsIntersect reports whether closed segments p1p2 and q1q2 share a point.
func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	if properlyCross(p1, p2, q1, q2) {
		return true
	}
	d1 := cross(q1, q2, p1)
	d2 := cross(q1, q2, p2)
	d3 := cross(p1, p2, q1)
	d4 := cross(p1, p2, q2)

	inBox := func(a, b, p orb.Point) bool {
		return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
			math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
	}
	switch {
	case d1 == 0 && inBox(q1, q2, p1):
		return true
	case d2 == 0 && inBox(q1, q2, p2):
		return true
	case d3 == 0 && inBox(p1, p2, q1):
		return true
	case d4 == 0 && inBox(p1, p2, q2):
		return true
	}
	return false
}
