package floorplan

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// Rejection reasons reported by evaluateFace.
const (
	rejectSliver     = "sliver"
	rejectNotSimple  = "self-intersecting"
	rejectSmallArea  = "area below minimum"
	rejectShortPerim = "perimeter below minimum"
	rejectLargeArea  = "area above maximum"
	rejectDegenerate = "degenerate shell"
)

// scoreFaces drops faces that cannot be rooms and assigns a confidence to the
// rest. It returns the accepted faces in input order and the number rejected.
func scoreFaces(faces []Face, opts Options) ([]Face, int) {
	accepted := make([]Face, 0, len(faces))
	rejected := 0
	for _, f := range faces {
		scored, reason := evaluateFace(f, opts)
		if reason != "" {
			rejected++
			continue
		}
		accepted = append(accepted, scored)
	}
	return accepted, rejected
}

// evaluateFace returns the scored face, or a non-empty rejection reason.
func evaluateFace(f Face, opts Options) (Face, string) {
	if len(f.Shell) < 4 {
		return f, rejectDegenerate
	}
	if distinctVertices(simplifyRing(f.Shell, opts.Tolerance)) < 3 {
		return f, rejectSliver
	}
	if !ringIsSimple(f.Shell) {
		return f, rejectNotSimple
	}
	f.Simple = true

	switch {
	case f.Area < opts.MinArea:
		return f, rejectSmallArea
	case f.Perimeter < opts.MinPerimeter:
		return f, rejectShortPerim
	case opts.MaxArea > 0 && f.Area > opts.MaxArea:
		return f, rejectLargeArea
	}

	c := math.Min(
		margin(f.Area, opts.MinArea, opts.ComfortFactor, opts.ConfidenceFloor),
		margin(f.Perimeter, opts.MinPerimeter, opts.ComfortFactor, opts.ConfidenceFloor),
	)
	if f.Source == SourceFallback {
		c *= opts.FallbackFactor
	}
	f.Confidence = clamp01(c)
	return f, ""
}

// margin is 1 at or above comfort*threshold and falls linearly to floor at
// the threshold itself.
func margin(value, threshold, comfort, floor float64) float64 {
	if threshold <= 0 {
		return 1
	}
	high := threshold * comfort
	if value >= high {
		return 1
	}
	if value <= threshold {
		return floor
	}
	return floor + (1-floor)*(value-threshold)/(high-threshold)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func simplifyRing(r orb.Ring, tol float64) orb.LineString {
	simplified, ok := simplify.DouglasPeucker(tol).Simplify(orb.LineString(r).Clone()).(orb.LineString)
	if !ok {
		return nil
	}
	return simplified
}

func distinctVertices(ls orb.LineString) int {
	seen := make(map[orb.Point]struct{}, len(ls))
	for _, p := range ls {
		seen[p] = struct{}{}
	}
	return len(seen)
}

// ringIsSimple reports whether no two non-adjacent edges of the closed ring
// share a point.
func ringIsSimple(r orb.Ring) bool {
	n := len(r) - 1
	if n < 3 {
		return false
	}
	for i := 0; i < n; i++ {
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue
			}
			if segmentsIntersect(r[i], r[i+1], r[j], r[j+1]) {
				return false
			}
		}
	}
	return true
}
