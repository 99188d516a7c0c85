package floorplan

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/quadtree"
)

// ctxCheckInterval is how many candidate pairs are examined between
// context checks.
const ctxCheckInterval = 1024

// Split cuts the segments at every crossing and T-junction, snaps endpoints
// closer than tolerance together and merges duplicate pieces. The returned
// graph has no two edges crossing except at a shared vertex.
func Split(ctx context.Context, segments []WallSegment, tolerance float64) (*PlanarGraph, error) {
	return split(ctx, segments, tolerance, true)
}

// maxRefinePasses bounds how often the snapped graph is cut again.
const maxRefinePasses = 8

func split(ctx context.Context, segments []WallSegment, tolerance float64, useIndex bool) (*PlanarGraph, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(segments) == 0 {
		return &PlanarGraph{}, nil
	}

	cuts, _, err := collectCuts(ctx, segments, tolerance, useIndex, intersectionCuts)
	if err != nil {
		return nil, err
	}
	sources := make([][]int, len(segments))
	for i := range sources {
		sources[i] = []int{i}
	}
	g, err := assembleGraph(cutSegments(segments, sources, cuts, tolerance), tolerance)
	if err != nil {
		return nil, err
	}
	return refine(ctx, g, tolerance, useIndex)
}

// refine cuts the graph's own edges again until no edge crosses another or
// has a vertex within tolerance of its interior. Snapping moves vertices by
// up to the tolerance, which can create such contacts next to a vertex.
func refine(ctx context.Context, g *PlanarGraph, tolerance float64, useIndex bool) (*PlanarGraph, error) {
	for pass := 0; pass < maxRefinePasses; pass++ {
		segments := make([]WallSegment, len(g.Edges))
		sources := make([][]int, len(g.Edges))
		for i, e := range g.Edges {
			segments[i] = g.Segment(i)
			sources[i] = e.Sources
		}

		cuts, n, err := collectCuts(ctx, segments, tolerance, useIndex, contactCuts)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return g, nil
		}
		if g, err = assembleGraph(cutSegments(segments, sources, cuts, 0), tolerance); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// collectCuts runs cutter over every candidate pair and returns the cuts per
// segment and their total count.
func collectCuts(ctx context.Context, segments []WallSegment, tolerance float64, useIndex bool,
	cutter func(a, b WallSegment, tol float64) ([]cut, []cut)) ([][]cut, int, error) {
	cuts := make([][]cut, len(segments))
	var ctxErr error
	examined, n := 0, 0
	visit := func(i, j int) bool {
		examined++
		if examined%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				ctxErr = err
				return false
			}
		}
		ci, cj := cutter(segments[i], segments[j], tolerance)
		cuts[i] = append(cuts[i], ci...)
		cuts[j] = append(cuts[j], cj...)
		n += len(ci) + len(cj)
		return true
	}

	if useIndex {
		newSegmentGrid(segments, tolerance).pairs(visit)
	} else {
		allPairs(segments, tolerance, visit)
	}
	if ctxErr == nil {
		ctxErr = ctx.Err()
	}
	if ctxErr != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDeadlineExceeded, ctxErr)
	}
	return cuts, n, nil
}

// cut is a split point on a segment: its parameter along the segment and
// its position.
type cut struct {
	t float64
	p orb.Point
}

// intersectionCuts returns the interior cuts that segment b imposes on a, and
// that a imposes on b.
func intersectionCuts(a, b WallSegment, tol float64) (ca, cb []cut) {
	la, lb := a.Length(), b.Length()

	// Endpoints touching the other segment's interior: T-junctions, near-miss
	// T-junctions and the ends of collinear overlaps.
	for _, p := range [2]orb.Point{b.Start, b.End} {
		if c, ok := interiorCut(a, la, p, tol); ok {
			ca = append(ca, c)
		}
	}
	for _, p := range [2]orb.Point{a.Start, a.End} {
		if c, ok := interiorCut(b, lb, p, tol); ok {
			cb = append(cb, c)
		}
	}

	// Proper crossing away from every endpoint.
	da := orb.Point{a.End[0] - a.Start[0], a.End[1] - a.Start[1]}
	db := orb.Point{b.End[0] - b.Start[0], b.End[1] - b.Start[1]}
	denom := da[0]*db[1] - da[1]*db[0]
	if math.Abs(denom) <= parallelEpsilon*la*lb {
		return ca, cb
	}
	w := orb.Point{b.Start[0] - a.Start[0], b.Start[1] - a.Start[1]}
	t := (w[0]*db[1] - w[1]*db[0]) / denom
	u := (w[0]*da[1] - w[1]*da[0]) / denom
	if t*la > tol && (1-t)*la > tol && u*lb > tol && (1-u)*lb > tol {
		// Both sides share one point so the pieces meet exactly.
		p := alignToAxis(alignToAxis(lerp(a.Start, a.End, t), a), b)
		ca = append(ca, cut{t: t, p: p})
		cb = append(cb, cut{t: u, p: p})
	}
	return ca, cb
}

// interiorCut returns the projection of p onto seg when p lies within tol of
// seg and the projection is more than tol from both ends.
func interiorCut(seg WallSegment, length float64, p orb.Point, tol float64) (cut, bool) {
	if !onSegment(seg.Start, seg.End, p, tol) {
		return cut{}, false
	}
	t := project(seg.Start, seg.End, p)
	if t*length <= tol || (1-t)*length <= tol {
		return cut{}, false
	}
	q := lerp(seg.Start, seg.End, t)
	switch {
	case seg.Start[1] == seg.End[1]:
		q = orb.Point{p[0], seg.Start[1]}
	case seg.Start[0] == seg.End[0]:
		q = orb.Point{seg.Start[0], p[1]}
	}
	return cut{t: t, p: q}, true
}

// contactCuts is intersectionCuts for edges of an already snapped graph.
// Vertices near an edge's interior cut it as before, and a crossing is cut
// wherever it lies, even within tol of an end, so that snapping turns it
// into a shared vertex.
func contactCuts(a, b WallSegment, tol float64) (ca, cb []cut) {
	la, lb := a.Length(), b.Length()
	for _, p := range [2]orb.Point{b.Start, b.End} {
		if c, ok := interiorCut(a, la, p, tol); ok {
			ca = append(ca, c)
		}
	}
	for _, p := range [2]orb.Point{a.Start, a.End} {
		if c, ok := interiorCut(b, lb, p, tol); ok {
			cb = append(cb, c)
		}
	}

	if !properlyCross(a.Start, a.End, b.Start, b.End) {
		return ca, cb
	}
	da := orb.Point{a.End[0] - a.Start[0], a.End[1] - a.Start[1]}
	db := orb.Point{b.End[0] - b.Start[0], b.End[1] - b.Start[1]}
	denom := da[0]*db[1] - da[1]*db[0]
	if denom == 0 {
		return ca, cb
	}
	w := orb.Point{b.Start[0] - a.Start[0], b.Start[1] - a.Start[1]}
	t := (w[0]*db[1] - w[1]*db[0]) / denom
	u := (w[0]*da[1] - w[1]*da[0]) / denom
	if t <= 0 || t >= 1 || u <= 0 || u >= 1 {
		return ca, cb
	}
	p := alignToAxis(alignToAxis(lerp(a.Start, a.End, t), a), b)
	ca = append(ca, cut{t: t, p: p})
	cb = append(cb, cut{t: u, p: p})
	return ca, cb
}

// alignToAxis pins p exactly onto seg when seg is horizontal or vertical,
// removing the rounding error of interpolation.
func alignToAxis(p orb.Point, seg WallSegment) orb.Point {
	if seg.Start[1] == seg.End[1] {
		p[1] = seg.Start[1]
	}
	if seg.Start[0] == seg.End[0] {
		p[0] = seg.Start[0]
	}
	return p
}

type piece struct {
	a, b        orb.Point
	sources     []int
	loadBearing bool
}

// cutSegments emits the consecutive sub-segments of every segment between
// its endpoints and sorted cut points. Cuts closer than tol to the previous
// one are skipped. Every piece inherits sources[i] of its segment.
func cutSegments(segments []WallSegment, sources [][]int, cuts [][]cut, tol float64) []piece {
	var pieces []piece
	for i, s := range segments {
		length := s.Length()
		cs := cuts[i]
		sort.Slice(cs, func(a, b int) bool {
			if cs[a].t != cs[b].t {
				return cs[a].t < cs[b].t
			}
			return pointLess(cs[a].p, cs[b].p)
		})

		prevT := 0.0
		prev := s.Start
		for _, c := range cs {
			if (c.t-prevT)*length <= tol {
				continue
			}
			pieces = append(pieces, piece{a: prev, b: c.p, sources: sources[i], loadBearing: s.LoadBearing})
			prev, prevT = c.p, c.t
		}
		pieces = append(pieces, piece{a: prev, b: s.End, sources: sources[i], loadBearing: s.LoadBearing})
	}
	return pieces
}

type snapPoint struct {
	p  orb.Point
	id int
}

func (s snapPoint) Point() orb.Point { return s.p }

// assembleGraph snaps piece endpoints within tol, then deduplicates pieces
// into graph edges.
func assembleGraph(pieces []piece, tol float64) (*PlanarGraph, error) {
	ids := make(map[orb.Point]int)
	var points []orb.Point
	for _, pc := range pieces {
		for _, p := range [2]orb.Point{pc.a, pc.b} {
			if _, ok := ids[p]; !ok {
				ids[p] = len(points)
				points = append(points, p)
			}
		}
	}

	canon, err := snapPoints(points, tol)
	if err != nil {
		return nil, err
	}

	unique := make(map[orb.Point]struct{}, len(points))
	for _, c := range canon {
		unique[c] = struct{}{}
	}
	vertices := make([]orb.Point, 0, len(unique))
	for p := range unique {
		vertices = append(vertices, p)
	}
	sort.Slice(vertices, func(i, j int) bool { return pointLess(vertices[i], vertices[j]) })
	vertexIndex := make(map[orb.Point]int, len(vertices))
	for i, v := range vertices {
		vertexIndex[v] = i
	}

	edgeIndex := make(map[[2]int]int)
	var edges []Edge
	for _, pc := range pieces {
		u := vertexIndex[canon[ids[pc.a]]]
		v := vertexIndex[canon[ids[pc.b]]]
		if u == v {
			continue
		}
		if u > v {
			u, v = v, u
		}
		key := [2]int{u, v}
		if k, ok := edgeIndex[key]; ok {
			edges[k].LoadBearing = edges[k].LoadBearing || pc.loadBearing
			for _, src := range pc.sources {
				edges[k].Sources = appendSource(edges[k].Sources, src)
			}
			continue
		}
		edgeIndex[key] = len(edges)
		edges = append(edges, Edge{U: u, V: v, LoadBearing: pc.loadBearing, Sources: append([]int(nil), pc.sources...)})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].U != edges[j].U {
			return edges[i].U < edges[j].U
		}
		return edges[i].V < edges[j].V
	})

	return &PlanarGraph{Vertices: vertices, Edges: edges}, nil
}

// snapPoints clusters points closer than tol (transitively) and maps every
// point to its cluster's lexicographically smallest member, which keeps the
// result independent of input order.
func snapPoints(points []orb.Point, tol float64) ([]orb.Point, error) {
	if len(points) == 0 {
		return nil, nil
	}
	extent := orb.MultiPoint(points).Bound().Pad(tol + 1)
	qt := quadtree.New(extent)
	for i, p := range points {
		if err := qt.Add(snapPoint{p: p, id: i}); err != nil {
			return nil, &GeometryError{Stage: "snap", Err: err}
		}
	}

	uf := newUnionFind(len(points))
	var buf []orb.Pointer
	for i, p := range points {
		buf = qt.InBound(buf[:0], orb.Bound{Min: p, Max: p}.Pad(tol))
		for _, other := range buf {
			sp := other.(snapPoint)
			if sp.id != i && distance(p, sp.p) <= tol {
				uf.union(i, sp.id)
			}
		}
	}

	best := make(map[int]orb.Point)
	for i, p := range points {
		root := uf.find(i)
		if cur, ok := best[root]; !ok || pointLess(p, cur) {
			best[root] = p
		}
	}
	canon := make([]orb.Point, len(points))
	for i := range points {
		canon[i] = best[uf.find(i)]
	}
	return canon, nil
}

func appendSource(sources []int, s int) []int {
	i := sort.SearchInts(sources, s)
	if i < len(sources) && sources[i] == s {
		return sources
	}
	sources = append(sources, 0)
	copy(sources[i+1:], sources[i:])
	sources[i] = s
	return sources
}

// unionFind is a disjoint-set with path compression.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra != rb {
		uf.parent[ra] = rb
	}
}
