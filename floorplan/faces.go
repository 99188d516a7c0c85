package floorplan

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// halfEdge is one direction of an undirected graph edge. Half-edges 2k and
// 2k+1 are twins.
type halfEdge struct {
	origin, dest int
	angle        float64
}

// faceWalk is the closed vertex sequence traced by following next half-edges.
type faceWalk struct {
	verts     []int
	area      float64
	component int
}

// findFacesPrimary enumerates the bounded faces of the planar embedding of g.
// Bridges and dangling edges are ignored. Every face is traced exactly once.
func findFacesPrimary(g *PlanarGraph) ([]Face, error) {
	bridges := findBridges(len(g.Vertices), g.Edges)

	var halves []halfEdge
	for k, e := range g.Edges {
		if bridges[k] {
			continue
		}
		a, b := g.Vertices[e.U], g.Vertices[e.V]
		halves = append(halves,
			halfEdge{origin: e.U, dest: e.V, angle: math.Atan2(b[1]-a[1], b[0]-a[0])},
			halfEdge{origin: e.V, dest: e.U, angle: math.Atan2(a[1]-b[1], a[0]-b[0])},
		)
	}
	if len(halves) == 0 {
		return nil, nil
	}

	// Outgoing half-edges per vertex, counter-clockwise by angle.
	outgoing := make(map[int][]int)
	for h, he := range halves {
		outgoing[he.origin] = append(outgoing[he.origin], h)
	}
	position := make([]int, len(halves))
	for _, out := range outgoing {
		sort.Slice(out, func(i, j int) bool { return halves[out[i]].angle < halves[out[j]].angle })
		for i, h := range out {
			position[h] = i
		}
	}

	// Arriving at v along h, the face continues on the edge immediately
	// clockwise from h's twin, which keeps the face on the left.
	next := func(h int) int {
		twin := h ^ 1
		out := outgoing[halves[twin].origin]
		i := position[twin] - 1
		if i < 0 {
			i += len(out)
		}
		return out[i]
	}

	components, componentOf := labelComponents(len(g.Vertices), halves)

	visited := make([]bool, len(halves))
	var walks []faceWalk
	for start := range halves {
		if visited[start] {
			continue
		}
		var verts []int
		h := start
		for steps := 0; ; steps++ {
			if steps > len(halves) {
				return nil, geometryErrorf("polygonize", "face walk from half-edge %d did not close", start)
			}
			if visited[h] {
				return nil, geometryErrorf("polygonize", "half-edge %d visited twice", h)
			}
			visited[h] = true
			verts = append(verts, halves[h].origin)
			h = next(h)
			if h == start {
				break
			}
		}
		walks = append(walks, faceWalk{
			verts:     verts,
			area:      signedArea(walkRing(g.Vertices, verts)),
			component: componentOf[halves[start].origin],
		})
	}

	vertexCount := len(outgoing)
	edgeCount := len(halves) / 2
	if vertexCount-edgeCount+len(walks) != 2*components {
		return nil, geometryErrorf("polygonize", "euler characteristic mismatch: V=%d E=%d W=%d C=%d",
			vertexCount, edgeCount, len(walks), components)
	}

	var faces []Face
	var faceComponent []int
	var outlines []faceWalk
	for _, w := range walks {
		if w.area <= 0 {
			outlines = append(outlines, w)
			continue
		}
		shell, holes := walkLoops(g.Vertices, w.verts)
		if shell == nil {
			continue
		}
		faces = append(faces, Face{Shell: shell, Holes: holes, Source: SourcePrimary})
		faceComponent = append(faceComponent, w.component)
	}

	// A component's outline is a hole of the smallest face of another
	// component that encloses it.
	for _, w := range outlines {
		inner := g.Vertices[w.verts[0]]
		best := -1
		bestArea := math.Inf(1)
		for i, f := range faces {
			if faceComponent[i] == w.component {
				continue
			}
			a := signedArea(f.Shell)
			if a < bestArea && planar.RingContains(f.Shell, inner) {
				best, bestArea = i, a
			}
		}
		if best < 0 {
			continue
		}
		for _, loop := range splitLoops(w.verts) {
			r := closeRing(walkRing(g.Vertices, loop))
			if signedArea(r) < 0 {
				faces[best].Holes = append(faces[best].Holes, r)
			}
		}
	}

	for i := range faces {
		faces[i].Area, faces[i].Perimeter = faceMeasures(faces[i])
	}
	return faces, nil
}

// walkLoops splits a bounded face walk into simple loops. The largest
// counter-clockwise loop is the shell; clockwise loops are holes.
func walkLoops(vertices []Point, verts []int) (orb.Ring, []orb.Ring) {
	var shell orb.Ring
	var shellArea float64
	var holes []orb.Ring
	for _, loop := range splitLoops(verts) {
		r := closeRing(walkRing(vertices, loop))
		a := signedArea(r)
		switch {
		case a > shellArea:
			shell, shellArea = r, a
		case a < 0:
			holes = append(holes, r)
		}
	}
	return shell, holes
}

// splitLoops decomposes a closed vertex walk that may revisit vertices into
// loops without repeated vertices. Loops shorter than three vertices are dropped.
func splitLoops(walk []int) [][]int {
	var loops [][]int
	var stack []int
	pos := make(map[int]int)
	for _, v := range walk {
		if p, ok := pos[v]; ok {
			loop := append([]int(nil), stack[p:]...)
			for _, w := range stack[p+1:] {
				delete(pos, w)
			}
			stack = stack[:p+1]
			if len(loop) >= 3 {
				loops = append(loops, loop)
			}
			continue
		}
		pos[v] = len(stack)
		stack = append(stack, v)
	}
	if len(stack) >= 3 {
		loops = append(loops, stack)
	}
	return loops
}

func walkRing(vertices []Point, verts []int) orb.Ring {
	r := make(orb.Ring, len(verts))
	for i, v := range verts {
		r[i] = vertices[v]
	}
	return r
}

// faceMeasures returns the area (shell minus holes) and the total boundary length.
func faceMeasures(f Face) (area, perimeter float64) {
	area = math.Abs(signedArea(f.Shell))
	perimeter = planar.Length(f.Shell)
	for _, h := range f.Holes {
		area -= math.Abs(signedArea(h))
		perimeter += planar.Length(h)
	}
	return area, perimeter
}

// labelComponents assigns a connected-component id to every vertex touched
// by a half-edge.
func labelComponents(n int, halves []halfEdge) (int, []int) {
	uf := newUnionFind(n)
	for _, he := range halves {
		uf.union(he.origin, he.dest)
	}
	ids := make(map[int]int)
	componentOf := make([]int, n)
	for v := 0; v < n; v++ {
		componentOf[v] = -1
	}
	for _, he := range halves {
		root := uf.find(he.origin)
		id, ok := ids[root]
		if !ok {
			id = len(ids)
			ids[root] = id
		}
		componentOf[he.origin] = id
	}
	return len(ids), componentOf
}

type adjacent struct {
	to, edge int
}

// findBridges marks every edge whose removal disconnects its component,
// using an iterative Tarjan low-link pass.
func findBridges(n int, edges []Edge) []bool {
	adj := make([][]adjacent, n)
	for k, e := range edges {
		adj[e.U] = append(adj[e.U], adjacent{to: e.V, edge: k})
		adj[e.V] = append(adj[e.V], adjacent{to: e.U, edge: k})
	}

	disc := make([]int, n)
	low := make([]int, n)
	for i := range disc {
		disc[i] = -1
	}
	bridges := make([]bool, len(edges))

	type frame struct {
		v, parentEdge, next int
	}
	timer := 0
	for root := 0; root < n; root++ {
		if disc[root] != -1 || len(adj[root]) == 0 {
			continue
		}
		disc[root], low[root] = timer, timer
		timer++
		stack := []frame{{v: root, parentEdge: -1}}
		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			if f.next < len(adj[f.v]) {
				a := adj[f.v][f.next]
				f.next++
				if a.edge == f.parentEdge {
					continue
				}
				if disc[a.to] == -1 {
					disc[a.to], low[a.to] = timer, timer
					timer++
					stack = append(stack, frame{v: a.to, parentEdge: a.edge})
				} else if disc[a.to] < low[f.v] {
					low[f.v] = disc[a.to]
				}
				continue
			}

			top := *f
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				continue
			}
			parent := stack[len(stack)-1].v
			if low[top.v] < low[parent] {
				low[parent] = low[top.v]
			}
			if low[top.v] > disc[parent] {
				bridges[top.parentEdge] = true
			}
		}
	}
	return bridges
}
