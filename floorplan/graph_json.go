package floorplan

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// GraphNode is a vertex of the split wall graph.
type GraphNode struct {
	ID    int     `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Label string  `json:"label"`
}

// GraphEdge is a split wall piece between two nodes.
type GraphEdge struct {
	ID            string     `json:"id"`
	Source        int        `json:"source"`
	Target        int        `json:"target"`
	SourceCoords  [2]float64 `json:"sourceCoords"`
	TargetCoords  [2]float64 `json:"targetCoords"`
	IsLoadBearing bool       `json:"isLoadBearing"`
}

// GraphCycle is a face boundary expressed as node ids.
type GraphCycle struct {
	ID     string       `json:"id"`
	Nodes  []int        `json:"nodes"`
	Coords [][2]float64 `json:"coords"`
}

// GraphStats counts the elements of a GraphData document.
type GraphStats struct {
	NodeCount  int `json:"nodeCount"`
	EdgeCount  int `json:"edgeCount"`
	CycleCount int `json:"cycleCount"`
}

// GraphData is the visualization document for a split wall graph.
type GraphData struct {
	Nodes  []GraphNode  `json:"nodes"`
	Edges  []GraphEdge  `json:"edges"`
	Cycles []GraphCycle `json:"cycles"`
	Stats  GraphStats   `json:"stats"`
}

// NewGraphData builds the visualization document. faces must be in the
// graph's own coordinates; ring points are matched to the nearest node.
func NewGraphData(g *PlanarGraph, faces []Face) GraphData {
	data := GraphData{
		Nodes:  make([]GraphNode, 0, len(g.Vertices)),
		Edges:  make([]GraphEdge, 0, len(g.Edges)),
		Cycles: []GraphCycle{},
	}
	index := make(map[orb.Point]int, len(g.Vertices))
	for i, v := range g.Vertices {
		index[v] = i
		data.Nodes = append(data.Nodes, GraphNode{
			ID:    i,
			X:     v[0],
			Y:     v[1],
			Label: fmt.Sprintf("(%.1f, %.1f)", v[0], v[1]),
		})
	}
	for _, e := range g.Edges {
		data.Edges = append(data.Edges, GraphEdge{
			ID:            fmt.Sprintf("e_%d_%d", e.U, e.V),
			Source:        e.U,
			Target:        e.V,
			SourceCoords:  g.Vertices[e.U],
			TargetCoords:  g.Vertices[e.V],
			IsLoadBearing: e.LoadBearing,
		})
	}

	for i, f := range faces {
		ring := f.Shell
		if ring.Closed() {
			ring = ring[:len(ring)-1]
		}
		cycle := GraphCycle{ID: fmt.Sprintf("cycle_%d", i)}
		for _, p := range ring {
			id, ok := index[p]
			if !ok {
				id = nearestVertex(g.Vertices, p)
			}
			if id < 0 {
				continue
			}
			cycle.Nodes = append(cycle.Nodes, id)
			cycle.Coords = append(cycle.Coords, p)
		}
		if len(cycle.Nodes) >= 3 {
			data.Cycles = append(data.Cycles, cycle)
		}
	}

	data.Stats = GraphStats{
		NodeCount:  len(data.Nodes),
		EdgeCount:  len(data.Edges),
		CycleCount: len(data.Cycles),
	}
	return data
}

// GraphData returns the visualization document for r, with the accepted
// faces mapped back into input coordinates.
func (r *Result) GraphData() GraphData {
	faces := r.Faces
	if !r.Transform.IsIdentity() {
		inv := InvertMatrix(r.Transform)
		faces = make([]Face, len(r.Faces))
		for i, f := range r.Faces {
			faces[i] = transformFace(f, inv)
		}
	}
	g := r.Graph
	if g == nil {
		g = &PlanarGraph{}
	}
	return NewGraphData(g, faces)
}

func nearestVertex(vertices []orb.Point, p orb.Point) int {
	best := -1
	bestDist := math.Inf(1)
	for i, v := range vertices {
		if d := distance(v, p); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
