package floorplan

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Point is a 2D coordinate in drawing units.
type Point = orb.Point

// WallSegment is one straight piece of wall.
type WallSegment struct {
	Start       Point `json:"start"`
	End         Point `json:"end"`
	LoadBearing bool  `json:"is_load_bearing"`
}

// Length returns the Euclidean length of the segment.
func (s WallSegment) Length() float64 {
	return distance(s.Start, s.End)
}

// Bound returns the axis-aligned bound of the segment.
func (s WallSegment) Bound() orb.Bound {
	return orb.Bound{Min: s.Start, Max: s.Start}.Extend(s.End)
}

func (s WallSegment) String() string {
	return fmt.Sprintf("WallSegment(%v -> %v, loadBearing=%v)", s.Start, s.End, s.LoadBearing)
}

// SegmentRecord is the raw wire shape of a wall segment before validation.
// Pointer and slice fields let the validator tell a missing field from a zero value.
type SegmentRecord struct {
	Type          string    `json:"type,omitempty" yaml:"type,omitempty"`
	Start         []float64 `json:"start" yaml:"start"`
	End           []float64 `json:"end" yaml:"end"`
	IsLoadBearing *bool     `json:"is_load_bearing,omitempty" yaml:"is_load_bearing,omitempty"`

	// JSON nulls found by UnmarshalJSON where a number or bool belongs.
	nullStart, nullEnd, nullLoadBearing bool
}

// Edge is a split wall segment between two graph vertices.
type Edge struct {
	U, V        int
	LoadBearing bool
	// Sources holds the indices of the input segments this edge was cut from.
	Sources []int
}

// PlanarGraph is the split segment arrangement. Vertices are unique within the
// snapping tolerance and sorted lexicographically; edges are sorted by (U, V)
// with U < V.
type PlanarGraph struct {
	Vertices []Point
	Edges    []Edge
}

// Segment returns edge i as a wall segment.
func (g *PlanarGraph) Segment(i int) WallSegment {
	e := g.Edges[i]
	return WallSegment{Start: g.Vertices[e.U], End: g.Vertices[e.V], LoadBearing: e.LoadBearing}
}

// FaceSource records which face-finding strategy produced a face.
type FaceSource string

const (
	SourcePrimary  FaceSource = "polygonize"
	SourceFallback FaceSource = "cycle_search"
)

// Face is a closed polygon bounding one candidate room.
type Face struct {
	// Shell is closed (first point repeated last) and counter-clockwise.
	Shell      orb.Ring
	Holes      []orb.Ring
	Area       float64
	Perimeter  float64
	Simple     bool
	Source     FaceSource
	Confidence float64
}

// Polygon returns the face as an orb polygon (shell followed by holes).
func (f Face) Polygon() orb.Polygon {
	p := orb.Polygon{f.Shell}
	return append(p, f.Holes...)
}

// Bound returns the axis-aligned bound of the face shell.
func (f Face) Bound() orb.Bound {
	return f.Shell.Bound()
}

// BoundingBox is (minX, minY, maxX, maxY); it serializes as a 4-tuple.
type BoundingBox [4]float64

// NewBoundingBox converts an orb bound.
func NewBoundingBox(b orb.Bound) BoundingBox {
	return BoundingBox{b.Min[0], b.Min[1], b.Max[0], b.Max[1]}
}

func (b BoundingBox) MinX() float64 { return b[0] }
func (b BoundingBox) MinY() float64 { return b[1] }
func (b BoundingBox) MaxX() float64 { return b[2] }
func (b BoundingBox) MaxY() float64 { return b[3] }

// Width returns maxX - minX.
func (b BoundingBox) Width() float64 { return b[2] - b[0] }

// Height returns maxY - minY.
func (b BoundingBox) Height() float64 { return b[3] - b[1] }

// Bound converts back to an orb bound.
func (b BoundingBox) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{b[0], b[1]}, Max: orb.Point{b[2], b[3]}}
}

// Room is the public detection result.
type Room struct {
	ID          string      `json:"id"`
	BoundingBox BoundingBox `json:"bounding_box"`
	NameHint    string      `json:"name_hint"`
	Confidence  float64     `json:"confidence"`
}

// Strategy names the face-finding path that produced a result.
type Strategy string

const (
	StrategyNone     Strategy = "none"
	StrategyPrimary  Strategy = "polygonize"
	StrategyFallback Strategy = "cycle_search"
)

// Stats summarizes one detection call.
type Stats struct {
	InputSegments  int `json:"inputSegments"`
	SplitEdges     int `json:"splitEdges"`
	Vertices       int `json:"vertices"`
	CandidateFaces int `json:"candidateFaces"`
	RejectedFaces  int `json:"rejectedFaces"`
	Rooms          int `json:"rooms"`
}

// Result is the full output of Detect: the public rooms plus the internal
// geometry used to produce them.
type Result struct {
	Rooms    []Room
	Faces    []Face // accepted faces, index-aligned with Rooms, in canonical coordinates
	Graph    *PlanarGraph
	Strategy Strategy
	// PrimaryErr is set when the primary face finder failed and the fallback ran.
	PrimaryErr error
	Transform  AffineMatrix
	Stats      Stats
}
