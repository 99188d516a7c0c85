// Package floorplan recovers enclosed rooms from a set of 2D wall segments.
//
// The pipeline is validate, split at intersections, find planar faces,
// filter and score them, then normalize them into ordered bounding boxes.
// Every call is independent; the package holds no mutable state.
package floorplan

import (
	"context"
	"fmt"
)

// primaryFaces is swapped in tests to exercise the cycle-search fallback.
var primaryFaces = findFacesPrimary

// DetectRooms returns the rooms enclosed by segments. An empty input yields an
// empty, non-nil slice.
func DetectRooms(segments []WallSegment, opts Options) ([]Room, error) {
	res, err := Detect(segments, opts)
	if err != nil {
		return nil, err
	}
	return res.Rooms, nil
}

// Detect is DetectRooms with the intermediate geometry attached.
func Detect(segments []WallSegment, opts Options) (*Result, error) {
	return DetectContext(context.Background(), segments, opts)
}

// DetectContext runs detection under ctx. Options.Deadline, when set, further
// bounds the call.
func DetectContext(ctx context.Context, segments []WallSegment, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	if _, err := ValidateSegments(segments, opts.Tolerance); err != nil {
		return nil, err
	}

	res := &Result{
		Rooms:     []Room{},
		Graph:     &PlanarGraph{},
		Strategy:  StrategyNone,
		Transform: Identity(),
		Stats:     Stats{InputSegments: len(segments)},
	}
	if len(segments) == 0 {
		return res, nil
	}

	if opts.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Deadline)
		defer cancel()
	}

	g, err := Split(ctx, segments, opts.Tolerance)
	if err != nil {
		return nil, fmt.Errorf("split segments: %w", err)
	}
	res.Graph = g
	res.Stats.SplitEdges = len(g.Edges)
	res.Stats.Vertices = len(g.Vertices)

	search, err := findFaces(ctx, g, opts)
	if err != nil {
		return nil, err
	}
	res.Strategy = search.strategy
	res.PrimaryErr = search.primaryErr

	accepted, rejected := scoreFaces(search.faces, opts)
	res.Stats.CandidateFaces = len(search.faces)
	res.Stats.RejectedFaces = rejected

	if opts.rescaleEnabled() {
		res.Transform = CanonicalTransform(segmentExtent(segments), opts.CanonicalMin, opts.CanonicalMax)
	}
	res.Rooms, res.Faces = normalizeRooms(accepted, res.Transform, opts.NameHint)
	res.Stats.Rooms = len(res.Rooms)
	return res, nil
}

type faceSearch struct {
	faces      []Face
	strategy   Strategy
	primaryErr error
}

// findFaces runs the primary face finder and falls back to cycle search when
// it fails or finds nothing on a graph that could hold a face.
func findFaces(ctx context.Context, g *PlanarGraph, opts Options) (faceSearch, error) {
	faces, primaryErr := primaryFaces(g)
	if primaryErr == nil && (len(faces) > 0 || len(g.Edges) < 3) {
		return faceSearch{faces: faces, strategy: StrategyPrimary}, nil
	}

	faces, err := findFacesFallback(ctx, g, opts.MaxFallbackCycles)
	if err != nil {
		if primaryErr != nil {
			return faceSearch{}, fmt.Errorf("cycle search: %w (after polygonize: %w)", err, primaryErr)
		}
		return faceSearch{}, fmt.Errorf("cycle search: %w", err)
	}
	return faceSearch{faces: faces, strategy: StrategyFallback, primaryErr: primaryErr}, nil
}
