package floorplan

import (
	"math"

	"github.com/paulmach/orb"
)

// segmentTypeLine is the only record type accepted on the wire.
const segmentTypeLine = "line"

// ValidateRecords converts raw wire records into wall segments. The first
// malformed record aborts the call with a *ValidationError; nothing is dropped.
func ValidateRecords(records []SegmentRecord, tolerance float64) ([]WallSegment, error) {
	segments := make([]WallSegment, 0, len(records))
	for i, rec := range records {
		if rec.Type != "" && rec.Type != segmentTypeLine {
			return nil, &ValidationError{Index: i, Field: "type", Reason: "unsupported type " + quote(rec.Type)}
		}

		start, err := recordPoint(i, "start", rec.Start, rec.nullStart)
		if err != nil {
			return nil, err
		}
		end, err := recordPoint(i, "end", rec.End, rec.nullEnd)
		if err != nil {
			return nil, err
		}
		if rec.nullLoadBearing {
			return nil, &ValidationError{Index: i, Field: "is_load_bearing", Reason: "must be a boolean"}
		}

		seg := WallSegment{Start: start, End: end}
		if rec.IsLoadBearing != nil {
			seg.LoadBearing = *rec.IsLoadBearing
		}
		if err := validateSegment(i, seg, tolerance); err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// ValidateSegments checks already-typed segments and returns them unchanged.
func ValidateSegments(segments []WallSegment, tolerance float64) ([]WallSegment, error) {
	for i, seg := range segments {
		if err := validateSegment(i, seg, tolerance); err != nil {
			return nil, err
		}
	}
	return segments, nil
}

func validateSegment(i int, seg WallSegment, tolerance float64) error {
	for _, f := range []struct {
		name string
		p    orb.Point
	}{{"start", seg.Start}, {"end", seg.End}} {
		if !finite(f.p[0]) || !finite(f.p[1]) {
			return &ValidationError{Index: i, Field: f.name, Reason: "coordinates must be finite numbers"}
		}
	}
	if distance(seg.Start, seg.End) <= tolerance {
		return &ValidationError{Index: i, Reason: "zero-length segment (start equals end)"}
	}
	return nil
}

func recordPoint(i int, field string, coords []float64, hasNull bool) (orb.Point, error) {
	if coords == nil {
		return orb.Point{}, &ValidationError{Index: i, Field: field, Reason: "missing"}
	}
	if len(coords) != 2 {
		return orb.Point{}, &ValidationError{Index: i, Field: field, Reason: "must be an [x, y] array"}
	}
	if hasNull {
		return orb.Point{}, &ValidationError{Index: i, Field: field, Reason: "coordinates must be numbers"}
	}
	return orb.Point{coords[0], coords[1]}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func quote(s string) string {
	return "\"" + s + "\""
}
