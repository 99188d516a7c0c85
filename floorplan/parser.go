package floorplan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// wallsDocument is the object form of a segment payload.
type wallsDocument struct {
	Walls []SegmentRecord `json:"walls"`
}

// UnmarshalJSON decodes a record and remembers null coordinates and a null
// is_load_bearing, which plain decoding would turn into zero values.
func (r *SegmentRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type          string          `json:"type"`
		Start         []*float64      `json:"start"`
		End           []*float64      `json:"end"`
		IsLoadBearing json.RawMessage `json:"is_load_bearing"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	rec := SegmentRecord{Type: raw.Type}
	rec.Start, rec.nullStart = derefCoords(raw.Start)
	rec.End, rec.nullEnd = derefCoords(raw.End)
	if raw.IsLoadBearing != nil {
		if bytes.Equal(raw.IsLoadBearing, []byte("null")) {
			rec.nullLoadBearing = true
		} else {
			var lb bool
			if err := json.Unmarshal(raw.IsLoadBearing, &lb); err != nil {
				return err
			}
			rec.IsLoadBearing = &lb
		}
	}
	*r = rec
	return nil
}

func derefCoords(in []*float64) (out []float64, hasNull bool) {
	if in == nil {
		return nil, false
	}
	out = make([]float64, len(in))
	for i, v := range in {
		if v == nil {
			hasNull = true
			continue
		}
		out[i] = *v
	}
	return out, hasNull
}

// ParseRecordsJSON decodes either a JSON array of segment records or an
// object of the form {"walls": [...]}.
func ParseRecordsJSON(data []byte) ([]SegmentRecord, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidSegment)
	}

	if trimmed[0] == '{' {
		var doc wallsDocument
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("%w: parsing JSON: %w", ErrInvalidSegment, err)
		}
		if doc.Walls == nil {
			return nil, fmt.Errorf("%w: missing \"walls\" array", ErrInvalidSegment)
		}
		return doc.Walls, nil
	}

	var records []SegmentRecord
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("%w: parsing JSON: %w", ErrInvalidSegment, err)
	}
	return records, nil
}

// ParseSegmentsJSON decodes and validates a segment payload.
func ParseSegmentsJSON(data []byte, tolerance float64) ([]WallSegment, error) {
	records, err := ParseRecordsJSON(data)
	if err != nil {
		return nil, err
	}
	return ValidateRecords(records, tolerance)
}

// ParseSegmentsFile reads and validates a segment payload from disk.
func ParseSegmentsFile(path string, tolerance float64) ([]WallSegment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return ParseSegmentsJSON(data, tolerance)
}

// Records converts segments back to their wire form.
func Records(segments []WallSegment) []SegmentRecord {
	out := make([]SegmentRecord, len(segments))
	for i, s := range segments {
		lb := s.LoadBearing
		out[i] = SegmentRecord{
			Type:          segmentTypeLine,
			Start:         []float64{s.Start[0], s.Start[1]},
			End:           []float64{s.End[0], s.End[1]},
			IsLoadBearing: &lb,
		}
	}
	return out
}
