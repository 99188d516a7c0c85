package floorplan

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

// decodeRecord unmarshals one wire record, failing the test on bad JSON.
func decodeRecord(t *testing.T, data string) SegmentRecord {
	t.Helper()
	var rec SegmentRecord
	require.NoError(t, json.Unmarshal([]byte(data), &rec))
	return rec
}

func TestValidateRecords(t *testing.T) {
	good := SegmentRecord{Type: "line", Start: []float64{0, 0}, End: []float64{10, 0}}
	nullStart := decodeRecord(t, `{"type": "line", "start": [null, 5], "end": [400, 0]}`)
	nullEnd := decodeRecord(t, `{"start": [0, 0], "end": [400, null]}`)
	nullLoadBearing := decodeRecord(t, `{"start": [0, 0], "end": [400, 0], "is_load_bearing": null}`)

	tests := []struct {
		name    string
		records []SegmentRecord
		index   int
		field   string
		reason  string
	}{
		{
			name:    "missing start",
			records: []SegmentRecord{{Type: "line", End: []float64{1, 1}}},
			field:   "start",
			reason:  "missing",
		},
		{
			name:    "missing end",
			records: []SegmentRecord{good, {Start: []float64{1, 1}}},
			index:   1,
			field:   "end",
			reason:  "missing",
		},
		{
			name:    "three coordinates",
			records: []SegmentRecord{{Start: []float64{1, 1, 1}, End: []float64{2, 2}}},
			field:   "start",
			reason:  "must be an [x, y] array",
		},
		{
			name:    "unsupported type",
			records: []SegmentRecord{{Type: "arc", Start: []float64{0, 0}, End: []float64{1, 1}}},
			field:   "type",
			reason:  `unsupported type "arc"`,
		},
		{
			name:    "NaN coordinate",
			records: []SegmentRecord{{Start: []float64{math.NaN(), 0}, End: []float64{1, 1}}},
			field:   "start",
			reason:  "coordinates must be finite numbers",
		},
		{
			name:    "infinite coordinate",
			records: []SegmentRecord{good, good, {Start: []float64{0, 0}, End: []float64{math.Inf(1), 1}}},
			index:   2,
			field:   "end",
			reason:  "coordinates must be finite numbers",
		},
		{
			name:    "null start coordinate",
			records: []SegmentRecord{nullStart},
			field:   "start",
			reason:  "coordinates must be numbers",
		},
		{
			name:    "null end coordinate",
			records: []SegmentRecord{good, nullEnd},
			index:   1,
			field:   "end",
			reason:  "coordinates must be numbers",
		},
		{
			name:    "null is_load_bearing",
			records: []SegmentRecord{nullLoadBearing},
			field:   "is_load_bearing",
			reason:  "must be a boolean",
		},
		{
			name:    "start equals end",
			records: []SegmentRecord{{Start: []float64{5, 5}, End: []float64{5, 5}}},
			reason:  "zero-length segment (start equals end)",
		},
		{
			name:    "shorter than tolerance",
			records: []SegmentRecord{{Start: []float64{5, 5}, End: []float64{5.5, 5}}},
			reason:  "zero-length segment (start equals end)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments, err := ValidateRecords(tt.records, DefaultTolerance)
			assert.Nil(t, segments)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidSegment))

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.index, verr.Index)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, tt.reason, verr.Reason)
		})
	}
}

func TestValidateRecords_Valid(t *testing.T) {
	records := []SegmentRecord{
		{Type: "line", Start: []float64{0, 0}, End: []float64{10, 0}, IsLoadBearing: boolPtr(true)},
		{Start: []float64{10, 0}, End: []float64{10, 10}},
	}

	segments, err := ValidateRecords(records, DefaultTolerance)
	require.NoError(t, err)
	assert.Equal(t, []WallSegment{
		{Start: orb.Point{0, 0}, End: orb.Point{10, 0}, LoadBearing: true},
		{Start: orb.Point{10, 0}, End: orb.Point{10, 10}},
	}, segments)
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Index: 3, Field: "start", Reason: "missing"}
	assert.Equal(t, "wall segment 3: start: missing", err.Error())

	err = &ValidationError{Index: 0, Reason: "zero-length segment (start equals end)"}
	assert.Equal(t, "wall segment 0: zero-length segment (start equals end)", err.Error())
}

func TestValidateSegments(t *testing.T) {
	_, err := ValidateSegments([]WallSegment{seg(0, 0, 1, 1), seg(2, 2, 2, 2)}, DefaultTolerance)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 1, verr.Index)

	segments, err := ValidateSegments(rectangle(0, 0, 1, 1)[:1], 0.5)
	require.NoError(t, err)
	assert.Len(t, segments, 1)
}
