package floorplan

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rectangleJSON = `[
  {"type": "line", "start": [0, 0], "end": [400, 0], "is_load_bearing": true},
  {"type": "line", "start": [400, 0], "end": [400, 300], "is_load_bearing": false},
  {"type": "line", "start": [400, 300], "end": [0, 300]},
  {"type": "line", "start": [0, 300], "end": [0, 0]}
]`

func TestParseSegmentsJSON_Array(t *testing.T) {
	segments, err := ParseSegmentsJSON([]byte(rectangleJSON), DefaultTolerance)
	require.NoError(t, err)
	require.Len(t, segments, 4)
	assert.Equal(t, WallSegment{Start: orb.Point{0, 0}, End: orb.Point{400, 0}, LoadBearing: true}, segments[0])
	assert.False(t, segments[2].LoadBearing)
}

func TestParseSegmentsJSON_WallsObject(t *testing.T) {
	segments, err := ParseSegmentsJSON([]byte(`{"walls": `+rectangleJSON+`}`), DefaultTolerance)
	require.NoError(t, err)
	assert.Len(t, segments, 4)
}

func TestParseSegmentsJSON_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty payload", "  "},
		{"not JSON", "walls"},
		{"object without walls", `{"segments": []}`},
		{"string coordinate", `[{"start": ["a", 0], "end": [1, 1]}]`},
		{"missing end", `[{"type": "line", "start": [0, 0]}]`},
		{"null coordinates", `[{"start": [null, null], "end": [400, 0]}]`},
		{"null load bearing flag", `[{"start": [0, 0], "end": [400, 0], "is_load_bearing": null}]`},
		{"string load bearing flag", `[{"start": [0, 0], "end": [400, 0], "is_load_bearing": "yes"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSegmentsJSON([]byte(tt.data), DefaultTolerance)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidSegment), "error %v", err)
		})
	}
}

func TestParseSegmentsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.json")
	require.NoError(t, os.WriteFile(path, []byte(rectangleJSON), 0o644))

	segments, err := ParseSegmentsFile(path, DefaultTolerance)
	require.NoError(t, err)
	assert.Len(t, segments, 4)

	_, err = ParseSegmentsFile(filepath.Join(dir, "missing.json"), DefaultTolerance)
	assert.Error(t, err)
}

func TestRecords_RoundTripThroughDetection(t *testing.T) {
	segments := rectangle(0, 0, 400, 300)
	segments[0].LoadBearing = true

	data, err := json.Marshal(Records(segments))
	require.NoError(t, err)

	parsed, err := ParseSegmentsJSON(data, DefaultTolerance)
	require.NoError(t, err)
	assert.Equal(t, segments, parsed)
}

func TestRoomJSON(t *testing.T) {
	data, err := json.Marshal(Room{ID: "room_001", BoundingBox: BoundingBox{0, 0, 400, 300}, NameHint: "Room", Confidence: 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"room_001","bounding_box":[0,0,400,300],"name_hint":"Room","confidence":1}`, string(data))
}
