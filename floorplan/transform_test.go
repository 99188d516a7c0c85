package floorplan

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

const epsilon = 1e-10

// almostEqual checks if two floats are equal within epsilon tolerance
func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

// matricesEqual checks if two affine matrices are equal within epsilon tolerance
func matricesEqual(m1, m2 AffineMatrix) bool {
	return almostEqual(m1.A, m2.A) &&
		almostEqual(m1.B, m2.B) &&
		almostEqual(m1.Tx, m2.Tx) &&
		almostEqual(m1.C, m2.C) &&
		almostEqual(m1.D, m2.D) &&
		almostEqual(m1.Ty, m2.Ty)
}

func pointsEqual(p1, p2 Point) bool {
	return almostEqual(p1[0], p2[0]) && almostEqual(p1[1], p2[1])
}

func TestTransformPoint(t *testing.T) {
	tests := []struct {
		name   string
		point  Point
		matrix AffineMatrix
		want   Point
	}{
		{"identity transform", Point{10, 20}, Identity(), Point{10, 20}},
		{"translation only", Point{5, 5}, Translation(10, 15), Point{15, 20}},
		{"scale 2x", Point{3, 4}, Scale(2, 2), Point{6, 8}},
		{"non-uniform scale", Point{3, 4}, Scale(2, 0.5), Point{6, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TransformPoint(tt.point, tt.matrix)
			if !pointsEqual(got, tt.want) {
				t.Errorf("TransformPoint() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMultiplyMatrices(t *testing.T) {
	// Translate first, then scale.
	m := MultiplyMatrices(Scale(2, 2), Translation(1, 1))
	got := TransformPoint(Point{1, 1}, m)
	if !pointsEqual(got, Point{4, 4}) {
		t.Errorf("scale after translate = %v, want [4 4]", got)
	}

	if !matricesEqual(MultiplyMatrices(Identity(), m), m) {
		t.Error("identity should be a left unit")
	}
}

func TestInvertMatrix(t *testing.T) {
	m := MultiplyMatrices(Translation(-30, 12), Scale(0.25, 0.25))
	inv := InvertMatrix(m)
	if !matricesEqual(MultiplyMatrices(m, inv), Identity()) {
		t.Errorf("m * inv(m) = %+v, want identity", MultiplyMatrices(m, inv))
	}

	if !matricesEqual(InvertMatrix(Scale(0, 0)), Identity()) {
		t.Error("singular matrix should invert to identity")
	}
}

func TestCanonicalTransform(t *testing.T) {
	tests := []struct {
		name   string
		extent orb.Bound
		lo, hi float64
		// expected image of the extent corners
		wantMin, wantMax Point
		identity         bool
	}{
		{
			name:     "already in range",
			extent:   orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{400, 300}},
			lo:       0,
			hi:       1000,
			wantMin:  Point{0, 0},
			wantMax:  Point{400, 300},
			identity: true,
		},
		{
			name:    "larger drawing shrinks on its long side",
			extent:  orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{4000, 3000}},
			lo:      0,
			hi:      1000,
			wantMin: Point{0, 0},
			wantMax: Point{1000, 750},
		},
		{
			name:    "negative origin is shifted",
			extent:  orb.Bound{Min: orb.Point{-100, -50}, Max: orb.Point{300, 350}},
			lo:      0,
			hi:      1000,
			wantMin: Point{0, 0},
			wantMax: Point{1000, 1000},
		},
		{
			name:    "custom range",
			extent:  orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{200, 100}},
			lo:      10,
			hi:      110,
			wantMin: Point{10, 10},
			wantMax: Point{110, 60},
		},
		{
			name:     "disabled range",
			extent:   orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{5000, 5000}},
			lo:       0,
			hi:       0,
			wantMin:  Point{0, 0},
			wantMax:  Point{5000, 5000},
			identity: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := CanonicalTransform(tt.extent, tt.lo, tt.hi)
			if m.IsIdentity() != tt.identity {
				t.Errorf("IsIdentity() = %v, want %v", m.IsIdentity(), tt.identity)
			}
			if got := TransformPoint(tt.extent.Min, m); !pointsEqual(got, tt.wantMin) {
				t.Errorf("min corner = %v, want %v", got, tt.wantMin)
			}
			if got := TransformPoint(tt.extent.Max, m); !pointsEqual(got, tt.wantMax) {
				t.Errorf("max corner = %v, want %v", got, tt.wantMax)
			}
		})
	}
}

func TestNormalizeRooms_Ordering(t *testing.T) {
	faces := []Face{
		faceFromRing(orb.Ring{{200, 100}, {300, 100}, {300, 200}, {200, 200}}, SourcePrimary),
		faceFromRing(orb.Ring{{100, 0}, {200, 0}, {200, 100}, {100, 100}}, SourcePrimary),
		faceFromRing(orb.Ring{{0, 0}, {100, 0}, {100, 50}, {0, 50}}, SourcePrimary),
		faceFromRing(orb.Ring{{0, 0}, {100, 0}, {100, 100}, {0, 100}}, SourcePrimary),
	}

	rooms, ordered := normalizeRooms(faces, Identity(), "Room")
	want := []BoundingBox{
		{0, 0, 100, 50},
		{0, 0, 100, 100},
		{100, 0, 200, 100},
		{200, 100, 300, 200},
	}
	if len(rooms) != len(want) || len(ordered) != len(want) {
		t.Fatalf("got %d rooms, %d faces; want %d", len(rooms), len(ordered), len(want))
	}
	for i, r := range rooms {
		if r.BoundingBox != want[i] {
			t.Errorf("room %d bbox = %v, want %v", i, r.BoundingBox, want[i])
		}
		if NewBoundingBox(ordered[i].Bound()) != r.BoundingBox {
			t.Errorf("face %d not aligned with its room", i)
		}
	}
	if rooms[0].ID != "room_001" || rooms[3].ID != "room_004" {
		t.Errorf("ids = %s..%s, want room_001..room_004", rooms[0].ID, rooms[3].ID)
	}
}

func TestNormalizeRooms_TransformsFaces(t *testing.T) {
	faces := []Face{faceFromRing(orb.Ring{{0, 0}, {4000, 0}, {4000, 2000}, {0, 2000}}, SourcePrimary)}
	m := CanonicalTransform(faces[0].Bound(), 0, 1000)

	rooms, ordered := normalizeRooms(faces, m, "Space")
	if rooms[0].BoundingBox != (BoundingBox{0, 0, 1000, 500}) {
		t.Errorf("bbox = %v", rooms[0].BoundingBox)
	}
	if rooms[0].NameHint != "Space" {
		t.Errorf("name hint = %q", rooms[0].NameHint)
	}
	if !almostEqual(ordered[0].Area, 500000) {
		t.Errorf("scaled area = %v, want 500000", ordered[0].Area)
	}
	if faces[0].Area != 8000000 {
		t.Error("input face was modified")
	}
}

func TestRoomID(t *testing.T) {
	tests := map[int]string{1: "room_001", 42: "room_042", 999: "room_999", 1000: "room_1000"}
	for n, want := range tests {
		if got := roomID(n); got != want {
			t.Errorf("roomID(%d) = %q, want %q", n, got, want)
		}
	}
}
