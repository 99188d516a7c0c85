package floorplan

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
)

// segmentExtent returns the bound of every segment endpoint.
func segmentExtent(segments []WallSegment) orb.Bound {
	if len(segments) == 0 {
		return orb.Bound{}
	}
	b := segments[0].Bound()
	for _, s := range segments[1:] {
		b = b.Union(s.Bound())
	}
	return b
}

// normalizeRooms orders accepted faces top-to-bottom then left-to-right,
// maps them through m and assigns room ids. The returned faces are
// index-aligned with the rooms.
func normalizeRooms(faces []Face, m AffineMatrix, nameHint string) ([]Room, []Face) {
	ordered := make([]Face, len(faces))
	for i, f := range faces {
		if !m.IsIdentity() {
			f = transformFace(f, m)
		}
		ordered[i] = f
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return boxLess(NewBoundingBox(ordered[i].Bound()), NewBoundingBox(ordered[j].Bound()))
	})

	rooms := make([]Room, len(ordered))
	for i, f := range ordered {
		rooms[i] = Room{
			ID:          roomID(i + 1),
			BoundingBox: NewBoundingBox(f.Bound()),
			NameHint:    nameHint,
			Confidence:  f.Confidence,
		}
	}
	return rooms, ordered
}

// boxLess orders by minY, minX, maxY, maxX.
func boxLess(a, b BoundingBox) bool {
	for _, k := range [4]int{1, 0, 3, 2} {
		if a[k] != b[k] {
			return a[k] < b[k]
		}
	}
	return false
}

// roomID formats 1-based room numbers as room_001; wider once past 999.
func roomID(n int) string {
	return fmt.Sprintf("room_%03d", n)
}

// transformFace maps a face through a uniform scale+translate. Area scales
// with the square of the factor, perimeter linearly.
func transformFace(f Face, m AffineMatrix) Face {
	out := f
	out.Shell = TransformRing(f.Shell, m)
	if len(f.Holes) > 0 {
		out.Holes = make([]orb.Ring, len(f.Holes))
		for i, h := range f.Holes {
			out.Holes[i] = TransformRing(h, m)
		}
	}
	out.Area, out.Perimeter = faceMeasures(out)
	return out
}
