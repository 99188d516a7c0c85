package floorplan

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Feature kinds written to the "kind" property.
const (
	KindRoom = "room"
	KindFace = "face"
	KindWall = "wall"
)

// RoomsToFeatureCollection converts rooms into Polygon features of their
// bounding boxes.
func RoomsToFeatureCollection(rooms []Room) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range rooms {
		fc.Append(roomFeature(r))
	}
	return fc
}

// ResultToFeatureCollection exports a detection result: one feature per room
// bounding box, one per accepted face polygon and, when withWalls is set, one
// LineString per split wall edge. All geometry is in output coordinates.
func ResultToFeatureCollection(res *Result, withWalls bool) *geojson.FeatureCollection {
	fc := RoomsToFeatureCollection(res.Rooms)
	for i, f := range res.Faces {
		feat := geojson.NewFeature(f.Polygon())
		feat.Properties["kind"] = KindFace
		if i < len(res.Rooms) {
			feat.Properties["room_id"] = res.Rooms[i].ID
		}
		feat.Properties["area"] = f.Area
		feat.Properties["perimeter"] = f.Perimeter
		feat.Properties["source"] = string(f.Source)
		fc.Append(feat)
	}

	if withWalls && res.Graph != nil {
		for i := range res.Graph.Edges {
			s := res.Graph.Segment(i)
			line := orb.LineString{
				TransformPoint(s.Start, res.Transform),
				TransformPoint(s.End, res.Transform),
			}
			feat := geojson.NewFeature(line)
			feat.Properties["kind"] = KindWall
			feat.Properties["is_load_bearing"] = s.LoadBearing
			fc.Append(feat)
		}
	}
	return fc
}

func roomFeature(r Room) *geojson.Feature {
	feat := geojson.NewFeature(r.BoundingBox.Bound().ToPolygon())
	feat.ID = r.ID
	feat.Properties["kind"] = KindRoom
	feat.Properties["name_hint"] = r.NameHint
	feat.Properties["confidence"] = r.Confidence
	return feat
}
