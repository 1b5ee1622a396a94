package segment

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// FeatureCollection renders each segment as a LineString feature carrying its
// stats. A single-point segment becomes a Point feature.
func FeatureCollection(segments []Segment, distanceUnit string) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, s := range segments {
		st := Describe(segments, i)

		var f *geojson.Feature
		if len(s) == 1 {
			f = geojson.NewFeature(orb.Point{s[0].Longitude, s[0].Latitude})
		} else {
			f = geojson.NewFeature(LineString(s))
		}
		f.Properties["index"] = st.Index
		f.Properties["points"] = st.Points
		f.Properties["started_at"] = st.StartedAt
		f.Properties["ended_at"] = st.EndedAt
		f.Properties["duration_minutes"] = st.DurationMinutes
		f.Properties["distance_meters"] = st.DistanceMeters
		f.Properties["popup"] = Popup(st, distanceUnit)
		fc.Append(f)
	}
	return fc
}

// LineString converts a segment to lon/lat order.
func LineString(s Segment) orb.LineString {
	ls := make(orb.LineString, len(s))
	for i, p := range s {
		ls[i] = orb.Point{p.Longitude, p.Latitude}
	}
	return ls
}
