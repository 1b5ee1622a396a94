// Package segment splits an ordered point track into polylines and derives
// per-polyline statistics for the map and trip views.
package segment

import (
	"github.com/tetebueno/dawarich/internal/point"
	"github.com/tetebueno/dawarich/internal/shared/geo"
)

// Segment is a contiguous run of points drawn as one polyline.
type Segment []point.Point

// Thresholds bound the gap between consecutive points of one segment.
// Both comparisons are strict: a gap equal to a threshold stays joined.
type Thresholds struct {
	Meters  float64
	Minutes float64
}

// Split partitions points, which must be ordered by timestamp, into segments.
// A new segment starts whenever the distance or elapsed time from the last
// point of the open segment exceeds its threshold.
func Split(points []point.Point, t Thresholds) []Segment {
	if len(points) == 0 {
		return []Segment{}
	}

	segments := make([]Segment, 0, 4)
	current := Segment{points[0]}
	for _, p := range points[1:] {
		last := current[len(current)-1]
		if breaks(last, p, t) {
			segments = append(segments, current)
			current = Segment{p}
			continue
		}
		current = append(current, p)
	}
	return append(segments, current)
}

func breaks(a, b point.Point, t Thresholds) bool {
	meters := geo.DistanceMeters(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
	minutes := float64(b.Timestamp-a.Timestamp) / 60
	return meters > t.Meters || minutes > t.Minutes
}

// PathLength is the sum of the legs between consecutive points, in meters.
func PathLength(points []point.Point) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		a, b := points[i-1], points[i]
		total += geo.DistanceMeters(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
	}
	return total
}

// First and Last return the segment endpoints. Both panic on an empty segment,
// which Split never produces.
func (s Segment) First() point.Point { return s[0] }
func (s Segment) Last() point.Point  { return s[len(s)-1] }
