package segment

import "github.com/tetebueno/dawarich/internal/shared/geo"

// Gap describes the space between a segment and one of its neighbours,
// measured between their nearest endpoints.
type Gap struct {
	Meters  float64 `json:"meters"`
	Minutes int64   `json:"minutes"`
}

type Stats struct {
	Index           int     `json:"index"`
	Points          int     `json:"points"`
	StartedAt       int64   `json:"started_at"`
	EndedAt         int64   `json:"ended_at"`
	DurationMinutes int64   `json:"duration_minutes"`
	DistanceMeters  float64 `json:"distance_meters"`
	Prev            *Gap    `json:"prev_gap"`
	Next            *Gap    `json:"next_gap"`
}

// Describe computes Stats for segments[i]. Distance is measured between the
// first and last point only. Prev and Next are nil at the sequence ends.
func Describe(segments []Segment, i int) Stats {
	s := segments[i]
	first, last := s.First(), s.Last()

	st := Stats{
		Index:           i,
		Points:          len(s),
		StartedAt:       first.Timestamp,
		EndedAt:         last.Timestamp,
		DurationMinutes: (last.Timestamp - first.Timestamp) / 60,
		DistanceMeters:  geo.DistanceMeters(first.Latitude, first.Longitude, last.Latitude, last.Longitude),
	}
	if i > 0 {
		st.Prev = gapBetween(segments[i-1], s)
	}
	if i < len(segments)-1 {
		st.Next = gapBetween(s, segments[i+1])
	}
	return st
}

// DescribeAll returns Stats for every segment in order.
func DescribeAll(segments []Segment) []Stats {
	out := make([]Stats, len(segments))
	for i := range segments {
		out[i] = Describe(segments, i)
	}
	return out
}

func gapBetween(before, after Segment) *Gap {
	a, b := before.Last(), after.First()
	return &Gap{
		Meters:  geo.DistanceMeters(a.Latitude, a.Longitude, b.Latitude, b.Longitude),
		Minutes: (b.Timestamp - a.Timestamp) / 60,
	}
}
