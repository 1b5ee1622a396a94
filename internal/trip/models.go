package trip

import (
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/tetebueno/dawarich/internal/segment"
)

// Trip is a named time window over the user's track.
type Trip struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name" validate:"required,max=200"`
	StartedAt int64     `json:"started_at" validate:"required,gt=0"`
	EndedAt   int64     `json:"ended_at" validate:"required,gtefield=StartedAt"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

// Path is a trip with its track split into routes.
type Path struct {
	Trip
	Points          int                        `json:"points"`
	DistanceMeters  float64                    `json:"distance_meters"`
	Distance        string                     `json:"distance"`
	DurationMinutes int64                      `json:"duration_minutes"`
	Segments        []segment.Stats            `json:"segments"`
	GeoJSON         *geojson.FeatureCollection `json:"geojson"`
}
