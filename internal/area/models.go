package area

import (
	"time"

	"github.com/tetebueno/dawarich/internal/shared/geo"
)

// Area is a named circle the user draws on the map, such as home or work.
type Area struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name" validate:"required,max=120"`
	Latitude  float64   `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64   `json:"longitude" validate:"gte=-180,lte=180"`
	RadiusM   float64   `json:"radius" validate:"gt=0,lte=100000"`
	CreatedAt time.Time `json:"created_at"`
}

// Contains reports whether the coordinate lies inside the circle.
func (a Area) Contains(lat, lon float64) bool {
	return geo.DistanceMeters(a.Latitude, a.Longitude, lat, lon) <= a.RadiusM
}

// Visit summarises the user's points that fall inside an area.
type Visit struct {
	AreaID    string `json:"area_id"`
	Points    int    `json:"points"`
	FirstSeen int64  `json:"first_seen,omitempty"`
	LastSeen  int64  `json:"last_seen,omitempty"`
}
