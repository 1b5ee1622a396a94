package point

import "time"

// Point is a single recorded GPS fix. Points are never edited, only deleted.
type Point struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Latitude  float64   `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64   `json:"longitude" validate:"gte=-180,lte=180"`
	Altitude  float64   `json:"altitude"`
	Battery   float64   `json:"battery" validate:"lte=100"`
	Velocity  float64   `json:"velocity" validate:"gte=0"`
	Timestamp int64     `json:"timestamp" validate:"required,gt=0"`
	CreatedAt time.Time `json:"created_at"`
}

// Time returns the fix time in UTC.
func (p Point) Time() time.Time {
	return time.Unix(p.Timestamp, 0).UTC()
}

type batchRequest struct {
	Points []Point `json:"points" validate:"required,min=1,max=1000,dive"`
}
