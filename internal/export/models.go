package export

import (
	"time"

	"github.com/tetebueno/dawarich/internal/point"
)

type Status string

const (
	StatusCreated   Status = "created"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

type Export struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	URL       string    `json:"url,omitempty"`
	StartAt   int64     `json:"start_at"`
	EndAt     int64     `json:"end_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Entry is one point as written to an export file.
type Entry struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Battery   float64 `json:"battery"`
	Altitude  float64 `json:"altitude"`
	Velocity  float64 `json:"velocity"`
	Timestamp int64   `json:"timestamp"`
	ID        int64   `json:"id"`
}

func entryFromPoint(p point.Point) Entry {
	return Entry{
		Lat:       p.Latitude,
		Lon:       p.Longitude,
		Battery:   p.Battery,
		Altitude:  p.Altitude,
		Velocity:  p.Velocity,
		Timestamp: p.Timestamp,
		ID:        p.ID,
	}
}

// Document is the file layout: the owner's email keys the point list.
//
//	{"user@example.com": {"dawarich-export": [{...}, ...]}}
type Document map[string]map[string][]Entry

const documentKey = "dawarich-export"

type createRequest struct {
	StartAt string `json:"start_at"`
	EndAt   string `json:"end_at"`
}
