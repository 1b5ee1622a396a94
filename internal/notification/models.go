package notification

import "time"

// Kind separates success notices from failure reports.
type Kind string

const (
	KindInfo  Kind = "info"
	KindError Kind = "error"
)

func (k Kind) Valid() bool {
	return k == KindInfo || k == KindError
}

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
