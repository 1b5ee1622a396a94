package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tetebueno/dawarich/internal/db"
)

var ErrNotFound = errors.New("notification not found")

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

func (s *Service) Create(ctx context.Context, userID string, kind Kind, title, content string) (Notification, error) {
	if !kind.Valid() {
		return Notification{}, fmt.Errorf("unknown notification kind %q", kind)
	}
	n := Notification{
		ID:      uuid.NewString(),
		UserID:  userID,
		Kind:    kind,
		Title:   title,
		Content: content,
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO notifications (id, user_id, kind, title, content)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at
	`, n.ID, n.UserID, string(n.Kind), n.Title, n.Content)
	if err := row.Scan(&n.CreatedAt); err != nil {
		return Notification{}, err
	}
	return n, nil
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID string, unreadOnly bool) ([]Notification, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, kind, title, content, read, created_at
		FROM notifications
		WHERE user_id=$1 AND (NOT $2::boolean OR read = false)
		ORDER BY created_at DESC
	`, userID, unreadOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		var kind string
		if err := rows.Scan(&n.ID, &n.UserID, &kind, &n.Title, &n.Content, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Kind = Kind(kind)
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	tag, err := s.db.Exec(ctx, `UPDATE notifications SET read=true WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	tag, err := s.db.Exec(ctx, `UPDATE notifications SET read=true WHERE user_id=$1 AND read=false`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM notifications WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
