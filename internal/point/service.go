package point

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tetebueno/dawarich/internal/db"
	"github.com/tetebueno/dawarich/internal/logging"
	"github.com/tetebueno/dawarich/internal/metrics"
	"github.com/tetebueno/dawarich/internal/stream"
)

var ErrNotFound = errors.New("point not found")

type Service struct {
	db  db.Querier
	hub *stream.Hub
}

func NewService(db db.Querier, hub *stream.Hub) *Service {
	return &Service{db: db, hub: hub}
}

func (s *Service) Create(ctx context.Context, userID string, input Point) (Point, error) {
	p, err := insert(ctx, s.db, userID, input)
	if err != nil {
		return Point{}, err
	}
	metrics.PointsCreated.Inc()
	s.broadcast(p)
	return p, nil
}

// CreateBatch stores all points in one transaction: either every point is
// stored or none is. Points are broadcast only after the commit.
func (s *Service) CreateBatch(ctx context.Context, userID string, inputs []Point) ([]Point, error) {
	created := make([]Point, 0, len(inputs))
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		for _, in := range inputs {
			p, err := insert(ctx, tx, userID, in)
			if err != nil {
				return err
			}
			created = append(created, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store batch: %w", err)
	}

	metrics.PointsCreated.Add(float64(len(created)))
	for _, p := range created {
		s.broadcast(p)
	}
	return created, nil
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insert(ctx context.Context, q rowQuerier, userID string, input Point) (Point, error) {
	row := q.QueryRow(ctx, `
		INSERT INTO points (user_id, latitude, longitude, altitude, battery, velocity, "timestamp")
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, created_at
	`, userID, input.Latitude, input.Longitude, input.Altitude, input.Battery, input.Velocity, input.Timestamp)
	if err := row.Scan(&input.ID, &input.CreatedAt); err != nil {
		return Point{}, err
	}
	input.UserID = userID
	return input, nil
}

func (s *Service) broadcast(p Point) {
	if s.hub == nil {
		return
	}
	payload, _ := json.Marshal(p)
	s.hub.Broadcast(p.UserID, payload)
}

// InRange returns the user's points with startAt <= timestamp <= endAt,
// oldest first.
func (s *Service) InRange(ctx context.Context, userID string, startAt, endAt int64) ([]Point, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, latitude, longitude, altitude, battery, velocity, "timestamp", created_at
		FROM points
		WHERE user_id=$1 AND "timestamp" BETWEEN $2 AND $3
		ORDER BY "timestamp", id
	`, userID, startAt, endAt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []Point
	for rows.Next() {
		var p Point
		if err := rows.Scan(&p.ID, &p.UserID, &p.Latitude, &p.Longitude, &p.Altitude, &p.Battery, &p.Velocity, &p.Timestamp, &p.CreatedAt); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (s *Service) Get(ctx context.Context, userID string, id int64) (Point, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, user_id, latitude, longitude, altitude, battery, velocity, "timestamp", created_at
		FROM points WHERE id=$1 AND user_id=$2
	`, id, userID)
	var p Point
	if err := row.Scan(&p.ID, &p.UserID, &p.Latitude, &p.Longitude, &p.Altitude, &p.Battery, &p.Velocity, &p.Timestamp, &p.CreatedAt); err != nil {
		return Point{}, err
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, userID string, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM points WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	metrics.PointsDeleted.Inc()
	logging.Debug().Str("user_id", userID).Int64("point_id", id).Msg("point deleted")
	return nil
}
