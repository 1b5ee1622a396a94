package trip

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/tetebueno/dawarich/internal/db"
	"github.com/tetebueno/dawarich/internal/point"
	"github.com/tetebueno/dawarich/internal/segment"
	"github.com/tetebueno/dawarich/internal/validation"
)

var ErrNotFound = errors.New("trip not found")

type PointSource interface {
	InRange(ctx context.Context, userID string, startAt, endAt int64) ([]point.Point, error)
}

type Service struct {
	db     db.Querier
	points PointSource
}

func NewService(db db.Querier, points PointSource) *Service {
	return &Service{db: db, points: points}
}

func (s *Service) CreateTrip(ctx context.Context, userID string, input Trip) (Trip, error) {
	if err := validation.Struct(input); err != nil {
		return Trip{}, err
	}
	input.ID = uuid.NewString()
	input.UserID = userID
	row := s.db.QueryRow(ctx, `
		INSERT INTO trips (id, user_id, name, started_at, ended_at, notes)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at
	`, input.ID, input.UserID, input.Name, input.StartedAt, input.EndedAt, input.Notes)
	if err := row.Scan(&input.CreatedAt); err != nil {
		return Trip{}, err
	}
	return input, nil
}

func (s *Service) UpdateTrip(ctx context.Context, userID, id string, patch Trip) (Trip, error) {
	trip, err := s.GetTrip(ctx, userID, id)
	if err != nil {
		return Trip{}, err
	}
	if patch.Name != "" {
		trip.Name = patch.Name
	}
	if patch.StartedAt != 0 {
		trip.StartedAt = patch.StartedAt
	}
	if patch.EndedAt != 0 {
		trip.EndedAt = patch.EndedAt
	}
	if patch.Notes != "" {
		trip.Notes = patch.Notes
	}
	if err := validation.Struct(trip); err != nil {
		return Trip{}, err
	}

	_, err = s.db.Exec(ctx, `
		UPDATE trips
		SET name=$3, started_at=$4, ended_at=$5, notes=$6
		WHERE id=$1 AND user_id=$2
	`, trip.ID, userID, trip.Name, trip.StartedAt, trip.EndedAt, trip.Notes)
	if err != nil {
		return Trip{}, err
	}
	return trip, nil
}

func (s *Service) GetTrip(ctx context.Context, userID, id string) (Trip, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, user_id, name, started_at, ended_at, notes, created_at
		FROM trips WHERE id=$1 AND user_id=$2
	`, id, userID)
	var trip Trip
	if err := row.Scan(&trip.ID, &trip.UserID, &trip.Name, &trip.StartedAt, &trip.EndedAt, &trip.Notes, &trip.CreatedAt); err != nil {
		return Trip{}, err
	}
	return trip, nil
}

func (s *Service) ListTrips(ctx context.Context, userID string) ([]Trip, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, name, started_at, ended_at, notes, created_at
		FROM trips WHERE user_id=$1
		ORDER BY started_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []Trip
	for rows.Next() {
		var t Trip
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.StartedAt, &t.EndedAt, &t.Notes, &t.CreatedAt); err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

func (s *Service) DeleteTrip(ctx context.Context, userID, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM trips WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Path loads the trip's points and splits them into routes. Distance is the
// summed length of every leg, not the endpoint distance used per segment.
func (s *Service) Path(ctx context.Context, userID, id string, t segment.Thresholds, distanceUnit string) (Path, error) {
	trip, err := s.GetTrip(ctx, userID, id)
	if err != nil {
		return Path{}, err
	}
	points, err := s.points.InRange(ctx, userID, trip.StartedAt, trip.EndedAt)
	if err != nil {
		return Path{}, err
	}

	segments := segment.Split(points, t)
	p := Path{
		Trip:           trip,
		Points:         len(points),
		DistanceMeters: segment.PathLength(points),
		Segments:       segment.DescribeAll(segments),
		GeoJSON:        segment.FeatureCollection(segments, distanceUnit),
	}
	p.Distance = segment.FormatDistance(p.DistanceMeters, distanceUnit)
	if len(points) > 1 {
		p.DurationMinutes = (points[len(points)-1].Timestamp - points[0].Timestamp) / 60
	}
	return p, nil
}
