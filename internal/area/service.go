package area

import (
	"context"
	"errors"
	"math"

	"github.com/google/uuid"
	"github.com/tetebueno/dawarich/internal/db"
	"github.com/tetebueno/dawarich/internal/validation"
)

var ErrNotFound = errors.New("area not found")

const metersPerDegreeLat = 111320.0

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

func (s *Service) Create(ctx context.Context, userID string, input Area) (Area, error) {
	if err := validation.Struct(input); err != nil {
		return Area{}, err
	}
	input.ID = uuid.NewString()
	input.UserID = userID
	row := s.db.QueryRow(ctx, `
		INSERT INTO areas (id, user_id, name, latitude, longitude, radius_m)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at
	`, input.ID, input.UserID, input.Name, input.Latitude, input.Longitude, input.RadiusM)
	if err := row.Scan(&input.CreatedAt); err != nil {
		return Area{}, err
	}
	return input, nil
}

// Update applies the non-zero fields of patch.
func (s *Service) Update(ctx context.Context, userID, id string, patch Area) (Area, error) {
	a, err := s.Get(ctx, userID, id)
	if err != nil {
		return Area{}, err
	}
	if patch.Name != "" {
		a.Name = patch.Name
	}
	if patch.Latitude != 0 {
		a.Latitude = patch.Latitude
	}
	if patch.Longitude != 0 {
		a.Longitude = patch.Longitude
	}
	if patch.RadiusM != 0 {
		a.RadiusM = patch.RadiusM
	}
	if err := validation.Struct(a); err != nil {
		return Area{}, err
	}

	_, err = s.db.Exec(ctx, `
		UPDATE areas SET name=$3, latitude=$4, longitude=$5, radius_m=$6
		WHERE id=$1 AND user_id=$2
	`, a.ID, userID, a.Name, a.Latitude, a.Longitude, a.RadiusM)
	if err != nil {
		return Area{}, err
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (Area, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, user_id, name, latitude, longitude, radius_m, created_at
		FROM areas WHERE id=$1 AND user_id=$2
	`, id, userID)
	var a Area
	if err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Latitude, &a.Longitude, &a.RadiusM, &a.CreatedAt); err != nil {
		return Area{}, err
	}
	return a, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Area, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, name, latitude, longitude, radius_m, created_at
		FROM areas WHERE user_id=$1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var areas []Area
	for rows.Next() {
		var a Area
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Latitude, &a.Longitude, &a.RadiusM, &a.CreatedAt); err != nil {
			return nil, err
		}
		areas = append(areas, a)
	}
	return areas, rows.Err()
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM areas WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Visits counts the user's points inside the area. The query narrows by
// bounding box and the exact circle test runs here.
func (s *Service) Visits(ctx context.Context, userID, id string) (Visit, error) {
	a, err := s.Get(ctx, userID, id)
	if err != nil {
		return Visit{}, err
	}

	dLat := a.RadiusM / metersPerDegreeLat
	dLon := 180.0
	if c := math.Cos(a.Latitude * math.Pi / 180); c > 1e-9 {
		dLon = math.Min(180, a.RadiusM/(metersPerDegreeLat*c))
	}

	rows, err := s.db.Query(ctx, `
		SELECT latitude, longitude, "timestamp"
		FROM points
		WHERE user_id=$1
		  AND latitude BETWEEN $2 AND $3
		  AND longitude BETWEEN $4 AND $5
		ORDER BY "timestamp"
	`, userID, a.Latitude-dLat, a.Latitude+dLat, a.Longitude-dLon, a.Longitude+dLon)
	if err != nil {
		return Visit{}, err
	}
	defer rows.Close()

	v := Visit{AreaID: a.ID}
	for rows.Next() {
		var lat, lon float64
		var ts int64
		if err := rows.Scan(&lat, &lon, &ts); err != nil {
			return Visit{}, err
		}
		if !a.Contains(lat, lon) {
			continue
		}
		if v.Points == 0 {
			v.FirstSeen = ts
		}
		v.LastSeen = ts
		v.Points++
	}
	return v, rows.Err()
}
