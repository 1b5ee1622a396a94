package trip

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/tetebueno/dawarich/internal/auth"
)

type stubSettings struct{}

func (stubSettings) Settings(context.Context, string) (auth.Settings, error) {
	return auth.DefaultSettings(), nil
}

func newApp(svc *Service) *fiber.App {
	app := fiber.New()
	RegisterRoutes(app.Group("/trips"), svc, stubSettings{}, func(c *fiber.Ctx) error {
		c.Locals("user_id", "user-1")
		return c.Next()
	})
	return app
}

func TestGetTripHandler(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT id, user_id, name`).
		WithArgs("trip-1", "user-1").
		WillReturnRows(tripRow())

	app := newApp(NewService(mock, stubPoints{{ID: 1, Timestamp: 1000}}))
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/trips/trip-1", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("get trip status: %v", err)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["name"] != "Coast" || body["geojson"] == nil {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestGetTripHandlerNotFound(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT id, user_id, name`).WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).WillReturnError(pgx.ErrNoRows)

	app := newApp(NewService(mock, nil))
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/trips/missing", nil))
	if err != nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected not found")
	}
}

func TestCreateTripHandlerValidation(t *testing.T) {
	app := newApp(NewService(nil, nil))

	req := httptest.NewRequest(http.MethodPost, "/trips", bytes.NewReader([]byte(`{"name":""}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request")
	}
}

func TestCreateTripHandlerStoreFailure(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`INSERT INTO trips`).WillReturnError(errors.New("connection refused"))
	app := newApp(NewService(mock, nil))

	body := []byte(`{"name":"Coast","started_at":1000,"ended_at":9000}`)
	req := httptest.NewRequest(http.MethodPost, "/trips", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected internal server error, got %v", resp.StatusCode)
	}
}

func TestUpdateTripHandlerValidation(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT id, user_id, name`).
		WithArgs("trip-1", "user-1").
		WillReturnRows(tripRow())
	app := newApp(NewService(mock, nil))

	// ended_at before the stored started_at
	req := httptest.NewRequest(http.MethodPut, "/trips/trip-1", bytes.NewReader([]byte(`{"ended_at":500}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request")
	}
}
