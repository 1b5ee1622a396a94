package export

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetebueno/dawarich/internal/storage"
)

func newApp(svc *Service) *fiber.App {
	app := fiber.New()
	RegisterRoutes(app.Group("/exports"), svc, func(c *fiber.Ctx) error {
		c.Locals("user_id", "user-1")
		return c.Next()
	})
	return app
}

func TestCreateHandlerGeneratesInline(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`INSERT INTO exports`).
		WithArgs(pgxmock.AnyArg(), "user-1", "export_from_2024-01-01_to_2024-01-31", "created", int64(1704067200), int64(1706745599)).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(time.Now(), time.Now()))
	mock.ExpectQuery(`UPDATE exports SET status`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))

	svc := NewService(mock, fakePoints{points: tenPoints()}, fakeUsers{}, nil, storage.NewLocalStore(t.TempDir()))
	app := newApp(svc)

	body := []byte(`{"start_at":"2024-01-01T00:00:00Z","end_at":"2024-01-31T23:59:59Z"}`)
	req := httptest.NewRequest(http.MethodPost, "/exports", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var e Export
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	assert.Equal(t, StatusCompleted, e.Status)
	assert.Equal(t, "exports/export_from_2024-01-01_to_2024-01-31.json", e.URL)
}

func TestCreateHandlerRejectsBadRange(t *testing.T) {
	app := newApp(NewService(nil, nil, nil, nil, nil))

	body := []byte(`{"start_at":"200","end_at":"100"}`)
	req := httptest.NewRequest(http.MethodPost, "/exports", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDownloadHandler(t *testing.T) {
	mock := newMock(t)
	store := storage.NewLocalStore(t.TempDir())
	key := Key(sampleExport().Name)
	require.NoError(t, store.Put(context.Background(), key, []byte(`{"user@example.com":{"dawarich-export":[]}}`), "application/json"))

	mock.ExpectQuery(`SELECT id, user_id, name, status`).
		WithArgs("exp-1", "user-1").
		WillReturnRows(exportRow(StatusCompleted, key))

	app := newApp(NewService(mock, nil, nil, nil, store))
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/exports/exp-1/download", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "export_from_2024-01-01_to_2024-01-31.json")
	assert.Contains(t, readAll(t, resp.Body), "dawarich-export")
}

func TestHandlersMapErrors(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT id, user_id, name, status`).
		WithArgs("missing", "user-1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT id, user_id, name, status`).
		WithArgs("exp-1", "user-1").
		WillReturnRows(exportRow(StatusCreated, ""))

	app := newApp(NewService(mock, nil, nil, nil, storage.NewLocalStore(t.TempDir())))

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/exports/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/exports/exp-1/download", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestListHandlerEmpty(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT id, user_id, name, status`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows(exportColumns))

	app := newApp(NewService(mock, nil, nil, nil, nil))
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/exports", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "[]", readAll(t, resp.Body))
}
