package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pashagolub/pgxmock/v3"
	"golang.org/x/crypto/bcrypt"
)

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request %s: %v", path, err)
	}
	return resp
}

func TestAuthHandlersRegisterLoginVerify(t *testing.T) {
	mock := newMock(t)
	svc := NewService("test-secret", mock, Settings{})
	app := fiber.New()
	RegisterRoutes(app.Group("/auth"), svc)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(time.Now(), time.Now()))
	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	resp := postJSON(t, app, "/auth/register", RegisterRequest{Email: "user@example.com", Password: "password"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status: %d", resp.StatusCode)
	}

	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	mock.ExpectQuery(`SELECT id, email, password_hash, api_key`).
		WithArgs("user@example.com").
		WillReturnRows(userRow("user-1", "user@example.com", string(hash)))
	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs(pgxmock.AnyArg(), "user-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	resp = postJSON(t, app, "/auth/login", LoginRequest{Email: "user@example.com", Password: "password"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status: %d", resp.StatusCode)
	}
	var tokens TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		t.Fatalf("decode tokens: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/jwt/verify", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("verify status: %v", err)
	}
}

func TestAuthBadRequests(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app.Group("/auth"), NewService("secret", nil, Settings{}))

	cases := []struct {
		path string
		body string
	}{
		{"/auth/register", "{bad"},
		{"/auth/login", `{"email":""}`},
		{"/auth/refresh", `{}`},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, tc.path, bytes.NewReader([]byte(tc.body)))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		if err != nil || resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected bad request", tc.path)
		}
	}
}

func TestAuthRefreshInvalidToken(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app.Group("/auth"), NewService("test-secret", nil, Settings{}))

	resp := postJSON(t, app, "/auth/refresh", map[string]string{"refresh_token": "bad"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized, got %d", resp.StatusCode)
	}
}

func TestAuthRefreshSuccess(t *testing.T) {
	mock := newMock(t)
	svc := NewService("secret", mock, Settings{})

	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs(pgxmock.AnyArg(), "user-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	issued, err := svc.GenerateTokens(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("generate tokens: %v", err)
	}

	mock.ExpectQuery(`SELECT user_id, expires_at`).
		WithArgs(issued.RefreshToken).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "expires_at"}).AddRow("user-1", time.Now().Add(5*time.Minute)))
	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs(pgxmock.AnyArg(), "user-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	app := fiber.New()
	RegisterRoutes(app.Group("/auth"), svc)

	resp := postJSON(t, app, "/auth/refresh", map[string]string{"refresh_token": issued.RefreshToken})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh status: %d", resp.StatusCode)
	}
}

func TestAuthVerifyRejectsBadBearer(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app.Group("/auth"), NewService("secret", nil, Settings{}))

	for _, header := range []string{"", "Bearer bad"} {
		req := httptest.NewRequest(http.MethodGet, "/auth/jwt/verify", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		if err != nil || resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("header %q: expected unauthorized", header)
		}
	}
}

func TestSettingsRoutes(t *testing.T) {
	mock := newMock(t)
	svc := NewService("secret", mock, Settings{})
	app := fiber.New()
	fakeAuth := func(c *fiber.Ctx) error {
		c.Locals("user_id", "user-1")
		return c.Next()
	}
	RegisterSettingsRoutes(app.Group("/users"), svc, fakeAuth)

	mock.ExpectQuery(`SELECT id, email, password_hash, api_key`).
		WithArgs("user-1").
		WillReturnRows(userRow("user-1", "user@example.com", "hash"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/users/settings", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("get settings: %v", err)
	}
	var got Settings
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != DefaultSettings() {
		t.Fatalf("unexpected settings %+v", got)
	}

	mock.ExpectQuery(`SELECT id, email, password_hash, api_key`).
		WithArgs("user-1").
		WillReturnRows(userRow("user-1", "user@example.com", "hash"))
	mock.ExpectExec(`UPDATE users`).
		WithArgs("user-1", 1000, 60, 100, "km").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	req := httptest.NewRequest(http.MethodPatch, "/users/settings", bytes.NewReader([]byte(`{"meters_between_routes":1000}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("patch settings: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
