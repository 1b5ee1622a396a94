package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pashagolub/pgxmock/v3"
	"golang.org/x/crypto/bcrypt"
)

var pgErr = errors.New("db error")

var userColumns = []string{
	"id", "email", "password_hash", "api_key",
	"meters_between_routes", "minutes_between_routes", "fog_of_war_meters", "distance_unit",
	"created_at", "updated_at",
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func userRow(id, email, hash string) *pgxmock.Rows {
	return pgxmock.NewRows(userColumns).
		AddRow(id, email, hash, "key-1", 500, 60, 100, "km", time.Now(), time.Now())
}

func TestRegisterAndLogin(t *testing.T) {
	mock := newMock(t)
	createdAt := time.Now().Add(-time.Minute)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(pgxmock.AnyArg(), "user@example.com", pgxmock.AnyArg(), pgxmock.AnyArg(), 500, 60, 100, "km").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(createdAt, createdAt))
	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	svc := NewService("test-secret", mock, Settings{})
	user, tokens, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "User@Example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID == "" || user.APIKey == "" || tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("expected user, api key and tokens")
	}
	if user.Settings != DefaultSettings() {
		t.Fatalf("expected default settings, got %+v", user.Settings)
	}

	mock.ExpectQuery(`SELECT id, email, password_hash, api_key`).
		WithArgs("user@example.com").
		WillReturnRows(userRow(user.ID, user.Email, user.PasswordHash))
	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs(pgxmock.AnyArg(), user.ID, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	_, loginTokens, err := svc.Login(context.Background(), LoginRequest{Email: "user@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if loginTokens.AccessToken == "" {
		t.Fatalf("expected login tokens")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRegisterUsesConfiguredDefaults(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(pgxmock.AnyArg(), "a@b.co", pgxmock.AnyArg(), pgxmock.AnyArg(), 250, 30, 100, "km").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(time.Now(), time.Now()))
	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	svc := NewService("test-secret", mock, Settings{MetersBetweenRoutes: 250, MinutesBetweenRoutes: 30})
	if _, _, err := svc.Register(context.Background(), RegisterRequest{Email: "a@b.co", Password: "secret1"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService("test-secret", nil, Settings{})
	_, _, err := svc.Register(context.Background(), RegisterRequest{Email: "not-an-email", Password: "p"})
	if err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestRegisterHashError(t *testing.T) {
	oldHash := hashPasswordFn
	hashPasswordFn = func(_ []byte, _ int) ([]byte, error) {
		return nil, pgErr
	}
	defer func() { hashPasswordFn = oldHash }()

	svc := NewService("test-secret", nil, Settings{})
	_, _, err := svc.Register(context.Background(), RegisterRequest{Email: "user@example.com", Password: "password"})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestRegisterDBError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`INSERT INTO users`).WillReturnError(pgErr)

	svc := NewService("test-secret", mock, Settings{})
	_, _, err := svc.Register(context.Background(), RegisterRequest{Email: "user@example.com", Password: "password"})
	if err == nil {
		t.Fatalf("expected db error")
	}
}

func TestLoginInvalidPassword(t *testing.T) {
	mock := newMock(t)
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.MinCost)
	mock.ExpectQuery(`SELECT id, email, password_hash, api_key`).
		WithArgs("user@example.com").
		WillReturnRows(userRow("user-1", "user@example.com", string(hash)))

	svc := NewService("test-secret", mock, Settings{})
	_, _, err := svc.Login(context.Background(), LoginRequest{Email: "user@example.com", Password: "wrong"})
	if err == nil {
		t.Fatalf("expected invalid credentials")
	}
}

func TestLoginQueryError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT id, email, password_hash, api_key`).WillReturnError(pgErr)

	svc := NewService("test-secret", mock, Settings{})
	if _, _, err := svc.Login(context.Background(), LoginRequest{Email: "user@example.com", Password: "x"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestGenerateTokensSaveRefreshError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs(pgxmock.AnyArg(), "user-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(pgErr)

	svc := NewService("test-secret", mock, Settings{})
	if _, err := svc.GenerateTokens(context.Background(), "user-1"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestGenerateTokensRefreshSignError(t *testing.T) {
	oldSign := signTokenFn
	call := 0
	signTokenFn = func(_ *Service, _ string, _ time.Duration) (string, error) {
		call++
		if call == 2 {
			return "", pgErr
		}
		return "token", nil
	}
	defer func() { signTokenFn = oldSign }()

	svc := NewService("test-secret", nil, Settings{})
	if _, err := svc.GenerateTokens(context.Background(), "user-1"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestValidateRefreshToken(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs(pgxmock.AnyArg(), "user-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	svc := NewService("test-secret", mock, Settings{})
	tokens, err := svc.GenerateTokens(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("generate tokens: %v", err)
	}

	mock.ExpectQuery(`SELECT user_id, expires_at`).
		WithArgs(tokens.RefreshToken).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "expires_at"}).AddRow("user-1", time.Now().Add(5*time.Minute)))

	userID, err := svc.ValidateRefreshToken(context.Background(), tokens.RefreshToken)
	if err != nil || userID != "user-1" {
		t.Fatalf("validate refresh: %q %v", userID, err)
	}

	mock.ExpectQuery(`SELECT user_id, expires_at`).
		WithArgs(tokens.RefreshToken).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "expires_at"}).AddRow("user-1", time.Now().Add(-time.Minute)))
	if _, err := svc.ValidateRefreshToken(context.Background(), tokens.RefreshToken); err == nil {
		t.Fatalf("expected expired token error")
	}
}

func TestParseTokenInvalid(t *testing.T) {
	oldParse := parseWithClaimsFn
	parseWithClaimsFn = func(_ string, _ jwt.Claims, _ jwt.Keyfunc, _ ...jwt.ParserOption) (*jwt.Token, error) {
		return &jwt.Token{Valid: false, Claims: &Claims{}}, nil
	}
	defer func() { parseWithClaimsFn = oldParse }()

	svc := NewService("test-secret", nil, Settings{})
	if _, err := svc.parseToken("token"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestValidateAccessTokenWrongSecret(t *testing.T) {
	token, err := NewService("one", nil, Settings{}).signToken("user-1", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewService("two", nil, Settings{}).ValidateAccessToken(token); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestUserIDByAPIKey(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT id FROM users WHERE api_key`).
		WithArgs("key-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("user-1"))
	mock.ExpectQuery(`SELECT id FROM users WHERE api_key`).
		WithArgs("nope").
		WillReturnError(pgErr)

	svc := NewService("test-secret", mock, Settings{})
	if id, err := svc.UserIDByAPIKey(context.Background(), "key-1"); err != nil || id != "user-1" {
		t.Fatalf("lookup: %q %v", id, err)
	}
	if _, err := svc.UserIDByAPIKey(context.Background(), "nope"); !errors.Is(err, ErrInvalidAPIKey) {
		t.Fatalf("expected ErrInvalidAPIKey, got %v", err)
	}
	if _, err := svc.UserIDByAPIKey(context.Background(), ""); !errors.Is(err, ErrInvalidAPIKey) {
		t.Fatalf("expected ErrInvalidAPIKey for empty key")
	}
}

func TestEmail(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT email FROM users`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"email"}).AddRow("user@example.com"))

	svc := NewService("test-secret", mock, Settings{})
	email, err := svc.Email(context.Background(), "user-1")
	if err != nil || email != "user@example.com" {
		t.Fatalf("email: %q %v", email, err)
	}
}

func TestUpdateSettingsMergesPatch(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT id, email, password_hash, api_key`).
		WithArgs("user-1").
		WillReturnRows(userRow("user-1", "user@example.com", "hash"))
	mock.ExpectExec(`UPDATE users`).
		WithArgs("user-1", 500, 60, 250, "mi").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	svc := NewService("test-secret", mock, Settings{})
	got, err := svc.UpdateSettings(context.Background(), "user-1", Settings{FogOfWarMeters: 250, DistanceUnit: "mi"})
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}
	want := Settings{MetersBetweenRoutes: 500, MinutesBetweenRoutes: 60, FogOfWarMeters: 250, DistanceUnit: "mi"}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateSettingsRejectsUnknownUnit(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT id, email, password_hash, api_key`).
		WithArgs("user-1").
		WillReturnRows(userRow("user-1", "user@example.com", "hash"))

	svc := NewService("test-secret", mock, Settings{})
	if _, err := svc.UpdateSettings(context.Background(), "user-1", Settings{DistanceUnit: "ft"}); err == nil {
		t.Fatalf("expected validation error")
	}
}
