package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tetebueno/dawarich/internal/db"
	"github.com/tetebueno/dawarich/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

var ErrInvalidAPIKey = errors.New("api key invalid")

var (
	hashPasswordFn    = bcrypt.GenerateFromPassword
	signTokenFn       = (*Service).signToken
	parseWithClaimsFn = jwt.ParseWithClaims
)

type Service struct {
	secret   []byte
	db       db.Querier
	defaults Settings
}

type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// DefaultSettings are applied to new users.
func DefaultSettings() Settings {
	return Settings{
		MetersBetweenRoutes:  500,
		MinutesBetweenRoutes: 60,
		FogOfWarMeters:       100,
		DistanceUnit:         "km",
	}
}

func NewService(secret string, db db.Querier, defaults Settings) *Service {
	return &Service{
		secret:   []byte(secret),
		db:       db,
		defaults: mergeSettings(DefaultSettings(), defaults),
	}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (User, TokenResponse, error) {
	if err := validation.Struct(req); err != nil {
		return User{}, TokenResponse{}, err
	}
	hash, err := hashPasswordFn([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, TokenResponse{}, err
	}

	user := User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(req.Email),
		PasswordHash: string(hash),
		APIKey:       newAPIKey(),
		Settings:     s.defaults,
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO users (id, email, password_hash, api_key, meters_between_routes, minutes_between_routes, fog_of_war_meters, distance_unit)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at
	`, user.ID, user.Email, user.PasswordHash, user.APIKey,
		user.Settings.MetersBetweenRoutes, user.Settings.MinutesBetweenRoutes, user.Settings.FogOfWarMeters, user.Settings.DistanceUnit)
	if err := row.Scan(&user.CreatedAt, &user.UpdatedAt); err != nil {
		return User{}, TokenResponse{}, err
	}

	tokens, err := s.GenerateTokens(ctx, user.ID)
	if err != nil {
		return User{}, TokenResponse{}, err
	}
	return user, tokens, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (User, TokenResponse, error) {
	user, err := s.scanUser(s.db.QueryRow(ctx, userSelect+` WHERE email = $1`, strings.ToLower(req.Email)))
	if err != nil {
		return User{}, TokenResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return User{}, TokenResponse{}, errors.New("invalid credentials")
	}

	tokens, err := s.GenerateTokens(ctx, user.ID)
	if err != nil {
		return User{}, TokenResponse{}, err
	}
	return user, tokens, nil
}

func (s *Service) GetUser(ctx context.Context, userID string) (User, error) {
	return s.scanUser(s.db.QueryRow(ctx, userSelect+` WHERE id = $1`, userID))
}

// Email returns the user's address; exports embed it as metadata.
func (s *Service) Email(ctx context.Context, userID string) (string, error) {
	var email string
	if err := s.db.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, userID).Scan(&email); err != nil {
		return "", err
	}
	return email, nil
}

func (s *Service) Settings(ctx context.Context, userID string) (Settings, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return Settings{}, err
	}
	return user.Settings, nil
}

// UpdateSettings applies the non-zero fields of patch.
func (s *Service) UpdateSettings(ctx context.Context, userID string, patch Settings) (Settings, error) {
	current, err := s.Settings(ctx, userID)
	if err != nil {
		return Settings{}, err
	}
	next := mergeSettings(current, patch)
	if err := validation.Struct(next); err != nil {
		return Settings{}, err
	}

	_, err = s.db.Exec(ctx, `
		UPDATE users
		SET meters_between_routes=$2, minutes_between_routes=$3, fog_of_war_meters=$4, distance_unit=$5, updated_at=now()
		WHERE id=$1
	`, userID, next.MetersBetweenRoutes, next.MinutesBetweenRoutes, next.FogOfWarMeters, next.DistanceUnit)
	if err != nil {
		return Settings{}, err
	}
	return next, nil
}

func (s *Service) UserIDByAPIKey(ctx context.Context, apiKey string) (string, error) {
	if apiKey == "" {
		return "", ErrInvalidAPIKey
	}
	var userID string
	if err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE api_key = $1`, apiKey).Scan(&userID); err != nil {
		return "", ErrInvalidAPIKey
	}
	return userID, nil
}

func (s *Service) GenerateTokens(ctx context.Context, userID string) (TokenResponse, error) {
	access, err := signTokenFn(s, userID, accessTokenTTL)
	if err != nil {
		return TokenResponse{}, err
	}

	refresh, err := signTokenFn(s, userID, refreshTokenTTL)
	if err != nil {
		return TokenResponse{}, err
	}

	if err := s.saveRefreshToken(ctx, refresh, userID, refreshTokenTTL); err != nil {
		return TokenResponse{}, err
	}

	return TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(accessTokenTTL.Seconds()),
	}, nil
}

func (s *Service) ValidateRefreshToken(ctx context.Context, token string) (string, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return "", err
	}

	userID, expiresAt, err := s.lookupRefreshToken(ctx, token)
	if err != nil || userID != claims.UserID || time.Now().After(expiresAt) {
		return "", errors.New("refresh token invalid")
	}
	return claims.UserID, nil
}

func (s *Service) ValidateAccessToken(token string) (string, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

const userSelect = `
		SELECT id, email, password_hash, api_key, meters_between_routes, minutes_between_routes, fog_of_war_meters, distance_unit, created_at, updated_at
		FROM users`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Service) scanUser(row rowScanner) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.APIKey,
		&u.Settings.MetersBetweenRoutes, &u.Settings.MinutesBetweenRoutes, &u.Settings.FogOfWarMeters, &u.Settings.DistanceUnit,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *Service) signToken(userID string, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) parseToken(token string) (*Claims, error) {
	parsed, err := parseWithClaimsFn(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("token invalid")
	}
	return claims, nil
}

func (s *Service) saveRefreshToken(ctx context.Context, token, userID string, ttl time.Duration) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token, expires_at)
		VALUES ($1,$2,$3,$4)
	`, uuid.NewString(), userID, token, time.Now().Add(ttl))
	return err
}

func (s *Service) lookupRefreshToken(ctx context.Context, token string) (string, time.Time, error) {
	row := s.db.QueryRow(ctx, `
		SELECT user_id, expires_at
		FROM refresh_tokens
		WHERE token = $1 AND revoked_at IS NULL
	`, token)
	var userID string
	var expiresAt time.Time
	if err := row.Scan(&userID, &expiresAt); err != nil {
		return "", time.Time{}, err
	}
	return userID, expiresAt, nil
}

func newAPIKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func mergeSettings(base, patch Settings) Settings {
	if patch.MetersBetweenRoutes != 0 {
		base.MetersBetweenRoutes = patch.MetersBetweenRoutes
	}
	if patch.MinutesBetweenRoutes != 0 {
		base.MinutesBetweenRoutes = patch.MinutesBetweenRoutes
	}
	if patch.FogOfWarMeters != 0 {
		base.FogOfWarMeters = patch.FogOfWarMeters
	}
	if patch.DistanceUnit != "" {
		base.DistanceUnit = patch.DistanceUnit
	}
	return base
}
