package auth

import "time"

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	APIKey       string    `json:"api_key"`
	Settings     Settings  `json:"settings"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Settings are the per-user map preferences.
type Settings struct {
	MetersBetweenRoutes  int    `json:"meters_between_routes" validate:"gte=1,lte=100000"`
	MinutesBetweenRoutes int    `json:"minutes_between_routes" validate:"gte=1,lte=10080"`
	FogOfWarMeters       int    `json:"fog_of_war_meters" validate:"gte=1,lte=10000"`
	DistanceUnit         string `json:"distance_unit" validate:"oneof=km mi"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}
