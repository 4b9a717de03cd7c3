package auth

import (
	"github.com/angelmondragon/ttml-backend/internal/users"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

// RegisterRequest is the signup payload. AdminSecret elevates the new account to admin.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required,min=8,max=128"`
	FullName    string `json:"full_name" validate:"required,max=120"`
	AdminSecret string `json:"admin_secret,omitempty" validate:"omitempty,max=256"`
}

// RefreshRequest carries the refresh token; the access token travels in the Authorization header.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenResponse contains the token pair and the user they were minted for.
type TokenResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
}
