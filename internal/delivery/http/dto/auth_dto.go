package dto

import (
	"time"

	"quantshared/internal/domain"
)

// LoginRequest represents the login request payload.
// Login accepts either the username or the email address.
type LoginRequest struct {
	Login    string `json:"login" validate:"min=1"`
	Password string `json:"password" validate:"min=1"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      domain.User `json:"user"`
}

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Email     string `json:"email" validate:"email"`
	Username  string `json:"username" validate:"min=3,max=50"`
	Password  string `json:"password"`
	FirstName string `json:"first_name" default:""`
	LastName  string `json:"last_name" default:""`
}
