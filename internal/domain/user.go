package domain

import (
	"time"

	"quantshared/internal/validation"
)

// UserRole controls what a user may do
type UserRole string

// UserRole values
const (
	RoleAdmin      UserRole = "ADMIN"      // Full system access
	RoleResearcher UserRole = "RESEARCHER" // Can create/edit strategies
	RoleViewer     UserRole = "VIEWER"     // Read-only access
	RoleTrader     UserRole = "TRADER"     // Can execute trades
)

// Valid reports whether r is a known role
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleResearcher, RoleViewer, RoleTrader:
		return true
	}
	return false
}

// CanWrite reports whether the role may submit data. Viewers are read-only.
func (r UserRole) CanWrite() bool {
	return r.Valid() && r != RoleViewer
}

// User represents a user in the system
type User struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Role        UserRole   `json:"role" validate:"oneof=ADMIN RESEARCHER VIEWER TRADER"`
	IsActive    bool       `json:"is_active" default:"true"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// Validate checks the user's role
func (u User) Validate() error {
	return validation.Struct(u)
}

// UserAccount is a User together with its stored credentials.
// It never crosses the wire.
type UserAccount struct {
	User
	PasswordHash string
}
