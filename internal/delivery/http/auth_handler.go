package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"quantshared/internal/delivery/http/dto"
	"quantshared/internal/domain"
	"quantshared/internal/middleware"
	"quantshared/internal/validation"
)

const requestTimeout = 5 * time.Second

// Password length bounds. bcrypt only reads the first 72 bytes.
const (
	MinPasswordLength = 8
	MaxPasswordBytes  = 72
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	userRepo     domain.UserRepository
	auth         *middleware.Authenticator
	secureCookie bool
	now          func() time.Time
}

// NewAuthHandler creates a new AuthHandler. secureCookie marks the token cookie HTTPS-only.
func NewAuthHandler(userRepo domain.UserRepository, auth *middleware.Authenticator, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		userRepo:     userRepo,
		auth:         auth,
		secureCookie: secureCookie,
		now:          time.Now,
	}
}

// Register creates a VIEWER account. The very first account becomes ADMIN.
// POST /api/auth/register
func (h *AuthHandler) Register(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return BadRequestResponse(c, "Failed to read request body")
	}

	req, err := validation.Decode[dto.RegisterRequest](body)
	if err != nil {
		return HandleError(c, err, "Invalid registration")
	}
	if problem := checkPasswordStrength(req.Password); problem != nil {
		return ValidationErrorResponse(c, validation.Errors{problem})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to hash password", err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	account := &domain.UserAccount{
		User: domain.User{
			ID:        uuid.NewString(),
			Email:     strings.ToLower(strings.TrimSpace(req.Email)),
			Username:  strings.TrimSpace(req.Username),
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Role:      domain.RoleViewer,
			IsActive:  true,
			CreatedAt: h.now().UTC(),
		},
		PasswordHash: string(hashedPassword),
	}

	if err := h.userRepo.Register(ctx, account); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return ConflictResponse(c, "Email or username is already registered")
		}
		return InternalServerErrorResponse(c, "Failed to create user", err)
	}

	log.Info().Str("user_id", account.ID).Str("role", string(account.Role)).Msg("User registered")
	return CreatedResponse(c, account.User)
}

// Login handles user login
// POST /api/auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return BadRequestResponse(c, "Failed to read request body")
	}

	req, err := validation.Decode[dto.LoginRequest](body)
	if err != nil {
		return HandleError(c, err, "Invalid login")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	var account *domain.UserAccount
	if strings.Contains(req.Login, "@") {
		account, err = h.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Login)))
	} else {
		account, err = h.userRepo.GetByUsername(ctx, strings.TrimSpace(req.Login))
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return UnauthorizedResponse(c, "Invalid credentials")
		}
		return InternalServerErrorResponse(c, "Failed to look up user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return UnauthorizedResponse(c, "Invalid credentials")
	}
	if !account.IsActive {
		return ForbiddenResponse(c, "Account is disabled")
	}

	token, err := h.auth.GenerateJWT(account.ID, account.Role)
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to generate token", err)
	}

	now := h.now().UTC()
	if err := h.userRepo.UpdateLastLogin(ctx, account.ID, now); err != nil {
		log.Warn().Err(err).Str("user_id", account.ID).Msg("Failed to record last login")
	} else {
		account.LastLoginAt = &now
	}

	c.SetCookie(&http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(h.auth.TTL().Seconds()),
	})

	return SuccessResponse(c, dto.LoginResponse{
		Token:     token,
		ExpiresAt: now.Add(h.auth.TTL()),
		User:      account.User,
	})
}

// Logout clears the token cookie
// POST /api/auth/logout
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	return SuccessResponse(c, map[string]string{"message": "Logged out"})
}

// Me returns the authenticated user
// GET /api/auth/me
func (h *AuthHandler) Me(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not found in context")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	account, err := h.userRepo.GetByID(ctx, userID)
	if err != nil {
		return HandleError(c, err, "Failed to get user")
	}
	return SuccessResponse(c, account.User)
}

// checkPasswordStrength requires MinPasswordLength characters with an upper case
// letter, a lower case letter and a digit, in at most MaxPasswordBytes bytes.
func checkPasswordStrength(password string) *validation.FieldError {
	if len(password) > MaxPasswordBytes {
		return &validation.FieldError{
			Field:      "password",
			Constraint: "max",
			Param:      "72 bytes",
		}
	}

	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}

	if len([]rune(password)) >= MinPasswordLength && upper && lower && digit {
		return nil
	}
	return &validation.FieldError{
		Field:      "password",
		Constraint: "strength",
		Param:      "at least 8 characters with upper case, lower case and digit",
	}
}
