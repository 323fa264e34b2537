package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"quantshared/internal/domain"
)

// Context keys set by the auth middleware
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// JWTClaims represents the JWT token claims
type JWTClaims struct {
	UserID string          `json:"user_id"`
	Role   domain.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator issues and verifies HS256 tokens
type Authenticator struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthenticator creates an Authenticator. The secret must not be empty.
func NewAuthenticator(secret string, ttl time.Duration) (*Authenticator, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Authenticator{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL returns how long issued tokens stay valid
func (a *Authenticator) TTL() time.Duration {
	return a.ttl
}

// GenerateJWT generates a new JWT token for a user
func (a *Authenticator) GenerateJWT(userID string, role domain.UserRole) (string, error) {
	now := a.now()
	claims := &JWTClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ParseJWT verifies a token and returns its claims
func (a *Authenticator) ParseJWT(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.UserID == "" || !claims.Role.Valid() {
		return nil, errors.New("token is missing user or role")
	}
	return claims, nil
}

// AuthMiddleware validates the bearer token and sets user context
func (a *Authenticator) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			cookie, err := c.Cookie("token")
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing authentication token")
			}
			authHeader = "Bearer " + cookie.Value
		}

		scheme, tokenString, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization header format")
		}

		claims, err := a.ParseJWT(tokenString)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, claims.Role)

		return next(c)
	}
}

// RequireRole allows only the listed roles through. It must run after AuthMiddleware.
func RequireRole(roles ...domain.UserRole) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, err := GetUserRole(c)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "User role not found in context")
			}
			for _, allowed := range roles {
				if role == allowed {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "Insufficient role")
		}
	}
}

// AdminMiddleware checks if the authenticated user has ADMIN role
func AdminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return RequireRole(domain.RoleAdmin)(next)
}

// WriteMiddleware rejects read-only roles
func WriteMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		role, err := GetUserRole(c)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "User role not found in context")
		}
		if !role.CanWrite() {
			return echo.NewHTTPError(http.StatusForbidden, "Write access required")
		}
		return next(c)
	}
}

// GetUserID extracts user ID from echo context
func GetUserID(c echo.Context) (string, error) {
	userID, ok := c.Get(ContextUserID).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user_id not found in context")
	}
	return userID, nil
}

// GetUserRole extracts user role from echo context
func GetUserRole(c echo.Context) (domain.UserRole, error) {
	role, ok := c.Get(ContextRole).(domain.UserRole)
	if !ok {
		return "", fmt.Errorf("role not found in context")
	}
	return role, nil
}
