package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantshared/internal/domain"
)

func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	a, err := NewAuthenticator("test-secret", time.Hour)
	require.NoError(t, err)
	return a
}

func runProtected(t *testing.T, chain []echo.MiddlewareFunc, setup func(*http.Request)) (*httptest.ResponseRecorder, echo.Context, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if setup != nil {
		setup(req)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}
	return rec, c, h(c)
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	return he.Code
}

func TestNewAuthenticator(t *testing.T) {
	_, err := NewAuthenticator("", time.Hour)
	assert.Error(t, err)

	a, err := NewAuthenticator("s", 0)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, a.TTL())
}

func TestGenerateAndParseJWT(t *testing.T) {
	a := newTestAuthenticator(t)

	token, err := a.GenerateJWT("user-1", domain.RoleTrader)
	require.NoError(t, err)

	claims, err := a.ParseJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, domain.RoleTrader, claims.Role)
	assert.Equal(t, "user-1", claims.Subject)
}

func TestParseJWT_Rejects(t *testing.T) {
	a := newTestAuthenticator(t)

	t.Run("expired", func(t *testing.T) {
		a.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := a.GenerateJWT("u", domain.RoleAdmin)
		require.NoError(t, err)
		a.now = time.Now

		_, err = a.ParseJWT(token)
		assert.Error(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewAuthenticator("other-secret", time.Hour)
		require.NoError(t, err)
		token, err := other.GenerateJWT("u", domain.RoleAdmin)
		require.NoError(t, err)

		_, err = a.ParseJWT(token)
		assert.Error(t, err)
	})

	t.Run("unknown role", func(t *testing.T) {
		token, err := a.GenerateJWT("u", "ROOT")
		require.NoError(t, err)
		_, err = a.ParseJWT(token)
		assert.Error(t, err)
	})

	t.Run("none algorithm", func(t *testing.T) {
		claims := &JWTClaims{UserID: "u", Role: domain.RoleAdmin}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = a.ParseJWT(token)
		assert.Error(t, err)
	})
}

func TestAuthMiddleware(t *testing.T) {
	a := newTestAuthenticator(t)
	token, err := a.GenerateJWT("user-7", domain.RoleViewer)
	require.NoError(t, err)

	t.Run("bearer header", func(t *testing.T) {
		rec, c, err := runProtected(t, []echo.MiddlewareFunc{a.AuthMiddleware}, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		id, err := GetUserID(c)
		require.NoError(t, err)
		assert.Equal(t, "user-7", id)
		role, err := GetUserRole(c)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleViewer, role)
	})

	t.Run("cookie", func(t *testing.T) {
		_, _, err := runProtected(t, []echo.MiddlewareFunc{a.AuthMiddleware}, func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "token", Value: token})
		})
		assert.NoError(t, err)
	})

	t.Run("missing", func(t *testing.T) {
		_, _, err := runProtected(t, []echo.MiddlewareFunc{a.AuthMiddleware}, nil)
		assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
	})

	t.Run("malformed header", func(t *testing.T) {
		_, _, err := runProtected(t, []echo.MiddlewareFunc{a.AuthMiddleware}, func(r *http.Request) {
			r.Header.Set("Authorization", "Token "+token)
		})
		assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
	})

	t.Run("garbage token", func(t *testing.T) {
		_, _, err := runProtected(t, []echo.MiddlewareFunc{a.AuthMiddleware}, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer not.a.token")
		})
		assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
	})
}

func TestRoleMiddleware(t *testing.T) {
	a := newTestAuthenticator(t)

	bearer := func(role domain.UserRole) func(*http.Request) {
		token, err := a.GenerateJWT("u", role)
		require.NoError(t, err)
		return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
	}

	testCases := []struct {
		name   string
		chain  []echo.MiddlewareFunc
		role   domain.UserRole
		status int
	}{
		{"viewer cannot write", []echo.MiddlewareFunc{a.AuthMiddleware, WriteMiddleware}, domain.RoleViewer, http.StatusForbidden},
		{"trader can write", []echo.MiddlewareFunc{a.AuthMiddleware, WriteMiddleware}, domain.RoleTrader, http.StatusNoContent},
		{"researcher can write", []echo.MiddlewareFunc{a.AuthMiddleware, WriteMiddleware}, domain.RoleResearcher, http.StatusNoContent},
		{"trader is not admin", []echo.MiddlewareFunc{a.AuthMiddleware, AdminMiddleware}, domain.RoleTrader, http.StatusForbidden},
		{"admin is admin", []echo.MiddlewareFunc{a.AuthMiddleware, AdminMiddleware}, domain.RoleAdmin, http.StatusNoContent},
		{"explicit role list", []echo.MiddlewareFunc{a.AuthMiddleware, RequireRole(domain.RoleResearcher, domain.RoleAdmin)}, domain.RoleResearcher, http.StatusNoContent},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec, _, err := runProtected(t, tc.chain, bearer(tc.role))
			if tc.status == http.StatusNoContent {
				require.NoError(t, err)
				assert.Equal(t, tc.status, rec.Code)
				return
			}
			assert.Equal(t, tc.status, statusOf(t, err))
		})
	}

	_, _, err := runProtected(t, []echo.MiddlewareFunc{WriteMiddleware}, nil)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}
