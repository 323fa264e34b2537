package http

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	custommiddleware "quantshared/internal/middleware"
)

// RouterConfig holds all dependencies for routing
type RouterConfig struct {
	Auth              *custommiddleware.Authenticator
	AuthHandler       *AuthHandler
	SchemaHandler     *SchemaHandler
	MarketDataHandler *MarketDataHandler
	AnalyticsHandler  *AnalyticsHandler
	AdminHandler      *AdminHandler
	Service           string
}

// SetupRoutes configures all HTTP routes
func SetupRoutes(e *echo.Echo, config *RouterConfig) {
	e.HTTPErrorHandler = ErrorHandler

	// Middleware
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/health"
		},
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := log.Info()
			if v.Error != nil || v.Status >= 500 {
				event = log.Error().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.Secure())

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return SuccessResponse(c, map[string]any{
			"status":    "healthy",
			"service":   config.Service,
			"timestamp": time.Now().UTC(),
		})
	})

	// API group
	api := e.Group("/api")

	// Schema routes (public)
	schemas := api.Group("/schemas")
	{
		schemas.GET("", config.SchemaHandler.List)
		schemas.POST("/:name/validate", config.SchemaHandler.Validate)
	}

	// Auth routes (public)
	auth := api.Group("/auth")
	{
		auth.POST("/login", config.AuthHandler.Login)
		auth.POST("/logout", config.AuthHandler.Logout)
		auth.POST("/register", config.AuthHandler.Register)
		auth.GET("/me", config.AuthHandler.Me, config.Auth.AuthMiddleware)
	}

	// Market data routes (any authenticated role reads, write roles ingest)
	marketData := api.Group("/market-data", config.Auth.AuthMiddleware)
	{
		marketData.GET("", config.MarketDataHandler.ListSymbols)
		marketData.POST("/bars", config.MarketDataHandler.Ingest, custommiddleware.WriteMiddleware)
		marketData.GET("/:symbol", config.MarketDataHandler.GetBars)
		marketData.GET("/:symbol/latest", config.MarketDataHandler.GetLatest)
	}

	// Analytics routes
	analytics := api.Group("/analytics", config.Auth.AuthMiddleware)
	{
		analytics.POST("/performance", config.AnalyticsHandler.Performance)
	}

	// Admin routes (protected with Auth + Admin middleware)
	admin := api.Group("/admin", config.Auth.AuthMiddleware, custommiddleware.AdminMiddleware)
	{
		admin.GET("/users", config.AdminHandler.ListUsers)
		admin.GET("/events", config.AdminHandler.RecentEvents)
	}
}
