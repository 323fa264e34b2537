package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"quantshared/configs"
	"quantshared/internal/database"
	delivery "quantshared/internal/delivery/http"
	"quantshared/internal/infra"
	"quantshared/internal/middleware"
	"quantshared/internal/repository"
	"quantshared/internal/schema"
	"quantshared/pkg/logger"
)

const serviceName = "quantshared-api"

func main() {
	// Load environment variables
	if err := configs.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := configs.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger.SetGlobalLogger(logger.New(logger.Config{
		Level:   cfg.Log.Level,
		Pretty:  cfg.Log.Pretty,
		Service: serviceName,
	}))

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("Service stopped with error")
	}
	log.Info().Msg("Server exited gracefully")
}

func run(cfg *configs.Config) error {
	ctx := context.Background()

	// Initialize database
	db, err := infra.NewDatabase(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Initialize repositories
	marketRepo := repository.NewMarketDataRepository(db)
	userRepo := repository.NewUserRepository(db)
	eventRepo := repository.NewEventRepository(db)

	// Event retention
	pruner := infra.NewScheduler(eventRepo, cfg.Events.Retention, cfg.Events.PruneSchedule)
	if err := pruner.Start(); err != nil {
		return fmt.Errorf("failed to start event pruner: %w", err)
	}
	defer pruner.Stop()

	auth, err := middleware.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	// Initialize HTTP router
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = 15 * time.Second
	e.Server.WriteTimeout = 30 * time.Second
	e.Server.IdleTimeout = 60 * time.Second

	delivery.SetupRoutes(e, &delivery.RouterConfig{
		Auth:              auth,
		AuthHandler:       delivery.NewAuthHandler(userRepo, auth, cfg.IsProduction()),
		SchemaHandler:     delivery.NewSchemaHandler(schema.New()),
		MarketDataHandler: delivery.NewMarketDataHandler(marketRepo, eventRepo),
		AnalyticsHandler:  delivery.NewAnalyticsHandler(),
		AdminHandler:      delivery.NewAdminHandler(userRepo, eventRepo),
		Service:           serviceName,
	})

	addr := ":" + cfg.Server.Port
	log.Info().
		Str("addr", addr).
		Str("env", cfg.Server.Env).
		Dur("event_retention", cfg.Events.Retention).
		Msg("Starting server")

	serverErr := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
