package configs

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Log      LogConfig
	Events   EventsConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// AuthConfig holds token signing configuration
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Pretty bool
}

// EventsConfig holds event outbox retention settings
type EventsConfig struct {
	Retention     time.Duration
	PruneSchedule string // cron expression
}

// LoadDotEnv loads a .env file when present. A missing file is not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	tokenTTL, err := getEnvDuration("JWT_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	retention, err := getEnvDuration("EVENT_RETENTION", 30*24*time.Hour)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("GO_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  tokenTTL,
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnvBool("LOG_PRETTY", false),
		},
		Events: EventsConfig{
			Retention:     retention,
			PruneSchedule: getEnv("EVENT_PRUNE_SCHEDULE", "0 3 * * *"),
		},
	}

	if cfg.Auth.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		cfg.Auth.JWTSecret = "development-secret-change-me"
	}

	return cfg, nil
}

// IsProduction reports whether GO_ENV is production
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}
