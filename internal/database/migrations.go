package database

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/001_init_schema.sql
var migrationSQL string

// RunMigrations creates the schema on startup. Every statement is idempotent,
// so it is safe to run against an already migrated database.
func RunMigrations(ctx context.Context, db *pgxpool.Pool) error {
	var exists bool
	err := db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_name = 'ohlcv'
		)
	`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check if migrations needed: %w", err)
	}

	if exists {
		log.Info().Msg("Database already migrated, verifying schema")
	} else {
		log.Info().Msg("Database is empty, running migrations")
	}

	if _, err := db.Exec(ctx, migrationSQL); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info().Msg("Database migrations completed")
	return nil
}
