package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"quantshared/internal/domain"
)

// EventRepositoryImpl stores published events in the outbox table
type EventRepositoryImpl struct {
	db *pgxpool.Pool
}

// NewEventRepository creates a new EventRepository
func NewEventRepository(db *pgxpool.Pool) domain.EventRepository {
	return &EventRepositoryImpl{db: db}
}

// Publish validates an event and appends it to the outbox. Re-publishing an id is a no-op.
func (r *EventRepositoryImpl) Publish(ctx context.Context, event domain.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	meta := event.Meta()
	query := `
		INSERT INTO events (id, type, source, timestamp, payload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`

	_, err = r.db.Exec(ctx, query,
		meta.ID,
		string(event.EventType()),
		meta.Source,
		meta.Timestamp,
		payload,
	)
	if err != nil {
		return fmt.Errorf("failed to store event: %w", err)
	}

	return nil
}

// Recent retrieves the newest events. Rows that no longer decode are logged and skipped.
func (r *EventRepositoryImpl) Recent(ctx context.Context, limit int) ([]domain.Event, error) {
	query := `
		SELECT id, payload
		FROM events
		ORDER BY timestamp DESC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		event, err := domain.DecodeEvent(payload)
		if err != nil {
			log.Warn().Err(err).Str("event_id", id).Msg("Skipping undecodable event")
			continue
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// DeleteOlderThan removes events stamped before cutoff
func (r *EventRepositoryImpl) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM events WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete events: %w", err)
	}
	return tag.RowsAffected(), nil
}
