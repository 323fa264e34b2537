package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// EventPruner deletes stored events older than a cutoff
type EventPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Scheduler runs the event outbox retention job
type Scheduler struct {
	cron      *cron.Cron
	pruner    EventPruner
	retention time.Duration
	schedule  string
	timeout   time.Duration
	now       func() time.Time
}

// NewScheduler creates a scheduler pruning events older than retention on the
// given cron schedule (standard five-field expression)
func NewScheduler(pruner EventPruner, retention time.Duration, schedule string) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		pruner:    pruner,
		retention: retention,
		schedule:  schedule,
		timeout:   time.Minute,
		now:       time.Now,
	}
}

// Start registers the job and starts the cron loop
func (s *Scheduler) Start() error {
	if s.retention <= 0 {
		return fmt.Errorf("event retention must be positive, got %s", s.retention)
	}

	_, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if _, err := s.RunNow(ctx); err != nil {
			log.Error().Err(err).Msg("Scheduled event pruning failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	log.Info().
		Str("schedule", s.schedule).
		Dur("retention", s.retention).
		Msg("Scheduler started")
	return nil
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info().Msg("Scheduler stopped")
}

// RunNow prunes immediately and returns the number of deleted events
func (s *Scheduler) RunNow(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.retention).UTC()

	deleted, err := s.pruner.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune events before %s: %w", cutoff.Format(time.RFC3339), err)
	}

	log.Info().
		Int64("deleted", deleted).
		Time("cutoff", cutoff).
		Msg("Pruned old events")
	return deleted, nil
}
