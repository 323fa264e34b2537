package domain

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by repositories when no row matches
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned when a unique key is taken
var ErrAlreadyExists = errors.New("already exists")

// IngestResult reports the outcome of a bar insert batch
type IngestResult struct {
	Inserted int      `json:"inserted"`
	Errors   []string `json:"errors,omitempty"`
}

// SymbolSummary describes the stored bars of one symbol
type SymbolSummary struct {
	Symbol string    `json:"symbol"`
	Bars   int64     `json:"bars"`
	First  time.Time `json:"first"`
	Last   time.Time `json:"last"`
}

// MarketDataRepository defines the interface for bar storage
type MarketDataRepository interface {
	// InsertBars validates and upserts bars; invalid bars are reported, not stored
	InsertBars(ctx context.Context, source string, bars []OHLCVBar) (*IngestResult, error)

	// GetBars retrieves the bars selected by a query in timestamp order
	GetBars(ctx context.Context, query DataQuery) ([]OHLCVBar, error)

	// GetLatest retrieves the most recent bar of a symbol
	GetLatest(ctx context.Context, symbol string) (*OHLCVBar, error)

	// ListSymbols retrieves stored symbols with their bar counts
	ListSymbols(ctx context.Context, limit, offset int) ([]SymbolSummary, error)

	// CountSymbols counts distinct stored symbols
	CountSymbols(ctx context.Context) (int, error)
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, account *UserAccount) error

	// Register creates a self-registered user. The role is decided atomically with
	// the insert: ADMIN when the store holds no users yet, VIEWER otherwise.
	// account.Role is set to the stored role.
	Register(ctx context.Context, account *UserAccount) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*UserAccount, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*UserAccount, error)

	// GetByUsername retrieves a user by username
	GetByUsername(ctx context.Context, username string) (*UserAccount, error)

	// UpdateLastLogin records a successful login
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error

	// List retrieves users ordered by creation time
	List(ctx context.Context, limit, offset int) ([]User, error)

	// Count counts all users
	Count(ctx context.Context) (int, error)
}

// EventPublisher hands events to whatever transport carries them
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// EventRepository defines the interface for the event outbox
type EventRepository interface {
	EventPublisher

	// Recent retrieves the newest events, decoded back into their variants
	Recent(ctx context.Context, limit int) ([]Event, error)

	// DeleteOlderThan removes events stamped before cutoff
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
