package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"quantshared/internal/domain"
)

// MarketDataRepositoryImpl implements the MarketDataRepository interface
type MarketDataRepositoryImpl struct {
	db *pgxpool.Pool
}

// NewMarketDataRepository creates a new MarketDataRepository
func NewMarketDataRepository(db *pgxpool.Pool) domain.MarketDataRepository {
	return &MarketDataRepositoryImpl{db: db}
}

const upsertBarQuery = `
	INSERT INTO ohlcv (
		symbol, timestamp, open, high, low, close, volume, adjusted_close, source
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9
	)
	ON CONFLICT (symbol, timestamp) DO UPDATE SET
		open = EXCLUDED.open,
		high = EXCLUDED.high,
		low = EXCLUDED.low,
		close = EXCLUDED.close,
		volume = EXCLUDED.volume,
		adjusted_close = EXCLUDED.adjusted_close,
		source = EXCLUDED.source
`

// InsertBars upserts bars in one transaction. Bars failing validation or the
// range check are reported and skipped; a failing row does not abort the others.
func (r *MarketDataRepositoryImpl) InsertBars(ctx context.Context, source string, bars []domain.OHLCVBar) (*domain.IngestResult, error) {
	if source == "" {
		source = "api"
	}
	result := &domain.IngestResult{}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, bar := range bars {
		if problems := barProblems(bar); len(problems) > 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", bar.Label(), strings.Join(problems, ", ")))
			continue
		}

		// Savepoint per row so a constraint violation only drops that row
		sp, err := tx.Begin(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create savepoint: %w", err)
		}
		_, err = sp.Exec(ctx, upsertBarQuery,
			strings.ToUpper(bar.Symbol),
			bar.Timestamp,
			bar.Open,
			bar.High,
			bar.Low,
			bar.Close,
			bar.Volume,
			bar.AdjustedClose,
			source,
		)
		if err != nil {
			_ = sp.Rollback(ctx)
			result.Errors = append(result.Errors, fmt.Sprintf("database error for %s: %v", bar.Label(), err))
			continue
		}
		if err := sp.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to release savepoint: %w", err)
		}
		result.Inserted++
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit bars: %w", err)
	}

	return result, nil
}

// GetBars retrieves bars for the query, aggregated to its interval
func (r *MarketDataRepositoryImpl) GetBars(ctx context.Context, q domain.DataQuery) ([]domain.OHLCVBar, error) {
	query, args, err := buildBarsQuery(q)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bars: %w", err)
	}
	defer rows.Close()

	var bars []domain.OHLCVBar
	for rows.Next() {
		bar, err := scanBar(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bar: %w", err)
		}
		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bars: %w", err)
	}

	return bars, nil
}

// GetLatest retrieves the most recent stored bar of a symbol
func (r *MarketDataRepositoryImpl) GetLatest(ctx context.Context, symbol string) (*domain.OHLCVBar, error) {
	query := `
		SELECT symbol, timestamp, open, high, low, close, volume, adjusted_close
		FROM ohlcv
		WHERE symbol = $1
		ORDER BY timestamp DESC
		LIMIT 1
	`

	bar, err := scanBar(r.db.QueryRow(ctx, query, strings.ToUpper(symbol)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest bar: %w", err)
	}

	return &bar, nil
}

// ListSymbols retrieves stored symbols with their bar counts and coverage
func (r *MarketDataRepositoryImpl) ListSymbols(ctx context.Context, limit, offset int) ([]domain.SymbolSummary, error) {
	query := `
		SELECT symbol, COUNT(*), MIN(timestamp), MAX(timestamp)
		FROM ohlcv
		GROUP BY symbol
		ORDER BY symbol ASC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	summaries := []domain.SymbolSummary{}
	for rows.Next() {
		var s domain.SymbolSummary
		if err := rows.Scan(&s.Symbol, &s.Bars, &s.First, &s.Last); err != nil {
			return nil, fmt.Errorf("failed to scan symbol summary: %w", err)
		}
		s.First = s.First.UTC()
		s.Last = s.Last.UTC()
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating symbols: %w", err)
	}

	return summaries, nil
}

// CountSymbols counts distinct stored symbols
func (r *MarketDataRepositoryImpl) CountSymbols(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(DISTINCT symbol) FROM ohlcv`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count symbols: %w", err)
	}
	return count, nil
}

func barProblems(bar domain.OHLCVBar) []string {
	var problems []string
	if err := bar.Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	return append(problems, bar.CheckRange()...)
}

// bucketExpr returns the SQL expression grouping timestamps into one bar per interval
func bucketExpr(interval domain.Frequency) (string, error) {
	switch interval {
	case domain.Freq1Min:
		return `date_trunc('minute', timestamp, 'UTC')`, nil
	case domain.Freq5Min:
		return `date_bin('5 minutes', timestamp, TIMESTAMPTZ '2000-01-01 00:00:00+00')`, nil
	case domain.Freq15Min:
		return `date_bin('15 minutes', timestamp, TIMESTAMPTZ '2000-01-01 00:00:00+00')`, nil
	case domain.Freq1Hour:
		return `date_trunc('hour', timestamp, 'UTC')`, nil
	case domain.Freq1Day:
		return `date_trunc('day', timestamp, 'UTC')`, nil
	case domain.Freq1Week:
		return `date_trunc('week', timestamp, 'UTC')`, nil
	case domain.Freq1Month:
		return `date_trunc('month', timestamp, 'UTC')`, nil
	}
	return "", fmt.Errorf("unsupported interval %q", interval)
}

func buildBarsQuery(q domain.DataQuery) (string, []any, error) {
	bucket, err := bucketExpr(q.Interval)
	if err != nil {
		return "", nil, err
	}

	args := []any{strings.ToUpper(q.Symbol), q.StartDate, q.EndDate}
	where := "symbol = $1 AND timestamp >= $2 AND timestamp <= $3"
	if q.Source != nil {
		args = append(args, *q.Source)
		where += fmt.Sprintf(" AND source = $%d", len(args))
	}

	query := fmt.Sprintf(`
		SELECT symbol, bucket, open, high, low, close, volume, adjusted_close
		FROM (
			SELECT
				symbol,
				%s AS bucket,
				(array_agg(open ORDER BY timestamp ASC))[1] AS open,
				MAX(high) AS high,
				MIN(low) AS low,
				(array_agg(close ORDER BY timestamp DESC))[1] AS close,
				SUM(volume)::BIGINT AS volume,
				(array_agg(adjusted_close ORDER BY timestamp DESC))[1] AS adjusted_close
			FROM ohlcv
			WHERE %s
			GROUP BY symbol, bucket
		) bars
		ORDER BY bucket ASC
	`, bucket, where)

	return query, args, nil
}

func scanBar(row pgx.Row) (domain.OHLCVBar, error) {
	var bar domain.OHLCVBar
	err := row.Scan(
		&bar.Symbol,
		&bar.Timestamp,
		&bar.Open,
		&bar.High,
		&bar.Low,
		&bar.Close,
		&bar.Volume,
		&bar.AdjustedClose,
	)
	bar.Timestamp = bar.Timestamp.UTC()
	return bar, err
}
