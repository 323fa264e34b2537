// Package schema looks up record types by name so callers holding only a schema
// name and a payload can construct the matching record.
package schema

import (
	"errors"
	"fmt"
	"sort"

	"quantshared/internal/domain"
	"quantshared/internal/validation"
)

// ErrUnknownSchema is returned for a name that is not registered
var ErrUnknownSchema = errors.New("unknown schema")

// Schema names
const (
	OHLCVBar           = "ohlcv"
	TimeSeries         = "time_series"
	DataQuery          = "data_query"
	StrategyParameter  = "strategy_parameter"
	TradingStrategy    = "trading_strategy"
	Trade              = "trade"
	Order              = "order"
	Position           = "position"
	Portfolio          = "portfolio"
	PerformanceMetrics = "performance_metrics"
	User               = "user"
	APIResponse        = "api_response"
	PaginatedResponse  = "paginated_response"
	Event              = "event"
	BaseEvent          = "base_event"
	DataIngestionEvent = "data_ingestion_event"
	StrategyEvent      = "strategy_event"
	BacktestEvent      = "backtest_event"
	MarketDataEvent    = "market_data_event"
)

type decodeFunc func(dec *validation.Decoder, data []byte) (any, error)

func record[T any](dec *validation.Decoder, data []byte) (any, error) {
	v, err := validation.DecodeWith[T](dec, data)
	if err != nil {
		return nil, err
	}
	return v, nil
}

var builtin = map[string]decodeFunc{
	OHLCVBar:           record[domain.OHLCVBar],
	TimeSeries:         record[domain.TimeSeries],
	DataQuery:          record[domain.DataQuery],
	StrategyParameter:  record[domain.StrategyParameter],
	TradingStrategy:    record[domain.TradingStrategy],
	Trade:              record[domain.Trade],
	Order:              record[domain.Order],
	Position:           record[domain.Position],
	Portfolio:          record[domain.Portfolio],
	PerformanceMetrics: record[domain.PerformanceMetrics],
	User:               record[domain.User],
	APIResponse:        record[domain.APIResponse],
	PaginatedResponse:  record[domain.PaginatedResponse],
	BaseEvent:          record[domain.BaseEvent],
	DataIngestionEvent: record[domain.DataIngestionEvent],
	StrategyEvent:      record[domain.StrategyEvent],
	BacktestEvent:      record[domain.BacktestEvent],
	MarketDataEvent:    record[domain.MarketDataEvent],
	Event: func(dec *validation.Decoder, data []byte) (any, error) {
		ev, err := domain.DecodeEventWith(dec, data)
		if err != nil {
			return nil, err
		}
		return ev, nil
	},
}

// Registry constructs records by schema name. The zero value is not usable; use New.
type Registry struct {
	decoder *validation.Decoder
}

// New creates a registry. Options configure the underlying decoder.
func New(opts ...validation.Option) *Registry {
	return &Registry{decoder: validation.NewDecoder(opts...)}
}

// Names returns every registered schema name, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name is registered
func (r *Registry) Has(name string) bool {
	_, ok := builtin[name]
	return ok
}

// Decode builds the record named by name from a JSON object.
// Invalid input yields validation.Errors.
func (r *Registry) Decode(name string, data []byte) (any, error) {
	fn, ok := builtin[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSchema, name)
	}
	return fn(r.decoder, data)
}
