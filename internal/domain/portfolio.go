package domain

import (
	"time"

	"quantshared/internal/validation"
)

// Position is a holding in one symbol. Quantity is negative for short positions;
// AveragePrice is positive in both directions.
type Position struct {
	Symbol        string    `json:"symbol"`
	Quantity      float64   `json:"quantity"`
	AveragePrice  float64   `json:"average_price" validate:"gt=0"` // Average cost basis
	MarketValue   float64   `json:"market_value"`
	UnrealizedPnL float64   `json:"unrealized_pnl"`
	RealizedPnL   float64   `json:"realized_pnl" default:"0"`
	LastUpdated   time.Time `json:"last_updated"`
}

// IsShort reports whether the position is short
func (p Position) IsShort() bool {
	return p.Quantity < 0
}

// Validate checks the position's constraints
func (p Position) Validate() error {
	return validation.Struct(p)
}

// Portfolio groups a user's positions and cash
type Portfolio struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Name        string     `json:"name"`
	Positions   []Position `json:"positions" default:"[]" validate:"required,dive"`
	Cash        float64    `json:"cash" validate:"gte=0"`
	TotalValue  float64    `json:"total_value" validate:"gte=0"` // Cash + market value of positions
	LastUpdated time.Time  `json:"last_updated"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Validate checks the portfolio and its positions
func (p Portfolio) Validate() error {
	return validation.Struct(p)
}

// PerformanceMetrics summarises a portfolio over a date range
type PerformanceMetrics struct {
	PortfolioID string    `json:"portfolio_id"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`

	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`

	SharpeRatio float64 `json:"sharpe_ratio"`
	MaxDrawdown float64 `json:"max_drawdown"` // Worst peak-to-trough decline
	Volatility  float64 `json:"volatility"`

	WinRate      float64 `json:"win_rate" validate:"gte=0,lte=1"`
	ProfitFactor float64 `json:"profit_factor" validate:"gte=0"` // Gross profit / gross loss
	AverageWin   float64 `json:"average_win"`
	AverageLoss  float64 `json:"average_loss"`

	BenchmarkReturn *float64 `json:"benchmark_return,omitempty"`
	Alpha           *float64 `json:"alpha,omitempty"`
	Beta            *float64 `json:"beta,omitempty"`

	CalculatedAt time.Time `json:"calculated_at"`
}

// Validate checks the metric bounds
func (m PerformanceMetrics) Validate() error {
	return validation.Struct(m)
}
