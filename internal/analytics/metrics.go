package analytics

import (
	"errors"
	"fmt"
	"math"
	"time"

	"quantshared/internal/domain"
)

// ErrInsufficientData is returned when the equity curve has fewer than two points
var ErrInsufficientData = errors.New("at least two equity values are required")

// Input is everything Compute needs for one portfolio
type Input struct {
	PortfolioID string    `json:"portfolio_id"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`

	// Equity is the portfolio value per trading day, oldest first
	Equity []float64 `json:"equity"`

	// TradeReturns holds the fractional return of each closed trade
	TradeReturns []float64 `json:"trade_returns" default:"[]"`

	// Benchmark is an optional price series aligned with Equity
	Benchmark []float64 `json:"benchmark,omitempty"`

	// RiskFreeRate overrides DefaultRiskFreeRate
	RiskFreeRate *float64 `json:"risk_free_rate,omitempty"`

	// CalculatedAt defaults to the current time
	CalculatedAt time.Time `json:"calculated_at,omitempty"`
}

// Compute builds a validated PerformanceMetrics record
func Compute(in Input) (domain.PerformanceMetrics, error) {
	if len(in.Equity) < 2 {
		return domain.PerformanceMetrics{}, ErrInsufficientData
	}
	for i, v := range in.Equity {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return domain.PerformanceMetrics{}, fmt.Errorf("equity[%d] must be a positive number, got %v", i, v)
		}
	}

	rf := DefaultRiskFreeRate
	if in.RiskFreeRate != nil {
		rf = *in.RiskFreeRate
	}

	calculatedAt := in.CalculatedAt
	if calculatedAt.IsZero() {
		calculatedAt = time.Now()
	}

	returns := Returns(in.Equity)
	annualized := AnnualizedReturn(returns)

	m := domain.PerformanceMetrics{
		PortfolioID:      in.PortfolioID,
		StartDate:        in.StartDate.UTC(),
		EndDate:          in.EndDate.UTC(),
		TotalReturn:      in.Equity[len(in.Equity)-1]/in.Equity[0] - 1,
		AnnualizedReturn: annualized,
		SharpeRatio:      SharpeRatio(returns, rf),
		MaxDrawdown:      MaxDrawdown(in.Equity),
		Volatility:       Volatility(returns, true),
		WinRate:          WinRate(in.TradeReturns),
		ProfitFactor:     clampInf(ProfitFactor(in.TradeReturns)),
		AverageWin:       meanOf(in.TradeReturns, func(r float64) bool { return r > 0 }),
		AverageLoss:      meanOf(in.TradeReturns, func(r float64) bool { return r < 0 }),
		CalculatedAt:     calculatedAt.UTC(),
	}

	if len(in.Benchmark) > 0 {
		if len(in.Benchmark) != len(in.Equity) {
			return domain.PerformanceMetrics{}, fmt.Errorf("benchmark has %d values, equity has %d", len(in.Benchmark), len(in.Equity))
		}
		benchReturns := Returns(in.Benchmark)
		benchTotal := in.Benchmark[len(in.Benchmark)-1]/in.Benchmark[0] - 1
		beta := Beta(returns, benchReturns)
		alpha := annualized - (rf + beta*(AnnualizedReturn(benchReturns)-rf))

		m.BenchmarkReturn = &benchTotal
		m.Beta = &beta
		m.Alpha = &alpha
	}

	if err := m.Validate(); err != nil {
		return domain.PerformanceMetrics{}, err
	}
	return m, nil
}

// JSON cannot carry infinities
func clampInf(v float64) float64 {
	if math.IsInf(v, 1) {
		return math.MaxFloat64
	}
	return v
}
