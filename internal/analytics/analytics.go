// Package analytics derives performance statistics from price and trade return series.
package analytics

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const (
	// TradingDaysPerYear annualises daily series
	TradingDaysPerYear = 252

	// DefaultRiskFreeRate is the annual risk-free rate used when none is given
	DefaultRiskFreeRate = 0.02
)

// Returns converts a price series into simple period returns.
// Returns[i] = (prices[i+1] - prices[i]) / prices[i]; a zero price yields a zero return.
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
		}
	}
	return returns
}

// SharpeRatio annualises daily returns and compares them with an annual risk-free rate
func SharpeRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	mean, std := stat.PopMeanStdDev(returns, nil)
	if std == 0 {
		return 0
	}

	annualReturn := mean * TradingDaysPerYear
	annualStd := std * math.Sqrt(TradingDaysPerYear)
	return (annualReturn - riskFreeRate) / annualStd
}

// MaxDrawdown is the largest peak-to-trough decline of a value series, as a positive fraction
func MaxDrawdown(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	maxDrawdown := 0.0
	peak := values[0]
	for _, v := range values[1:] {
		if v > peak {
			peak = v
			continue
		}
		if peak > 0 {
			maxDrawdown = math.Max(maxDrawdown, (peak-v)/peak)
		}
	}
	return maxDrawdown
}

// Volatility is the population standard deviation of returns, optionally annualised
func Volatility(returns []float64, annualize bool) float64 {
	if len(returns) == 0 {
		return 0
	}

	_, std := stat.PopMeanStdDev(returns, nil)
	if annualize {
		return std * math.Sqrt(TradingDaysPerYear)
	}
	return std
}

// WinRate is the share of strictly positive returns
func WinRate(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	wins := 0
	for _, r := range returns {
		if r > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(returns))
}

// ProfitFactor is gross profit over gross loss. With no losses it is +Inf when
// there are profits and 1 when there are none.
func ProfitFactor(returns []float64) float64 {
	grossProfit, grossLoss := 0.0, 0.0
	profits, losses := 0, 0
	for _, r := range returns {
		switch {
		case r > 0:
			grossProfit += r
			profits++
		case r < 0:
			grossLoss -= r
			losses++
		}
	}

	if losses == 0 {
		if profits > 0 {
			return math.Inf(1)
		}
		return 1
	}
	return grossProfit / grossLoss
}

// Correlation is the Pearson correlation of two equal-length series.
// Mismatched, empty or constant series give 0.
func Correlation(x, y []float64) float64 {
	if len(x) == 0 || len(x) != len(y) {
		return 0
	}

	c := stat.Correlation(x, y, nil)
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return 0
	}
	return c
}

// Beta measures an asset's sensitivity to the market
func Beta(assetReturns, marketReturns []float64) float64 {
	if len(assetReturns) == 0 || len(assetReturns) != len(marketReturns) {
		return 0
	}

	_, assetStd := stat.PopMeanStdDev(assetReturns, nil)
	_, marketStd := stat.PopMeanStdDev(marketReturns, nil)
	if marketStd == 0 {
		return 0
	}
	return Correlation(assetReturns, marketReturns) * (assetStd / marketStd)
}

// AnnualizedReturn compounds period returns and scales them to a trading year.
// Fewer than three periods return the plain cumulative return.
func AnnualizedReturn(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	cumulative := 1.0
	for _, r := range returns {
		cumulative *= 1 + r
	}

	n := float64(len(returns))
	if n < 3 {
		return cumulative - 1
	}
	return math.Pow(cumulative, TradingDaysPerYear/n) - 1
}

func meanOf(values []float64, keep func(float64) bool) float64 {
	var picked []float64
	for _, v := range values {
		if keep(v) {
			picked = append(picked, v)
		}
	}
	if len(picked) == 0 {
		return 0
	}
	return stat.Mean(picked, nil)
}
