package domain

import (
	"fmt"
	"strings"
	"time"

	"quantshared/internal/validation"
)

// Frequency is the sampling interval of a bar series
type Frequency string

// Frequency values
const (
	Freq1Min   Frequency = "1min"
	Freq5Min   Frequency = "5min"
	Freq15Min  Frequency = "15min"
	Freq1Hour  Frequency = "1hour"
	Freq1Day   Frequency = "1day"
	Freq1Week  Frequency = "1week"
	Freq1Month Frequency = "1month"
)

// Frequencies returns every accepted sampling interval.
func Frequencies() []Frequency {
	return []Frequency{Freq1Min, Freq5Min, Freq15Min, Freq1Hour, Freq1Day, Freq1Week, Freq1Month}
}

// Valid reports whether f is one of the accepted intervals.
func (f Frequency) Valid() bool {
	for _, v := range Frequencies() {
		if f == v {
			return true
		}
	}
	return false
}

// OHLCVBar is one open/high/low/close/volume bar for a symbol
type OHLCVBar struct {
	Symbol        string    `json:"symbol"`
	Timestamp     time.Time `json:"timestamp"`
	Open          float64   `json:"open" validate:"gt=0"`
	High          float64   `json:"high" validate:"gt=0"`
	Low           float64   `json:"low" validate:"gt=0"`
	Close         float64   `json:"close" validate:"gt=0"`
	Volume        int64     `json:"volume" validate:"gte=0"`
	AdjustedClose *float64  `json:"adjusted_close,omitempty"` // Adjusted for splits/dividends
}

// Validate checks the bar's field constraints
func (b OHLCVBar) Validate() error {
	return validation.Struct(b)
}

// CheckRange checks that the bar is internally consistent: a non-blank symbol,
// high >= low, and open/close within [low, high]. It is stricter than Validate
// and is applied before bars are stored.
func (b OHLCVBar) CheckRange() []string {
	var problems []string

	if strings.TrimSpace(b.Symbol) == "" {
		problems = append(problems, "symbol is required")
	}
	if b.Timestamp.IsZero() {
		problems = append(problems, "valid timestamp is required")
	}
	if b.High < b.Low {
		problems = append(problems, "high price cannot be less than low price")
	}
	if b.High < b.Open || b.High < b.Close {
		problems = append(problems, "high price must be >= open and close prices")
	}
	if b.Low > b.Open || b.Low > b.Close {
		problems = append(problems, "low price must be <= open and close prices")
	}

	return problems
}

// Label identifies the bar in error messages
func (b OHLCVBar) Label() string {
	return fmt.Sprintf("%s at %s", b.Symbol, b.Timestamp.Format(time.RFC3339))
}

// TimeSeriesMetadata describes where a series came from
type TimeSeriesMetadata struct {
	Source      string    `json:"source"` // e.g. "yahoo", "alpha_vantage"
	LastUpdated time.Time `json:"last_updated"`
	Frequency   Frequency `json:"frequency" validate:"oneof=1min 5min 15min 1hour 1day 1week 1month"`
}

// TimeSeries is an ordered run of bars for one symbol
type TimeSeries struct {
	Symbol   string             `json:"symbol"`
	Data     []OHLCVBar         `json:"data" validate:"required,dive"`
	Metadata TimeSeriesMetadata `json:"metadata"`
}

// Validate checks the series, its bars and its metadata
func (s TimeSeries) Validate() error {
	return validation.Struct(s)
}

// DataQuery selects bars for a symbol. StartDate is not required to precede EndDate.
type DataQuery struct {
	Symbol    string    `json:"symbol"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Interval  Frequency `json:"interval" validate:"oneof=1min 5min 15min 1hour 1day 1week 1month"`
	Source    *string   `json:"source,omitempty"`
}

// Validate checks the query's interval
func (q DataQuery) Validate() error {
	return validation.Struct(q)
}
