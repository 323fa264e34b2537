package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantshared/internal/validation"
)

const barJSON = `{
	"symbol": "AAPL",
	"timestamp": "2024-01-15T00:00:00",
	"open": 185.0,
	"high": 187.5,
	"low": 184.2,
	"close": 186.9,
	"volume": 51234000
}`

func fieldError(t *testing.T, err error, field string) *validation.FieldError {
	t.Helper()
	errs, ok := validation.AsErrors(err)
	require.True(t, ok, "expected validation errors, got %v", err)
	fe := errs.Field(field)
	require.NotNil(t, fe, "no error for %q in %v", field, errs.Fields())
	return fe
}

func TestOHLCVBar_Decode(t *testing.T) {
	bar, err := validation.Decode[OHLCVBar]([]byte(barJSON))
	require.NoError(t, err)

	assert.Equal(t, "AAPL", bar.Symbol)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), bar.Timestamp)
	assert.Equal(t, 187.5, bar.High)
	assert.Equal(t, int64(51234000), bar.Volume)
	assert.Nil(t, bar.AdjustedClose)
	assert.Empty(t, bar.CheckRange())
}

func TestOHLCVBar_PriceGates(t *testing.T) {
	base := OHLCVBar{Symbol: "AAPL", Timestamp: time.Now(), Open: 1, High: 1, Low: 1, Close: 1}

	for _, field := range []string{"open", "high", "low", "close"} {
		for _, price := range []float64{0, -0.01} {
			bar := base
			switch field {
			case "open":
				bar.Open = price
			case "high":
				bar.High = price
			case "low":
				bar.Low = price
			case "close":
				bar.Close = price
			}
			fe := fieldError(t, bar.Validate(), field)
			assert.Equal(t, validation.ConstraintGT, fe.Constraint)
		}
	}

	smallest := base
	smallest.Open, smallest.High, smallest.Low, smallest.Close = 1e-9, 1e-9, 1e-9, 1e-9
	assert.NoError(t, smallest.Validate())
}

func TestOHLCVBar_Volume(t *testing.T) {
	bar := OHLCVBar{Symbol: "X", Timestamp: time.Now(), Open: 1, High: 1, Low: 1, Close: 1}
	assert.NoError(t, bar.Validate(), "zero volume is valid")

	bar.Volume = -1
	fe := fieldError(t, bar.Validate(), "volume")
	assert.Equal(t, validation.ConstraintGTE, fe.Constraint)

	_, err := validation.Decode[OHLCVBar]([]byte(`{"symbol":"X","timestamp":"2024-01-01T00:00:00Z","open":1,"high":1,"low":1,"close":1,"volume":1.5}`))
	fe = fieldError(t, err, "volume")
	assert.Equal(t, validation.ConstraintType, fe.Constraint)
}

func TestOHLCVBar_CheckRange(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	testCases := []struct {
		name     string
		bar      OHLCVBar
		problems int
	}{
		{"consistent", OHLCVBar{Symbol: "A", Timestamp: ts, Open: 10, High: 12, Low: 9, Close: 11}, 0},
		{"high below low", OHLCVBar{Symbol: "A", Timestamp: ts, Open: 10, High: 8, Low: 9, Close: 8.5}, 3},
		{"close above high", OHLCVBar{Symbol: "A", Timestamp: ts, Open: 10, High: 12, Low: 9, Close: 13}, 1},
		{"open below low", OHLCVBar{Symbol: "A", Timestamp: ts, Open: 8, High: 12, Low: 9, Close: 10}, 1},
		{"blank symbol", OHLCVBar{Symbol: "  ", Timestamp: ts, Open: 10, High: 12, Low: 9, Close: 11}, 1},
		{"zero timestamp", OHLCVBar{Symbol: "A", Open: 10, High: 12, Low: 9, Close: 11}, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Len(t, tc.bar.CheckRange(), tc.problems)
		})
	}
}

func TestOHLCVBar_Label(t *testing.T) {
	bar := OHLCVBar{Symbol: "MSFT", Timestamp: time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)}
	assert.Equal(t, "MSFT at 2024-02-03T04:05:06Z", bar.Label())
}

func TestFrequency(t *testing.T) {
	for _, f := range []string{"1min", "5min", "15min", "1hour", "1day", "1week", "1month"} {
		assert.True(t, Frequency(f).Valid(), f)
	}
	for _, f := range []string{"1d", "daily", "1Min", "", "30min"} {
		assert.False(t, Frequency(f).Valid(), f)
	}
	assert.Len(t, Frequencies(), 7)
}

func TestTimeSeries_Decode(t *testing.T) {
	doc := `{
		"symbol": "AAPL",
		"data": [` + barJSON + `, ` + barJSON + `],
		"metadata": {"source": "yahoo", "last_updated": "2024-01-16T08:00:00Z", "frequency": "1day"}
	}`

	series, err := validation.Decode[TimeSeries]([]byte(doc))
	require.NoError(t, err)
	assert.Len(t, series.Data, 2)
	assert.Equal(t, Freq1Day, series.Metadata.Frequency)
	assert.Equal(t, "yahoo", series.Metadata.Source)
}

func TestTimeSeries_Errors(t *testing.T) {
	t.Run("bad bar price is attributed to its index", func(t *testing.T) {
		doc := `{
			"symbol": "AAPL",
			"data": [` + barJSON + `, {"symbol":"AAPL","timestamp":"2024-01-16","open":-1,"high":2,"low":1,"close":1,"volume":0}],
			"metadata": {"source": "yahoo", "last_updated": "2024-01-16T08:00:00Z", "frequency": "1day"}
		}`
		_, err := validation.Decode[TimeSeries]([]byte(doc))
		fe := fieldError(t, err, "data[1].open")
		assert.Equal(t, validation.ConstraintGT, fe.Constraint)
	})

	t.Run("unknown frequency", func(t *testing.T) {
		doc := `{"symbol":"AAPL","data":[],"metadata":{"source":"yahoo","last_updated":"2024-01-16T08:00:00Z","frequency":"2day"}}`
		_, err := validation.Decode[TimeSeries]([]byte(doc))
		fe := fieldError(t, err, "metadata.frequency")
		assert.Equal(t, validation.ConstraintOneOf, fe.Constraint)
	})

	t.Run("missing metadata", func(t *testing.T) {
		_, err := validation.Decode[TimeSeries]([]byte(`{"symbol":"AAPL","data":[]}`))
		fe := fieldError(t, err, "metadata")
		assert.Equal(t, validation.ConstraintRequired, fe.Constraint)
	})
}

func TestDataQuery_Decode(t *testing.T) {
	q, err := validation.Decode[DataQuery]([]byte(`{
		"symbol": "AAPL",
		"start_date": "2024-02-01T00:00:00Z",
		"end_date": "2024-01-01T00:00:00Z",
		"interval": "1hour"
	}`))
	require.NoError(t, err, "start after end is accepted")
	assert.Nil(t, q.Source)
	assert.Equal(t, Freq1Hour, q.Interval)

	_, err = validation.Decode[DataQuery]([]byte(`{"symbol":"AAPL","start_date":"2024-01-01","end_date":"2024-02-01","interval":"hourly"}`))
	fe := fieldError(t, err, "interval")
	assert.Equal(t, validation.ConstraintOneOf, fe.Constraint)
}
