package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantshared/internal/validation"
)

const ingestedJSON = `{
	"id": "evt-1",
	"type": "data.ingested",
	"timestamp": "2024-01-15T10:00:00Z",
	"source": "ingestion-service",
	"symbol": "AAPL",
	"record_count": 250
}`

func TestDecodeEvent_DataIngestion(t *testing.T) {
	ev, err := DecodeEvent([]byte(ingestedJSON))
	require.NoError(t, err)

	ingest, ok := ev.(DataIngestionEvent)
	require.True(t, ok, "got %T", ev)
	assert.Equal(t, EventDataIngested, ingest.EventType())
	assert.Equal(t, "AAPL", ingest.Symbol)
	require.NotNil(t, ingest.RecordCount)
	assert.Equal(t, 250, *ingest.RecordCount)
	assert.Nil(t, ingest.Error)
	assert.Equal(t, "evt-1", ingest.Meta().ID)
	assert.Equal(t, "ingestion-service", ingest.Meta().Source)
}

func TestDecodeEvent_DataIngestionRequiresSymbol(t *testing.T) {
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(ingestedJSON), &doc))
	delete(doc, "symbol")
	b, _ := json.Marshal(doc)

	_, err := DecodeEvent(b)
	assert.Equal(t, validation.ConstraintRequired, fieldError(t, err, "symbol").Constraint)

	_, err = DecodeDataIngestionEvent(b)
	assert.Equal(t, validation.ConstraintRequired, fieldError(t, err, "symbol").Constraint)
}

func TestDecodeEvent_Variants(t *testing.T) {
	testCases := []struct {
		name string
		doc  string
		want EventType
	}{
		{
			"strategy",
			`{"id":"e","type":"strategy.executed","source":"s","strategy_id":"st-1","user_id":"u-1"}`,
			EventStrategyExecuted,
		},
		{
			"backtest",
			`{"id":"e","type":"backtest.completed","source":"s","backtest_id":"b-1","strategy_id":"st-1","user_id":"u-1"}`,
			EventBacktestCompleted,
		},
		{
			"data failed",
			`{"id":"e","type":"data.failed","source":"s","symbol":"X","error":"timeout"}`,
			EventDataFailed,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := DecodeEvent([]byte(tc.doc))
			require.NoError(t, err)
			assert.Equal(t, tc.want, ev.EventType())
			assert.False(t, ev.Meta().Timestamp.IsZero(), "timestamp defaults to now")
			assert.NoError(t, ev.Validate())
		})
	}
}

func TestDecodeEvent_UnknownTag(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"id":"e","type":"strategy.deleted","source":"s","strategy_id":"x","user_id":"u"}`))
	fe := fieldError(t, err, "type")
	assert.Equal(t, validation.ConstraintOneOf, fe.Constraint)
	assert.Equal(t, "strategy.deleted", fe.Value)
}

func TestDecodeEvent_TagOutsideFamily(t *testing.T) {
	doc := []byte(`{"id":"e","type":"strategy.deleted","source":"s","strategy_id":"x","user_id":"u"}`)
	_, err := DecodeStrategyEvent(doc)
	assert.Equal(t, validation.ConstraintOneOf, fieldError(t, err, "type").Constraint)

	doc = []byte(`{"id":"e","type":"data.ingested","source":"s","backtest_id":"b","strategy_id":"x","user_id":"u"}`)
	_, err = DecodeBacktestEvent(doc)
	assert.Equal(t, validation.ConstraintOneOf, fieldError(t, err, "type").Constraint)
}

func TestDecodeEvent_MissingOrBadTag(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"id":"e","source":"s"}`))
	assert.Equal(t, validation.ConstraintRequired, fieldError(t, err, "type").Constraint)

	_, err = DecodeEvent([]byte(`{"id":"e","type":null,"source":"s"}`))
	assert.Equal(t, validation.ConstraintRequired, fieldError(t, err, "type").Constraint)

	_, err = DecodeEvent([]byte(`{"id":"e","type":7,"source":"s"}`))
	assert.Equal(t, validation.ConstraintType, fieldError(t, err, "type").Constraint)

	_, err = DecodeEvent([]byte(`[1,2]`))
	assert.Equal(t, validation.ConstraintObject, fieldError(t, err, "").Constraint)
}

func TestDecodeEventWith_Clock(t *testing.T) {
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	dec := validation.NewDecoder(validation.WithClock(func() time.Time { return at }))

	ev, err := DecodeEventWith(dec, []byte(`{"id":"e","type":"backtest.started","source":"s","backtest_id":"b","strategy_id":"x","user_id":"u"}`))
	require.NoError(t, err)
	assert.Equal(t, at, ev.Meta().Timestamp)
}

func TestEventConstructors(t *testing.T) {
	ok := NewDataIngestedEvent("api", "AAPL", 3)
	assert.NoError(t, ok.Validate())
	assert.NotEmpty(t, ok.ID)
	assert.Equal(t, time.UTC, ok.Timestamp.Location())
	assert.Equal(t, 3, *ok.RecordCount)

	failed := NewDataFailedEvent("api", "AAPL", "bad rows")
	assert.Equal(t, EventDataFailed, failed.Type)
	assert.Equal(t, "bad rows", *failed.Error)

	base := NewBaseEvent("custom.thing", "api")
	assert.Equal(t, EventType("custom.thing"), base.EventType())
	assert.NotEqual(t, ok.ID, base.ID)
}

func TestEventRoundTrip(t *testing.T) {
	original := NewDataIngestedEvent("api", "MSFT", 42)

	b, err := json.Marshal(original)
	require.NoError(t, err)

	ev, err := DecodeEvent(b)
	require.NoError(t, err)
	assert.Equal(t, original, ev)
}

func TestEventType_Family(t *testing.T) {
	assert.Equal(t, FamilyDataIngestion, EventDataFailed.Family())
	assert.Equal(t, FamilyStrategy, EventStrategyUpdated.Family())
	assert.Equal(t, FamilyBacktest, EventBacktestFailed.Family())
	assert.Equal(t, EventFamily(""), EventType("data.deleted").Family())
	assert.Len(t, EventTypes(), 8)
}

func TestMarketDataEvent(t *testing.T) {
	ev, err := validation.Decode[MarketDataEvent]([]byte(`{"type":"price_update","symbol":"AAPL","data":` + barJSON + `}`))
	require.NoError(t, err)
	assert.False(t, ev.Timestamp.IsZero())
	assert.Equal(t, MarketPriceUpdate, ev.Type)

	_, err = validation.Decode[MarketDataEvent]([]byte(`{"type":"quote","symbol":"AAPL","data":` + barJSON + `}`))
	assert.Equal(t, validation.ConstraintOneOf, fieldError(t, err, "type").Constraint)
}
