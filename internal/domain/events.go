package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"quantshared/internal/validation"
)

// EventType is the discriminating tag of a message-queue event
type EventType string

// Data ingestion events
const (
	EventDataIngested EventType = "data.ingested"
	EventDataFailed   EventType = "data.failed"
)

// Strategy events
const (
	EventStrategyCreated  EventType = "strategy.created"
	EventStrategyUpdated  EventType = "strategy.updated"
	EventStrategyExecuted EventType = "strategy.executed"
)

// Backtest events
const (
	EventBacktestStarted   EventType = "backtest.started"
	EventBacktestCompleted EventType = "backtest.completed"
	EventBacktestFailed    EventType = "backtest.failed"
)

// EventFamily groups the tags that share one payload shape
type EventFamily string

// EventFamily values
const (
	FamilyDataIngestion EventFamily = "data"
	FamilyStrategy      EventFamily = "strategy"
	FamilyBacktest      EventFamily = "backtest"
)

var familyTypes = map[EventFamily][]EventType{
	FamilyDataIngestion: {EventDataIngested, EventDataFailed},
	FamilyStrategy:      {EventStrategyCreated, EventStrategyUpdated, EventStrategyExecuted},
	FamilyBacktest:      {EventBacktestStarted, EventBacktestCompleted, EventBacktestFailed},
}

// Family returns the family the tag belongs to, or "" for an unknown tag
func (t EventType) Family() EventFamily {
	for family, types := range familyTypes {
		for _, ft := range types {
			if t == ft {
				return family
			}
		}
	}
	return ""
}

// EventTypes returns every known tag in family order
func EventTypes() []EventType {
	var all []EventType
	for _, family := range []EventFamily{FamilyDataIngestion, FamilyStrategy, FamilyBacktest} {
		all = append(all, familyTypes[family]...)
	}
	return all
}

// EventMeta holds the fields every event carries besides its tag
type EventMeta struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp" default:"now"`
	Source    string    `json:"source"`
}

// NewEventMeta stamps a fresh id and the current time
func NewEventMeta(source string) EventMeta {
	return EventMeta{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    source,
	}
}

// Event is implemented by every event record
type Event interface {
	EventType() EventType
	Meta() EventMeta
	Validate() error
}

// BaseEvent is an event whose tag has not been narrowed to a family
type BaseEvent struct {
	EventMeta
	Type string `json:"type"`
}

func (e BaseEvent) EventType() EventType { return EventType(e.Type) }
func (e BaseEvent) Meta() EventMeta      { return e.EventMeta }
func (e BaseEvent) Validate() error      { return validation.Struct(e) }

// NewBaseEvent stamps an untyped event
func NewBaseEvent(eventType, source string) BaseEvent {
	return BaseEvent{EventMeta: NewEventMeta(source), Type: eventType}
}

// DataIngestionEvent reports the outcome of loading market data for a symbol
type DataIngestionEvent struct {
	EventMeta
	Type        EventType `json:"type" validate:"oneof=data.ingested data.failed"`
	Symbol      string    `json:"symbol"`
	RecordCount *int      `json:"record_count,omitempty"`
	Error       *string   `json:"error,omitempty"`
}

func (e DataIngestionEvent) EventType() EventType { return e.Type }
func (e DataIngestionEvent) Meta() EventMeta      { return e.EventMeta }
func (e DataIngestionEvent) Validate() error      { return validation.Struct(e) }

// NewDataIngestedEvent reports count records stored for symbol
func NewDataIngestedEvent(source, symbol string, count int) DataIngestionEvent {
	return DataIngestionEvent{
		EventMeta:   NewEventMeta(source),
		Type:        EventDataIngested,
		Symbol:      symbol,
		RecordCount: &count,
	}
}

// NewDataFailedEvent reports a failed load for symbol
func NewDataFailedEvent(source, symbol, reason string) DataIngestionEvent {
	return DataIngestionEvent{
		EventMeta: NewEventMeta(source),
		Type:      EventDataFailed,
		Symbol:    symbol,
		Error:     &reason,
	}
}

// StrategyEvent reports a strategy lifecycle change
type StrategyEvent struct {
	EventMeta
	Type       EventType `json:"type" validate:"oneof=strategy.created strategy.updated strategy.executed"`
	StrategyID string    `json:"strategy_id"`
	UserID     string    `json:"user_id"`
}

func (e StrategyEvent) EventType() EventType { return e.Type }
func (e StrategyEvent) Meta() EventMeta      { return e.EventMeta }
func (e StrategyEvent) Validate() error      { return validation.Struct(e) }

// BacktestEvent reports a backtest lifecycle change
type BacktestEvent struct {
	EventMeta
	Type       EventType `json:"type" validate:"oneof=backtest.started backtest.completed backtest.failed"`
	BacktestID string    `json:"backtest_id"`
	StrategyID string    `json:"strategy_id"`
	UserID     string    `json:"user_id"`
}

func (e BacktestEvent) EventType() EventType { return e.Type }
func (e BacktestEvent) Meta() EventMeta      { return e.EventMeta }
func (e BacktestEvent) Validate() error      { return validation.Struct(e) }

// DecodeEvent reads the type tag and builds the matching variant.
// A tag outside every family is rejected on the "type" field.
func DecodeEvent(data []byte) (Event, error) {
	return DecodeEventWith(eventDecoder, data)
}

var eventDecoder = validation.NewDecoder()

// DecodeEventWith is DecodeEvent with an explicit decoder
func DecodeEventWith(dec *validation.Decoder, data []byte) (Event, error) {
	tag, err := peekEventType(data)
	if err != nil {
		return nil, err
	}

	switch tag.Family() {
	case FamilyDataIngestion:
		return decodeVariant[DataIngestionEvent](dec, data)
	case FamilyStrategy:
		return decodeVariant[StrategyEvent](dec, data)
	case FamilyBacktest:
		return decodeVariant[BacktestEvent](dec, data)
	}

	return nil, validation.Errors{unknownTagError(tag, EventTypes())}
}

func decodeVariant[T Event](dec *validation.Decoder, data []byte) (Event, error) {
	ev, err := validation.DecodeWith[T](dec, data)
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// DecodeDataIngestionEvent builds a data ingestion event; other families' tags are rejected
func DecodeDataIngestionEvent(data []byte) (DataIngestionEvent, error) {
	return validation.Decode[DataIngestionEvent](data)
}

// DecodeStrategyEvent builds a strategy event; other families' tags are rejected
func DecodeStrategyEvent(data []byte) (StrategyEvent, error) {
	return validation.Decode[StrategyEvent](data)
}

// DecodeBacktestEvent builds a backtest event; other families' tags are rejected
func DecodeBacktestEvent(data []byte) (BacktestEvent, error) {
	return validation.Decode[BacktestEvent](data)
}

func peekEventType(data []byte) (EventType, error) {
	var head map[string]json.RawMessage
	if err := json.Unmarshal(data, &head); err != nil || head == nil {
		return "", validation.Errors{{Field: "", Constraint: validation.ConstraintObject}}
	}

	raw, ok := head["type"]
	if !ok || string(raw) == "null" {
		return "", validation.Errors{{Field: "type", Constraint: validation.ConstraintRequired}}
	}

	var tag string
	if err := json.Unmarshal(raw, &tag); err != nil {
		return "", validation.Errors{{
			Field:      "type",
			Constraint: validation.ConstraintType,
			Param:      "string",
			Value:      string(raw),
		}}
	}
	return EventType(tag), nil
}

func unknownTagError(tag EventType, allowed []EventType) *validation.FieldError {
	names := make([]string, len(allowed))
	for i, t := range allowed {
		names[i] = string(t)
	}
	return &validation.FieldError{
		Field:      "type",
		Constraint: validation.ConstraintOneOf,
		Param:      strings.Join(names, " "),
		Value:      string(tag),
	}
}

// MarketDataEventType tags a real-time market data update
type MarketDataEventType string

// MarketDataEventType values
const (
	MarketPriceUpdate  MarketDataEventType = "price_update"
	MarketVolumeUpdate MarketDataEventType = "volume_update"
	MarketTrade        MarketDataEventType = "trade"
)

// MarketDataEvent carries a bar update on the streaming channel
type MarketDataEvent struct {
	Type      MarketDataEventType `json:"type" validate:"oneof=price_update volume_update trade"`
	Symbol    string              `json:"symbol"`
	Data      OHLCVBar            `json:"data"`
	Timestamp time.Time           `json:"timestamp" default:"now"`
}

// Validate checks the tag and the carried bar
func (e MarketDataEvent) Validate() error {
	return validation.Struct(e)
}
