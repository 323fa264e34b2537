package domain

import (
	"time"

	"quantshared/internal/validation"
)

// ParameterType is the value kind of a strategy parameter
type ParameterType string

// ParameterType values
const (
	ParamNumber  ParameterType = "number"
	ParamString  ParameterType = "string"
	ParamBoolean ParameterType = "boolean"
)

// Valid reports whether t is a known parameter kind
func (t ParameterType) Valid() bool {
	return t == ParamNumber || t == ParamString || t == ParamBoolean
}

// StrategyParameter declares one tunable input of a strategy
type StrategyParameter struct {
	Name         string        `json:"name"`
	Type         ParameterType `json:"type" validate:"oneof=number string boolean"`
	DefaultValue Opaque        `json:"default_value" nullable:"true"`
	Description  string        `json:"description"`
	MinValue     *float64      `json:"min_value,omitempty"` // For number types
	MaxValue     *float64      `json:"max_value,omitempty"`
}

// Validate checks the parameter type
func (p StrategyParameter) Validate() error {
	return validation.Struct(p)
}

// TradingStrategy is a versioned strategy definition. Code is stored verbatim.
type TradingStrategy struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Code        string              `json:"code"`
	Parameters  []StrategyParameter `json:"parameters" validate:"required,dive"`
	CreatedBy   string              `json:"created_by"` // User ID
	Version     string              `json:"version" default:"1.0.0"`
	IsActive    bool                `json:"is_active" default:"true"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// Validate checks the strategy and its parameters
func (s TradingStrategy) Validate() error {
	return validation.Struct(s)
}

// OrderSide is the direction of an order or trade
type OrderSide string

// OrderSide values
const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// Valid reports whether s is BUY or SELL
func (s OrderSide) Valid() bool {
	return s == SideBuy || s == SideSell
}

// OrderType is the execution style of an order
type OrderType string

// OrderType values
const (
	OrderMarket OrderType = "MARKET"
	OrderLimit  OrderType = "LIMIT"
	OrderStop   OrderType = "STOP"
)

// Valid reports whether t is a known order type
func (t OrderType) Valid() bool {
	return t == OrderMarket || t == OrderLimit || t == OrderStop
}

// OrderStatus is the lifecycle state of an order
type OrderStatus string

// OrderStatus values
const (
	StatusPending         OrderStatus = "PENDING"
	StatusFilled          OrderStatus = "FILLED"
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	StatusCancelled       OrderStatus = "CANCELLED"
	StatusRejected        OrderStatus = "REJECTED"
)

// Valid reports whether s is a known order status
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusFilled, StatusPartiallyFilled, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

// Trade is an executed fill
type Trade struct {
	ID            string    `json:"id"`
	StrategyID    *string   `json:"strategy_id,omitempty"`
	Symbol        string    `json:"symbol"`
	Side          OrderSide `json:"side" validate:"oneof=BUY SELL"`
	Quantity      float64   `json:"quantity" validate:"gt=0"`
	Price         float64   `json:"price" validate:"gt=0"`
	Timestamp     time.Time `json:"timestamp"`
	ExecutionCost float64   `json:"execution_cost" validate:"gte=0"` // Fees, commissions
	Slippage      float64   `json:"slippage" validate:"gte=0"`       // Difference from expected price
	OrderID       *string   `json:"order_id,omitempty"`
}

// Validate checks the trade's constraints
func (t Trade) Validate() error {
	return validation.Struct(t)
}

// Order is a request to trade
type Order struct {
	ID         string      `json:"id"`
	StrategyID *string     `json:"strategy_id,omitempty"`
	Symbol     string      `json:"symbol"`
	Side       OrderSide   `json:"side" validate:"oneof=BUY SELL"`
	Type       OrderType   `json:"type" validate:"oneof=MARKET LIMIT STOP"`
	Quantity   float64     `json:"quantity" validate:"gt=0"`
	Price      *float64    `json:"price,omitempty" validate:"omitempty,gt=0"`      // For limit orders
	StopPrice  *float64    `json:"stop_price,omitempty" validate:"omitempty,gt=0"` // For stop orders
	Status     OrderStatus `json:"status" validate:"oneof=PENDING FILLED PARTIALLY_FILLED CANCELLED REJECTED"`
	CreatedAt  time.Time   `json:"created_at"`
	ExecutedAt *time.Time  `json:"executed_at,omitempty"`
}

// Validate checks the order's constraints
func (o Order) Validate() error {
	return validation.Struct(o)
}
