package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

type OrderType string

type TimeInForce string

type OrderStatus string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

const (
	Market        OrderType = "MARKET"
	Limit         OrderType = "LIMIT"
	StopLossLimit OrderType = "STOP_LOSS_LIMIT"
)

const (
	GTC TimeInForce = "GTC"
)

const (
	OrderNew             OrderStatus = "NEW"
	OrderPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderFilled          OrderStatus = "FILLED"
	OrderCanceled        OrderStatus = "CANCELED"
	OrderRejected        OrderStatus = "REJECTED"
	OrderExpired         OrderStatus = "EXPIRED"
)

// OrderSpec is the raw user intent before precision normalization.
// Price is required for LIMIT and STOP_LOSS_LIMIT, StopPrice for
// STOP_LOSS_LIMIT only.
type OrderSpec struct {
	Symbol    string
	Side      Side
	Type      OrderType
	Qty       decimal.Decimal
	Price     decimal.Decimal
	StopPrice decimal.Decimal
}

// OrderRequest is an exchange-compliant order: every numeric field is a
// decimal string already rounded to the symbol's step/tick size. Fields
// the order type does not require stay empty and must not be sent.
type OrderRequest struct {
	Symbol      string
	Side        Side
	Type        OrderType
	TimeInForce TimeInForce
	Quantity    string
	Price       string
	StopPrice   string
}

// Order is an exchange-acknowledged order as echoed by the API.
type Order struct {
	ID        string
	ClientID  string
	Symbol    string
	Side      Side
	Type      OrderType
	Price     decimal.Decimal
	StopPrice decimal.Decimal
	Qty       decimal.Decimal
	Executed  decimal.Decimal
	Status    OrderStatus
	CreatedAt time.Time
}

// OrderUpdate is a single order event from the user-data stream.
type OrderUpdate struct {
	OrderID   string
	ClientID  string
	Symbol    string
	Side      Side
	Type      OrderType
	Status    OrderStatus
	Price     decimal.Decimal
	Qty       decimal.Decimal
	FilledQty decimal.Decimal
	Time      time.Time
}
