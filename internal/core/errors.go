package core

import "errors"

var (
	// ErrSymbolNotFound indicates the symbol is absent from the exchange
	// metadata snapshot.
	ErrSymbolNotFound = errors.New("symbol not found")
	// ErrInvalidValue indicates a non-positive quantity, price, or stop price.
	ErrInvalidValue = errors.New("invalid value")
	// ErrInvalidSide indicates the side is neither BUY nor SELL.
	ErrInvalidSide = errors.New("invalid side")
	// ErrInvalidType indicates an unrecognized order type.
	ErrInvalidType = errors.New("invalid order type")
)

var (
	// ErrOrderRejected indicates the exchange rejected the order on a
	// business rule (bad price bounds, notional below minimum, ...).
	ErrOrderRejected = errors.New("order rejected")
	// ErrOrderNotFound indicates the order does not exist on exchange.
	ErrOrderNotFound = errors.New("order not found")
	// ErrInsufficientBalance indicates the exchange rejected the action due
	// to insufficient funds.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrDuplicateOrder indicates the client order id has already been
	// accepted before.
	ErrDuplicateOrder = errors.New("duplicate order")
)
