package core

import "fmt"

// BuildOrder turns a raw spec into an exchange-compliant request using the
// symbol's filters. Quantity is rounded to the LOT_SIZE step, price and
// stop price to the PRICE_FILTER tick; a missing filter degrades to
// whole-unit precision instead of failing. Pure: no I/O, filters are
// read-only.
func BuildOrder(spec OrderSpec, filters SymbolFilters) (OrderRequest, error) {
	switch spec.Side {
	case Buy, Sell:
	default:
		return OrderRequest{}, fmt.Errorf("%w: %q", ErrInvalidSide, spec.Side)
	}
	switch spec.Type {
	case Market, Limit, StopLossLimit:
	default:
		return OrderRequest{}, fmt.Errorf("%w: %q", ErrInvalidType, spec.Type)
	}
	if spec.Qty.Sign() <= 0 {
		return OrderRequest{}, fmt.Errorf("%w: quantity must be positive", ErrInvalidValue)
	}

	req := OrderRequest{
		Symbol: spec.Symbol,
		Side:   spec.Side,
		Type:   spec.Type,
	}
	qty, err := Round(spec.Qty, filters.QtyStep())
	if err != nil {
		return OrderRequest{}, err
	}
	req.Quantity = qty
	if spec.Type == Market {
		return req, nil
	}

	if spec.Price.Sign() <= 0 {
		return OrderRequest{}, fmt.Errorf("%w: price must be positive", ErrInvalidValue)
	}
	tick := filters.PriceTick()
	price, err := Round(spec.Price, tick)
	if err != nil {
		return OrderRequest{}, err
	}
	req.Price = price
	req.TimeInForce = GTC

	if spec.Type == StopLossLimit {
		if spec.StopPrice.Sign() <= 0 {
			return OrderRequest{}, fmt.Errorf("%w: stop price must be positive", ErrInvalidValue)
		}
		stop, err := Round(spec.StopPrice, tick)
		if err != nil {
			return OrderRequest{}, err
		}
		req.StopPrice = stop
	}
	return req, nil
}
