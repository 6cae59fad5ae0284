package exchange

import (
	"context"

	"github.com/shopspring/decimal"

	"trade-bot/internal/core"
)

// Exchange is the gateway the CLI talks to. Implementations own
// authentication, transport, and the wire schema; callers hand over
// already-normalized order requests and never retry on their behalf.
type Exchange interface {
	Name() string
	ExchangeInfo(ctx context.Context) ([]core.SymbolListing, error)
	SubmitOrder(ctx context.Context, req core.OrderRequest) (core.Order, error)
	OpenOrders(ctx context.Context, symbol string) ([]core.Order, error)
	CancelOrder(ctx context.Context, symbol, orderID string) (core.Order, error)
	CancelAllOrders(ctx context.Context, symbol string) error
	AssetBalance(ctx context.Context, asset string) (decimal.Decimal, error)
}
