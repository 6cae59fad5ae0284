package binance

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"trade-bot/internal/core"
)

type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

type APIError struct {
	Code int
	Msg  string
}

func (e APIError) Error() string {
	return "binance api error " + strconv.Itoa(e.Code) + ": " + e.Msg
}

type orderResponse struct {
	Symbol        string `json:"symbol"`
	OrderID       int64  `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Price         string `json:"price"`
	StopPrice     string `json:"stopPrice"`
	OrigQty       string `json:"origQty"`
	ExecutedQty   string `json:"executedQty"`
	Status        string `json:"status"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	TimeInForce   string `json:"timeInForce"`
	Time          int64  `json:"time"`
	UpdateTime    int64  `json:"updateTime"`
}

func parseOrder(src orderResponse) core.Order {
	price, _ := decimal.NewFromString(src.Price)
	stopPrice, _ := decimal.NewFromString(src.StopPrice)
	qty, _ := decimal.NewFromString(src.OrigQty)
	executed, _ := decimal.NewFromString(src.ExecutedQty)
	order := core.Order{
		ID:        strconv.FormatInt(src.OrderID, 10),
		ClientID:  src.ClientOrderID,
		Symbol:    src.Symbol,
		Side:      core.Side(src.Side),
		Type:      core.OrderType(src.Type),
		Price:     price,
		StopPrice: stopPrice,
		Qty:       qty,
		Executed:  executed,
		Status:    core.OrderStatus(src.Status),
	}
	ts := src.Time
	if ts == 0 {
		ts = src.UpdateTime
	}
	if ts > 0 {
		order.CreatedAt = time.UnixMilli(ts)
	}
	return order
}

type exchangeInfoResponse struct {
	Symbols []symbolInfoResponse `json:"symbols"`
}

type symbolInfoResponse struct {
	Symbol  string           `json:"symbol"`
	Filters []filterResponse `json:"filters"`
}

type filterResponse struct {
	FilterType string `json:"filterType"`
	StepSize   string `json:"stepSize"`
	TickSize   string `json:"tickSize"`
	MinQty     string `json:"minQty"`
	MaxQty     string `json:"maxQty"`
	MinPrice   string `json:"minPrice"`
	MaxPrice   string `json:"maxPrice"`
	// Futures publishes the MIN_NOTIONAL floor as "notional", spot as
	// "minNotional"; accept either.
	Notional    string `json:"notional"`
	MinNotional string `json:"minNotional"`
}

func parseSymbolListing(src symbolInfoResponse) core.SymbolListing {
	filters := make(core.SymbolFilters, len(src.Filters))
	for _, f := range src.Filters {
		if f.FilterType == "" {
			continue
		}
		minNotional := f.Notional
		if minNotional == "" {
			minNotional = f.MinNotional
		}
		filters[f.FilterType] = core.Filter{
			FilterType:  f.FilterType,
			StepSize:    f.StepSize,
			TickSize:    f.TickSize,
			MinQty:      f.MinQty,
			MaxQty:      f.MaxQty,
			MinPrice:    f.MinPrice,
			MaxPrice:    f.MaxPrice,
			MinNotional: minNotional,
		}
	}
	return core.SymbolListing{Symbol: src.Symbol, Filters: filters}
}

type accountResponse struct {
	Assets []struct {
		Asset            string `json:"asset"`
		WalletBalance    string `json:"walletBalance"`
		AvailableBalance string `json:"availableBalance"`
	} `json:"assets"`
}

type serverTimeResponse struct {
	ServerTime int64 `json:"serverTime"`
}

type tickerPriceResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

type cancelAllResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

type listenKeyResponse struct {
	ListenKey string `json:"listenKey"`
}
