package binance

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"

	"trade-bot/internal/core"
)

func newTestClient(baseURL string) *Client {
	return NewClientWithOptions(Options{
		APIKey:            "k",
		APISecret:         "s",
		RestBaseURL:       baseURL,
		ClientOrderPrefix: "check",
		RecvWindowMs:      5000,
	})
}

func TestSubmitOrderSendsTypeSpecificFields(t *testing.T) {
	var seen url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fapi/v1/order" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		seen, _ = url.ParseQuery(string(body))
		if r.Header.Get("X-MBX-APIKEY") != "k" {
			t.Errorf("missing api key header")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"symbol":        "BTCUSDT",
			"orderId":       4090,
			"clientOrderId": seen.Get("newClientOrderId"),
			"price":         "64000.0",
			"stopPrice":     "64100.1",
			"origQty":       "0.250",
			"executedQty":   "0",
			"status":        "NEW",
			"side":          "SELL",
			"type":          "STOP_LOSS_LIMIT",
			"updateTime":    1700000000000,
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	got, err := c.SubmitOrder(context.Background(), core.OrderRequest{
		Symbol:      "BTCUSDT",
		Side:        core.Sell,
		Type:        core.StopLossLimit,
		TimeInForce: core.GTC,
		Quantity:    "0.250",
		Price:       "64000.0",
		StopPrice:   "64100.1",
	})
	if err != nil {
		t.Fatalf("SubmitOrder() error = %v", err)
	}
	if got.ID != "4090" || got.Status != core.OrderNew {
		t.Fatalf("unexpected order: %+v", got)
	}
	if seen.Get("quantity") != "0.250" || seen.Get("price") != "64000.0" || seen.Get("stopPrice") != "64100.1" {
		t.Fatalf("numeric params = qty %q price %q stop %q", seen.Get("quantity"), seen.Get("price"), seen.Get("stopPrice"))
	}
	if seen.Get("timeInForce") != "GTC" {
		t.Fatalf("timeInForce = %q, want GTC", seen.Get("timeInForce"))
	}
	if seen.Get("timestamp") == "" || seen.Get("signature") == "" {
		t.Fatalf("request not signed: %v", seen)
	}
	if !strings.HasPrefix(seen.Get("newClientOrderId"), "check-") {
		t.Fatalf("newClientOrderId = %q, want check- prefix", seen.Get("newClientOrderId"))
	}
	if len(seen.Get("newClientOrderId")) > maxClientOrderIDLen {
		t.Fatalf("newClientOrderId too long: %q", seen.Get("newClientOrderId"))
	}
}

func TestSubmitOrderMarketOmitsPriceParams(t *testing.T) {
	var seen url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		seen, _ = url.ParseQuery(string(body))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"symbol": "BTCUSDT", "orderId": 1, "origQty": "0.500", "status": "FILLED",
			"side": "BUY", "type": "MARKET",
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.SubmitOrder(context.Background(), core.OrderRequest{
		Symbol:   "BTCUSDT",
		Side:     core.Buy,
		Type:     core.Market,
		Quantity: "0.500",
	})
	if err != nil {
		t.Fatalf("SubmitOrder() error = %v", err)
	}
	for _, key := range []string{"price", "stopPrice", "timeInForce"} {
		if seen.Has(key) {
			t.Fatalf("market order sent %q = %q", key, seen.Get(key))
		}
	}
}

func TestExchangeInfoParsesFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fapi/v1/exchangeInfo" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"symbols":[{"symbol":"BTCUSDT","filters":[
			{"filterType":"LOT_SIZE","stepSize":"0.001","minQty":"0.001","maxQty":"1000"},
			{"filterType":"PRICE_FILTER","tickSize":"0.10","minPrice":"556.80","maxPrice":"4529764"},
			{"filterType":"MIN_NOTIONAL","notional":"100"}]}]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	listings, err := c.ExchangeInfo(context.Background())
	if err != nil {
		t.Fatalf("ExchangeInfo() error = %v", err)
	}
	if len(listings) != 1 || listings[0].Symbol != "BTCUSDT" {
		t.Fatalf("unexpected listings: %+v", listings)
	}
	filters := listings[0].Filters
	if filters.QtyStep() != "0.001" {
		t.Fatalf("QtyStep() = %q", filters.QtyStep())
	}
	if filters.PriceTick() != "0.10" {
		t.Fatalf("PriceTick() = %q", filters.PriceTick())
	}
	if filters[core.FilterMinNotional].MinNotional != "100" {
		t.Fatalf("MinNotional = %q, want 100", filters[core.FilterMinNotional].MinNotional)
	}
}

func TestOpenOrdersOmitsSymbolWhenEmpty(t *testing.T) {
	var sawSymbolParam atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawSymbolParam.Store(r.URL.Query().Has("symbol"))
		_, _ = w.Write([]byte(`[{"symbol":"BTCUSDT","orderId":10,"price":"64000.0","origQty":"0.100","executedQty":"0","status":"NEW","side":"BUY","type":"LIMIT"}]`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	orders, err := c.OpenOrders(context.Background(), "")
	if err != nil {
		t.Fatalf("OpenOrders() error = %v", err)
	}
	if sawSymbolParam.Load() {
		t.Fatalf("symbol param should be omitted for all-symbols query")
	}
	if len(orders) != 1 || orders[0].ID != "10" {
		t.Fatalf("unexpected orders: %+v", orders)
	}
	if !orders[0].Price.Equal(decimal.RequireFromString("64000.0")) {
		t.Fatalf("price = %s", orders[0].Price)
	}
}

func TestCancelAllOrders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/fapi/v1/allOpenOrders" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("symbol") != "BTCUSDT" {
			t.Errorf("symbol = %q", r.URL.Query().Get("symbol"))
		}
		_, _ = w.Write([]byte(`{"code":200,"msg":"The operation of cancel all open order is done."}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if err := c.CancelAllOrders(context.Background(), "BTCUSDT"); err != nil {
		t.Fatalf("CancelAllOrders() error = %v", err)
	}
}

func TestAssetBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fapi/v2/account" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"assets":[
			{"asset":"BTC","walletBalance":"0.5","availableBalance":"0.5"},
			{"asset":"USDT","walletBalance":"15000.25","availableBalance":"14000"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	bal, err := c.AssetBalance(context.Background(), "USDT")
	if err != nil {
		t.Fatalf("AssetBalance() error = %v", err)
	}
	if !bal.Equal(decimal.RequireFromString("15000.25")) {
		t.Fatalf("balance = %s, want 15000.25", bal)
	}

	bal, err = c.AssetBalance(context.Background(), "DOGE")
	if err != nil {
		t.Fatalf("AssetBalance(absent) error = %v", err)
	}
	if !bal.IsZero() {
		t.Fatalf("absent asset balance = %s, want 0", bal)
	}
}

func TestTickerPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fapi/v1/ticker/price" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("symbol") != "BTCUSDT" {
			t.Errorf("symbol = %q", r.URL.Query().Get("symbol"))
		}
		_, _ = w.Write([]byte(`{"symbol":"BTCUSDT","price":"64123.40","time":1700000000000}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	price, err := c.TickerPrice(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("TickerPrice() error = %v", err)
	}
	if !price.Equal(decimal.RequireFromString("64123.40")) {
		t.Fatalf("price = %s, want 64123.40", price)
	}
}

func TestSubmitOrderSurfacesRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":-2019,"msg":"Margin is insufficient."}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.SubmitOrder(context.Background(), core.OrderRequest{
		Symbol: "BTCUSDT", Side: core.Buy, Type: core.Market, Quantity: "100",
	})
	if !errors.Is(err, core.ErrInsufficientBalance) {
		t.Fatalf("error = %v, want %v", err, core.ErrInsufficientBalance)
	}
	apiErr, ok := AsAPIError(err)
	if !ok || apiErr.Code != -2019 {
		t.Fatalf("AsAPIError() = %+v, %t", apiErr, ok)
	}
}

func TestNormalizeClientOrderPrefix(t *testing.T) {
	if got := normalizeClientOrderPrefix(" Desk_A1 "); got != "desk_a1" {
		t.Fatalf("normalizeClientOrderPrefix() = %q, want desk_a1", got)
	}
	if got := normalizeClientOrderPrefix("???"); got != "tb" {
		t.Fatalf("normalizeClientOrderPrefix() = %q, want tb", got)
	}
	if got := normalizeClientOrderPrefix(strings.Repeat("x", 40)); len(got) != 12 {
		t.Fatalf("normalizeClientOrderPrefix(long) len = %d, want 12", len(got))
	}
}
