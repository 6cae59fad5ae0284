package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"trade-bot/internal/config"
	"trade-bot/internal/core"
)

type AuthType int

const (
	AuthNone AuthType = iota
	AuthAPIKey
	AuthSigned
)

// Futures caps newClientOrderId at 36 characters.
const maxClientOrderIDLen = 36

// Client talks to the Binance USDT-M futures REST API. It never retries a
// request: a submission either reaches the exchange once or fails.
type Client struct {
	apiKey            string
	apiSecret         string
	baseURL           string
	wsBaseURL         string
	clientOrderPrefix string

	recvWindow time.Duration
	httpClient *http.Client

	// Milliseconds to add to local clocks so signed timestamps land
	// inside the exchange's acceptance window. Written by SyncTime.
	timeOffsetMs atomic.Int64
}

type Options struct {
	APIKey            string
	APISecret         string
	RestBaseURL       string
	WSBaseURL         string
	ClientOrderPrefix string
	RecvWindowMs      int64
	HTTPTimeoutSec    int64
}

func NewClient(cfg config.ExchangeConfig, instanceID string) (*Client, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("api_key/api_secret required")
	}
	return NewClientWithOptions(Options{
		APIKey:            cfg.APIKey,
		APISecret:         cfg.APISecret,
		RestBaseURL:       cfg.RestBaseURL,
		WSBaseURL:         cfg.WSBaseURL,
		ClientOrderPrefix: instanceID,
		RecvWindowMs:      cfg.RecvWindowMs,
		HTTPTimeoutSec:    cfg.HTTPTimeoutSec,
	}), nil
}

func NewClientWithOptions(opts Options) *Client {
	timeout := 15 * time.Second
	if opts.HTTPTimeoutSec > 0 {
		timeout = time.Duration(opts.HTTPTimeoutSec) * time.Second
	}
	return &Client{
		apiKey:            opts.APIKey,
		apiSecret:         opts.APISecret,
		baseURL:           strings.TrimRight(opts.RestBaseURL, "/"),
		wsBaseURL:         strings.TrimRight(opts.WSBaseURL, "/"),
		clientOrderPrefix: normalizeClientOrderPrefix(opts.ClientOrderPrefix),
		recvWindow:        time.Duration(opts.RecvWindowMs) * time.Millisecond,
		httpClient:        &http.Client{Timeout: timeout},
	}
}

func (c *Client) Name() string { return "binance-futures" }

// SyncTime measures the gap between the local clock and the exchange's
// and remembers it for signed timestamps. Call once before trading.
func (c *Client) SyncTime(ctx context.Context) error {
	before := time.Now().UnixMilli()
	body, err := c.doRequest(ctx, http.MethodGet, "/fapi/v1/time", url.Values{}, AuthNone)
	if err != nil {
		return err
	}
	var resp serverTimeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return err
	}
	offset := resp.ServerTime - (before+time.Now().UnixMilli())/2
	c.timeOffsetMs.Store(offset)
	slog.Debug("server time synced", "offset_ms", offset)
	return nil
}

func (c *Client) timestamp() int64 {
	return time.Now().UnixMilli() + c.timeOffsetMs.Load()
}

func (c *Client) ExchangeInfo(ctx context.Context) ([]core.SymbolListing, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/fapi/v1/exchangeInfo", url.Values{}, AuthNone)
	if err != nil {
		return nil, err
	}
	var resp exchangeInfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	listings := make([]core.SymbolListing, 0, len(resp.Symbols))
	for _, s := range resp.Symbols {
		listings = append(listings, parseSymbolListing(s))
	}
	return listings, nil
}

func (c *Client) SubmitOrder(ctx context.Context, req core.OrderRequest) (core.Order, error) {
	if req.Symbol == "" || req.Quantity == "" {
		return core.Order{}, errors.New("symbol and quantity required")
	}
	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("side", string(req.Side))
	params.Set("type", string(req.Type))
	params.Set("quantity", req.Quantity)
	if req.TimeInForce != "" {
		params.Set("timeInForce", string(req.TimeInForce))
	}
	if req.Price != "" {
		params.Set("price", req.Price)
	}
	if req.StopPrice != "" {
		params.Set("stopPrice", req.StopPrice)
	}
	params.Set("newClientOrderId", c.newClientOrderID())

	body, err := c.doRequest(ctx, http.MethodPost, "/fapi/v1/order", params, AuthSigned)
	if err != nil {
		return core.Order{}, err
	}
	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return core.Order{}, err
	}
	return parseOrder(resp), nil
}

// OpenOrders lists this account's open orders; an empty symbol means all
// symbols.
func (c *Client) OpenOrders(ctx context.Context, symbol string) ([]core.Order, error) {
	params := url.Values{}
	if symbol != "" {
		params.Set("symbol", symbol)
	}
	body, err := c.doRequest(ctx, http.MethodGet, "/fapi/v1/openOrders", params, AuthSigned)
	if err != nil {
		return nil, err
	}
	var resp []orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	orders := make([]core.Order, 0, len(resp))
	for _, ord := range resp {
		orders = append(orders, parseOrder(ord))
	}
	return orders, nil
}

func (c *Client) QueryOrder(ctx context.Context, symbol, orderID string) (core.Order, error) {
	if symbol == "" || orderID == "" {
		return core.Order{}, errors.New("symbol and orderID required")
	}
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", orderID)
	body, err := c.doRequest(ctx, http.MethodGet, "/fapi/v1/order", params, AuthSigned)
	if err != nil {
		return core.Order{}, err
	}
	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return core.Order{}, err
	}
	return parseOrder(resp), nil
}

func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) (core.Order, error) {
	if symbol == "" || orderID == "" {
		return core.Order{}, errors.New("symbol and orderID required")
	}
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", orderID)
	body, err := c.doRequest(ctx, http.MethodDelete, "/fapi/v1/order", params, AuthSigned)
	if err != nil {
		return core.Order{}, err
	}
	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return core.Order{}, err
	}
	return parseOrder(resp), nil
}

func (c *Client) CancelAllOrders(ctx context.Context, symbol string) error {
	if symbol == "" {
		return errors.New("symbol required")
	}
	params := url.Values{}
	params.Set("symbol", symbol)
	body, err := c.doRequest(ctx, http.MethodDelete, "/fapi/v1/allOpenOrders", params, AuthSigned)
	if err != nil {
		return err
	}
	var resp cancelAllResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return err
	}
	if resp.Code != 200 {
		return wrapAPIError(resp.Code, resp.Msg)
	}
	return nil
}

func (c *Client) AssetBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	if asset == "" {
		return decimal.Zero, errors.New("asset required")
	}
	body, err := c.doRequest(ctx, http.MethodGet, "/fapi/v2/account", url.Values{}, AuthSigned)
	if err != nil {
		return decimal.Zero, err
	}
	var resp accountResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Zero, err
	}
	for _, a := range resp.Assets {
		if a.Asset != asset {
			continue
		}
		bal, err := decimal.NewFromString(a.WalletBalance)
		if err != nil {
			return decimal.Zero, fmt.Errorf("bad wallet balance %q: %w", a.WalletBalance, err)
		}
		return bal, nil
	}
	return decimal.Zero, nil
}

// TickerPrice returns the last traded price for a symbol.
func (c *Client) TickerPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if symbol == "" {
		return decimal.Zero, errors.New("symbol required")
	}
	params := url.Values{}
	params.Set("symbol", symbol)
	body, err := c.doRequest(ctx, http.MethodGet, "/fapi/v1/ticker/price", params, AuthNone)
	if err != nil {
		return decimal.Zero, err
	}
	var resp tickerPriceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Zero, err
	}
	price, err := decimal.NewFromString(resp.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("bad ticker price %q: %w", resp.Price, err)
	}
	return price, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, auth AuthType) ([]byte, error) {
	if auth == AuthSigned {
		params.Set("timestamp", strconv.FormatInt(c.timestamp(), 10))
		if c.recvWindow > 0 {
			params.Set("recvWindow", strconv.FormatInt(c.recvWindow.Milliseconds(), 10))
		}
		signature := sign(c.apiSecret, params.Encode())
		params.Set("signature", signature)
	}
	var (
		req *http.Request
		err error
	)
	urlStr := c.baseURL + path
	if method == http.MethodGet || method == http.MethodDelete {
		if encoded := params.Encode(); encoded != "" {
			urlStr += "?" + encoded
		}
		req, err = http.NewRequestWithContext(ctx, method, urlStr, nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, urlStr, strings.NewReader(params.Encode()))
	}
	if err != nil {
		return nil, err
	}
	if method != http.MethodGet && method != http.MethodDelete {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if auth == AuthAPIKey || auth == AuthSigned {
		req.Header.Set("X-MBX-APIKEY", c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, parseAPIError(resp.StatusCode, body)
	}
	return body, nil
}

func parseAPIError(status int, body []byte) error {
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Msg != "" {
		return wrapAPIError(apiErr.Code, apiErr.Msg)
	}
	return fmt.Errorf("binance http error %d: %s", status, strings.TrimSpace(string(body)))
}

func sign(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) newClientOrderID() string {
	prefix := c.clientOrderPrefix
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	maxSuffix := maxClientOrderIDLen - 1 - len(prefix)
	if maxSuffix < len(suffix) {
		suffix = suffix[:maxSuffix]
	}
	return prefix + "-" + suffix
}

func normalizeClientOrderPrefix(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	b := strings.Builder{}
	for _, r := range v {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" {
		return "tb"
	}
	if len(out) > 12 {
		out = out[:12]
	}
	return out
}
