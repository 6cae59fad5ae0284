package binance

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"trade-bot/internal/core"
)

// UserStream is a live feed of this account's order events, carried over
// the futures user-data websocket. The listenKey must be kept alive or
// the exchange drops the stream after an hour.
type UserStream struct {
	client    *Client
	conn      *websocket.Conn
	listenKey string
	keepalive time.Duration
}

type orderTradeUpdate struct {
	EventType       string `json:"e"`
	EventTime       int64  `json:"E"`
	TransactionTime int64  `json:"T"`
	Order           struct {
		Symbol        string `json:"s"`
		ClientOrderID string `json:"c"`
		Side          string `json:"S"`
		OrderType     string `json:"o"`
		OrderQty      string `json:"q"`
		OrderPrice    string `json:"p"`
		AvgPrice      string `json:"ap"`
		StopPrice     string `json:"sp"`
		ExecutionType string `json:"x"`
		OrderStatus   string `json:"X"`
		OrderID       int64  `json:"i"`
		CumulativeQty string `json:"z"`
		TradeTime     int64  `json:"T"`
	} `json:"o"`
}

func (c *Client) NewUserStream(ctx context.Context, keepalive time.Duration) (*UserStream, error) {
	if c.wsBaseURL == "" {
		return nil, errors.New("ws base url required")
	}
	listenKey, err := c.startListenKey(ctx)
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsBaseURL+"/ws/"+listenKey, nil)
	if err != nil {
		return nil, err
	}
	return &UserStream{client: c, conn: conn, listenKey: listenKey, keepalive: keepalive}, nil
}

func (c *Client) startListenKey(ctx context.Context) (string, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/fapi/v1/listenKey", url.Values{}, AuthAPIKey)
	if err != nil {
		return "", err
	}
	var resp listenKeyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	if resp.ListenKey == "" {
		return "", errors.New("empty listen key")
	}
	return resp.ListenKey, nil
}

func (c *Client) keepAliveListenKey(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodPut, "/fapi/v1/listenKey", url.Values{}, AuthAPIKey)
	return err
}

func (c *Client) closeListenKey(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/fapi/v1/listenKey", url.Values{}, AuthAPIKey)
	return err
}

// Updates delivers order events until ctx is done or the connection
// fails. The error channel is buffered and never blocks the reader.
func (u *UserStream) Updates(ctx context.Context) (<-chan core.OrderUpdate, <-chan error) {
	updates := make(chan core.OrderUpdate)
	errCh := make(chan error, 4)
	done := make(chan struct{})

	reportErr := func(err error) {
		if err == nil {
			return
		}
		select {
		case errCh <- err:
		default:
		}
	}

	readTimeout := 90 * time.Second
	u.conn.SetPongHandler(func(string) error {
		return u.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go func() {
		defer close(done)
		defer close(updates)
		defer u.conn.Close()

		for {
			_ = u.conn.SetReadDeadline(time.Now().Add(readTimeout))
			_, data, err := u.conn.ReadMessage()
			if err != nil {
				reportErr(err)
				return
			}
			update, ok := parseOrderUpdate(data)
			if !ok {
				continue
			}
			select {
			case updates <- update:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		keepalive := u.keepalive
		if keepalive <= 0 {
			keepalive = 25 * time.Minute
		}
		ticker := time.NewTicker(keepalive)
		pings := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		defer pings.Stop()
		for {
			select {
			case <-ticker.C:
				if err := u.client.keepAliveListenKey(ctx); err != nil {
					reportErr(err)
				}
			case <-pings.C:
				if err := u.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					reportErr(err)
					_ = u.conn.Close()
					return
				}
			case <-done:
				return
			case <-ctx.Done():
				_ = u.conn.Close()
				return
			}
		}
	}()

	return updates, errCh
}

// Close drops the websocket and invalidates the listenKey best effort.
func (u *UserStream) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = u.client.closeListenKey(ctx)
	return u.conn.Close()
}

func parseOrderUpdate(data []byte) (core.OrderUpdate, bool) {
	if len(data) == 0 {
		return core.OrderUpdate{}, false
	}
	var msg orderTradeUpdate
	if err := json.Unmarshal(data, &msg); err != nil {
		return core.OrderUpdate{}, false
	}
	if msg.EventType != "ORDER_TRADE_UPDATE" {
		return core.OrderUpdate{}, false
	}
	price, err := decimal.NewFromString(msg.Order.OrderPrice)
	if err != nil {
		return core.OrderUpdate{}, false
	}
	qty, err := decimal.NewFromString(msg.Order.OrderQty)
	if err != nil {
		return core.OrderUpdate{}, false
	}
	filled, _ := decimal.NewFromString(msg.Order.CumulativeQty)
	ts := msg.Order.TradeTime
	if ts == 0 {
		ts = msg.TransactionTime
	}
	if ts == 0 {
		ts = msg.EventTime
	}
	return core.OrderUpdate{
		OrderID:   strconv.FormatInt(msg.Order.OrderID, 10),
		ClientID:  msg.Order.ClientOrderID,
		Symbol:    msg.Order.Symbol,
		Side:      core.Side(msg.Order.Side),
		Type:      core.OrderType(msg.Order.OrderType),
		Status:    core.OrderStatus(msg.Order.OrderStatus),
		Price:     price,
		Qty:       qty,
		FilledQty: filled,
		Time:      time.UnixMilli(ts),
	}, true
}
