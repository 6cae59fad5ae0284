package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"trade-bot/internal/config"
	"trade-bot/internal/core"
	"trade-bot/internal/exchange"
)

// updateStream is the slice of the user-data stream the watch handler
// needs. *binance.UserStream satisfies it.
type updateStream interface {
	Updates(ctx context.Context) (<-chan core.OrderUpdate, <-chan error)
	Close() error
}

type streamOpener interface {
	OpenUserStream(ctx context.Context) (updateStream, error)
}

type menu struct {
	cfg     config.Config
	log     *slog.Logger
	ex      exchange.Exchange
	streams streamOpener
	filters *core.FilterTable

	in  io.Reader
	out io.Writer

	scanner *bufio.Scanner
}

var errExit = errors.New("exit requested")

func (m *menu) Run(ctx context.Context) error {
	m.scanner = bufio.NewScanner(m.in)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.printMenu()
		choice, err := m.prompt("choice")
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := m.dispatch(ctx, choice); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return nil
			}
			fmt.Fprintf(m.out, "error: %v\n", err)
		}
	}
}

func (m *menu) printMenu() {
	fmt.Fprintf(m.out, `
=== %s futures (%s) ===
 1) show %s balance
 2) place market order
 3) place limit order
 4) place stop-loss-limit order
 5) list open orders
 6) cancel order
 7) cancel all orders for a symbol
 8) watch order updates
 9) exit
`, m.ex.Name(), m.cfg.Mode, m.cfg.QuoteAsset)
}

func (m *menu) dispatch(ctx context.Context, choice string) error {
	switch strings.TrimSpace(choice) {
	case "1":
		return m.showBalance(ctx)
	case "2":
		return m.placeOrder(ctx, core.Market)
	case "3":
		return m.placeOrder(ctx, core.Limit)
	case "4":
		return m.placeOrder(ctx, core.StopLossLimit)
	case "5":
		return m.listOpenOrders(ctx)
	case "6":
		return m.cancelOrder(ctx)
	case "7":
		return m.cancelAllOrders(ctx)
	case "8":
		return m.watchUpdates(ctx)
	case "9", "q", "quit", "exit":
		return errExit
	default:
		return fmt.Errorf("unknown choice %q", choice)
	}
}

func (m *menu) showBalance(ctx context.Context) error {
	bal, err := m.ex.AssetBalance(ctx, m.cfg.QuoteAsset)
	if err != nil {
		return err
	}
	fmt.Fprintf(m.out, "%s balance: %s\n", m.cfg.QuoteAsset, bal.String())
	return nil
}

func (m *menu) placeOrder(ctx context.Context, typ core.OrderType) error {
	symbol, err := m.promptSymbol()
	if err != nil {
		return err
	}
	side, err := m.promptSide()
	if err != nil {
		return err
	}
	qty, err := m.promptDecimal("quantity")
	if err != nil {
		return err
	}
	spec := core.OrderSpec{
		Symbol: symbol,
		Side:   side,
		Type:   typ,
		Qty:    qty,
	}
	if typ == core.Limit || typ == core.StopLossLimit {
		if spec.Price, err = m.promptDecimal("price"); err != nil {
			return err
		}
	}
	if typ == core.StopLossLimit {
		if spec.StopPrice, err = m.promptDecimal("stop price"); err != nil {
			return err
		}
	}

	filters, err := m.filters.FiltersFor(symbol)
	if err != nil {
		return err
	}
	req, err := core.BuildOrder(spec, filters)
	if err != nil {
		return err
	}
	if err := m.checkNotional(req); err != nil {
		return err
	}

	m.log.Info("order submitted",
		"symbol", req.Symbol,
		"side", string(req.Side),
		"type", string(req.Type),
		"qty", req.Quantity,
		"price", req.Price,
		"stop_price", req.StopPrice,
	)
	order, err := m.ex.SubmitOrder(ctx, req)
	if err != nil {
		m.log.Error("order failed", "symbol", req.Symbol, "err", err)
		return err
	}
	m.log.Info("order accepted",
		"symbol", order.Symbol,
		"order_id", order.ID,
		"client_id", order.ClientID,
		"status", string(order.Status),
	)
	fmt.Fprintf(m.out, "order accepted: id=%s clientId=%s status=%s qty=%s",
		order.ID, order.ClientID, order.Status, req.Quantity)
	if req.Price != "" {
		fmt.Fprintf(m.out, " price=%s", req.Price)
	}
	if req.StopPrice != "" {
		fmt.Fprintf(m.out, " stopPrice=%s", req.StopPrice)
	}
	fmt.Fprintln(m.out)
	return nil
}

// checkNotional refuses a submission worth more than the configured cap.
// Market orders carry no price and are not capped here.
func (m *menu) checkNotional(req core.OrderRequest) error {
	limit := m.cfg.Safety.MaxOrderNotional.Decimal
	if limit.Sign() <= 0 || req.Price == "" {
		return nil
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		return err
	}
	qty, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		return err
	}
	notional := price.Mul(qty)
	if notional.Cmp(limit) > 0 {
		return fmt.Errorf("order notional %s exceeds safety cap %s", notional.String(), limit.String())
	}
	return nil
}

func (m *menu) listOpenOrders(ctx context.Context) error {
	symbol, err := m.promptOptionalSymbol()
	if err != nil {
		return err
	}
	orders, err := m.ex.OpenOrders(ctx, symbol)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		fmt.Fprintln(m.out, "no open orders")
		return nil
	}
	table := tablewriter.NewWriter(m.out)
	table.SetHeader([]string{"ID", "SYMBOL", "SIDE", "TYPE", "PRICE", "STOP", "QTY", "FILLED", "STATUS", "CREATED"})
	for _, ord := range orders {
		created := ""
		if !ord.CreatedAt.IsZero() {
			created = ord.CreatedAt.UTC().Format("2006-01-02 15:04:05")
		}
		table.Append([]string{
			ord.ID,
			ord.Symbol,
			string(ord.Side),
			string(ord.Type),
			ord.Price.String(),
			ord.StopPrice.String(),
			ord.Qty.String(),
			ord.Executed.String(),
			string(ord.Status),
			created,
		})
	}
	table.Render()
	return nil
}

func (m *menu) cancelOrder(ctx context.Context) error {
	symbol, err := m.promptSymbol()
	if err != nil {
		return err
	}
	id, err := m.prompt("order id")
	if err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return fmt.Errorf("order id must be numeric, got %q", id)
	}
	order, err := m.ex.CancelOrder(ctx, symbol, id)
	if err != nil {
		return err
	}
	m.log.Info("order canceled", "symbol", symbol, "order_id", id)
	fmt.Fprintf(m.out, "canceled order %s: status=%s\n", order.ID, order.Status)
	return nil
}

func (m *menu) cancelAllOrders(ctx context.Context) error {
	symbol, err := m.promptSymbol()
	if err != nil {
		return err
	}
	answer, err := m.prompt(fmt.Sprintf("cancel ALL open orders for %s? (yes/no)", symbol))
	if err != nil {
		return err
	}
	if strings.ToLower(strings.TrimSpace(answer)) != "yes" {
		fmt.Fprintln(m.out, "aborted")
		return nil
	}
	if err := m.ex.CancelAllOrders(ctx, symbol); err != nil {
		return err
	}
	m.log.Info("all orders canceled", "symbol", symbol)
	fmt.Fprintf(m.out, "all open orders for %s canceled\n", symbol)
	return nil
}

func (m *menu) watchUpdates(ctx context.Context) error {
	raw, err := m.prompt("watch for how many seconds (default 30)")
	if err != nil {
		return err
	}
	seconds := 30
	if s := strings.TrimSpace(raw); s != "" {
		seconds, err = strconv.Atoi(s)
		if err != nil || seconds < 1 {
			return fmt.Errorf("invalid duration %q", raw)
		}
	}

	wctx, cancel := context.WithTimeout(ctx, time.Duration(seconds)*time.Second)
	defer cancel()
	stream, err := m.streams.OpenUserStream(wctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stream.Close(); cerr != nil {
			m.log.Warn("close user stream", "err", cerr)
		}
	}()

	fmt.Fprintf(m.out, "watching order updates for %ds, ctrl-c to stop\n", seconds)
	updates, errs := stream.Updates(wctx)
	count := 0
	for {
		select {
		case <-wctx.Done():
			fmt.Fprintf(m.out, "watch finished, %d update(s)\n", count)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		case u, ok := <-updates:
			if !ok {
				fmt.Fprintf(m.out, "stream closed, %d update(s)\n", count)
				return nil
			}
			count++
			fmt.Fprintf(m.out, "[%s] %s %s %s %s qty=%s filled=%s price=%s id=%s\n",
				u.Time.UTC().Format("15:04:05"),
				u.Symbol, u.Side, u.Type, u.Status,
				u.Qty.String(), u.FilledQty.String(), u.Price.String(), u.OrderID)
			m.log.Info("order update",
				"symbol", u.Symbol,
				"order_id", u.OrderID,
				"status", string(u.Status),
				"filled_qty", u.FilledQty.String(),
			)
		case serr, ok := <-errs:
			if ok && serr != nil {
				return fmt.Errorf("user stream: %w", serr)
			}
		}
	}
}

func (m *menu) prompt(label string) (string, error) {
	fmt.Fprintf(m.out, "%s> ", label)
	if !m.scanner.Scan() {
		if err := m.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return m.scanner.Text(), nil
}

func (m *menu) promptSymbol() (string, error) {
	raw, err := m.prompt("symbol (e.g. BTCUSDT)")
	if err != nil {
		return "", err
	}
	symbol := strings.ToUpper(strings.TrimSpace(raw))
	if symbol == "" {
		return "", errors.New("symbol required")
	}
	return symbol, nil
}

func (m *menu) promptOptionalSymbol() (string, error) {
	raw, err := m.prompt("symbol (empty for all)")
	if err != nil {
		return "", err
	}
	return strings.ToUpper(strings.TrimSpace(raw)), nil
}

func (m *menu) promptSide() (core.Side, error) {
	raw, err := m.prompt("side (BUY/SELL)")
	if err != nil {
		return "", err
	}
	side := core.Side(strings.ToUpper(strings.TrimSpace(raw)))
	if side != core.Buy && side != core.Sell {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidSide, raw)
	}
	return side, nil
}

func (m *menu) promptDecimal(label string) (decimal.Decimal, error) {
	raw, err := m.prompt(label)
	if err != nil {
		return decimal.Zero, err
	}
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q", label, raw)
	}
	return value, nil
}
