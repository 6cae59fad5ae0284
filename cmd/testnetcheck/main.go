package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"trade-bot/internal/config"
	"trade-bot/internal/core"
	"trade-bot/internal/exchange/binance"
)

type checkStatus string

const (
	statusPass checkStatus = "PASS"
	statusFail checkStatus = "FAIL"
)

type checkResult struct {
	Name       string      `json:"name"`
	Status     checkStatus `json:"status"`
	DurationMs int64       `json:"duration_ms"`
	Detail     string      `json:"detail,omitempty"`
	Error      string      `json:"error,omitempty"`
}

type report struct {
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Mode       config.Mode   `json:"mode"`
	Symbol     string        `json:"symbol"`
	Checks     []checkResult `json:"checks"`
}

type selectedChecks struct {
	preflight bool
	lifecycle bool
	stream    bool
}

func main() {
	var (
		configPath   string
		symbol       string
		timeoutSec   int
		streamWait   int
		outJSONPath  string
		allowLiveRun bool
		checkFlag    string
	)
	flag.StringVar(&configPath, "config", "config/config.yaml", "config yaml path")
	flag.StringVar(&symbol, "symbol", "BTCUSDT", "futures symbol for the checks")
	flag.IntVar(&timeoutSec, "timeout-sec", 120, "total timeout seconds")
	flag.IntVar(&streamWait, "stream-wait-sec", 10, "wait seconds for the user stream check")
	flag.StringVar(&outJSONPath, "out-json", "", "optional output report path")
	flag.BoolVar(&allowLiveRun, "allow-live", false, "allow running checks when mode=live")
	flag.StringVar(&checkFlag, "check", "all", "checks to run: all | comma list (preflight,lifecycle,stream)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fatal(err.Error())
	}
	if cfg.Mode == config.ModeLive && !allowLiveRun {
		fatal("mode=live blocked by default; set -allow-live=true to continue")
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		fatal("symbol required")
	}
	checks, err := parseCheckFlag(checkFlag)
	if err != nil {
		fatal(err.Error())
	}

	if timeoutSec < 30 {
		timeoutSec = 30
	}
	if streamWait < 3 {
		streamWait = 3
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSec)*time.Second)
	defer cancel()

	client, err := binance.NewClient(cfg.Exchange, cfg.InstanceID)
	if err != nil {
		fatal(err.Error())
	}

	r := report{
		StartedAt: time.Now().UTC(),
		Mode:      cfg.Mode,
		Symbol:    symbol,
	}

	var (
		marketLoaded bool
		filters      core.SymbolFilters
		lastPrice    decimal.Decimal
		quoteBalance decimal.Decimal
		placedID     string
	)

	loadMarketContext := func() error {
		if marketLoaded {
			return nil
		}
		if err := client.SyncTime(ctx); err != nil {
			return fmt.Errorf("time sync failed: %w", err)
		}
		listings, err := client.ExchangeInfo(ctx)
		if err != nil {
			return err
		}
		filters, err = core.NewFilterTable(listings).FiltersFor(symbol)
		if err != nil {
			return err
		}
		lastPrice, err = client.TickerPrice(ctx, symbol)
		if err != nil {
			return err
		}
		quoteBalance, err = client.AssetBalance(ctx, cfg.QuoteAsset)
		if err != nil {
			return err
		}
		marketLoaded = true
		return nil
	}

	run := func(name string, fn func() (string, error)) {
		start := time.Now()
		detail, err := fn()
		cr := checkResult{
			Name:       name,
			DurationMs: time.Since(start).Milliseconds(),
			Detail:     detail,
		}
		if err != nil {
			cr.Status = statusFail
			cr.Error = err.Error()
		} else {
			cr.Status = statusPass
		}
		r.Checks = append(r.Checks, cr)
		if cr.Status == statusPass {
			fmt.Printf("[PASS] %s (%dms)", name, cr.DurationMs)
			if cr.Detail != "" {
				fmt.Printf(" - %s", cr.Detail)
			}
			fmt.Println()
		} else {
			fmt.Printf("[FAIL] %s (%dms) - %s\n", name, cr.DurationMs, cr.Error)
		}
	}

	if checks.preflight {
		run("exchange_preflight", func() (string, error) {
			if err := loadMarketContext(); err != nil {
				return "", err
			}
			return fmt.Sprintf("price=%s qtyStep=%s priceTick=%s %s=%s",
				lastPrice.String(), filters.QtyStep(), filters.PriceTick(), cfg.QuoteAsset, quoteBalance.String()), nil
		})
	}

	if checks.lifecycle {
		run("order_lifecycle_place_query_cancel", func() (string, error) {
			if err := loadMarketContext(); err != nil {
				return "", err
			}
			if lastPrice.Sign() <= 0 {
				return "", errors.New("missing ticker price")
			}
			price := lastPrice.Mul(decimal.RequireFromString("0.5"))
			qty, err := checkOrderQty(filters, price)
			if err != nil {
				return "", err
			}
			req, err := core.BuildOrder(core.OrderSpec{
				Symbol: symbol,
				Side:   core.Buy,
				Type:   core.Limit,
				Qty:    qty,
				Price:  price,
			}, filters)
			if err != nil {
				return "", err
			}

			placed, err := client.SubmitOrder(ctx, req)
			if err != nil {
				return "", err
			}
			if placed.ID == "" {
				return "", errors.New("empty order id")
			}
			placedID = placed.ID

			query, err := client.QueryOrder(ctx, symbol, placed.ID)
			if err != nil {
				return "", err
			}

			open, err := client.OpenOrders(ctx, symbol)
			if err != nil {
				return "", err
			}
			foundInOpen := false
			for _, ord := range open {
				if ord.ID == placed.ID {
					foundInOpen = true
					break
				}
			}

			status := string(query.Status)
			switch query.Status {
			case core.OrderNew, core.OrderPartiallyFilled:
				canceled, err := client.CancelOrder(ctx, symbol, placed.ID)
				if err != nil {
					return "", fmt.Errorf("cancel order failed: %w", err)
				}
				status = string(canceled.Status)
				placedID = ""
			case core.OrderFilled:
				// Unexpected for a far-below-market buy but acceptable for the
				// lifecycle check.
			}

			return fmt.Sprintf("id=%s clientId=%s qty=%s price=%s status=%s foundInOpen=%t",
				placed.ID, placed.ClientID, req.Quantity, req.Price, status, foundInOpen), nil
		})
	}

	if checks.stream {
		run("user_stream_subscribe", func() (string, error) {
			cctx, ccancel := context.WithTimeout(ctx, time.Duration(streamWait)*time.Second)
			defer ccancel()

			stream, err := client.NewUserStream(cctx, time.Duration(cfg.Exchange.UserStreamKeepaliveSec)*time.Second)
			if err != nil {
				return "", err
			}
			defer func() { _ = stream.Close() }()
			updates, errs := stream.Updates(cctx)
			count := 0
			for {
				select {
				case <-cctx.Done():
					if errors.Is(cctx.Err(), context.DeadlineExceeded) {
						return fmt.Sprintf("no stream errors during %ds window updates=%d", streamWait, count), nil
					}
					return "", cctx.Err()
				case u, ok := <-updates:
					if !ok {
						return "", errors.New("updates channel closed unexpectedly")
					}
					if u.OrderID != "" {
						count++
					}
				case err, ok := <-errs:
					if ok && err != nil {
						return "", err
					}
				}
			}
		})
	}

	// cleanup: if the lifecycle order still exists, best-effort cancel
	if placedID != "" {
		cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
		_, _ = client.CancelOrder(cctx, symbol, placedID)
		ccancel()
	}

	r.FinishedAt = time.Now().UTC()
	printSummary(r)

	if outJSONPath != "" {
		if err := writeReport(outJSONPath, r); err != nil {
			fatal(err.Error())
		}
		fmt.Printf("report written: %s\n", outJSONPath)
	}

	for _, c := range r.Checks {
		if c.Status == statusFail {
			os.Exit(1)
		}
	}
}

func parseCheckFlag(raw string) (selectedChecks, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" || raw == "all" || raw == "default" {
		return selectedChecks{preflight: true, lifecycle: true, stream: true}, nil
	}

	var out selectedChecks
	for _, p := range strings.Split(raw, ",") {
		name := strings.TrimSpace(p)
		switch name {
		case "":
			continue
		case "preflight", "exchange_preflight":
			out.preflight = true
		case "lifecycle", "order_lifecycle", "order_lifecycle_place_query_cancel":
			out.lifecycle = true
		case "stream", "user_stream", "user_stream_subscribe":
			out.stream = true
		default:
			return selectedChecks{}, fmt.Errorf("unknown check: %s", name)
		}
	}
	if !out.preflight && !out.lifecycle && !out.stream {
		return selectedChecks{}, errors.New("no checks selected")
	}
	return out, nil
}

// checkOrderQty finds the smallest quantity that clears the symbol's
// minimum quantity and minimum notional at the given price.
func checkOrderQty(filters core.SymbolFilters, price decimal.Decimal) (decimal.Decimal, error) {
	if price.Sign() <= 0 {
		return decimal.Zero, errors.New("invalid price")
	}
	step, err := decimal.NewFromString(filters.QtyStep())
	if err != nil || step.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("invalid qty step %q", filters.QtyStep())
	}
	qty := step
	if lot, ok := filters[core.FilterLotSize]; ok && lot.MinQty != "" {
		minQty, err := decimal.NewFromString(lot.MinQty)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid min qty %q: %w", lot.MinQty, err)
		}
		if qty.Cmp(minQty) < 0 {
			qty = minQty
		}
	}
	minNotional := decimal.NewFromInt(100)
	if mn, ok := filters[core.FilterMinNotional]; ok && mn.MinNotional != "" {
		minNotional, err = decimal.NewFromString(mn.MinNotional)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid min notional %q: %w", mn.MinNotional, err)
		}
	}
	if price.Mul(qty).Cmp(minNotional) < 0 {
		qty = minNotional.Div(price).Div(step).Ceil().Mul(step)
	}
	if qty.Sign() <= 0 {
		return decimal.Zero, errors.New("calculated qty <= 0")
	}
	return qty, nil
}

func printSummary(r report) {
	pass := 0
	fail := 0
	for _, c := range r.Checks {
		if c.Status == statusPass {
			pass++
		} else {
			fail++
		}
	}
	fmt.Printf("\nsummary mode=%s symbol=%s pass=%d fail=%d duration=%s\n",
		r.Mode,
		r.Symbol,
		pass,
		fail,
		r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
	)
}

func writeReport(path string, r report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, strings.TrimSpace(msg))
	os.Exit(1)
}
