package main

import (
	"testing"

	"github.com/shopspring/decimal"

	"trade-bot/internal/core"
)

func TestParseCheckFlag(t *testing.T) {
	got, err := parseCheckFlag("all")
	if err != nil {
		t.Fatalf("parseCheckFlag(all) error = %v", err)
	}
	if !got.preflight || !got.lifecycle || !got.stream {
		t.Fatalf("parseCheckFlag(all) = %+v", got)
	}

	got, err = parseCheckFlag("preflight,stream")
	if err != nil {
		t.Fatalf("parseCheckFlag(list) error = %v", err)
	}
	if !got.preflight || got.lifecycle || !got.stream {
		t.Fatalf("parseCheckFlag(list) = %+v", got)
	}

	if _, err := parseCheckFlag("bogus"); err == nil {
		t.Fatalf("parseCheckFlag(bogus) expected error")
	}
}

func TestCheckOrderQtyClearsMinNotional(t *testing.T) {
	filters := core.SymbolFilters{
		core.FilterLotSize:     {StepSize: "0.001", MinQty: "0.001"},
		core.FilterMinNotional: {MinNotional: "100"},
	}
	price := decimal.RequireFromString("32500")

	qty, err := checkOrderQty(filters, price)
	if err != nil {
		t.Fatalf("checkOrderQty() error = %v", err)
	}
	if qty.String() != "0.004" {
		t.Fatalf("qty = %s, want 0.004", qty.String())
	}
	if price.Mul(qty).Cmp(decimal.RequireFromString("100")) < 0 {
		t.Fatalf("notional %s below minimum", price.Mul(qty).String())
	}
}

func TestCheckOrderQtyRejectsBadPrice(t *testing.T) {
	filters := core.SymbolFilters{
		core.FilterLotSize: {StepSize: "0.001"},
	}
	if _, err := checkOrderQty(filters, decimal.Zero); err == nil {
		t.Fatalf("expected error for zero price")
	}
}
