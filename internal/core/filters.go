package core

import "fmt"

const (
	FilterLotSize     = "LOT_SIZE"
	FilterPrice       = "PRICE_FILTER"
	FilterMinNotional = "MIN_NOTIONAL"
)

// wholeUnitStep is the permissive fallback when exchange metadata omits a
// filter: round to whole units rather than refuse the order.
const wholeUnitStep = "1"

// Filter is one exchange trading rule for a symbol. All numeric fields are
// kept as the decimal strings the API published them with.
type Filter struct {
	FilterType  string
	StepSize    string
	TickSize    string
	MinQty      string
	MaxQty      string
	MinPrice    string
	MaxPrice    string
	MinNotional string
}

// SymbolFilters maps filter type (LOT_SIZE, PRICE_FILTER, ...) to the
// filter record for one symbol.
type SymbolFilters map[string]Filter

// QtyStep returns the LOT_SIZE step size, falling back to whole units when
// the filter is missing or empty.
func (f SymbolFilters) QtyStep() string {
	if flt, ok := f[FilterLotSize]; ok && flt.StepSize != "" {
		return flt.StepSize
	}
	return wholeUnitStep
}

// PriceTick returns the PRICE_FILTER tick size, falling back to whole
// units. The same tick governs limit and stop prices.
func (f SymbolFilters) PriceTick() string {
	if flt, ok := f[FilterPrice]; ok && flt.TickSize != "" {
		return flt.TickSize
	}
	return wholeUnitStep
}

// SymbolListing is one symbol's entry in the exchange metadata snapshot.
type SymbolListing struct {
	Symbol  string
	Filters SymbolFilters
}

// FilterTable is the per-symbol filter snapshot, built once from a fetched
// exchange-info response and read-only afterwards. Refreshing means
// re-fetching and building a new table.
type FilterTable struct {
	filters map[string]SymbolFilters
}

func NewFilterTable(listings []SymbolListing) *FilterTable {
	m := make(map[string]SymbolFilters, len(listings))
	for _, l := range listings {
		if l.Symbol == "" {
			continue
		}
		m[l.Symbol] = l.Filters
	}
	return &FilterTable{filters: m}
}

func (t *FilterTable) FiltersFor(symbol string) (SymbolFilters, error) {
	f, ok := t.filters[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}
	return f, nil
}

func (t *FilterTable) Len() int {
	return len(t.filters)
}
