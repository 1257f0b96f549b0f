package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/marketdata"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/model"
)

// MockProvider is an in-memory marketdata.Provider for testing.
// Symbols without configured data answer marketdata.ErrNoData.
//
// Example usage:
//
//	provider := testutil.NewMockProvider().
//	    WithQuote("KO", "60").
//	    WithDividends("KO", model.DividendEvent{...}).
//	    WithError("BROKEN", errors.New("upstream down"))
type MockProvider struct {
	mu        sync.Mutex
	quotes    map[string]model.Quote
	profiles  map[string]model.Profile
	dividends map[string][]model.DividendEvent
	splits    map[string][]model.SplitEvent
	history   map[string][]model.PricePoint
	errs      map[string]error
	// Calls counts provider calls per method name ("quote", "profile", "dividends",
	// "splits", "search", "history").
	Calls map[string]int
}

// NewMockProvider creates an empty MockProvider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		quotes:    make(map[string]model.Quote),
		profiles:  make(map[string]model.Profile),
		dividends: make(map[string][]model.DividendEvent),
		splits:    make(map[string][]model.SplitEvent),
		history:   make(map[string][]model.PricePoint),
		errs:      make(map[string]error),
		Calls:     make(map[string]int),
	}
}

// WithQuote sets the price returned for symbol.
func (m *MockProvider) WithQuote(symbol, price string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[symbol] = model.Quote{Symbol: symbol, Price: Dec(price), Change: Dec("0"), ChangePercent: Dec("0")}
	return m
}

// WithProfile sets the profile returned for symbol.
func (m *MockProvider) WithProfile(symbol, name, sector string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[symbol] = model.Profile{Symbol: symbol, Name: name, Sector: sector}
	return m
}

// WithProfileYield sets the provider trailing yield of symbol's profile,
// creating a default profile when none is configured.
func (m *MockProvider) WithProfileYield(symbol, yield string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[symbol]
	if !ok {
		p = model.DefaultProfile(symbol)
	}
	p.TrailingYield = decimal.NewNullDecimal(Dec(yield))
	m.profiles[symbol] = p
	return m
}

// WithPriceHistory sets the daily closes returned for symbol.
func (m *MockProvider) WithPriceHistory(symbol string, points ...model.PricePoint) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[symbol] = points
	return m
}

// WithDividends sets the dividend history returned for symbol.
func (m *MockProvider) WithDividends(symbol string, events ...model.DividendEvent) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dividends[symbol] = events
	return m
}

// WithSplits sets the split history returned for symbol.
func (m *MockProvider) WithSplits(symbol string, splits ...model.SplitEvent) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.splits[symbol] = splits
	return m
}

// WithError makes every call for symbol fail with err.
func (m *MockProvider) WithError(symbol string, err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[symbol] = err
	return m
}

// CallCount returns how many times method was called.
func (m *MockProvider) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[method]
}

func (m *MockProvider) record(method, symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls[method]++
	return m.errs[symbol]
}

// Name implements marketdata.Provider.
func (m *MockProvider) Name() string {
	return "mock"
}

// GetQuote implements marketdata.QuoteSource.
func (m *MockProvider) GetQuote(_ context.Context, symbol string) (model.Quote, error) {
	if err := m.record("quote", symbol); err != nil {
		return model.Quote{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotes[symbol]
	if !ok {
		return model.Quote{}, marketdata.ErrNoData
	}
	return q, nil
}

// GetProfile implements marketdata.ProfileSource.
func (m *MockProvider) GetProfile(_ context.Context, symbol string) (model.Profile, error) {
	if err := m.record("profile", symbol); err != nil {
		return model.Profile{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[symbol]
	if !ok {
		return model.Profile{}, marketdata.ErrNoData
	}
	return p, nil
}

// GetDividendHistory implements marketdata.DividendSource.
func (m *MockProvider) GetDividendHistory(_ context.Context, symbol string) ([]model.DividendEvent, error) {
	if err := m.record("dividends", symbol); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	events, ok := m.dividends[symbol]
	if !ok {
		return nil, marketdata.ErrNoData
	}
	return events, nil
}

// GetSplits implements marketdata.DividendSource.
func (m *MockProvider) GetSplits(_ context.Context, symbol string) ([]model.SplitEvent, error) {
	if err := m.record("splits", symbol); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.splits[symbol], nil
}

// SearchSymbols implements marketdata.SearchSource. It matches configured
// profiles whose symbol or name contains query, case-insensitively.
func (m *MockProvider) SearchSymbols(_ context.Context, query string) ([]model.SymbolMatch, error) {
	if err := m.record("search", query); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	q := strings.ToUpper(query)
	matches := []model.SymbolMatch{}
	for _, p := range m.profiles {
		if strings.Contains(strings.ToUpper(p.Symbol), q) || strings.Contains(strings.ToUpper(p.Name), q) {
			matches = append(matches, model.SymbolMatch{Symbol: p.Symbol, Name: p.Name})
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Symbol < matches[j].Symbol })
	return matches, nil
}

// GetPriceHistory implements marketdata.PriceHistorySource. months is ignored.
func (m *MockProvider) GetPriceHistory(_ context.Context, symbol string, _ int) ([]model.PricePoint, error) {
	if err := m.record("history", symbol); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	points, ok := m.history[symbol]
	if !ok {
		return nil, marketdata.ErrNoData
	}
	return points, nil
}
