// Package marketdata defines the capabilities the tracker consumes from
// external market data providers and the typed result used to report
// per-symbol outcomes without aborting batch work.
//
// Provider adapters live in sub-packages (polygon) and in the yahoo package.
package marketdata

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/model"
)

// ErrNoData is returned by adapters when the provider knows nothing about a symbol.
var ErrNoData = errors.New("no data for symbol")

// QuoteSource returns the latest price of a symbol.
type QuoteSource interface {
	GetQuote(ctx context.Context, symbol string) (model.Quote, error)
}

// ProfileSource returns company information for a symbol.
type ProfileSource interface {
	GetProfile(ctx context.Context, symbol string) (model.Profile, error)
}

// DividendSource returns dividend and split history for a symbol.
// Both lists may be returned in any order; an empty list means the symbol has
// no such events.
type DividendSource interface {
	GetDividendHistory(ctx context.Context, symbol string) ([]model.DividendEvent, error)
	GetSplits(ctx context.Context, symbol string) ([]model.SplitEvent, error)
}

// SearchSource finds symbols whose ticker or company name matches a query.
// Implementations return at most MaxSearchResults matches.
type SearchSource interface {
	SearchSymbols(ctx context.Context, query string) ([]model.SymbolMatch, error)
}

// PriceHistorySource returns daily closes of the last months, oldest first.
type PriceHistorySource interface {
	GetPriceHistory(ctx context.Context, symbol string, months int) ([]model.PricePoint, error)
}

// Provider is a complete market data adapter.
type Provider interface {
	QuoteSource
	ProfileSource
	DividendSource
	SearchSource
	PriceHistorySource
	Name() string
}

// MaxSearchResults caps the matches of one symbol search.
const MaxSearchResults = 10

// TrailingYield is annualDPS as a percentage of price, rounded to two places.
// It is null when price is not positive.
func TrailingYield(annualDPS, price decimal.Decimal) decimal.NullDecimal {
	if !price.IsPositive() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(annualDPS.Div(price).Mul(decimal.NewFromInt(100)).Round(2))
}
