package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSnapshot is the last known quote for a symbol, shared by all owners.
// A snapshot older than the configured freshness window must be refreshed
// before use.
type PriceSnapshot struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"changePercent"`
	RefreshedAt   time.Time       `json:"refreshedAt"`
}

// IsFresh reports whether the snapshot is younger than maxAge at now.
func (p PriceSnapshot) IsFresh(now time.Time, maxAge time.Duration) bool {
	return now.Sub(p.RefreshedAt) < maxAge
}

// Quote is the latest price of a symbol and its change against the previous close.
type Quote struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"changePercent"`
	AsOf          time.Time       `json:"asOf"`
}

// DefaultSector is used when a profile has no usable sector.
const DefaultSector = "N/A"

// Profile describes the company behind a symbol.
// TrailingYield is the provider's trailing dividend yield in percent at the
// time the profile was fetched. It is null when the provider cannot tell.
type Profile struct {
	Symbol        string              `json:"symbol"`
	Name          string              `json:"name"`
	Sector        string              `json:"sector"`
	LogoURL       string              `json:"logoUrl,omitempty"`
	TrailingYield decimal.NullDecimal `json:"trailingYield"`
}

// DefaultProfile is returned when no profile could be fetched.
func DefaultProfile(symbol string) Profile {
	return Profile{Symbol: symbol, Name: symbol, Sector: DefaultSector}
}

// DividendEvent is a raw historical dividend as reported by a provider.
// PayDate is nil for providers that only report ex-dates.
type DividendEvent struct {
	ExDate  time.Time       `json:"exDate"`
	PayDate *time.Time      `json:"payDate,omitempty"`
	Amount  decimal.Decimal `json:"amount"`
}

// SplitEvent is a stock split; Ratio is new shares per old share (4 for a 4:1 split).
type SplitEvent struct {
	Date  time.Time       `json:"date"`
	Ratio decimal.Decimal `json:"ratio"`
}

// SymbolMatch is one result of a symbol search.
type SymbolMatch struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange,omitempty"`
}

// PricePoint is the close of one trading day.
type PricePoint struct {
	Date  time.Time       `json:"date"`
	Close decimal.Decimal `json:"close"`
}
