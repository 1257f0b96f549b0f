package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Calendar entry statuses.
const (
	PayoutStatusPaid      = "paid"
	PayoutStatusScheduled = "scheduled"
)

// PortfolioAnalysis is the full analysis view for one owner.
type PortfolioAnalysis struct {
	OwnerID            string               `json:"ownerId"`
	GeneratedAt        time.Time            `json:"generatedAt"`
	Holdings           []Holding            `json:"holdings"`
	Summary            PortfolioSummary     `json:"summary"`
	SectorAllocation   []SectorAllocation   `json:"sectorAllocation"`
	DividendMetrics    []DividendMetric     `json:"dividendMetrics"`
	DividendAllocation []DividendAllocation `json:"dividendAllocation"`
	MonthlyCalendar    MonthlyCalendar      `json:"monthlyCalendar"`
}

// PortfolioSummary holds valuation and income totals. Current value falls back
// to cost basis for symbols without a live price. After-tax income applies
// TaxRate to the expected annual dividend.
type PortfolioSummary struct {
	TotalInvestment                decimal.Decimal `json:"totalInvestment"`
	TotalCurrentValue              decimal.Decimal `json:"totalCurrentValue"`
	TotalProfitLoss                decimal.Decimal `json:"totalProfitLoss"`
	TotalReturnPercent             decimal.Decimal `json:"totalReturnPercent"`
	ExpectedAnnualDividend         decimal.Decimal `json:"expectedAnnualDividend"`
	ExpectedAnnualDividendAfterTax decimal.Decimal `json:"expectedAnnualDividendAfterTax"`
	TaxRate                        decimal.Decimal `json:"taxRate"`
}

// DividendAllocation is one symbol's share of expected annual dividend income.
type DividendAllocation struct {
	Symbol string          `json:"symbol"`
	Value  decimal.Decimal `json:"value"`
}

// SectorAllocation groups current market value by sector.
type SectorAllocation struct {
	Sector   string          `json:"sector"`
	Value    decimal.Decimal `json:"value"`
	Holdings []SectorHolding `json:"holdings"`
}

// SectorHolding is one symbol's value within a sector.
type SectorHolding struct {
	Symbol string          `json:"symbol"`
	Value  decimal.Decimal `json:"value"`
}

// DividendMetric is the dividend outlook of one held symbol.
type DividendMetric struct {
	Symbol                         string              `json:"symbol"`
	Profile                        Profile             `json:"profile"`
	Quantity                       decimal.Decimal     `json:"quantity"`
	CurrentValue                   decimal.Decimal     `json:"currentValue"`
	DividendPerShare               decimal.Decimal     `json:"dividendPerShare"`
	ExpectedAnnualDividend         decimal.Decimal     `json:"expectedAnnualDividend"`
	ExpectedAnnualDividendAfterTax decimal.Decimal     `json:"expectedAnnualDividendAfterTax"`
	DividendYield                  decimal.NullDecimal `json:"dividendYield"`
	PayoutMonths                   []int               `json:"payoutMonths"`
	GrowthRate5Y                   *float64            `json:"growthRate5y"`
}

// MonthlyCalendar is the twelve-month dividend income view of one year.
type MonthlyCalendar struct {
	Year          int             `json:"year"`
	Total         decimal.Decimal `json:"total"`
	TotalAfterTax decimal.Decimal `json:"totalAfterTax"`
	Months        []CalendarMonth `json:"months"`
}

// CalendarMonth is one month of the income calendar, Month being 1..12.
type CalendarMonth struct {
	Month         int             `json:"month"`
	Total         decimal.Decimal `json:"total"`
	TotalAfterTax decimal.Decimal `json:"totalAfterTax"`
	Entries       []CalendarEntry `json:"entries"`
}

// CalendarEntry is a single contribution to a calendar month, either a recorded
// dividend or a projected payout.
type CalendarEntry struct {
	Symbol         string              `json:"symbol"`
	Quantity       decimal.Decimal     `json:"quantity"`
	Amount         decimal.Decimal     `json:"amount"`
	AmountPerShare decimal.NullDecimal `json:"amountPerShare"`
	ExDate         *time.Time          `json:"exDate,omitempty"`
	PayDate        time.Time           `json:"payDate"`
	Status         string              `json:"status"`
	Estimated      bool                `json:"estimated"`
	Recorded       bool                `json:"recorded"`
	Profile        Profile             `json:"profile"`
}
