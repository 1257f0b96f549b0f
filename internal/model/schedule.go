package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AdjustedDividend is a historical dividend expressed in current-share terms.
type AdjustedDividend struct {
	ExDate  time.Time       `json:"exDate"`
	PayDate *time.Time      `json:"payDate,omitempty"`
	Raw     decimal.Decimal `json:"raw"`
	Factor  decimal.Decimal `json:"factor"`
	Amount  decimal.Decimal `json:"amount"`
}

// PaymentDate returns the pay date, or the ex-date when the pay date is unknown.
func (d AdjustedDividend) PaymentDate() time.Time {
	if d.PayDate != nil {
		return *d.PayDate
	}
	return d.ExDate
}

// ProjectedPayout is one row of a forward dividend schedule. Estimated rows
// come from quarterly patterns rather than a confirmed announcement.
type ProjectedPayout struct {
	ExDate    *time.Time      `json:"exDate,omitempty"`
	PayDate   time.Time       `json:"payDate"`
	Amount    decimal.Decimal `json:"amount"`
	Estimated bool            `json:"estimated"`
}

// DividendSchedule is the projection for one symbol in one calendar year.
// GrowthRate5Y is nil when the growth rate cannot be determined.
type DividendSchedule struct {
	Symbol            string             `json:"symbol"`
	Year              int                `json:"year"`
	Payouts           []ProjectedPayout  `json:"payouts"`
	Months            []int              `json:"months"`
	TrailingAnnualDPS decimal.Decimal    `json:"trailingAnnualDps"`
	GrowthRate5Y      *float64           `json:"growthRate5y"`
	History           []AdjustedDividend `json:"history"`
}
