package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Dividend sources.
const (
	DividendSourceManual = "manual"
	DividendSourceSync   = "sync"
)

// Dividend is a recorded, received-or-receivable payment for one owner.
// At most one record exists per (owner, symbol, ex-dividend date).
type Dividend struct {
	ID             string              `json:"id"`
	OwnerID        string              `json:"ownerId"`
	Symbol         string              `json:"symbol"`
	Amount         decimal.Decimal     `json:"amount"`
	AmountPerShare decimal.NullDecimal `json:"amountPerShare"`
	PayDate        time.Time           `json:"payDate"`
	ExDividendDate *time.Time          `json:"exDividendDate,omitempty"`
	Source         string              `json:"source"`
	CreatedAt      time.Time           `json:"createdAt"`
}

// DividendSyncReport summarises one back-fill run for an owner.
type DividendSyncReport struct {
	OwnerID  string   `json:"ownerId"`
	Checked  int      `json:"checked"`
	Skipped  int      `json:"skipped"`
	Inserted int      `json:"inserted"`
	Failed   []string `json:"failed"`
}
