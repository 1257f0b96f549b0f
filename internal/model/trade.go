package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade sides.
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Trade is one executed order in an owner's ledger.
// Trades are immutable once stored; ID is the insertion order and breaks ties
// between trades on the same date.
type Trade struct {
	ID        int64           `json:"id"`
	OwnerID   string          `json:"ownerId"`
	Symbol    string          `json:"symbol"`
	Side      string          `json:"side"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	TradeDate time.Time       `json:"tradeDate"`
	CreatedAt time.Time       `json:"createdAt"`
}

// IsBuy reports whether the trade adds shares.
func (t Trade) IsBuy() bool {
	return t.Side == SideBuy
}
