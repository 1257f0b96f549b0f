package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is the derived position of an owner in one symbol.
// It is always rebuilt from the trade ledger and never edited directly.
type Holding struct {
	OwnerID     string          `json:"ownerId"`
	Symbol      string          `json:"symbol"`
	Quantity    decimal.Decimal `json:"quantity"`
	AverageCost decimal.Decimal `json:"averageCost"`
	AcquiredOn  time.Time       `json:"acquiredOn"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// CostBasis returns quantity times average cost.
func (h Holding) CostBasis() decimal.Decimal {
	return h.Quantity.Mul(h.AverageCost)
}

// Lot is an open purchase lot in the FIFO queue.
type Lot struct {
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Date     time.Time       `json:"date"`
}
