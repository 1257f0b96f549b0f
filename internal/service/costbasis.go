package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/model"
)

// ReplayLots folds trades into the FIFO queue of lots that remain open.
//
// Trades must already be in processing order (trade date, then ID). A buy appends
// a lot at the tail. A sell consumes lots from the head: a head lot no larger
// than the remaining sell quantity is removed whole, otherwise the head lot is
// decremented and the sell is done. Selling more than the queue holds empties
// the queue and the excess is dropped.
//
// Parameters:
//   - trades: the trades of a single symbol in processing order
//
// Returns the open lots, oldest first. The result is never nil.
func ReplayLots(trades []model.Trade) []model.Lot {
	lots := make([]model.Lot, 0, len(trades))

	for _, t := range trades {
		if t.IsBuy() {
			lots = append(lots, model.Lot{Quantity: t.Quantity, Price: t.Price, Date: t.TradeDate})
			continue
		}

		remaining := t.Quantity
		for remaining.IsPositive() && len(lots) > 0 {
			head := lots[0]
			if head.Quantity.LessThanOrEqual(remaining) {
				remaining = remaining.Sub(head.Quantity)
				lots = lots[1:]
				continue
			}
			lots[0].Quantity = head.Quantity.Sub(remaining)
			remaining = decimal.Zero
		}
	}

	return lots
}

// FoldHolding computes the holding of one symbol from its trades.
//
// The average cost is the quantity-weighted price of the open lots and
// AcquiredOn is the newest open lot date. The boolean is false when no shares
// remain, in which case no holding exists.
func FoldHolding(ownerID, symbol string, trades []model.Trade, now time.Time) (model.Holding, bool) {
	lots := ReplayLots(trades)

	quantity := decimal.Zero
	cost := decimal.Zero
	var acquiredOn time.Time
	for _, lot := range lots {
		quantity = quantity.Add(lot.Quantity)
		cost = cost.Add(lot.Quantity.Mul(lot.Price))
		if lot.Date.After(acquiredOn) {
			acquiredOn = lot.Date
		}
	}

	if !quantity.IsPositive() {
		return model.Holding{}, false
	}

	return model.Holding{
		OwnerID:     ownerID,
		Symbol:      symbol,
		Quantity:    quantity,
		AverageCost: cost.Div(quantity),
		AcquiredOn:  acquiredOn,
		UpdatedAt:   now,
	}, true
}

// QuantityOn returns the number of shares held at the start of date, counting
// only trades dated strictly before it. Over-sells are clamped exactly as in
// ReplayLots.
func QuantityOn(trades []model.Trade, date time.Time) decimal.Decimal {
	day := truncateDay(date)

	before := make([]model.Trade, 0, len(trades))
	for _, t := range trades {
		if truncateDay(t.TradeDate).Before(day) {
			before = append(before, t)
		}
	}

	quantity := decimal.Zero
	for _, lot := range ReplayLots(before) {
		quantity = quantity.Add(lot.Quantity)
	}
	return quantity
}

// groupTradesBySymbol splits a processing-ordered trade list per symbol,
// preserving order within each symbol. Symbols are returned in first-seen order.
func groupTradesBySymbol(trades []model.Trade) ([]string, map[string][]model.Trade) {
	symbols := make([]string, 0)
	bySymbol := make(map[string][]model.Trade)
	for _, t := range trades {
		if _, ok := bySymbol[t.Symbol]; !ok {
			symbols = append(symbols, t.Symbol)
		}
		bySymbol[t.Symbol] = append(bySymbol[t.Symbol], t)
	}
	return symbols, bySymbol
}

// truncateDay returns midnight UTC of t's calendar date.
func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
