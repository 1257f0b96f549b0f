package service

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/model"
)

// AdjustForSplits expresses historical per-share dividends in current-share terms.
//
// A dividend's factor is the product of the ratios of every split dated strictly
// after its ex-date, and its adjusted amount is the raw amount divided by that
// factor. A $1.00 dividend paid before a 4:1 split becomes $0.25. Splits with a
// non-positive ratio are ignored.
//
// Parameters:
//   - dividends: raw dividend events in any order
//   - splits: split events in any order
//
// Returns the adjusted dividends sorted by ex-date ascending. The result is never nil.
func AdjustForSplits(dividends []model.DividendEvent, splits []model.SplitEvent) []model.AdjustedDividend {
	adjusted := make([]model.AdjustedDividend, 0, len(dividends))
	if len(dividends) == 0 {
		return adjusted
	}

	valid := make([]model.SplitEvent, 0, len(splits))
	for _, s := range splits {
		if s.Ratio.IsPositive() {
			valid = append(valid, s)
		}
	}
	// Newest first, so the running factor accumulates while walking back in time.
	sort.Slice(valid, func(i, j int) bool { return valid[i].Date.After(valid[j].Date) })

	sorted := make([]model.DividendEvent, len(dividends))
	copy(sorted, dividends)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ExDate.After(sorted[j].ExDate) })

	factor := decimal.NewFromInt(1)
	next := 0
	for _, d := range sorted {
		for next < len(valid) && valid[next].Date.After(d.ExDate) {
			factor = factor.Mul(valid[next].Ratio)
			next++
		}
		adjusted = append(adjusted, model.AdjustedDividend{
			ExDate:  d.ExDate,
			PayDate: d.PayDate,
			Raw:     d.Amount,
			Factor:  factor,
			Amount:  d.Amount.Div(factor),
		})
	}

	for i, j := 0, len(adjusted)-1; i < j; i, j = i+1, j-1 {
		adjusted[i], adjusted[j] = adjusted[j], adjusted[i]
	}
	return adjusted
}
