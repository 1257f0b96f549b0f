package service

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/model"
)

// trailingWindow is the lookback used for trailing DPS and payout months.
const trailingWindow = 365 * 24 * time.Hour

// growthYears is the number of calendar years considered by DividendGrowthRate.
const growthYears = 5

// QuarterPattern is the most recent payout seen in one calendar quarter.
type QuarterPattern struct {
	ExDate  time.Time
	PayDate time.Time
	Amount  decimal.Decimal
}

// quarterOf returns 1..4 for the month of t.
func quarterOf(t time.Time) int {
	return (int(t.Month())-1)/3 + 1
}

// QuarterlyPatterns keeps, per calendar quarter, the newest split-adjusted payout.
// The quarter comes from the pay date, or the ex-date when the pay date is unknown.
// Index 0 is unused; quarters without history are nil.
func QuarterlyPatterns(history []model.AdjustedDividend) [5]*QuarterPattern {
	var patterns [5]*QuarterPattern

	for _, d := range history {
		paid := d.PaymentDate()
		q := quarterOf(paid)
		if p := patterns[q]; p != nil && !paid.After(p.PayDate) {
			continue
		}
		patterns[q] = &QuarterPattern{ExDate: d.ExDate, PayDate: paid, Amount: d.Amount}
	}

	return patterns
}

// moveToYear returns t on the same month and day in year, clamping the day to
// the length of the month (Feb 29 becomes Feb 28 outside leap years).
func moveToYear(t time.Time, year int) time.Time {
	day := t.Day()
	if last := daysIn(t.Month(), year); day > last {
		day = last
	}
	return time.Date(year, t.Month(), day, 0, 0, 0, 0, time.UTC)
}

func daysIn(month time.Month, year int) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ProjectPayouts builds the payout schedule of year.
//
// Every historical payout paid in year is confirmed. Each quarter without a
// confirmed payout gets an estimated one, copied from that quarter's newest
// pattern and moved onto year. When the moved ex-date lands after the moved
// pay date (a December ex-date paid in January), the ex-date moves back a year.
//
// Returns payouts sorted by pay date ascending. The result is never nil.
func ProjectPayouts(history []model.AdjustedDividend, year int) []model.ProjectedPayout {
	payouts := make([]model.ProjectedPayout, 0, 4)
	var covered [5]bool

	for _, d := range history {
		paid := d.PaymentDate()
		if paid.Year() != year {
			continue
		}
		exDate := d.ExDate
		payouts = append(payouts, model.ProjectedPayout{
			ExDate:    &exDate,
			PayDate:   paid,
			Amount:    d.Amount,
			Estimated: false,
		})
		covered[quarterOf(paid)] = true
	}

	patterns := QuarterlyPatterns(history)
	for q := 1; q <= 4; q++ {
		p := patterns[q]
		if covered[q] || p == nil {
			continue
		}

		payDate := moveToYear(p.PayDate, year)
		exDate := moveToYear(p.ExDate, year)
		if exDate.After(payDate) {
			exDate = moveToYear(p.ExDate, year-1)
		}

		payouts = append(payouts, model.ProjectedPayout{
			ExDate:    &exDate,
			PayDate:   payDate,
			Amount:    p.Amount,
			Estimated: true,
		})
	}

	sort.SliceStable(payouts, func(i, j int) bool { return payouts[i].PayDate.Before(payouts[j].PayDate) })
	return payouts
}

// inTrailingWindow reports whether t lies in (now-365d, now].
func inTrailingWindow(t, now time.Time) bool {
	return t.After(now.Add(-trailingWindow)) && !t.After(now)
}

// TrailingAnnualDPS sums the split-adjusted per-share payouts paid in the last
// 365 days. Projected payouts in the same window fill only months the history
// is missing, which covers feed gaps. Payouts after now never count.
func TrailingAnnualDPS(history []model.AdjustedDividend, projected []model.ProjectedPayout, now time.Time) decimal.Decimal {
	total := decimal.Zero
	seen := make(map[time.Month]bool)

	for _, d := range history {
		paid := d.PaymentDate()
		if !inTrailingWindow(paid, now) {
			continue
		}
		total = total.Add(d.Amount)
		seen[paid.Month()] = true
	}

	for _, p := range projected {
		if !inTrailingWindow(p.PayDate, now) || seen[p.PayDate.Month()] {
			continue
		}
		total = total.Add(p.Amount)
		seen[p.PayDate.Month()] = true
	}

	return total
}

// DividendGrowthRate returns the compound annual growth of yearly dividends over
// the last five calendar years with data.
//
// Yearly sums are grouped by ex-date year. The newest year with data ends the
// range, and only years within growthYears-1 of it are used. The rate is
// (last/first)^(1/(lastYear-firstYear)) - 1.
//
// Returns nil when the rate is undetermined: fewer than two years, a zero first
// year, or a zero span.
func DividendGrowthRate(history []model.AdjustedDividend) *float64 {
	if len(history) == 0 {
		return nil
	}

	byYear := make(map[int]decimal.Decimal)
	endYear := 0
	for _, d := range history {
		y := d.ExDate.Year()
		byYear[y] = byYear[y].Add(d.Amount)
		if y > endYear {
			endYear = y
		}
	}

	years := make([]int, 0, len(byYear))
	for y := range byYear {
		if y >= endYear-(growthYears-1) {
			years = append(years, y)
		}
	}
	if len(years) < 2 {
		return nil
	}
	sort.Ints(years)

	firstYear, lastYear := years[0], years[len(years)-1]
	first, last := byYear[firstYear], byYear[lastYear]
	span := lastYear - firstYear
	if first.IsZero() || span == 0 {
		return nil
	}

	ratio := last.Div(first).InexactFloat64()
	rate := math.Pow(ratio, 1/float64(span)) - 1
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return nil
	}
	return &rate
}

// PayoutMonths returns the sorted months in which the symbol pays: months seen in
// the last 365 days merged with the months of the projected payouts.
func PayoutMonths(history []model.AdjustedDividend, projected []model.ProjectedPayout, now time.Time) []int {
	set := make(map[int]bool)
	for _, d := range history {
		if paid := d.PaymentDate(); inTrailingWindow(paid, now) {
			set[int(paid.Month())] = true
		}
	}
	for _, p := range projected {
		set[int(p.PayDate.Month())] = true
	}

	months := make([]int, 0, len(set))
	for m := range set {
		months = append(months, m)
	}
	sort.Ints(months)
	return months
}

// PaidWithin reports whether any payout of history was paid in the trailing
// 365 days before now.
func PaidWithin(history []model.AdjustedDividend, now time.Time) bool {
	for _, d := range history {
		if inTrailingWindow(d.PaymentDate(), now) {
			return true
		}
	}
	return false
}

// dropEstimates returns payouts without the estimated ones.
func dropEstimates(payouts []model.ProjectedPayout) []model.ProjectedPayout {
	confirmed := make([]model.ProjectedPayout, 0, len(payouts))
	for _, p := range payouts {
		if !p.Estimated {
			confirmed = append(confirmed, p)
		}
	}
	return confirmed
}

// BuildSchedule assembles the dividend schedule of symbol for the year of now
// from split-adjusted history.
//
// A symbol that paid nothing in the trailing 365 days is treated as having
// stopped paying: its quarterly patterns are not projected, so it gets no
// estimated payouts and no estimated months.
func BuildSchedule(symbol string, history []model.AdjustedDividend, now time.Time) model.DividendSchedule {
	year := now.Year()
	payouts := ProjectPayouts(history, year)
	if !PaidWithin(history, now) {
		payouts = dropEstimates(payouts)
	}

	return model.DividendSchedule{
		Symbol:            symbol,
		Year:              year,
		Payouts:           payouts,
		Months:            PayoutMonths(history, payouts, now),
		TrailingAnnualDPS: TrailingAnnualDPS(history, payouts, now),
		GrowthRate5Y:      DividendGrowthRate(history),
		History:           history,
	}
}
