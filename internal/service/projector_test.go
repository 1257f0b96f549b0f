package service_test

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/model"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/service"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/testutil"
)

func paid(exDate, payDate time.Time, amount string) model.AdjustedDividend {
	return model.AdjustedDividend{
		ExDate:  exDate,
		PayDate: &payDate,
		Raw:     testutil.Dec(amount),
		Factor:  decimal.NewFromInt(1),
		Amount:  testutil.Dec(amount),
	}
}

func exOnly(exDate time.Time, amount string) model.AdjustedDividend {
	return model.AdjustedDividend{ExDate: exDate, Raw: testutil.Dec(amount), Factor: decimal.NewFromInt(1), Amount: testutil.Dec(amount)}
}

// quarterlyHistory is a quarterly payer with one confirmed payout in 2024.
func quarterlyHistory() []model.AdjustedDividend {
	d := testutil.Date
	return []model.AdjustedDividend{
		paid(d(2023, time.February, 28), d(2023, time.March, 15), "0.46"),
		paid(d(2023, time.May, 31), d(2023, time.June, 15), "0.46"),
		paid(d(2023, time.August, 31), d(2023, time.September, 15), "0.46"),
		paid(d(2023, time.November, 30), d(2023, time.December, 15), "0.46"),
		paid(d(2024, time.February, 29), d(2024, time.March, 15), "0.485"),
	}
}

// TestProjectPayouts tests the forward schedule built from quarterly patterns.
//
// WHY: The calendar needs one payout per quarter for the current year. Announced
// payouts must win over estimates, and estimates must land on real dates.
func TestProjectPayouts(t *testing.T) {
	t.Run("confirmed quarter plus three estimates", func(t *testing.T) {
		payouts := service.ProjectPayouts(quarterlyHistory(), 2024)

		if len(payouts) != 4 {
			t.Fatalf("Expected 4 payouts, got %d", len(payouts))
		}

		first := payouts[0]
		if first.Estimated || !first.Amount.Equal(testutil.Dec("0.485")) || first.PayDate.Month() != time.March {
			t.Errorf("First payout = %+v, want confirmed 0.485 in March", first)
		}

		wantMonths := []time.Month{time.March, time.June, time.September, time.December}
		for i, p := range payouts {
			if p.PayDate.Month() != wantMonths[i] || p.PayDate.Year() != 2024 || p.PayDate.Day() != 15 {
				t.Errorf("payouts[%d].PayDate = %s", i, p.PayDate.Format("2006-01-02"))
			}
			if i > 0 && (!p.Estimated || !p.Amount.Equal(testutil.Dec("0.46"))) {
				t.Errorf("payouts[%d] = %+v, want estimated 0.46", i, p)
			}
		}
	})

	t.Run("ex-date after pay date rolls back a year", func(t *testing.T) {
		history := []model.AdjustedDividend{
			paid(testutil.Date(2022, time.December, 28), testutil.Date(2023, time.January, 14), "0.50"),
		}

		payouts := service.ProjectPayouts(history, 2024)
		if len(payouts) != 1 {
			t.Fatalf("Expected 1 payout, got %d", len(payouts))
		}
		if got := payouts[0].ExDate.Format("2006-01-02"); got != "2023-12-28" {
			t.Errorf("ExDate = %s, want 2023-12-28", got)
		}
		if got := payouts[0].PayDate.Format("2006-01-02"); got != "2024-01-14" {
			t.Errorf("PayDate = %s, want 2024-01-14", got)
		}
	})

	t.Run("leap day is clamped", func(t *testing.T) {
		history := []model.AdjustedDividend{
			paid(testutil.Date(2024, time.February, 15), testutil.Date(2024, time.February, 29), "0.25"),
		}

		payouts := service.ProjectPayouts(history, 2025)
		if got := payouts[0].PayDate.Format("2006-01-02"); got != "2025-02-28" {
			t.Errorf("PayDate = %s, want 2025-02-28", got)
		}
	})

	t.Run("quarter falls back to ex-date without pay date", func(t *testing.T) {
		history := []model.AdjustedDividend{exOnly(testutil.Date(2023, time.April, 3), "0.10")}

		payouts := service.ProjectPayouts(history, 2024)
		if len(payouts) != 1 || payouts[0].PayDate.Format("2006-01-02") != "2024-04-03" {
			t.Errorf("Unexpected payouts: %+v", payouts)
		}
	})

	t.Run("no history yields no payouts", func(t *testing.T) {
		if payouts := service.ProjectPayouts(nil, 2024); payouts == nil || len(payouts) != 0 {
			t.Errorf("Expected empty non-nil slice, got %#v", payouts)
		}
	})
}

// TestTrailingAnnualDPS tests the trailing twelve-month dividend per share.
//
// WHY: Projections may only fill months the trailing window is missing;
// adding them on top of real history would double count a quarter.
func TestTrailingAnnualDPS(t *testing.T) {
	now := testutil.Date(2024, time.June, 15)
	history := quarterlyHistory()
	payouts := service.ProjectPayouts(history, 2024)

	// Sep + Dec 2023 + Mar 2024 from history, June from the projection.
	got := service.TrailingAnnualDPS(history, payouts, now)
	if !got.Equal(testutil.Dec("1.865")) {
		t.Errorf("TrailingAnnualDPS = %s, want 1.865", got)
	}

	t.Run("history only", func(t *testing.T) {
		got := service.TrailingAnnualDPS(history, nil, now)
		if !got.Equal(testutil.Dec("1.405")) {
			t.Errorf("TrailingAnnualDPS = %s, want 1.405", got)
		}
	})

	t.Run("projected payouts after now do not count", func(t *testing.T) {
		onlyFuture := []model.AdjustedDividend{paid(testutil.Date(2022, time.November, 30), testutil.Date(2022, time.December, 15), "0.46")}
		projected := service.ProjectPayouts(onlyFuture, 2024)
		if got := service.TrailingAnnualDPS(onlyFuture, projected, testutil.Date(2024, time.October, 16)); !got.IsZero() {
			t.Errorf("TrailingAnnualDPS = %s, want 0 when the only projection is after now", got)
		}
	})

	t.Run("projection window boundaries", func(t *testing.T) {
		at := testutil.Date(2024, time.October, 16)
		projected := func(payDate time.Time) []model.ProjectedPayout {
			return []model.ProjectedPayout{{PayDate: payDate, Amount: testutil.Dec("1"), Estimated: true}}
		}

		tests := []struct {
			name    string
			payDate time.Time
			want    string
		}{
			{"exactly 365 days ago is excluded", at.Add(-365 * 24 * time.Hour), "0"},
			{"one day inside the window is included", at.Add(-364 * 24 * time.Hour), "1"},
			{"exactly now is included", at, "1"},
			{"one day after now is excluded", at.AddDate(0, 0, 1), "0"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got := service.TrailingAnnualDPS(nil, projected(tt.payDate), at)
				if !got.Equal(testutil.Dec(tt.want)) {
					t.Errorf("TrailingAnnualDPS = %s, want %s", got, tt.want)
				}
			})
		}
	})

	t.Run("payout months merge history and projection", func(t *testing.T) {
		months := service.PayoutMonths(history, payouts, now)
		want := []int{3, 6, 9, 12}
		if len(months) != len(want) {
			t.Fatalf("PayoutMonths = %v, want %v", months, want)
		}
		for i := range want {
			if months[i] != want[i] {
				t.Errorf("PayoutMonths = %v, want %v", months, want)
				break
			}
		}
	})
}

// TestDividendGrowthRate tests the five-year compound growth rate.
//
// WHY: An undetermined growth rate must be reported as nil. A zero would read
// as "no growth" and an error would drop the symbol from the analysis.
func TestDividendGrowthRate(t *testing.T) {
	d := testutil.Date

	t.Run("compound growth over the last five years", func(t *testing.T) {
		history := []model.AdjustedDividend{
			exOnly(d(2018, time.June, 1), "0.50"),
			exOnly(d(2019, time.June, 1), "1.00"),
			exOnly(d(2023, time.March, 1), "1.00"),
			exOnly(d(2023, time.September, 1), "1.00"),
		}

		got := service.DividendGrowthRate(history)
		if got == nil {
			t.Fatal("Expected a growth rate, got nil")
		}
		want := math.Pow(2, 0.25) - 1
		if math.Abs(*got-want) > 1e-9 {
			t.Errorf("DividendGrowthRate = %f, want %f", *got, want)
		}
	})

	tests := []struct {
		name    string
		history []model.AdjustedDividend
	}{
		{"no history", nil},
		{"single year", []model.AdjustedDividend{exOnly(d(2023, time.March, 1), "1"), exOnly(d(2023, time.June, 1), "1")}},
		{"zero first year", []model.AdjustedDividend{exOnly(d(2022, time.March, 1), "0"), exOnly(d(2023, time.March, 1), "1")}},
		{"old years outside the window", []model.AdjustedDividend{exOnly(d(2015, time.March, 1), "1"), exOnly(d(2023, time.March, 1), "1")}},
	}

	for _, tt := range tests {
		t.Run(tt.name+" is undetermined", func(t *testing.T) {
			if got := service.DividendGrowthRate(tt.history); got != nil {
				t.Errorf("DividendGrowthRate = %f, want nil", *got)
			}
		})
	}
}

// TestBuildSchedule tests the assembled schedule.
func TestBuildSchedule(t *testing.T) {
	now := testutil.Date(2024, time.June, 15)
	schedule := service.BuildSchedule("KO", quarterlyHistory(), now)

	if schedule.Symbol != "KO" || schedule.Year != 2024 {
		t.Errorf("Symbol/Year = %s/%d, want KO/2024", schedule.Symbol, schedule.Year)
	}
	if len(schedule.Payouts) != 4 || len(schedule.History) != 5 {
		t.Errorf("Got %d payouts and %d history rows, want 4 and 5", len(schedule.Payouts), len(schedule.History))
	}
	if schedule.GrowthRate5Y == nil {
		t.Error("Expected a growth rate for two years of history")
	}
}

// TestBuildSchedule_StoppedPayer tests a symbol whose last dividend is more
// than a year old.
//
// WHY: Old quarterly patterns would otherwise keep projecting payouts forever,
// so a company that cut its dividend would still show income and yield.
func TestBuildSchedule_StoppedPayer(t *testing.T) {
	history := []model.AdjustedDividend{
		paid(testutil.Date(2022, time.November, 30), testutil.Date(2022, time.December, 15), "0.46"),
	}
	now := testutil.Date(2024, time.October, 16)

	schedule := service.BuildSchedule("Y", history, now)

	if !schedule.TrailingAnnualDPS.IsZero() {
		t.Errorf("TrailingAnnualDPS = %s, want 0", schedule.TrailingAnnualDPS)
	}
	if len(schedule.Payouts) != 0 {
		t.Errorf("Expected no estimated payouts, got %+v", schedule.Payouts)
	}
	if len(schedule.Months) != 0 {
		t.Errorf("Months = %v, want none", schedule.Months)
	}

	t.Run("announced first payout is kept", func(t *testing.T) {
		history := []model.AdjustedDividend{
			paid(testutil.Date(2024, time.November, 1), testutil.Date(2024, time.November, 20), "0.30"),
		}

		schedule := service.BuildSchedule("NEW", history, now)
		if len(schedule.Payouts) != 1 || schedule.Payouts[0].Estimated {
			t.Fatalf("Expected the announced payout, got %+v", schedule.Payouts)
		}
		if !schedule.TrailingAnnualDPS.IsZero() {
			t.Errorf("TrailingAnnualDPS = %s, want 0 before the first payment", schedule.TrailingAnnualDPS)
		}
		if len(schedule.Months) != 1 || schedule.Months[0] != 11 {
			t.Errorf("Months = %v, want [11]", schedule.Months)
		}
	})
}
