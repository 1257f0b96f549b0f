package service_test

import (
	"testing"
	"time"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/model"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/service"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/testutil"
)

const testOwner = "3f2b8c9e-6a1d-4c55-9a53-2f0c1e7b9d10"

func buy(day int, quantity, price string) model.Trade {
	return testutil.NewTrade(testOwner).Buy(quantity, price).OnDate(testutil.Date(2024, time.January, day)).Model()
}

func sell(day int, quantity string) model.Trade {
	return testutil.NewTrade(testOwner).Sell(quantity).WithPrice("1").OnDate(testutil.Date(2024, time.January, day)).Model()
}

// TestFoldHolding tests the FIFO fold of a symbol's trades into a holding.
//
// WHY: Average cost must reflect only the lots that remain open after sells
// consume the oldest lots first. Averaging over all purchases would overstate
// or understate the cost basis as soon as the owner sells.
func TestFoldHolding(t *testing.T) {
	now := testutil.Date(2024, time.June, 1)

	t.Run("sell consumes oldest lots first", func(t *testing.T) {
		trades := []model.Trade{
			buy(1, "10", "200"),
			buy(2, "10", "250"),
			buy(3, "10", "300"),
			sell(4, "15"),
		}

		h, ok := service.FoldHolding(testOwner, "TEST", trades, now)
		if !ok {
			t.Fatal("Expected a holding")
		}

		if !h.Quantity.Equal(testutil.Dec("15")) {
			t.Errorf("Quantity = %s, want 15", h.Quantity)
		}
		if got := h.AverageCost.Round(2); !got.Equal(testutil.Dec("283.33")) {
			t.Errorf("AverageCost = %s, want 283.33", got)
		}
		if !h.AcquiredOn.Equal(testutil.Date(2024, time.January, 3)) {
			t.Errorf("AcquiredOn = %s, want the newest open lot date", h.AcquiredOn)
		}
		if !h.UpdatedAt.Equal(now) {
			t.Errorf("UpdatedAt = %s, want %s", h.UpdatedAt, now)
		}
	})

	t.Run("full liquidation leaves no holding", func(t *testing.T) {
		trades := []model.Trade{buy(1, "10", "200"), sell(2, "10")}

		if _, ok := service.FoldHolding(testOwner, "TEST", trades, now); ok {
			t.Error("Expected no holding after selling every share")
		}
	})

	t.Run("over-sell drops the excess", func(t *testing.T) {
		trades := []model.Trade{buy(1, "5", "100"), sell(2, "8"), buy(3, "2", "150")}

		h, ok := service.FoldHolding(testOwner, "TEST", trades, now)
		if !ok {
			t.Fatal("Expected a holding")
		}
		if !h.Quantity.Equal(testutil.Dec("2")) || !h.AverageCost.Equal(testutil.Dec("150")) {
			t.Errorf("Got %s @ %s, want 2 @ 150", h.Quantity, h.AverageCost)
		}
	})

	t.Run("partial sell decrements the head lot", func(t *testing.T) {
		lots := service.ReplayLots([]model.Trade{buy(1, "10", "200"), buy(2, "10", "250"), sell(3, "4")})

		if len(lots) != 2 {
			t.Fatalf("Expected 2 open lots, got %d", len(lots))
		}
		if !lots[0].Quantity.Equal(testutil.Dec("6")) || !lots[0].Price.Equal(testutil.Dec("200")) {
			t.Errorf("Head lot = %s @ %s, want 6 @ 200", lots[0].Quantity, lots[0].Price)
		}
	})

	t.Run("no trades yields empty non-nil lots", func(t *testing.T) {
		lots := service.ReplayLots(nil)
		if lots == nil || len(lots) != 0 {
			t.Errorf("Expected empty non-nil slice, got %#v", lots)
		}
	})
}

// TestQuantityOn tests replaying the ledger up to a historical date.
//
// WHY: Dividend back-fill pays out on the quantity held at the ex-date. Trades
// on the ex-date itself do not qualify, so only earlier trades may count.
func TestQuantityOn(t *testing.T) {
	trades := []model.Trade{
		buy(2, "100", "10"),
		sell(10, "30"),
		buy(15, "50", "12"),
		sell(20, "200"),
	}

	tests := []struct {
		name string
		date time.Time
		want string
	}{
		{"before first trade", testutil.Date(2024, time.January, 1), "0"},
		{"on the buy date", testutil.Date(2024, time.January, 2), "0"},
		{"day after the buy", testutil.Date(2024, time.January, 3), "100"},
		{"after partial sell", testutil.Date(2024, time.January, 11), "70"},
		{"after second buy", testutil.Date(2024, time.January, 16), "120"},
		{"after over-sell", testutil.Date(2024, time.January, 21), "0"},
		{"time of day is ignored", time.Date(2024, time.January, 10, 23, 59, 0, 0, time.UTC), "100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := service.QuantityOn(trades, tt.date)
			if !got.Equal(testutil.Dec(tt.want)) {
				t.Errorf("QuantityOn(%s) = %s, want %s", tt.date.Format("2006-01-02"), got, tt.want)
			}
		})
	}
}
