package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/repository"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/testutil"
)

// TestHoldingService_RecalculateHoldings tests rebuilding holdings from the ledger.
//
// WHY: Holdings are derived data. A rebuild must be repeatable and must never
// leave an owner with half-deleted holdings.
func TestHoldingService_RecalculateHoldings(t *testing.T) {
	ctx := context.Background()
	now := testutil.Date(2024, time.June, 1)

	t.Run("rebuild from FIFO ledger", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestServices(t, db, nil, now)
		owner := testutil.MakeOwnerID()

		testutil.NewTrade(owner).WithSymbol("MSFT").Buy("10", "200").OnDate(testutil.Date(2024, time.January, 1)).Build(t, db)
		testutil.NewTrade(owner).WithSymbol("MSFT").Buy("10", "250").OnDate(testutil.Date(2024, time.January, 2)).Build(t, db)
		testutil.NewTrade(owner).WithSymbol("MSFT").Buy("10", "300").OnDate(testutil.Date(2024, time.January, 3)).Build(t, db)
		testutil.NewTrade(owner).WithSymbol("MSFT").Sell("15").OnDate(testutil.Date(2024, time.January, 4)).Build(t, db)
		testutil.NewTrade(owner).WithSymbol("KO").Buy("10", "60").OnDate(testutil.Date(2024, time.January, 1)).Build(t, db)
		testutil.NewTrade(owner).WithSymbol("KO").Sell("10").OnDate(testutil.Date(2024, time.February, 1)).Build(t, db)

		if err := svc.Holdings.RecalculateHoldings(ctx, owner); err != nil {
			t.Fatalf("RecalculateHoldings() returned unexpected error: %v", err)
		}

		holdings, err := svc.Holdings.ListHoldings(ctx, owner)
		if err != nil {
			t.Fatalf("ListHoldings() returned unexpected error: %v", err)
		}
		if len(holdings) != 1 {
			t.Fatalf("Expected 1 holding (KO fully sold), got %d", len(holdings))
		}
		h := holdings[0]
		if h.Symbol != "MSFT" || !h.Quantity.Equal(testutil.Dec("15")) {
			t.Errorf("Got %s x %s, want MSFT x 15", h.Symbol, h.Quantity)
		}
		if got := h.AverageCost.Round(2); !got.Equal(testutil.Dec("283.33")) {
			t.Errorf("AverageCost = %s, want 283.33", got)
		}
	})

	t.Run("rebuild is idempotent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestServices(t, db, nil, now)
		owner := testutil.MakeOwnerID()

		testutil.NewTrade(owner).WithSymbol("AAPL").Buy("3", "150.5").Build(t, db)
		testutil.NewTrade(owner).WithSymbol("JNJ").Buy("7", "160").Build(t, db)

		if err := svc.Holdings.RecalculateHoldings(ctx, owner); err != nil {
			t.Fatalf("first RecalculateHoldings() failed: %v", err)
		}
		first, _ := svc.Holdings.ListHoldings(ctx, owner)

		if err := svc.Holdings.RecalculateHoldings(ctx, owner); err != nil {
			t.Fatalf("second RecalculateHoldings() failed: %v", err)
		}
		second, _ := svc.Holdings.ListHoldings(ctx, owner)

		if len(first) != len(second) {
			t.Fatalf("Holding count changed: %d -> %d", len(first), len(second))
		}
		for i := range first {
			a, b := first[i], second[i]
			if a.Symbol != b.Symbol || !a.Quantity.Equal(b.Quantity) || !a.AverageCost.Equal(b.AverageCost) || !a.AcquiredOn.Equal(b.AcquiredOn) {
				t.Errorf("Holding %d changed: %+v -> %+v", i, a, b)
			}
		}
	})

	t.Run("failed rebuild keeps previous holdings", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestServices(t, db, nil, now)
		owner := testutil.MakeOwnerID()

		testutil.NewTrade(owner).WithSymbol("AAPL").Buy("5", "100").Build(t, db)
		if err := svc.Holdings.RecalculateHoldings(ctx, owner); err != nil {
			t.Fatalf("RecalculateHoldings() failed: %v", err)
		}

		_, err := db.Exec(`
			CREATE TRIGGER fail_bad_holding BEFORE INSERT ON holding
			WHEN NEW.symbol = 'BAD'
			BEGIN SELECT RAISE(ABORT, 'rejected'); END
		`)
		if err != nil {
			t.Fatalf("Failed to create trigger: %v", err)
		}
		testutil.NewTrade(owner).WithSymbol("AAPL").Buy("5", "200").Build(t, db)
		testutil.NewTrade(owner).WithSymbol("BAD").Buy("1", "1").Build(t, db)

		if err := svc.Holdings.RecalculateHoldings(ctx, owner); err == nil {
			t.Fatal("Expected rebuild to fail")
		}

		holdings, _ := svc.Holdings.ListHoldings(ctx, owner)
		if len(holdings) != 1 || !holdings[0].Quantity.Equal(testutil.Dec("5")) || !holdings[0].AverageCost.Equal(testutil.Dec("100")) {
			t.Errorf("Expected the previous AAPL 5 @ 100 holding, got %+v", holdings)
		}
	})

	t.Run("failing ledger change is rolled back", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestServices(t, db, nil, now)
		owner := testutil.MakeOwnerID()
		boom := errors.New("boom")

		tradeRepo := repository.NewTradeRepository(db)

		err := svc.Holdings.MutateLedger(ctx, owner, func(ctx context.Context) error {
			trade := testutil.NewTrade(owner).WithSymbol("T").Model()
			if err := tradeRepo.InsertTrade(ctx, &trade); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Errorf("Expected boom, got %v", err)
		}

		if n := testutil.CountRows(t, db, "trade"); n != 0 {
			t.Errorf("Expected the trade insert to be rolled back, found %d trades", n)
		}
	})

	t.Run("concurrent rebuilds of one owner are serialised", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestServices(t, db, nil, now)
		owner := testutil.MakeOwnerID()

		for i := 1; i <= 5; i++ {
			testutil.NewTrade(owner).WithSymbol("VZ").Buy("2", "40").OnDate(testutil.Date(2024, time.January, i)).Build(t, db)
		}

		var wg sync.WaitGroup
		errs := make(chan error, 8)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- svc.Holdings.RecalculateHoldings(ctx, owner)
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			if err != nil {
				t.Errorf("RecalculateHoldings() returned unexpected error: %v", err)
			}
		}

		holdings, _ := svc.Holdings.ListHoldings(ctx, owner)
		if len(holdings) != 1 || !holdings[0].Quantity.Equal(testutil.Dec("10")) {
			t.Errorf("Expected VZ x 10, got %+v", holdings)
		}
	})
}
