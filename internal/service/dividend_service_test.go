package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/api/request"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/apperrors"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/model"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/testutil"
)

func providerDividend(exDate, payDate time.Time, amount string) model.DividendEvent {
	return model.DividendEvent{ExDate: exDate, PayDate: &payDate, Amount: testutil.Dec(amount)}
}

// TestDividendService_CreateDividend tests manual dividend entry.
//
// WHY: The (owner, symbol, ex-date) uniqueness is what keeps manual entries and
// the back-fill from counting the same payment twice.
func TestDividendService_CreateDividend(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestServices(t, db, nil, testutil.Date(2024, time.June, 1))
	owner := testutil.MakeOwnerID()

	req := request.CreateDividendRequest{
		Symbol:         "ko",
		Amount:         testutil.Dec("23"),
		AmountPerShare: decimal.NewNullDecimal(testutil.Dec("0.46")),
		PayDate:        "2024-04-01",
		ExDividendDate: "2024-03-14",
	}

	d, err := svc.Dividend.CreateDividend(ctx, owner, req)
	if err != nil {
		t.Fatalf("CreateDividend() returned unexpected error: %v", err)
	}
	if d.Symbol != "KO" || d.Source != model.DividendSourceManual || d.ID == "" {
		t.Errorf("Unexpected dividend: %+v", d)
	}

	_, err = svc.Dividend.CreateDividend(ctx, owner, req)
	if !errors.Is(err, apperrors.ErrDuplicateDividend) {
		t.Errorf("Expected ErrDuplicateDividend, got %v", err)
	}

	list, _ := svc.Dividend.ListDividends(ctx, owner, 2024)
	if len(list) != 1 {
		t.Errorf("Expected 1 dividend, got %d", len(list))
	}

	if err := svc.Dividend.DeleteDividend(ctx, owner, d.ID); err != nil {
		t.Fatalf("DeleteDividend() returned unexpected error: %v", err)
	}
	if err := svc.Dividend.DeleteDividend(ctx, owner, d.ID); !errors.Is(err, apperrors.ErrDividendNotFound) {
		t.Errorf("Expected ErrDividendNotFound, got %v", err)
	}
}

// TestDividendService_SyncDividends tests the dividend back-fill.
//
// WHY: The back-fill runs on a schedule. It must pay only on shares held at the
// ex-date, never insert the same payment twice, and keep completed symbols
// when another symbol's source fails.
func TestDividendService_SyncDividends(t *testing.T) {
	ctx := context.Background()
	now := testutil.Date(2024, time.June, 20)
	d := testutil.Date

	newProvider := func() *testutil.MockProvider {
		return testutil.NewMockProvider().
			WithDividends("KO",
				providerDividend(d(2024, time.February, 14), d(2024, time.April, 1), "0.485"),
				providerDividend(d(2024, time.May, 31), d(2024, time.July, 1), "0.485"),
				providerDividend(d(2024, time.November, 29), d(2024, time.December, 16), "0.485"),
			).
			WithDividends("MSFT",
				model.DividendEvent{ExDate: d(2024, time.February, 14), Amount: testutil.Dec("0.75")},
			).
			WithError("T", errors.New("upstream timeout"))
	}

	t.Run("inserts past ex-dates with quantity held", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestServices(t, db, newProvider(), now)
		owner := testutil.MakeOwnerID()

		testutil.NewTrade(owner).WithSymbol("KO").Buy("100", "60").OnDate(d(2024, time.January, 5)).Build(t, db)
		testutil.NewTrade(owner).WithSymbol("KO").Buy("50", "61").OnDate(d(2024, time.May, 31)).Build(t, db)
		testutil.NewTrade(owner).WithSymbol("MSFT").Buy("10", "400").OnDate(d(2024, time.March, 1)).Build(t, db)
		testutil.NewTrade(owner).WithSymbol("T").Buy("10", "17").OnDate(d(2024, time.January, 5)).Build(t, db)

		report, err := svc.Dividend.SyncDividends(ctx, owner)
		if err != nil {
			t.Fatalf("SyncDividends() returned unexpected error: %v", err)
		}

		if report.Checked != 3 || report.Inserted != 2 || report.Skipped != 0 {
			t.Errorf("Report = %+v, want checked 3, inserted 2, skipped 0", report)
		}
		if len(report.Failed) != 1 || report.Failed[0] != "T" {
			t.Errorf("Failed = %v, want [T]", report.Failed)
		}

		dividends, _ := svc.Dividend.ListDividends(ctx, owner, 0)
		if len(dividends) != 2 {
			t.Fatalf("Expected 2 dividends, got %d", len(dividends))
		}
		// February: 100 shares. May 31: the buy on the ex-date does not count.
		for _, div := range dividends {
			if div.Symbol != "KO" || !div.Amount.Equal(testutil.Dec("48.5")) {
				t.Errorf("Unexpected dividend %s %s paid %s", div.Symbol, div.Amount, div.PayDate.Format("2006-01-02"))
			}
			if div.Source != model.DividendSourceSync {
				t.Errorf("Source = %s, want sync", div.Source)
			}
		}
	})

	t.Run("rerun never duplicates", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		provider := newProvider()
		owner := testutil.MakeOwnerID()
		testutil.NewTrade(owner).WithSymbol("KO").Buy("100", "60").OnDate(d(2024, time.January, 5)).Build(t, db)

		if _, err := testutil.NewTestServices(t, db, provider, now).Dividend.SyncDividends(ctx, owner); err != nil {
			t.Fatalf("first SyncDividends() failed: %v", err)
		}

		// Past the gate, so the history is read and inserted again.
		later := testutil.NewTestServices(t, db, provider, now.Add(7*time.Hour))
		report, err := later.Dividend.SyncDividends(ctx, owner)
		if err != nil {
			t.Fatalf("second SyncDividends() failed: %v", err)
		}
		if report.Inserted != 0 || report.Skipped != 0 {
			t.Errorf("Second report = %+v, want nothing inserted or skipped", report)
		}
		if n := testutil.CountRows(t, db, "dividend"); n != 2 {
			t.Errorf("Expected 2 dividends, found %d", n)
		}
	})

	t.Run("recently synced symbols are skipped", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		provider := newProvider()
		svc := testutil.NewTestServices(t, db, provider, now)
		owner := testutil.MakeOwnerID()
		testutil.NewTrade(owner).WithSymbol("KO").Buy("100", "60").OnDate(d(2024, time.January, 5)).Build(t, db)

		if _, err := svc.Dividend.SyncDividends(ctx, owner); err != nil {
			t.Fatalf("first SyncDividends() failed: %v", err)
		}
		calls := provider.CallCount("dividends")

		report, err := svc.Dividend.SyncDividends(ctx, owner)
		if err != nil {
			t.Fatalf("second SyncDividends() failed: %v", err)
		}
		if report.Skipped != 1 {
			t.Errorf("Skipped = %d, want 1", report.Skipped)
		}
		if provider.CallCount("dividends") != calls {
			t.Error("Expected no provider call for a gated symbol")
		}
	})

	t.Run("manual entry for the same ex-date blocks the sync insert", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestServices(t, db, newProvider(), now)
		owner := testutil.MakeOwnerID()
		testutil.NewTrade(owner).WithSymbol("KO").Buy("100", "60").OnDate(d(2024, time.January, 5)).Build(t, db)
		testutil.NewDividend(owner, "KO").WithAmount("50", "0.5").WithExDate(d(2024, time.February, 14)).PaidOn(d(2024, time.April, 1)).Build(t, db)

		report, err := svc.Dividend.SyncDividends(ctx, owner)
		if err != nil {
			t.Fatalf("SyncDividends() failed: %v", err)
		}
		if report.Inserted != 1 {
			t.Errorf("Inserted = %d, want 1 (the May payout only)", report.Inserted)
		}
	})
}

// TestDividendService_SyncAllOwners tests the scheduled run over every owner.
func TestDividendService_SyncAllOwners(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	d := testutil.Date
	provider := testutil.NewMockProvider().WithDividends("KO", providerDividend(d(2024, time.February, 14), d(2024, time.April, 1), "0.5"))
	svc := testutil.NewTestServices(t, db, provider, d(2024, time.June, 1))

	for range 3 {
		testutil.NewTrade(testutil.MakeOwnerID()).WithSymbol("KO").Buy("10", "60").OnDate(d(2024, time.January, 2)).Build(t, db)
	}

	reports, err := svc.Dividend.SyncAllOwners(ctx)
	if err != nil {
		t.Fatalf("SyncAllOwners() returned unexpected error: %v", err)
	}
	if len(reports) != 3 {
		t.Errorf("Expected 3 reports, got %d", len(reports))
	}
	if n := testutil.CountRows(t, db, "dividend"); n != 3 {
		t.Errorf("Expected 3 dividends, found %d", n)
	}
}
