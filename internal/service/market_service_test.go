package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/apperrors"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/marketdata"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/model"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/testutil"
)

// TestMarketService_GetQuote tests price snapshot freshness.
//
// WHY: Quotes are rate limited upstream. A fresh snapshot must be served
// without a provider call, and a provider outage must not blank out prices
// that are merely stale.
func TestMarketService_GetQuote(t *testing.T) {
	ctx := context.Background()
	now := testutil.Date(2024, time.June, 3).Add(15 * time.Hour)

	t.Run("fresh snapshot skips the provider", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		provider := testutil.NewMockProvider().WithQuote("KO", "99")
		svc := testutil.NewTestServices(t, db, provider, now)
		testutil.CreateSnapshot(t, db, "KO", "60", now.Add(-5*time.Minute))

		res := svc.Market.GetQuote(ctx, "KO")
		if !res.IsOK() || !res.Value.Price.Equal(testutil.Dec("60")) {
			t.Errorf("GetQuote() = %+v, want snapshot price 60", res)
		}
		if n := provider.CallCount("quote"); n != 0 {
			t.Errorf("Expected no provider call, got %d", n)
		}
	})

	t.Run("stale snapshot is refreshed and stored", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		provider := testutil.NewMockProvider().WithQuote("KO", "62")
		svc := testutil.NewTestServices(t, db, provider, now)
		testutil.CreateSnapshot(t, db, "KO", "60", now.Add(-time.Hour))

		res := svc.Market.GetQuote(ctx, "KO")
		if !res.IsOK() || !res.Value.Price.Equal(testutil.Dec("62")) {
			t.Errorf("GetQuote() = %+v, want provider price 62", res)
		}

		// The refreshed snapshot is now fresh.
		_ = svc.Market.GetQuote(ctx, "KO")
		if n := provider.CallCount("quote"); n != 1 {
			t.Errorf("Expected exactly 1 provider call, got %d", n)
		}
	})

	t.Run("stale snapshot is served when the provider fails", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		provider := testutil.NewMockProvider().WithError("KO", errors.New("429 too many requests"))
		svc := testutil.NewTestServices(t, db, provider, now)
		testutil.CreateSnapshot(t, db, "KO", "60", now.Add(-48*time.Hour))

		res := svc.Market.GetQuote(ctx, "KO")
		if !res.IsOK() || !res.Value.Price.Equal(testutil.Dec("60")) {
			t.Errorf("GetQuote() = %+v, want stale price 60", res)
		}
	})

	t.Run("no snapshot and a failing provider is a source error", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		provider := testutil.NewMockProvider().WithError("KO", errors.New("connection refused"))
		svc := testutil.NewTestServices(t, db, provider, now)

		res := svc.Market.GetQuote(ctx, "KO")
		if res.Status != marketdata.StatusSourceError || res.Reason == "" {
			t.Errorf("GetQuote() = %+v, want source error with reason", res)
		}
	})

	t.Run("unknown symbol is no data", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestServices(t, db, nil, now)

		if res := svc.Market.GetQuote(ctx, "NOPE"); res.Status != marketdata.StatusNoData {
			t.Errorf("GetQuote() status = %s, want no_data", res.Status)
		}
	})
}

// TestMarketService_GetQuotes tests the bounded fan-out.
func TestMarketService_GetQuotes(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	provider := testutil.NewMockProvider().
		WithQuote("A", "1").
		WithQuote("B", "2").
		WithQuote("C", "3").
		WithError("D", errors.New("boom"))
	svc := testutil.NewTestServices(t, db, provider, testutil.Date(2024, time.June, 3))

	results := svc.Market.GetQuotes(ctx, []string{"A", "B", "C", "D", "E"})

	if len(results) != 5 {
		t.Fatalf("Expected 5 results, got %d", len(results))
	}
	for _, sym := range []string{"A", "B", "C"} {
		if !results[sym].IsOK() {
			t.Errorf("results[%s] = %+v, want ok", sym, results[sym])
		}
	}
	if results["D"].Status != marketdata.StatusSourceError {
		t.Errorf("results[D] status = %s, want source_error", results["D"].Status)
	}
	if results["E"].Status != marketdata.StatusNoData {
		t.Errorf("results[E] status = %s, want no_data", results["E"].Status)
	}
}

// TestMarketService_GetProfile tests profile caching and the default fallback.
func TestMarketService_GetProfile(t *testing.T) {
	ctx := context.Background()
	now := testutil.Date(2024, time.June, 3)

	t.Run("profiles are cached", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		provider := testutil.NewMockProvider().WithProfile("KO", "Coca-Cola Co", "Consumer Defensive")
		svc := testutil.NewTestServices(t, db, provider, now)

		first := svc.Market.GetProfile(ctx, "KO")
		second := svc.Market.GetProfile(ctx, "KO")

		if first != second || first.Sector != "Consumer Defensive" {
			t.Errorf("GetProfile() = %+v then %+v", first, second)
		}
		if n := provider.CallCount("profile"); n != 1 {
			t.Errorf("Expected 1 provider call, got %d", n)
		}
	})

	t.Run("missing profile falls back to defaults", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		provider := testutil.NewMockProvider().WithProfile("XYZ", "", "")
		svc := testutil.NewTestServices(t, db, provider, now)

		if got := svc.Market.GetProfile(ctx, "NOPE"); got != model.DefaultProfile("NOPE") {
			t.Errorf("GetProfile(NOPE) = %+v, want default", got)
		}

		got := svc.Market.GetProfile(ctx, "XYZ")
		if got.Name != "XYZ" || got.Sector != model.DefaultSector {
			t.Errorf("GetProfile(XYZ) = %+v, want name and sector filled in", got)
		}
	})
}

// TestMarketService_GetDividendHistory tests the NoData mapping and caching.
//
// WHY: A symbol that never paid is a normal answer, not a failure. It must be
// cached like data so schedules do not hammer the provider for it.
func TestMarketService_GetDividendHistory(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	provider := testutil.NewMockProvider().
		WithDividends("KO", providerDividend(testutil.Date(2024, time.February, 14), testutil.Date(2024, time.April, 1), "0.485")).
		WithError("T", errors.New("upstream timeout"))
	svc := testutil.NewTestServices(t, db, provider, testutil.Date(2024, time.June, 3))

	if res := svc.Market.GetDividendHistory(ctx, "KO"); !res.IsOK() || len(res.Value) != 1 {
		t.Errorf("GetDividendHistory(KO) = %+v, want 1 event", res)
	}

	for range 2 {
		if res := svc.Market.GetDividendHistory(ctx, "BRK.B"); res.Status != marketdata.StatusNoData {
			t.Errorf("GetDividendHistory(BRK.B) status = %s, want no_data", res.Status)
		}
	}
	if n := provider.CallCount("dividends"); n != 2 {
		t.Errorf("Expected 2 provider calls (KO, BRK.B once), got %d", n)
	}

	for range 2 {
		if res := svc.Market.GetDividendHistory(ctx, "T"); res.Status != marketdata.StatusSourceError {
			t.Errorf("GetDividendHistory(T) status = %s, want source_error", res.Status)
		}
	}
	if n := provider.CallCount("dividends"); n != 4 {
		t.Errorf("Expected failures not to be cached, got %d calls", n)
	}

	if res := svc.Market.GetSplits(ctx, "KO"); !res.IsOK() || len(res.Value) != 0 {
		t.Errorf("GetSplits(KO) = %+v, want ok and empty", res)
	}
}

// TestMarketService_SearchSymbols tests query normalization, caching and the
// result cap of symbol search.
func TestMarketService_SearchSymbols(t *testing.T) {
	ctx := context.Background()
	now := testutil.Date(2024, time.June, 3)

	t.Run("matches ticker or name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		provider := testutil.NewMockProvider().
			WithProfile("KO", "Coca-Cola Co", "Consumer Defensive").
			WithProfile("PEP", "PepsiCo Inc", "Consumer Defensive").
			WithProfile("COKE", "Coca-Cola Consolidated", "Consumer Defensive")
		svc := testutil.NewTestServices(t, db, provider, now)

		byName, err := svc.Market.SearchSymbols(ctx, "  coca ")
		if err != nil {
			t.Fatalf("SearchSymbols() returned unexpected error: %v", err)
		}
		if len(byName) != 2 || byName[0].Symbol != "COKE" || byName[1].Symbol != "KO" {
			t.Errorf("SearchSymbols(coca) = %+v, want COKE and KO", byName)
		}

		if _, err := svc.Market.SearchSymbols(ctx, "COCA"); err != nil {
			t.Fatalf("SearchSymbols() returned unexpected error: %v", err)
		}
		if n := provider.CallCount("search"); n != 1 {
			t.Errorf("Expected the upper-cased query to be cached, got %d calls", n)
		}
	})

	t.Run("blank query skips the provider", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		provider := testutil.NewMockProvider()
		svc := testutil.NewTestServices(t, db, provider, now)

		matches, err := svc.Market.SearchSymbols(ctx, "   ")
		if err != nil || matches == nil || len(matches) != 0 {
			t.Errorf("SearchSymbols(blank) = %v, %v, want empty list", matches, err)
		}
		if n := provider.CallCount("search"); n != 0 {
			t.Errorf("Expected no provider call, got %d", n)
		}
	})

	t.Run("at most ten results", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		provider := testutil.NewMockProvider()
		for i := range 12 {
			provider.WithProfile(fmt.Sprintf("FUND%02d", i), "Income Fund", "Financial Services")
		}
		svc := testutil.NewTestServices(t, db, provider, now)

		matches, err := svc.Market.SearchSymbols(ctx, "fund")
		if err != nil {
			t.Fatalf("SearchSymbols() returned unexpected error: %v", err)
		}
		if len(matches) != marketdata.MaxSearchResults {
			t.Errorf("Expected %d matches, got %d", marketdata.MaxSearchResults, len(matches))
		}
	})

	t.Run("provider failure is a source error", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		provider := testutil.NewMockProvider().WithError("KO", errors.New("upstream timeout"))
		svc := testutil.NewTestServices(t, db, provider, now)

		if _, err := svc.Market.SearchSymbols(ctx, "ko"); !errors.Is(err, apperrors.ErrSourceUnavailable) {
			t.Errorf("Expected ErrSourceUnavailable, got %v", err)
		}
	})
}

// TestMarketService_GetPriceHistory tests daily closes and the NoData mapping.
func TestMarketService_GetPriceHistory(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	provider := testutil.NewMockProvider().WithPriceHistory("KO",
		model.PricePoint{Date: testutil.Date(2024, time.May, 31), Close: testutil.Dec("60")},
		model.PricePoint{Date: testutil.Date(2024, time.June, 3), Close: testutil.Dec("61.5")},
	)
	svc := testutil.NewTestServices(t, db, provider, testutil.Date(2024, time.June, 3))

	for range 2 {
		res := svc.Market.GetPriceHistory(ctx, "KO", 6)
		if !res.IsOK() || len(res.Value) != 2 {
			t.Fatalf("GetPriceHistory(KO) = %+v, want 2 points", res)
		}
	}
	if n := provider.CallCount("history"); n != 1 {
		t.Errorf("Expected 1 provider call, got %d", n)
	}

	if res := svc.Market.GetPriceHistory(ctx, "NOPE", 6); res.Status != marketdata.StatusNoData {
		t.Errorf("GetPriceHistory(NOPE) status = %s, want no_data", res.Status)
	}
}

// TestMarketService_RefreshPrices tests the scheduled refresh of held symbols.
func TestMarketService_RefreshPrices(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	provider := testutil.NewMockProvider().WithQuote("KO", "60").WithError("PG", errors.New("boom"))
	svc := testutil.NewTestServices(t, db, provider, testutil.Date(2024, time.June, 3))

	owner := testutil.MakeOwnerID()
	testutil.NewTrade(owner).WithSymbol("KO").Build(t, db)
	testutil.NewTrade(owner).WithSymbol("PG").Build(t, db)
	if err := svc.Holdings.RecalculateHoldings(ctx, owner); err != nil {
		t.Fatalf("RecalculateHoldings() failed: %v", err)
	}

	refreshed, err := svc.Market.RefreshPrices(ctx)
	if err != nil {
		t.Fatalf("RefreshPrices() returned unexpected error: %v", err)
	}
	if refreshed != 1 {
		t.Errorf("RefreshPrices() = %d, want 1", refreshed)
	}
	if n := testutil.CountRows(t, db, "price_snapshot"); n != 1 {
		t.Errorf("Expected 1 snapshot, found %d", n)
	}
}
