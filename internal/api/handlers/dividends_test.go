package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/api/request"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/model"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/testutil"
)

func setupDividendHandler(t *testing.T, provider *testutil.MockProvider) (*DividendHandler, *testutil.Services) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestServices(t, db, provider, testutil.Date(2024, time.June, 20))
	return NewDividendHandler(svc.Dividend), svc
}

func dividendBody(exDate string) request.CreateDividendRequest {
	return request.CreateDividendRequest{
		Symbol:         "KO",
		Amount:         testutil.Dec("48.5"),
		AmountPerShare: decimal.NewNullDecimal(testutil.Dec("0.485")),
		PayDate:        "2024-04-01",
		ExDividendDate: exDate,
	}
}

// TestDividendHandler_CreateDividend tests manual dividend entry over HTTP.
//
// WHY: A second entry for the same ex-date is a conflict the client must show,
// not a server error.
func TestDividendHandler_CreateDividend(t *testing.T) {
	t.Run("returns 201 then 409 for the same ex-date", func(t *testing.T) {
		handler, _ := setupDividendHandler(t, nil)
		owner := testutil.MakeOwnerID()

		w := httptest.NewRecorder()
		handler.CreateDividend(w, withOwner(testutil.NewJSONRequest(t, http.MethodPost, "/api/dividends", dividendBody("2024-03-14")), owner))
		if w.Code != http.StatusCreated {
			t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
		}
		created := testutil.DecodeJSON[model.Dividend](t, w)
		if created.Source != model.DividendSourceManual {
			t.Errorf("Source = %q, want manual", created.Source)
		}

		w = httptest.NewRecorder()
		handler.CreateDividend(w, withOwner(testutil.NewJSONRequest(t, http.MethodPost, "/api/dividends", dividendBody("2024-03-14")), owner))
		if w.Code != http.StatusConflict {
			t.Errorf("Expected 409, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("returns 400 when the ex-date follows the pay date", func(t *testing.T) {
		handler, _ := setupDividendHandler(t, nil)

		w := httptest.NewRecorder()
		handler.CreateDividend(w, withOwner(testutil.NewJSONRequest(t, http.MethodPost, "/api/dividends", dividendBody("2024-05-01")), testutil.MakeOwnerID()))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestDividendHandler_ListAndDelete(t *testing.T) {
	handler, svc := setupDividendHandler(t, nil)
	owner := testutil.MakeOwnerID()
	created, err := svc.Dividend.CreateDividend(t.Context(), owner, dividendBody("2024-03-14"))
	if err != nil {
		t.Fatalf("CreateDividend() failed: %v", err)
	}

	t.Run("filters by year", func(t *testing.T) {
		for year, want := range map[string]int{"2024": 1, "2023": 0} {
			w := httptest.NewRecorder()
			handler.ListDividends(w, withOwner(testutil.NewRequestWithQueryParams(http.MethodGet, "/api/dividends", map[string]string{"year": year}), owner))

			if list := testutil.DecodeJSON[[]model.Dividend](t, w); len(list) != want {
				t.Errorf("year %s: expected %d dividends, got %d", year, want, len(list))
			}
		}
	})

	t.Run("rejects a malformed year", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ListDividends(w, withOwner(testutil.NewRequestWithQueryParams(http.MethodGet, "/api/dividends", map[string]string{"year": "last"}), owner))

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})

	t.Run("delete returns 204 then 404", func(t *testing.T) {
		params := map[string]string{"id": created.ID}

		w := httptest.NewRecorder()
		handler.DeleteDividend(w, withOwner(testutil.NewRequestWithURLParams(http.MethodDelete, "/api/dividends/"+created.ID, params), owner))
		if w.Code != http.StatusNoContent {
			t.Fatalf("Expected 204, got %d: %s", w.Code, w.Body.String())
		}

		w = httptest.NewRecorder()
		handler.DeleteDividend(w, withOwner(testutil.NewRequestWithURLParams(http.MethodDelete, "/api/dividends/"+created.ID, params), owner))
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", w.Code)
		}
	})
}

func TestDividendHandler_SyncDividends(t *testing.T) {
	exDate := testutil.Date(2024, time.February, 14)
	payDate := testutil.Date(2024, time.April, 1)
	provider := testutil.NewMockProvider().WithDividends("KO", model.DividendEvent{ExDate: exDate, PayDate: &payDate, Amount: testutil.Dec("0.485")})
	handler, svc := setupDividendHandler(t, provider)
	owner := testutil.MakeOwnerID()

	if _, err := svc.Trades.CreateTrade(t.Context(), owner, tradeBody("KO", "buy", "100", "60", "2024-01-05")); err != nil {
		t.Fatalf("CreateTrade() failed: %v", err)
	}

	w := httptest.NewRecorder()
	handler.SyncDividends(w, withOwner(httptest.NewRequest(http.MethodPost, "/api/dividends/sync", nil), owner))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	report := testutil.DecodeJSON[model.DividendSyncReport](t, w)
	if report.Checked != 1 || report.Inserted != 1 || len(report.Failed) != 0 {
		t.Errorf("Unexpected report: %+v", report)
	}
}
