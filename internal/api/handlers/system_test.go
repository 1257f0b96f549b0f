package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/model"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/scheduler"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/service"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/testutil"
)

func TestSystemHandler_Health(t *testing.T) {
	setupHandler := func(t *testing.T) (*SystemHandler, *sql.DB) {
		t.Helper()
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestServices(t, db, nil, time.Now())
		return NewSystemHandler(svc.System, scheduler.New(0)), db
	}

	t.Run("returns healthy status when database is connected", func(t *testing.T) {
		handler, _ := setupHandler(t)

		w := httptest.NewRecorder()
		handler.Health(w, httptest.NewRequest(http.MethodGet, "/api/system/health", nil))

		if w.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		body := testutil.DecodeJSON[HealthResponse](t, w)
		if body.Status != "healthy" || body.Database != "connected" || body.Error != "" {
			t.Errorf("Unexpected health response: %+v", body)
		}
	})

	t.Run("returns 503 when database is disconnected", func(t *testing.T) {
		handler, db := setupHandler(t)

		// Close the database connection to simulate failure
		db.Close()

		w := httptest.NewRecorder()
		handler.Health(w, httptest.NewRequest(http.MethodGet, "/api/system/health", nil))

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected 503, got %d: %s", w.Code, w.Body.String())
		}

		body := testutil.DecodeJSON[HealthResponse](t, w)
		if body.Status != "unhealthy" || body.Error == "" {
			t.Errorf("Unexpected health response: %+v", body)
		}
	})
}

func TestSystemHandler_Version(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestServices(t, db, nil, time.Now())
	handler := NewSystemHandler(svc.System, scheduler.New(0))

	w := httptest.NewRecorder()
	handler.Version(w, httptest.NewRequest(http.MethodGet, "/api/system/version", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	info := testutil.DecodeJSON[model.VersionInfo](t, w)
	if info.AppVersion != service.Version {
		t.Errorf("AppVersion = %q, want %q", info.AppVersion, service.Version)
	}
	if info.DbVersion < 1 {
		t.Errorf("DbVersion = %d, want the applied migration", info.DbVersion)
	}
}

// TestSystemHandler_RunJob tests starting a background job on demand.
//
// WHY: Operators back-fill dividends or refresh prices after an outage without
// waiting for the next tick. The request must not block on the run.
func TestSystemHandler_RunJob(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestServices(t, db, nil, time.Now())

	jobs := scheduler.New(time.Minute)
	var runs atomic.Int32
	ran := make(chan struct{}, 1)
	if err := jobs.AddJob("price-refresh", "@every 15m", func(context.Context) error {
		runs.Add(1)
		ran <- struct{}{}
		return nil
	}); err != nil {
		t.Fatalf("AddJob() returned unexpected error: %v", err)
	}
	handler := NewSystemHandler(svc.System, jobs)

	t.Run("known job is started", func(t *testing.T) {
		req := testutil.NewRequestWithURLParams(http.MethodPost, "/api/system/jobs/price-refresh/run", map[string]string{"name": "price-refresh"})
		w := httptest.NewRecorder()
		handler.RunJob(w, req)

		if w.Code != http.StatusAccepted {
			t.Fatalf("Expected 202, got %d: %s", w.Code, w.Body.String())
		}
		body := testutil.DecodeJSON[JobResponse](t, w)
		if body.Job != "price-refresh" || body.Status != "started" {
			t.Errorf("Unexpected response: %+v", body)
		}

		select {
		case <-ran:
		case <-time.After(5 * time.Second):
			t.Fatal("Expected the job to run")
		}
		if n := runs.Load(); n != 1 {
			t.Errorf("Expected 1 run, got %d", n)
		}
	})

	t.Run("unknown job is 404", func(t *testing.T) {
		req := testutil.NewRequestWithURLParams(http.MethodPost, "/api/system/jobs/nope/run", map[string]string{"name": "nope"})
		w := httptest.NewRecorder()
		handler.RunJob(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("lists job names", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ListJobs(w, httptest.NewRequest(http.MethodGet, "/api/system/jobs", nil))

		names := testutil.DecodeJSON[[]string](t, w)
		if len(names) != 1 || names[0] != "price-refresh" {
			t.Errorf("ListJobs() = %v, want [price-refresh]", names)
		}
	})
}
