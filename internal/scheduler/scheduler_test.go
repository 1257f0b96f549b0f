package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/logging"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/scheduler"
)

// TestScheduler tests job registration and the run wrapper.
//
// WHY: The back-fill and price refresh run unattended. A panic or error in a
// run must not take the process down, and a slow run must not overlap with
// the next tick.
func TestScheduler(t *testing.T) {
	t.Run("rejects invalid spec and duplicates", func(t *testing.T) {
		s := scheduler.New(0)
		noop := func(context.Context) error { return nil }

		if err := s.AddJob("bad", "not a spec", noop); err == nil {
			t.Error("Expected error for invalid spec")
		}
		if err := s.AddJob("sync", "@every 1h", noop); err != nil {
			t.Fatalf("AddJob() returned unexpected error: %v", err)
		}
		if err := s.AddJob("sync", "@every 2h", noop); err == nil {
			t.Error("Expected error for duplicate job name")
		}
	})

	t.Run("trigger runs the job with a request id", func(t *testing.T) {
		s := scheduler.New(time.Minute)
		var rqID string
		_ = s.AddJob("refresh", "@every 1h", func(ctx context.Context) error {
			rqID = logging.RequestID(ctx)
			if _, ok := ctx.Deadline(); !ok {
				t.Error("Expected the run to have a deadline")
			}
			return errors.New("provider down")
		})

		done, ok := s.Trigger("refresh")
		if !ok {
			t.Fatal("Trigger() = false, want true")
		}
		<-done
		if rqID == "" {
			t.Error("Expected the run context to carry a request id")
		}
		if _, ok := s.Trigger("missing"); ok {
			t.Error("Trigger(missing) = true, want false")
		}
	})

	t.Run("panics are recovered", func(t *testing.T) {
		s := scheduler.New(0)
		var runs atomic.Int32
		_ = s.AddJob("boom", "@every 1h", func(context.Context) error {
			runs.Add(1)
			panic("unexpected nil holding")
		})

		for range 2 {
			done, _ := s.Trigger("boom")
			<-done
		}

		if n := runs.Load(); n != 2 {
			t.Errorf("Expected 2 runs after a panic, got %d", n)
		}
	})

	t.Run("overlapping run is skipped", func(t *testing.T) {
		s := scheduler.New(0)
		var runs atomic.Int32
		started := make(chan struct{})
		release := make(chan struct{})
		_ = s.AddJob("slow", "@every 1h", func(context.Context) error {
			runs.Add(1)
			close(started)
			<-release
			return nil
		})

		first, _ := s.Trigger("slow")
		<-started

		second, _ := s.Trigger("slow")
		select {
		case <-second:
		case <-time.After(5 * time.Second):
			t.Fatal("Expected the overlapping trigger to return at once")
		}
		close(release)
		<-first

		if n := runs.Load(); n != 1 {
			t.Errorf("Expected the overlapping run to be skipped, got %d runs", n)
		}
	})

	t.Run("jobs lists registered names", func(t *testing.T) {
		s := scheduler.New(0)
		noop := func(context.Context) error { return nil }
		_ = s.AddJob("price-refresh", "@every 15m", noop)
		_ = s.AddJob("dividend-sync", "0 3 * * *", noop)

		got := s.Jobs()
		if len(got) != 2 || got[0] != "dividend-sync" || got[1] != "price-refresh" {
			t.Errorf("Jobs() = %v, want sorted names", got)
		}
	})

	t.Run("stop waits for triggered runs", func(t *testing.T) {
		s := scheduler.New(0)
		var finished atomic.Bool
		started := make(chan struct{})
		_ = s.AddJob("sync", "@every 1h", func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			finished.Store(true)
			return ctx.Err()
		})

		if _, ok := s.Trigger("sync"); !ok {
			t.Fatal("Trigger() = false, want true")
		}
		<-started
		s.Stop(context.Background())

		if !finished.Load() {
			t.Error("Expected Stop to wait for the triggered run")
		}
	})

	t.Run("stop cancels the run context", func(t *testing.T) {
		s := scheduler.New(0)
		s.Start()
		s.Stop(context.Background())

		var cancelled bool
		_ = s.AddJob("late", "@every 1h", func(ctx context.Context) error {
			cancelled = ctx.Err() != nil
			return nil
		})
		done, _ := s.Trigger("late")
		<-done

		if !cancelled {
			t.Error("Expected runs after Stop to see a cancelled context")
		}
	})
}
