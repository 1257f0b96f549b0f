// Package scheduler runs the periodic background jobs, such as the dividend
// back-fill and the price refresh, and lets them be started on demand.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/logging"
)

type taskFn func(ctx context.Context) error

// Scheduler wraps a cron runner. A job never runs twice at the same time:
// a tick that arrives while the previous run is active is skipped.
type Scheduler struct {
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration

	mu   sync.Mutex
	jobs map[string]cron.EntryID

	// triggered tracks runs started by Trigger, which cron does not wait for.
	triggered sync.WaitGroup
}

// New creates a Scheduler. Every run gets its own context bounded by timeout;
// a non-positive timeout leaves runs unbounded.
func New(timeout time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	logger := cronLogger{}

	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(logger)), cron.WithLogger(logger)),
		ctx:     ctx,
		cancel:  cancel,
		timeout: timeout,
		jobs:    make(map[string]cron.EntryID),
	}
}

// Start begins firing jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return, or for ctx to end.
// Triggered runs are waited for as well.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	cronDone := s.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.triggered.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		slog.Warn("scheduler stop timed out", slog.String("err", ctx.Err().Error()))
	}
}

// AddJob registers fn under name with a cron spec such as "0 3 * * *" or "@every 15m".
func (s *Scheduler) AddJob(name, spec string, fn taskFn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("job %q already registered", name)
	}

	id, err := s.cron.AddFunc(spec, s.taskWithRecover(fn, name))
	if err != nil {
		slog.Error("Scheduler creating job error", slog.String("jobName", name), slog.String("spec", spec), slog.String("err", err.Error()))
		return fmt.Errorf("invalid schedule %q for job %q: %w", spec, name, err)
	}
	s.jobs[name] = id
	return nil
}

// Trigger starts the job name now in the background, with the same
// skip-if-running guard as scheduled runs. The returned channel is closed when
// the run returns, or at once when it was skipped. Reports whether the job exists.
func (s *Scheduler) Trigger(name string) (<-chan struct{}, bool) {
	s.mu.Lock()
	id, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}

	job := s.cron.Entry(id).WrappedJob
	done := make(chan struct{})
	s.triggered.Add(1)
	go func() {
		defer s.triggered.Done()
		defer close(done)
		job.Run()
	}()

	slog.Info("job triggered", slog.String("jobName", name))
	return done, true
}

// Jobs returns the names of the registered jobs.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Scheduler) taskWithRecover(fn taskFn, jobName string) func() {
	return func() {
		ctx := logging.EnsureRequestID(s.ctx)
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		rqID := logging.RequestID(ctx)

		defer func() {
			if r := recover(); r != nil {
				slog.Error(
					"Panic recovered in scheduler job",
					slog.String("rqID", rqID),
					slog.String("jobName", jobName),
					slog.Any("panic", r),
					slog.String("stacktrace", string(debug.Stack())),
				)
			}
		}()

		start := time.Now()
		slog.Info("job start", slog.String("rqID", rqID), slog.String("jobName", jobName))

		if err := fn(ctx); err != nil {
			slog.Error("job failed", slog.String("rqID", rqID), slog.String("jobName", jobName), slog.String("err", err.Error()))
			return
		}
		slog.Info("job completed", slog.String("rqID", rqID), slog.String("jobName", jobName), slog.Duration("duration", time.Since(start)))
	}
}

// cronLogger routes cron's own messages to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "err", err.Error())...)
}
