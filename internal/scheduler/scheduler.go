package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"github.com/rickgao/insider-trades/internal/metrics"
)

// Job runs one batch.
type Job interface {
	Run(ctx context.Context) (metrics.Snapshot, error)
}

// JobFunc is a function adapter for Job.
type JobFunc func(context.Context) (metrics.Snapshot, error)

func (f JobFunc) Run(ctx context.Context) (metrics.Snapshot, error) {
	return f(ctx)
}

// Config holds scheduler configuration.
type Config struct {
	Spec       string // standard 5-field cron spec or descriptor (@hourly, @every 1h)
	RunOnStart bool   // run one batch immediately on Start
}

// Stats counts scheduler activity.
type Stats struct {
	Runs    int64
	Failed  int64 // batches aborted or completed with errors
	Skipped int64 // ticks dropped because a batch was still running
}

// Scheduler triggers a Job on a cron schedule.
type Scheduler struct {
	cfg    Config
	job    Job
	logger *slog.Logger

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc

	wg      sync.WaitGroup
	running atomic.Bool
	runs    atomic.Int64
	failed  atomic.Int64
	skipped atomic.Int64
}

// New creates a new Scheduler.
func New(cfg Config, job Job, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cfg:    cfg,
		job:    job,
		logger: logger,
	}
}

// Start registers the job and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.cron != nil {
		return errors.New("scheduler already started")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron = cron.New()

	id, err := s.cron.AddFunc(s.cfg.Spec, s.tick)
	if err != nil {
		s.cancel()
		s.cron = nil
		return fmt.Errorf("schedule %q: %w", s.cfg.Spec, err)
	}

	s.cron.Start()

	s.logger.Info("scheduler started",
		"spec", s.cfg.Spec,
		"next", s.cron.Entry(id).Next,
	)

	// The startup run is not tracked by cron.Stop.
	if s.cfg.RunOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.tick()
		}()
	}

	return nil
}

// Stop cancels a running batch and waits for it to return.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	s.cancel()

	cronDone := s.cron.Stop()
	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped", "runs", s.runs.Load(), "skipped", s.skipped.Load())
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns activity counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Runs:    s.runs.Load(),
		Failed:  s.failed.Load(),
		Skipped: s.skipped.Load(),
	}
}

// tick runs one batch unless one is already running.
func (s *Scheduler) tick() {
	if !s.running.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		s.logger.Warn("previous batch still running, tick skipped")
		return
	}
	defer s.running.Store(false)

	if s.ctx.Err() != nil {
		return
	}

	s.runs.Add(1)
	snap, err := s.job.Run(s.ctx)
	if err != nil || snap.ExitCode != 0 {
		s.failed.Add(1)
	}
	if err != nil {
		s.logger.Error("scheduled batch failed", "error", err, "batch", snap)
		return
	}
	s.logger.Info("scheduled batch finished", "batch", snap)
}
