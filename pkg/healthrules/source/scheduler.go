package source

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler re-reads the rule source on a cron schedule. It complements the
// file watcher on filesystems where change notifications are unreliable,
// such as network mounts.
type Scheduler struct {
	reloader *Reloader
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewScheduler validates schedule (standard five-field cron syntax or a
// descriptor such as "@every 5m") and returns an idle scheduler.
func NewScheduler(reloader *Reloader, schedule string, logger *slog.Logger) (*Scheduler, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		reloader: reloader,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger.With("component", "rules.scheduler"),
	}, nil
}

// Start registers the reload job and starts the cron runner. The scheduler
// stops itself when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, func() { s.run(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule rule reload: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("rule reload scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	swapped, err := s.reloader.Reload(ctx)
	if err != nil {
		// Reloader already logged the failure with full context.
		return
	}
	s.logger.Debug("scheduled rule check completed", "swapped", swapped)
}

// Stop halts the cron runner and waits for an in-flight reload.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("rule reload scheduler stopped")
}

// IsRunning reports whether the scheduler is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled reload, or nil when idle.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if !s.running || len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
