package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sync"
	"time"
)

// GitWatcher polls a GitSource's remote and reloads the rules when a new
// commit touches the rule document. Commits that only change other files
// advance the checkout without a reload. A commit with an invalid document
// leaves the active rules in place until a later commit fixes it.
type GitWatcher struct {
	source   *GitSource
	reloader *Reloader
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewGitWatcher creates an idle watcher that polls every interval.
func NewGitWatcher(src *GitSource, reloader *Reloader, interval time.Duration, logger *slog.Logger) (*GitWatcher, error) {
	if src == nil {
		return nil, errors.New("git source is nil")
	}
	if reloader == nil {
		return nil, errors.New("reloader is nil")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %v", interval)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &GitWatcher{
		source:   src,
		reloader: reloader,
		interval: interval,
		logger:   logger.With("component", "rules.git_watcher"),
	}, nil
}

// Start begins polling in the background. It returns an error if the
// watcher is already running.
func (w *GitWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return errors.New("git watcher already running")
	}

	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.running = true

	w.logger.Info("git watcher started",
		"source", w.source.Describe(),
		"poll_interval", w.interval,
	)

	go w.pollLoop(ctx, w.stopCh, w.doneCh)
	return nil
}

// Stop halts polling and waits for an in-flight check to finish.
func (w *GitWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	done := w.doneCh
	w.mu.Unlock()

	<-done
	w.logger.Info("git watcher stopped")
}

// IsRunning reports whether the poll loop is active.
func (w *GitWatcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *GitWatcher) pollLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			if _, err := w.CheckNow(ctx); err != nil {
				w.logger.Error("rules repository check failed", "error", err)
			}
		}
	}
}

// CheckNow pulls once and reloads when the rule document changed. It
// reports whether the active rules were swapped.
func (w *GitWatcher) CheckNow(ctx context.Context) (bool, error) {
	result, err := w.source.Pull(ctx)
	if err != nil {
		return false, err
	}
	if !result.HadChanges {
		return false, nil
	}

	w.logger.Info("detected rules repository changes",
		"from_sha", shortSHA(result.FromSHA),
		"to_sha", shortSHA(result.ToSHA),
		"changed_files", len(result.ChangedFiles),
	)

	if !touches(result.ChangedFiles, w.source.RulesPath()) {
		w.logger.Debug("rule document unchanged, skipping reload", "changed_files", result.ChangedFiles)
		return false, nil
	}

	// The reloader logs failures and keeps the active rules.
	return w.reloader.Reload(ctx)
}

func touches(files []string, rulesPath string) bool {
	for _, f := range files {
		if path.Clean(f) == rulesPath {
			return true
		}
	}
	return false
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
