package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"waterwatch-hq/healthimpact/pkg/healthrules"
)

// Reload outcomes reported to observers.
const (
	StatusSuccess   = "success"
	StatusUnchanged = "unchanged"
	StatusFailure   = "failure"
)

// Target is the component whose rules are replaced on reload.
type Target interface {
	Rules() *healthrules.Store
	SwapRules(store *healthrules.Store)
}

// Observer receives reload outcomes, typically a metrics collector.
type Observer interface {
	RecordRulesReload(status string, duration time.Duration)
	SetRulesLoaded(elements int)
}

// Status is a snapshot of the reloader's last attempt.
type Status struct {
	LastAttempt time.Time
	LastSuccess time.Time
	LastError   error
	Checksum    string
	Reloads     int
	Failures    int
}

// Reloader loads rules from a Source and swaps them into a Target. A failed
// load leaves the target's current rules in place.
type Reloader struct {
	source   Source
	target   Target
	observer Observer
	logger   *slog.Logger

	mu     sync.Mutex
	status Status
}

// NewReloader creates a reloader. observer may be nil.
func NewReloader(src Source, target Target, observer Observer, logger *slog.Logger) (*Reloader, error) {
	if src == nil {
		return nil, errors.New("rule source is nil")
	}
	if target == nil {
		return nil, errors.New("reload target is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Reloader{
		source:   src,
		target:   target,
		observer: observer,
		logger:   logger.With("component", "rules.reloader"),
	}
	if current := target.Rules(); current != nil {
		r.status.Checksum = current.Checksum()
	}
	return r, nil
}

// Reload loads the source and swaps the result in when its content differs
// from the active rules. It reports whether a swap happened.
func (r *Reloader) Reload(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	r.status.LastAttempt = start

	store, err := r.source.Load(ctx)
	if err != nil {
		r.status.LastError = err
		r.status.Failures++
		r.observe(StatusFailure, start, 0)
		r.logger.Error("rule reload failed, keeping active rules",
			"source", r.source.Describe(),
			"active_checksum", r.status.Checksum,
			"error", err,
		)
		return false, fmt.Errorf("reload rules from %s: %w", r.source.Describe(), err)
	}

	r.status.LastError = nil
	r.status.LastSuccess = time.Now()

	if store.Checksum() == r.status.Checksum {
		r.observe(StatusUnchanged, start, store.Len())
		r.logger.Debug("rules unchanged", "source", r.source.Describe())
		return false, nil
	}

	r.target.SwapRules(store)
	r.status.Checksum = store.Checksum()
	r.status.Reloads++
	r.observe(StatusSuccess, start, store.Len())

	r.logger.Info("rules reloaded",
		"source", r.source.Describe(),
		"version", store.Version(),
		"elements", store.Len(),
		"checksum", store.Checksum(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return true, nil
}

// Status returns the outcome of the most recent reload attempt.
func (r *Reloader) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Reloader) observe(status string, start time.Time, elements int) {
	if r.observer == nil {
		return
	}
	r.observer.RecordRulesReload(status, time.Since(start))
	if status != StatusFailure {
		r.observer.SetRulesLoaded(elements)
	}
}
