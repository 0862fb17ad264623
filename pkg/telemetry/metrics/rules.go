package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"waterwatch-hq/healthimpact/pkg/config"
)

// RulesMetrics tracks health rule reloads.
type RulesMetrics struct {
	reloadsTotal   *prometheus.CounterVec
	reloadDuration prometheus.Histogram
	loaded         prometheus.Gauge
	lastSuccess    prometheus.Gauge
}

// NewRulesMetrics creates and registers rule reload metrics.
func NewRulesMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RulesMetrics {
	rm := &RulesMetrics{
		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rules_reloads_total",
				Help:      "Total number of rule reload attempts by status",
			},
			[]string{"status"},
		),

		reloadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rules_reload_duration_seconds",
				Help:      "Time spent loading and validating rules in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 7),
			},
		),

		loaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rules_elements_loaded",
				Help:      "Number of element definitions in the active rules",
			},
		),

		lastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rules_last_reload_success_timestamp_seconds",
				Help:      "Unix time of the last successful rule reload",
			},
		),
	}

	registry.MustRegister(rm.reloadsTotal, rm.reloadDuration, rm.loaded, rm.lastSuccess)
	return rm
}

// RecordReload records one reload attempt. Only "success" moves the last
// success timestamp.
func (rm *RulesMetrics) RecordReload(status string, duration time.Duration) {
	rm.reloadsTotal.WithLabelValues(status).Inc()
	rm.reloadDuration.Observe(duration.Seconds())
	if status == "success" {
		rm.lastSuccess.SetToCurrentTime()
	}
}

// SetLoaded sets the active element count.
func (rm *RulesMetrics) SetLoaded(elements int) {
	rm.loaded.Set(float64(elements))
}
