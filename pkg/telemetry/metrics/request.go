package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"waterwatch-hq/healthimpact/pkg/config"
)

// RequestMetrics tracks HTTP API traffic.
//
// Metrics:
//   - <ns>_<sub>_http_requests_total: requests by route, method and status code
//   - <ns>_<sub>_http_request_duration_seconds: latency by route and method
//   - <ns>_<sub>_http_requests_in_flight: requests currently being served
type RequestMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
}

// NewRequestMetrics creates and registers request metrics with the provided registry.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests served",
			},
			[]string{"route", "method", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"route", "method"},
		),

		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being served",
			},
		),
	}

	registry.MustRegister(rm.requestsTotal, rm.requestDuration, rm.inFlight)
	return rm
}

// RecordRequest records a completed request.
func (rm *RequestMetrics) RecordRequest(route, method, status string, duration time.Duration) {
	rm.requestsTotal.WithLabelValues(route, method, status).Inc()
	rm.requestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}
