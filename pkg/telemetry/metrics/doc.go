// Package metrics provides Prometheus metrics for the health impact service.
//
// A single Collector registers every metric family on its own registry:
//
//   - HTTP request count, latency and in-flight gauge per route
//   - evaluation outcomes and engine latency
//   - element results by risk level and skipped fields by reason
//   - rule reload attempts, latency and the active element count
//   - catalog cache hits, misses, size and evictions
//
// Free-form label values (routes, element symbols) pass through a
// CardinalityLimiter; values beyond the limit are reported as "other".
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
package metrics
