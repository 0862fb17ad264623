package metrics

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"waterwatch-hq/healthimpact/pkg/config"
)

// overflowLabel replaces label values once the cardinality limit is reached.
const overflowLabel = "other"

// Collector owns every Prometheus metric of the service and gives the
// components one place to record into.
//
// It satisfies source.Observer (rule reloads) and catalog.CacheObserver
// (catalog cache), so it can be handed to those packages directly. When
// metrics are disabled every method is a no-op.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	requestMetrics    *RequestMetrics
	evaluationMetrics *EvaluationMetrics
	rulesMetrics      *RulesMetrics
	cacheMetrics      *CacheMetrics

	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a collector registered on registry. A nil registry
// gets a fresh one with the Go runtime and process collectors attached.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		cfg.RequestDurationBuckets = prometheus.DefBuckets
	}
	maxCardinality := cfg.MaxCardinality
	if maxCardinality <= 0 {
		maxCardinality = config.DefaultMaxCardinality
	}

	return &Collector{
		config:             cfg,
		registry:           registry,
		requestMetrics:     NewRequestMetrics(cfg, registry),
		evaluationMetrics:  NewEvaluationMetrics(cfg, registry),
		rulesMetrics:       NewRulesMetrics(cfg, registry),
		cacheMetrics:       NewCacheMetrics(cfg, registry),
		cardinalityLimiter: NewCardinalityLimiter(maxCardinality),
	}
}

// RecordHTTPRequest records one completed API request. route is the
// registered pattern, never the raw URL path.
func (c *Collector) RecordHTTPRequest(route, method string, status int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	if !c.cardinalityLimiter.Allow(fmt.Sprintf("route:%s", route)) {
		route = overflowLabel
	}
	c.requestMetrics.RecordRequest(route, method, strconv.Itoa(status), duration)
}

// IncInFlight and DecInFlight track requests currently being served.
func (c *Collector) IncInFlight() {
	if c.config.Enabled {
		c.requestMetrics.inFlight.Inc()
	}
}

func (c *Collector) DecInFlight() {
	if c.config.Enabled {
		c.requestMetrics.inFlight.Dec()
	}
}

// RecordEvaluation records the outcome of one sample evaluation. overall is
// the overall risk level text, or empty when the evaluation failed.
func (c *Collector) RecordEvaluation(outcome, overall string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	if overall == "" {
		overall = "none"
	}
	c.evaluationMetrics.RecordEvaluation(outcome, overall, duration)
}

// RecordElementResult counts one classified element.
func (c *Collector) RecordElementResult(element, riskLevel string) {
	if !c.config.Enabled {
		return
	}
	if !c.cardinalityLimiter.Allow(fmt.Sprintf("element:%s", element)) {
		element = overflowLabel
	}
	c.evaluationMetrics.RecordElement(element, riskLevel)
}

// RecordSkippedField counts one measurement field that was not evaluated.
func (c *Collector) RecordSkippedField(reason string) {
	if !c.config.Enabled {
		return
	}
	c.evaluationMetrics.RecordSkipped(reason)
}

// RecordRulesReload records one rule reload attempt.
func (c *Collector) RecordRulesReload(status string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.rulesMetrics.RecordReload(status, duration)
}

// SetRulesLoaded sets the number of element definitions in the active rules.
func (c *Collector) SetRulesLoaded(elements int) {
	if !c.config.Enabled {
		return
	}
	c.rulesMetrics.SetLoaded(elements)
}

// RecordHit records a cache hit.
func (c *Collector) RecordHit(cacheName string) {
	if !c.config.Enabled {
		return
	}
	c.cacheMetrics.RecordHit(cacheName)
}

// RecordMiss records a cache miss.
func (c *Collector) RecordMiss(cacheName string) {
	if !c.config.Enabled {
		return
	}
	c.cacheMetrics.RecordMiss(cacheName)
}

// UpdateSize updates the current number of entries in a cache.
func (c *Collector) UpdateSize(cacheName string, size int) {
	if !c.config.Enabled {
		return
	}
	c.cacheMetrics.UpdateSize(cacheName, size)
}

// RecordEviction records a cache eviction.
func (c *Collector) RecordEviction(cacheName string) {
	if !c.config.Enabled {
		return
	}
	c.cacheMetrics.RecordEviction(cacheName)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter caps the number of distinct label values tracked.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a limiter admitting at most maxCardinality
// distinct label sets.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether labelSet is already tracked or still fits under the
// limit.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
