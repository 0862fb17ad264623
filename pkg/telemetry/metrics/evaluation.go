package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"waterwatch-hq/healthimpact/pkg/config"
)

// EvaluationMetrics tracks sample evaluations.
//
// Metrics:
//   - <ns>_<sub>_evaluations_total: evaluations by outcome and overall risk
//   - <ns>_<sub>_evaluation_duration_seconds: engine time per sample
//   - <ns>_<sub>_element_results_total: classified elements by element and risk level
//   - <ns>_<sub>_skipped_fields_total: fields not evaluated, by reason
type EvaluationMetrics struct {
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	elementsTotal      *prometheus.CounterVec
	skippedTotal       *prometheus.CounterVec
}

// NewEvaluationMetrics creates and registers evaluation metrics.
func NewEvaluationMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *EvaluationMetrics {
	em := &EvaluationMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluations_total",
				Help:      "Total number of sample evaluations",
			},
			[]string{"outcome", "overall_risk"},
		),

		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluation_duration_seconds",
				Help:      "Time spent evaluating one sample in seconds",
				// Evaluations are in-memory and take microseconds.
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
			},
			[]string{"outcome"},
		),

		elementsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "element_results_total",
				Help:      "Total number of classified element results",
			},
			[]string{"element", "risk_level"},
		),

		skippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "skipped_fields_total",
				Help:      "Total number of measurement fields that were not evaluated",
			},
			[]string{"reason"},
		),
	}

	registry.MustRegister(em.evaluationsTotal, em.evaluationDuration, em.elementsTotal, em.skippedTotal)
	return em
}

// RecordEvaluation records one evaluation.
func (em *EvaluationMetrics) RecordEvaluation(outcome, overall string, duration time.Duration) {
	em.evaluationsTotal.WithLabelValues(outcome, overall).Inc()
	em.evaluationDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordElement counts one element result.
func (em *EvaluationMetrics) RecordElement(element, riskLevel string) {
	em.elementsTotal.WithLabelValues(element, riskLevel).Inc()
}

// RecordSkipped counts one skipped field.
func (em *EvaluationMetrics) RecordSkipped(reason string) {
	em.skippedTotal.WithLabelValues(reason).Inc()
}
