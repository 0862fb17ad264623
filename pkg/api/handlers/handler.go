package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"waterwatch-hq/healthimpact/pkg/assessment"
	"waterwatch-hq/healthimpact/pkg/catalog"
	"waterwatch-hq/healthimpact/pkg/healthrules"
)

// Evaluator evaluates samples against the active rule set.
// *assessment.Engine implements it.
type Evaluator interface {
	Evaluate(ctx context.Context, input assessment.SampleInput) (*assessment.EvaluationResult, error)
	Rules() *healthrules.Store
	Config() assessment.EngineConfig
}

// EvaluationRecorder receives evaluation metrics. *metrics.Collector
// implements it.
type EvaluationRecorder interface {
	RecordEvaluation(outcome, overall string, duration time.Duration)
	RecordElementResult(element, riskLevel string)
	RecordSkippedField(reason string)
}

// Options configures a Handler.
type Options struct {
	// Engine is required.
	Engine Evaluator

	// Catalog backs /api/elements/. Nil disables those routes with 503.
	Catalog catalog.Storage

	// Recorder may be nil.
	Recorder EvaluationRecorder

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Version is reported by the root endpoint.
	Version string
}

// Handler serves the evaluation and catalog API.
type Handler struct {
	engine   Evaluator
	catalog  catalog.Storage
	recorder EvaluationRecorder
	logger   *slog.Logger
	validate *validator.Validate
	version  string
}

// New creates a Handler.
func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		engine:   opts.Engine,
		catalog:  opts.Catalog,
		recorder: opts.Recorder,
		logger:   logger.With("component", "api"),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		version:  opts.Version,
	}
}

// Route is one registered endpoint.
type Route struct {
	Pattern string
	Handler http.HandlerFunc
}

// Routes returns every API endpoint with its ServeMux pattern. Patterns
// double as metric and span names.
func (h *Handler) Routes() []Route {
	return []Route{
		{"GET /{$}", h.Root},
		{"GET /health-check", h.HealthCheck},
		{"POST /evaluate", h.Evaluate},
		{"GET /elements", h.Elements},
		{"GET /rules", h.Rules},
		{"GET /api/elements/{$}", h.ListCatalog},
		{"POST /api/elements/{$}", h.CreateCatalog},
		{"GET /api/elements/{name}", h.GetCatalog},
		{"PUT /api/elements/{name}", h.UpdateCatalog},
		{"DELETE /api/elements/{name}", h.DeleteCatalog},
	}
}

// Register adds every route to mux. wrap, when non-nil, decorates each
// handler with its pattern (metrics, tracing).
func (h *Handler) Register(mux *http.ServeMux, wrap func(pattern string, next http.Handler) http.Handler) {
	for _, rt := range h.Routes() {
		var handler http.Handler = rt.Handler
		if wrap != nil {
			handler = wrap(rt.Pattern, handler)
		}
		mux.Handle(rt.Pattern, handler)
	}
}
