package server

import (
	"log/slog"
	"net/http"

	"waterwatch-hq/healthimpact/pkg/api/handlers"
	"waterwatch-hq/healthimpact/pkg/api/middleware"
	"waterwatch-hq/healthimpact/pkg/telemetry/health"
)

// setupRoutes builds the handler tree. Health and metrics endpoints sit on
// the outer mux so they bypass rate limiting and request logging; every
// other path falls through to the API chain.
func (s *Server) setupRoutes(logger *slog.Logger) http.Handler {
	cfg := s.config
	tel := cfg.Telemetry

	api := handlers.New(handlers.Options{
		Engine:   s.engine,
		Catalog:  s.catalog,
		Recorder: s.metrics,
		Logger:   logger,
		Version:  s.build.Version,
	})

	apiMux := http.NewServeMux()
	api.Register(apiMux, s.instrument)

	chain := []func(http.Handler) http.Handler{
		middleware.RequestIDMiddleware,
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(cfg.Server.CORS),
	}
	if s.limiter != nil {
		chain = append(chain, s.limiter.Middleware)
	}
	chain = append(chain,
		middleware.BodyLimitMiddleware(cfg.Server.MaxBodyBytes),
		middleware.TimeoutMiddleware(cfg.Server.RequestTimeout, logger),
	)

	root := http.NewServeMux()
	if tel.Metrics.Enabled {
		root.Handle("GET "+tel.Metrics.Path, s.metrics.Handler())
	}
	if tel.Health.Enabled {
		root.Handle("GET "+tel.Health.LivenessPath, s.health.LivenessHandler())
		root.Handle("GET "+tel.Health.ReadinessPath, s.health.ReadinessHandler())
		root.Handle("GET "+tel.Health.VersionPath, health.VersionHandler(
			s.build.Version, s.build.Commit, s.build.BuildTime,
			func() string { return s.engine.Rules().Version() },
		))
	}
	root.Handle("/", middleware.Chain(apiMux, chain...))

	return middleware.RecoveryMiddleware(logger)(root)
}

// instrument attaches per-route metrics and a server span.
func (s *Server) instrument(pattern string, next http.Handler) http.Handler {
	return s.tracer.Middleware(pattern, middleware.MetricsMiddleware(s.metrics, pattern, next))
}
