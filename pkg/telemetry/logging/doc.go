// Package logging configures the service's log/slog logger.
//
// New selects a JSON or text handler and a minimum level from
// config.LoggingConfig and wraps it in a ContextHandler. Middleware stores the
// request ID and client address on the request context with WithRequestID and
// WithClientIP; every InfoContext/WarnContext/... call made with that context
// then carries request_id and client_ip, plus trace_id and span_id when an
// OpenTelemetry span is active.
//
//	logger, err := logging.New(&cfg.Telemetry.Logging, os.Stderr)
//	ctx := logging.WithRequestID(ctx, "req-123")
//	logger.InfoContext(ctx, "sample evaluated", "overall_risk", "High Risk")
package logging
