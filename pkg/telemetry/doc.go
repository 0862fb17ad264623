// Package telemetry groups the service's observability packages.
//
//   - logging: log/slog setup with request and trace correlation
//   - metrics: Prometheus collectors for requests, evaluations, rule reloads
//     and the catalog cache
//   - tracing: OpenTelemetry provider, sampling and HTTP server spans
//   - health: liveness, readiness and version endpoints
//
// Each subpackage is configured from the matching section of
// config.TelemetryConfig and wired together in pkg/server.
package telemetry
