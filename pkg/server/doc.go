// Package server assembles the health impact HTTP service.
//
// New loads the health rules, builds the evaluation engine and the element
// catalog, and wires logging, metrics, tracing and health checks around the
// API handlers. Start then serves until its context is cancelled.
//
// # Components
//
// The rule set comes from a Git repository (Rules.Git), from Rules.FilePath,
// or from the rules compiled into the binary when neither is set. With a
// file on disk the server can reload it when it changes (Rules.Watch) and on
// a cron schedule (Rules.ReloadSchedule). A Git source is polled every
// Rules.Git.PollInterval and reloads when a commit touches the rule
// document. A reload that fails validation leaves the active rules in place.
//
// The catalog uses SQLite or in-memory storage, optionally behind a
// read-through cache, and may be seeded from a JSON file at startup.
//
// # Routing
//
// Health endpoints (/health, /ready, /version) and /metrics are served
// directly. Every other request passes through the API middleware chain:
//
//	request ID -> access log -> CORS -> rate limit -> body limit -> timeout -> route
//
// Each API route additionally records Prometheus metrics and a server span
// under its registered pattern, e.g. "POST /evaluate".
//
// # Basic Usage
//
//	cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//	if err != nil {
//		return err
//	}
//	srv, err := server.New(ctx, server.Options{Config: cfg, Logger: logger})
//	if err != nil {
//		return err
//	}
//	return srv.Start(ctx)
package server
