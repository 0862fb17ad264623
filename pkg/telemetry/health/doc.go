// Package health implements liveness, readiness and version endpoints.
//
// Liveness only says the process is up. Readiness runs every registered
// CheckFunc concurrently, each bounded by the checker's timeout, and answers
// 503 when any of them fails. The server registers RulesCheck against the
// active rule set and, for the SQLite catalog, PingCheck against the
// database.
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("rules", health.RulesCheck(engine.Rules))
//	mux.Handle("GET /ready", checker.ReadinessHandler())
package health
