// Package handlers implements the HTTP endpoints of the health impact API.
//
// Handler serves sample evaluation (POST /evaluate), rule introspection
// (GET /elements, GET /rules), a liveness summary (GET /health-check) and
// CRUD over the element catalog under /api/elements/. Routes are registered
// on a net/http ServeMux with method patterns; Register accepts a wrapper so
// the server can attach per-route metrics and tracing.
package handlers
