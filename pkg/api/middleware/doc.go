// Package middleware provides the HTTP middleware stack of the API server.
//
// The server applies, outermost first:
//
//	RecoveryMiddleware   panic -> 500 error envelope
//	RequestIDMiddleware  X-Request-ID on context and response
//	LoggingMiddleware    one "request completed" record per request
//	CORSMiddleware       CORS headers and preflight
//	RateLimiter          per-client token bucket, 429 when exhausted
//	BodyLimitMiddleware  request body cap
//	TimeoutMiddleware    per-request deadline, 504 when exceeded
//
// MetricsMiddleware wraps individual routes so request metrics are labelled
// with the route pattern.
package middleware
