package middleware

import (
	"net/http"
	"time"
)

// Recorder receives per-request measurements. *metrics.Collector
// implements it.
type Recorder interface {
	RecordHTTPRequest(route, method string, status int, duration time.Duration)
	IncInFlight()
	DecInFlight()
}

// MetricsMiddleware records the route's request count, latency and in-flight
// gauge. route is the registered pattern so raw paths never become label
// values.
func MetricsMiddleware(rec Recorder, route string, next http.Handler) http.Handler {
	if rec == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.IncInFlight()
		defer rec.DecInFlight()

		start := time.Now()
		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		rec.RecordHTTPRequest(route, r.Method, rw.statusCode, time.Since(start))
	})
}
