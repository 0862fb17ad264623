package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"waterwatch-hq/healthimpact/pkg/api/types"
)

// RecoveryMiddleware turns a handler panic into a 500 error envelope. The
// panic value and stack are logged, never returned to the client.
func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				err := recover()
				if err == nil {
					return
				}
				if err == http.ErrAbortHandler {
					panic(err)
				}

				logger.ErrorContext(r.Context(), "panic in handler",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)

				writeError(w, http.StatusInternalServerError,
					types.NewServerError("An internal error occurred. Please try again later."))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
