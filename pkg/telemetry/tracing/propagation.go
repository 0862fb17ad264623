package tracing

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Propagator returns the global text map propagator. New installs W3C Trace
// Context plus Baggage; before that it is a noop.
func Propagator() propagation.TextMapPropagator {
	return otel.GetTextMapPropagator()
}

// Extract returns ctx carrying the remote span context found in headers, if
// any.
func Extract(ctx context.Context, headers http.Header) context.Context {
	return Propagator().Extract(ctx, propagation.HeaderCarrier(headers))
}

// Inject writes the span context carried by ctx into headers.
func Inject(ctx context.Context, headers http.Header) {
	Propagator().Inject(ctx, propagation.HeaderCarrier(headers))
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Middleware wraps next in a server span named after route. The remote
// parent is taken from the traceparent header, and the trace ID is echoed in
// X-Trace-ID so clients can correlate a response with its trace.
func (t *Tracer) Middleware(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := Extract(r.Context(), r.Header)
		ctx, span := t.Start(ctx, route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(HTTPRequestAttributes(r.Method, route)...),
		)
		defer span.End()

		if sc := span.SpanContext(); sc.IsValid() {
			w.Header().Set("X-Trace-ID", sc.TraceID().String())
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		SetHTTPStatus(span, rec.status)
	})
}

// ValidateTraceParent reports whether traceparent is a well-formed W3C
// header: version-trace_id-parent_id-trace_flags with non-zero IDs.
func ValidateTraceParent(traceparent string) bool {
	parts := strings.Split(traceparent, "-")
	if len(parts) != 4 {
		return false
	}
	if len(parts[0]) != 2 || !isHexString(parts[0]) {
		return false
	}
	if len(parts[1]) != 32 || !isHexString(parts[1]) {
		return false
	}
	if len(parts[2]) != 16 || !isHexString(parts[2]) {
		return false
	}
	if len(parts[3]) != 2 || !isHexString(parts[3]) {
		return false
	}
	if parts[1] == strings.Repeat("0", 32) || parts[2] == strings.Repeat("0", 16) {
		return false
	}
	return true
}

func isHexString(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

// IsSampledFromTraceParent reports whether the sampled flag is set in a
// valid traceparent header.
func IsSampledFromTraceParent(traceparent string) bool {
	if !ValidateTraceParent(traceparent) {
		return false
	}
	flags, err := strconv.ParseUint(traceparent[len(traceparent)-2:], 16, 8)
	if err != nil {
		return false
	}
	return flags&0x01 == 0x01
}
