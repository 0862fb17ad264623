package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys. HTTP keys follow OpenTelemetry semantic conventions; the
// rest live under the healthimpact namespace.
const (
	AttrHTTPMethod     = "http.request.method"
	AttrHTTPRoute      = "http.route"
	AttrHTTPStatusCode = "http.response.status_code"

	AttrRequestID    = "healthimpact.request_id"
	AttrRulesVersion = "healthimpact.rules.version"
	AttrElement      = "healthimpact.catalog.element"
)

// HTTPRequestAttributes returns the span attributes known when a request
// starts.
func HTTPRequestAttributes(method, route string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrHTTPRoute, route),
	}
}

// SetHTTPStatus records the response status. 5xx responses mark the span
// failed; 4xx are client errors and leave the status unset.
func SetHTTPStatus(span trace.Span, status int) {
	span.SetAttributes(attribute.Int(AttrHTTPStatusCode, status))
	if status >= 500 {
		span.SetStatus(codes.Error, "server error")
	}
}

// SetRequestID tags the span with the request ID assigned by middleware.
func SetRequestID(span trace.Span, requestID string) {
	if requestID != "" {
		span.SetAttributes(attribute.String(AttrRequestID, requestID))
	}
}
