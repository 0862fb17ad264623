// Package tracing configures OpenTelemetry tracing for the service.
//
// New builds an SDK tracer provider from config.TracingConfig: a
// ParentBased sampler (always, never or ratio), an OTLP gRPC or stdout
// exporter, and a resource naming the service and its version. The provider
// and W3C Trace Context propagator are installed globally so spans started
// with otel.Tracer in other packages, such as the assessment engine, join
// the request trace.
//
// Tracer.Middleware wraps an HTTP route in a server span:
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	mux.Handle("POST /evaluate", tracer.Middleware("POST /evaluate", handler))
//
// With tracing disabled every call goes to a noop tracer and Middleware adds
// no headers.
package tracing
