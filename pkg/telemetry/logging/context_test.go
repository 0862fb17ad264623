package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"go.opentelemetry.io/otel/trace"

	"waterwatch-hq/healthimpact/pkg/config"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()

	ctx = WithRequestID(ctx, "req-123")
	if got := GetRequestID(ctx); got != "req-123" {
		t.Errorf("GetRequestID() = %q, want %q", got, "req-123")
	}

	ctx = WithClientIP(ctx, "10.0.0.7")
	if got := GetClientIP(ctx); got != "10.0.0.7" {
		t.Errorf("GetClientIP() = %q, want %q", got, "10.0.0.7")
	}
}

func TestContextKeys_Empty(t *testing.T) {
	ctx := context.Background()
	if GetRequestID(ctx) != "" || GetClientIP(ctx) != "" {
		t.Error("getters returned values for an empty context")
	}
}

func spanContext(t *testing.T) trace.SpanContext {
	t.Helper()
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	if err != nil {
		t.Fatal(err)
	}
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	if err != nil {
		t.Fatal(err)
	}
	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
}

func TestExtractContextFields(t *testing.T) {
	tests := []struct {
		name       string
		setupCtx   func(context.Context) context.Context
		wantFields map[string]string
	}{
		{
			name:       "empty context",
			setupCtx:   func(ctx context.Context) context.Context { return ctx },
			wantFields: map[string]string{},
		},
		{
			name:       "request ID only",
			setupCtx:   func(ctx context.Context) context.Context { return WithRequestID(ctx, "req-123") },
			wantFields: map[string]string{"request_id": "req-123"},
		},
		{
			name: "request and span",
			setupCtx: func(ctx context.Context) context.Context {
				ctx = WithRequestID(ctx, "req-456")
				ctx = WithClientIP(ctx, "192.0.2.1")
				return trace.ContextWithSpanContext(ctx, spanContext(t))
			},
			wantFields: map[string]string{
				"request_id": "req-456",
				"client_ip":  "192.0.2.1",
				"trace_id":   "4bf92f3577b34da6a3ce929d0e0e4736",
				"span_id":    "00f067aa0ba902b7",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := extractContextFields(tt.setupCtx(context.Background()))
			if len(fields) != len(tt.wantFields) {
				t.Fatalf("got %d fields, want %d: %v", len(fields), len(tt.wantFields), fields)
			}
			for _, f := range fields {
				if want := tt.wantFields[f.Key]; f.Value.String() != want {
					t.Errorf("%s = %q, want %q", f.Key, f.Value.String(), want)
				}
			}
		})
	}
}

func TestContextHandler_AddsFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&config.LoggingConfig{Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx := WithRequestID(context.Background(), "req-789")
	ctx = trace.ContextWithSpanContext(ctx, spanContext(t))
	logger.With("component", "api").InfoContext(ctx, "handled")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	for key, want := range map[string]string{
		"request_id": "req-789",
		"trace_id":   "4bf92f3577b34da6a3ce929d0e0e4736",
		"component":  "api",
	} {
		if entry[key] != want {
			t.Errorf("%s = %v, want %q", key, entry[key], want)
		}
	}
}

func TestContextHandler_WithoutContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewContextHandler(slog.NewJSONHandler(&buf, nil)))

	logger.WithGroup("rules").Info("loaded", "version", "2024.1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if _, ok := entry["request_id"]; ok {
		t.Error("request_id present without a request context")
	}
	group, ok := entry["rules"].(map[string]any)
	if !ok || group["version"] != "2024.1" {
		t.Errorf("grouped attrs missing: %v", entry)
	}
}
