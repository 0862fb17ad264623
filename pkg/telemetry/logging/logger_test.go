package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"waterwatch-hq/healthimpact/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *config.LoggingConfig
		wantErr bool
	}{
		{name: "valid JSON config", config: &config.LoggingConfig{Level: "info", Format: "json"}},
		{name: "valid text config", config: &config.LoggingConfig{Level: "debug", Format: "text", AddSource: true}},
		{name: "upper case values", config: &config.LoggingConfig{Level: "WARN", Format: "JSON"}},
		{name: "nil config", config: nil},
		{name: "invalid level", config: &config.LoggingConfig{Level: "verbose"}, wantErr: true},
		{name: "invalid format", config: &config.LoggingConfig{Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.config, &bytes.Buffer{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && logger == nil {
				t.Error("New() returned nil logger")
			}
		})
	}
}

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	logger.Info("sample evaluated", "overall_risk", "High Risk", "elements", 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "sample evaluated" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["overall_risk"] != "High Risk" {
		t.Errorf("overall_risk = %v", entry["overall_risk"])
	}
	if entry["elements"] != float64(3) {
		t.Errorf("elements = %v", entry["elements"])
	}
}

func TestNew_TextOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&config.LoggingConfig{Format: "text"}, &buf)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	logger.Warn("rules reload failed", "path", "rules.yaml")

	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "path=rules.yaml") {
		t.Errorf("unexpected text output: %q", out)
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&config.LoggingConfig{Level: "warn"}, &buf)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	logger.Debug("debug")
	logger.Info("info")
	if buf.Len() != 0 {
		t.Errorf("records below warn were written: %q", buf.String())
	}

	logger.Error("error")
	if buf.Len() == 0 {
		t.Error("error record was filtered")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"info", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil {
			t.Errorf("ParseLevel(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseLevel("trace"); err == nil {
		t.Error("ParseLevel(trace) succeeded")
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("Discard() logger is enabled")
	}
}

func BenchmarkLogger_JSON(b *testing.B) {
	logger, _ := New(&config.LoggingConfig{Level: "info", Format: "json"}, &bytes.Buffer{})
	ctx := WithRequestID(context.Background(), "req-123")

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.InfoContext(ctx, "sample evaluated", "overall_risk", "Safe")
	}
}

func BenchmarkLogger_Filtered(b *testing.B) {
	logger, _ := New(&config.LoggingConfig{Level: "error"}, &bytes.Buffer{})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Debug("filtered", "key", "value")
	}
}
