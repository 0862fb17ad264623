package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"waterwatch-hq/healthimpact/pkg/healthrules"
)

func TestNew(t *testing.T) {
	if got := New(0).checkTimeout; got != 5*time.Second {
		t.Errorf("default timeout = %v, want 5s", got)
	}
	if got := New(time.Second).checkTimeout; got != time.Second {
		t.Errorf("custom timeout = %v, want 1s", got)
	}
}

func TestChecker_RegisterCheck(t *testing.T) {
	c := New(time.Second)
	c.RegisterCheck("rules", func(context.Context) error { return nil })
	c.RegisterCheck("catalog", func(context.Context) error { return nil })
	c.RegisterCheck("rules", func(context.Context) error { return errors.New("replaced") })

	names := c.ListChecks()
	if len(names) != 2 || names[0] != "catalog" || names[1] != "rules" {
		t.Errorf("ListChecks() = %v", names)
	}
	if c.CheckReadiness(context.Background()).Checks["rules"].Message != "replaced" {
		t.Error("RegisterCheck did not replace the existing check")
	}
}

func TestChecker_CheckReadiness(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		wantStatus string
	}{
		{name: "no checks", checks: nil, wantStatus: StatusReady},
		{
			name: "all healthy",
			checks: map[string]CheckFunc{
				"rules":   func(context.Context) error { return nil },
				"catalog": func(context.Context) error { return nil },
			},
			wantStatus: StatusReady,
		},
		{
			name: "one failing",
			checks: map[string]CheckFunc{
				"rules":   func(context.Context) error { return nil },
				"catalog": func(context.Context) error { return errors.New("database is locked") },
			},
			wantStatus: StatusNotReady,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(time.Second)
			for name, check := range tt.checks {
				c.RegisterCheck(name, check)
			}

			status := c.CheckReadiness(context.Background())
			if status.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", status.Status, tt.wantStatus)
			}
			if len(status.Checks) != len(tt.checks) {
				t.Errorf("got %d results, want %d", len(status.Checks), len(tt.checks))
			}
		})
	}
}

func TestChecker_CheckTimeout(t *testing.T) {
	c := New(20 * time.Millisecond)
	c.RegisterCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return nil
	})

	status := c.CheckReadiness(context.Background())
	result := status.Checks["slow"]
	if result.Status != StatusUnhealthy || result.Message != ErrCheckTimeout.Error() {
		t.Errorf("slow check result = %+v, want timeout", result)
	}
}

func TestRulesCheck(t *testing.T) {
	store, err := healthrules.Default()
	if err != nil {
		t.Fatalf("Default() failed: %v", err)
	}

	if err := RulesCheck(func() *healthrules.Store { return store })(context.Background()); err != nil {
		t.Errorf("RulesCheck() with default rules = %v", err)
	}
	if err := RulesCheck(func() *healthrules.Store { return nil })(context.Background()); err == nil {
		t.Error("RulesCheck() passed without a rule set")
	}
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestPingCheck(t *testing.T) {
	if err := PingCheck(fakePinger{})(context.Background()); err != nil {
		t.Errorf("PingCheck() = %v", err)
	}
	if err := PingCheck(fakePinger{err: errors.New("closed")})(context.Background()); err == nil {
		t.Error("PingCheck() swallowed the ping error")
	}
}

func TestLivenessHandler(t *testing.T) {
	c := New(time.Second)
	c.RegisterCheck("broken", func(context.Context) error { return errors.New("down") })

	rec := httptest.NewRecorder()
	c.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 regardless of component checks", rec.Code)
	}
	var body HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != StatusOK {
		t.Errorf("body status = %q", body.Status)
	}
}

func TestReadinessHandler(t *testing.T) {
	healthy := New(time.Second)
	healthy.RegisterCheck("rules", func(context.Context) error { return nil })

	rec := httptest.NewRecorder()
	healthy.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("healthy status = %d, want 200", rec.Code)
	}

	failing := New(time.Second)
	failing.RegisterCheck("rules", func(context.Context) error { return errors.New("no rule set loaded") })

	rec = httptest.NewRecorder()
	failing.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("failing status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "no rule set loaded") {
		t.Errorf("body missing check message: %s", rec.Body.String())
	}
}

func TestReadinessHandler_Head(t *testing.T) {
	rec := httptest.NewRecorder()
	New(time.Second).ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/ready", nil))

	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Errorf("HEAD = %d with %d body bytes", rec.Code, rec.Body.Len())
	}
}

func TestVersionHandler(t *testing.T) {
	handler := VersionHandler("1.2.0", "abc123", "2024-05-01", func() string { return "2024.1" })

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	var info VersionInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Version != "1.2.0" || info.Commit != "abc123" || info.RulesVersion != "2024.1" {
		t.Errorf("info = %+v", info)
	}
	if info.GoVersion == "" {
		t.Error("go_version empty")
	}
}
