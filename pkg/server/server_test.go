package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"waterwatch-hq/healthimpact/pkg/config"
	"waterwatch-hq/healthimpact/pkg/healthrules"
	"waterwatch-hq/healthimpact/pkg/telemetry/logging"
	"waterwatch-hq/healthimpact/pkg/telemetry/tracing"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Catalog.Backend = "memory"
	cfg.Server.ShutdownTimeout = 2 * time.Second
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	srv, err := New(context.Background(), Options{
		Config: cfg,
		Logger: logging.Discard(),
		Build:  BuildInfo{Version: "test", Commit: "abc123"},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.RemoteAddr = "192.0.2.10:5555"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestServer_Evaluate(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rr := do(t, srv.Handler(), http.MethodPost, "/evaluate", `{"Location": "Bore 2", "Fe_ppm": 0.5, "Pb_ppm": 0.02}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}

	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["Overall_Risk"] != "High Risk" {
		t.Errorf("Overall_Risk = %v", resp["Overall_Risk"])
	}
}

func TestServer_HealthEndpoints(t *testing.T) {
	srv := newTestServer(t, testConfig())
	h := srv.Handler()

	tests := []struct {
		target   string
		wantCode int
		contains string
	}{
		{"/health", http.StatusOK, `"status":"ok"`},
		{"/ready", http.StatusOK, `"rules"`},
		{"/version", http.StatusOK, `"rules_version":"2024.1"`},
		{"/health-check", http.StatusOK, `"engine_loaded":true`},
		{"/", http.StatusOK, `"endpoints"`},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rr := do(t, h, http.MethodGet, tt.target, "")
			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tt.wantCode, rr.Body.String())
			}
			if !strings.Contains(rr.Body.String(), tt.contains) {
				t.Errorf("body %s missing %s", rr.Body.String(), tt.contains)
			}
		})
	}
}

func TestServer_Metrics(t *testing.T) {
	srv := newTestServer(t, testConfig())
	h := srv.Handler()

	do(t, h, http.MethodPost, "/evaluate", `{"As_ppb": 5}`)
	do(t, h, http.MethodPost, "/evaluate", `{"pH": 7}`)

	rr := do(t, h, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`route="POST /evaluate"`,
		`outcome="no_elements_evaluated"`,
		`healthimpact_`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %s", want)
		}
	}
}

func TestServer_MetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Telemetry.Metrics.Enabled = false
	srv := newTestServer(t, cfg)

	rr := do(t, srv.Handler(), http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestServer_Catalog(t *testing.T) {
	seed := filepath.Join(t.TempDir(), "seed.json")
	if err := os.WriteFile(seed, []byte(`[{"element": "Arsenic (As)", "reactions_with_heavy_metals": ["Forms arsenides"], "reactions_with_environment": ["Adsorbs to iron oxides"], "compounds_found": ["As2O3"]}]`), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := testConfig()
	cfg.Catalog.SeedFile = seed
	srv := newTestServer(t, cfg)
	h := srv.Handler()

	rr := do(t, h, http.MethodGet, "/api/elements/Arsenic%20%28As%29", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("seeded entry status = %d: %s", rr.Code, rr.Body.String())
	}

	rr = do(t, h, http.MethodPut, "/api/elements/Arsenic%20%28As%29", `{"compounds_found": ["As2O3", "AsH3"]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rr.Code, rr.Body.String())
	}

	// The cache must not serve the pre-update entry.
	rr = do(t, h, http.MethodGet, "/api/elements/Arsenic%20%28As%29", "")
	if !strings.Contains(rr.Body.String(), "AsH3") {
		t.Errorf("stale entry served: %s", rr.Body.String())
	}
}

func TestServer_CatalogDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Catalog.Enabled = false
	srv := newTestServer(t, cfg)

	rr := do(t, srv.Handler(), http.MethodGet, "/api/elements/", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rr.Code)
	}
}

func TestServer_RateLimitSparesHealthChecks(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.RequestsPerSecond = 0.1
	cfg.RateLimit.Burst = 1
	srv := newTestServer(t, cfg)
	h := srv.Handler()

	if rr := do(t, h, http.MethodGet, "/elements", ""); rr.Code != http.StatusOK {
		t.Fatalf("first request = %d", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/elements", ""); rr.Code != http.StatusTooManyRequests {
		t.Errorf("second request = %d, want 429", rr.Code)
	}
	for i := 0; i < 3; i++ {
		if rr := do(t, h, http.MethodGet, "/health", ""); rr.Code != http.StatusOK {
			t.Errorf("health check %d = %d, want 200", i, rr.Code)
		}
	}
}

func TestServer_BodyLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxBodyBytes = 32
	srv := newTestServer(t, cfg)

	body := `{"As_ppb": 1, "Notes": "` + strings.Repeat("x", 64) + `"}`
	rr := do(t, srv.Handler(), http.MethodPost, "/evaluate", body)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rr.Code)
	}
}

func TestServer_CORSPreflight(t *testing.T) {
	srv := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodOptions, "/evaluate", nil)
	req.Header.Set("Origin", "https://dashboard.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("Allow-Origin header missing")
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(context.Background(), Options{}); err == nil {
		t.Error("New() accepted a nil config")
	}

	cfg := testConfig()
	cfg.Rules.FilePath = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := New(context.Background(), Options{Config: cfg, Logger: logging.Discard()}); err == nil {
		t.Error("New() accepted a missing rules file")
	}

	cfg = testConfig()
	cfg.Rules.Git.Enabled = true
	cfg.Rules.Git.Repository = filepath.Join(t.TempDir(), "missing")
	cfg.Rules.Git.LocalPath = t.TempDir()
	if _, err := New(context.Background(), Options{Config: cfg, Logger: logging.Discard()}); err == nil {
		t.Error("New() accepted an unreachable rules repository")
	}

	cfg = testConfig()
	cfg.Catalog.Backend = "postgres"
	if _, err := New(context.Background(), Options{Config: cfg, Logger: logging.Discard()}); err == nil {
		t.Error("New() accepted an unknown catalog backend")
	}
}

func TestServer_ServeAndShutdown(t *testing.T) {
	srv := newTestServer(t, testConfig())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/health"
	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get(url)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if !srv.IsRunning() {
		t.Error("IsRunning() = false while serving")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
	if srv.IsRunning() {
		t.Error("IsRunning() = true after shutdown")
	}
}

func TestServer_WatchReloadsRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(path, healthrules.DefaultBytes(), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.Rules.FilePath = path
	cfg.Rules.Watch = true
	cfg.Rules.DebounceInterval = 20 * time.Millisecond
	srv := newTestServer(t, cfg)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()
	defer func() {
		cancel()
		<-done
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	updated := bytes.Replace(healthrules.DefaultBytes(), []byte(`version: "2024.1"`), []byte(`version: "2024.2"`), 1)
	if err := os.WriteFile(path, updated, 0o600); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if srv.Engine().Rules().Version() == "2024.2" {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Errorf("rules version = %q after file change, want 2024.2", srv.Engine().Rules().Version())
}

func commitRules(t *testing.T, repo *gogit.Repository, dir string, content []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "health_rules.yaml"), content, 0o644); err != nil {
		t.Fatal(err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := wt.Add("health_rules.yaml"); err != nil {
		t.Fatal(err)
	}
	_, err = wt.Commit("update rules", &gogit.CommitOptions{
		Author: &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestServer_GitRulesReload(t *testing.T) {
	repoDir := t.TempDir()
	repo, err := gogit.PlainInit(repoDir, false)
	if err != nil {
		t.Fatal(err)
	}
	commitRules(t, repo, repoDir, healthrules.DefaultBytes())

	cfg := testConfig()
	cfg.Rules.Git.Enabled = true
	cfg.Rules.Git.Repository = repoDir
	cfg.Rules.Git.Branch = "master"
	cfg.Rules.Git.Depth = 0
	cfg.Rules.Git.LocalPath = t.TempDir()
	cfg.Rules.Git.PollInterval = 20 * time.Millisecond
	srv := newTestServer(t, cfg)

	if srv.gitWatcher == nil {
		t.Fatal("expected a rules repository watcher")
	}
	if v := srv.Engine().Rules().Version(); v != "2024.1" {
		t.Fatalf("initial rules version = %q, want 2024.1", v)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()
	defer func() {
		cancel()
		<-done
	}()

	commitRules(t, repo, repoDir, bytes.Replace(healthrules.DefaultBytes(), []byte(`version: "2024.1"`), []byte(`version: "2024.2"`), 1))

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if srv.Engine().Rules().Version() == "2024.2" {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Errorf("rules version = %q after commit, want 2024.2", srv.Engine().Rules().Version())
}

type shutdownExporter struct {
	shutdowns atomic.Int32
}

func (e *shutdownExporter) ExportSpans(context.Context, []sdktrace.ReadOnlySpan) error {
	return nil
}

func (e *shutdownExporter) Shutdown(context.Context) error {
	e.shutdowns.Add(1)
	return nil
}

func TestServer_CloseWithoutServe(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(path, healthrules.DefaultBytes(), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.Rules.FilePath = path
	cfg.Rules.Watch = true
	cfg.Telemetry.Tracing.Enabled = true
	cfg.Telemetry.Tracing.Sampler = "always"

	exporter := &shutdownExporter{}
	srv, err := New(context.Background(), Options{
		Config:         cfg,
		Logger:         logging.Discard(),
		TracingOptions: []tracing.Option{tracing.WithExporter(exporter)},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if srv.watcher == nil {
		t.Fatal("watcher not created for a watched rule file")
	}

	srv.Close()
	srv.Close()

	if got := exporter.shutdowns.Load(); got != 1 {
		t.Errorf("exporter shut down %d times, want 1", got)
	}
	// A closed watcher cannot register directories any more.
	if err := srv.watcher.Watch(context.Background(), func() error { return nil }); err == nil {
		t.Error("Watch() succeeded after Close, want closed-watcher error")
	}
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() after Close error = %v", err)
	}
	if got := exporter.shutdowns.Load(); got != 1 {
		t.Errorf("exporter shut down %d times after Shutdown, want 1", got)
	}
}

func TestEngineConfig(t *testing.T) {
	ec := EngineConfig(config.EngineConfig{FieldPolicy: "strict", ParallelThreshold: 4, MaxFields: 64})
	if string(ec.FieldPolicy) != "strict" || ec.ParallelThreshold != 4 || ec.MaxFields != 64 {
		t.Errorf("EngineConfig() = %+v", ec)
	}
	if err := ec.Validate(); err != nil {
		t.Errorf("converted config invalid: %v", err)
	}
}
