//go:build integration

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleBody = `{"Location": "Well 7", "Year": 2021, "As_ppb": 42, "Fe_ppm": 0.25, "Pb_ppm": 0.02}`

// TestServerStartStop starts the binary, evaluates a sample over HTTP and
// checks graceful shutdown on SIGINT.
func TestServerStartStop(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")
	createTestConfig(t, configFile, `
server:
  listen_address: "127.0.0.1:18080"

catalog:
  backend: sqlite
  sqlite:
    path: "catalog.db"

telemetry:
  logging:
    level: "info"
    format: "json"
  metrics:
    enabled: true
  tracing:
    enabled: false
`)

	binaryPath := buildBinary(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, binaryPath, "run", "--config", configFile)
	cmd.Dir = tmpDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	defer func() {
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
	}()

	if !waitForHealthy("http://127.0.0.1:18080/ready", 10*time.Second) {
		t.Fatalf("server failed to start\nStdout: %s\nStderr: %s", stdout.String(), stderr.String())
	}

	resp, err := http.Post("http://127.0.0.1:18080/evaluate", "application/json", strings.NewReader(sampleBody))
	if err != nil {
		t.Fatalf("evaluate request failed: %v", err)
	}
	var result map[string]any
	err = json.NewDecoder(resp.Body).Decode(&result)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("evaluate response is not JSON: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("evaluate status = %d, body %v", resp.StatusCode, result)
	}
	if result["Overall_Risk"] != "High Risk" {
		t.Errorf("Overall_Risk = %v, want High Risk", result["Overall_Risk"])
	}

	resp, err = http.Get("http://127.0.0.1:18080/metrics")
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	metrics := new(bytes.Buffer)
	metrics.ReadFrom(resp.Body)
	resp.Body.Close()
	if !strings.Contains(metrics.String(), "healthimpact_api_evaluations_total") {
		t.Error("metrics do not include the evaluation counter")
	}

	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		t.Errorf("failed to send SIGINT: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unclean shutdown: %v\nStdout: %s\nStderr: %s", err, stdout.String(), stderr.String())
		}
		if !strings.Contains(stdout.String(), "Server stopped") {
			t.Errorf("shutdown not reported on stdout: %s", stdout.String())
		}
	case <-time.After(10 * time.Second):
		t.Error("server did not shut down within 10 seconds")
	}

	if _, err := os.Stat(filepath.Join(tmpDir, "catalog.db")); err != nil {
		t.Errorf("catalog database not created: %v", err)
	}
}

// TestEvaluatePipeline exports the built-in rules, validates them and
// evaluates a batch against the exported file.
func TestEvaluatePipeline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	tmpDir := t.TempDir()
	binaryPath := buildBinary(t)

	rulesFile := filepath.Join(tmpDir, "rules.yaml")
	dump, err := exec.Command(binaryPath, "rules", "dump").Output()
	if err != nil {
		t.Fatalf("rules dump failed: %v", err)
	}
	if err := os.WriteFile(rulesFile, dump, 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	output, err := exec.Command(binaryPath, "rules", "validate", "--file", rulesFile).CombinedOutput()
	if err != nil {
		t.Fatalf("exported rules do not validate: %v\nOutput: %s", err, output)
	}

	samples := filepath.Join(tmpDir, "samples.json")
	createTestConfig(t, samples, "["+sampleBody+`, {"Fe_ppm": 0.1}]`)

	output, err = exec.Command(binaryPath, "evaluate", "--file", samples, "--rules", rulesFile, "--format", "json").Output()
	if err != nil {
		t.Fatalf("evaluate failed: %v\nOutput: %s", err, output)
	}

	var outcomes []struct {
		Index  int             `json:"index"`
		Result json.RawMessage `json:"result"`
		Error  json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(output, &outcomes); err != nil {
		t.Fatalf("evaluate output is not JSON: %v\n%s", err, output)
	}
	if len(outcomes) != 2 || outcomes[0].Result == nil || outcomes[1].Result == nil {
		t.Errorf("unexpected outcomes: %s", output)
	}
}

// TestExitCodes checks the exit status for input and config failures.
func TestExitCodes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	tmpDir := t.TempDir()
	binaryPath := buildBinary(t)

	badRules := filepath.Join(tmpDir, "bad.yaml")
	createTestConfig(t, badRules, "version: x\nheavy_metals: []\n")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"invalid rules", []string{"rules", "validate", "--file", badRules}, 3},
		{"bad format", []string{"rules", "elements", "--format", "xml"}, 2},
		{"unknown config key", []string{"run", "--dry-run", "--config", writeConfig(t, tmpDir, "proxy:\n  listen_address: x\n")}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := exec.Command(binaryPath, tt.args...).Run()
			var exitErr *exec.ExitError
			if !errors.As(err, &exitErr) {
				t.Fatalf("command succeeded or failed to start: %v", err)
			}
			if exitErr.ExitCode() != tt.want {
				t.Errorf("exit code = %d, want %d", exitErr.ExitCode(), tt.want)
			}
		})
	}
}

// TestCommandVersionOutput tests the version command
func TestCommandVersionOutput(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	binaryPath := buildBinary(t)

	output, err := exec.Command(binaryPath, "version").CombinedOutput()
	if err != nil {
		t.Fatalf("version command failed: %v\nOutput: %s", err, output)
	}
	if !bytes.Contains(output, []byte("Health Impact Engine")) {
		t.Errorf("version output should name the service, got: %s", output)
	}
}

// TestDryRunValidation tests config validation with --dry-run
func TestDryRunValidation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	tmpDir := t.TempDir()
	binaryPath := buildBinary(t)

	t.Run("valid config", func(t *testing.T) {
		configFile := writeConfig(t, tmpDir, `
server:
  listen_address: "127.0.0.1:18082"
catalog:
  backend: memory
`)
		output, err := exec.Command(binaryPath, "run", "--config", configFile, "--dry-run").CombinedOutput()
		if err != nil {
			t.Errorf("dry-run should succeed with valid config: %v\nOutput: %s", err, output)
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		configFile := writeConfig(t, tmpDir, `
engine:
  field_policy: "lenient"
`)
		output, err := exec.Command(binaryPath, "run", "--config", configFile, "--dry-run").CombinedOutput()
		if err == nil {
			t.Errorf("dry-run should fail with invalid config\nOutput: %s", output)
		}
	})
}

// Helper functions

// buildBinary builds the healthimpact binary for testing
func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath, err := filepath.Abs("../bin/healthimpact")
	if err != nil {
		t.Fatalf("resolve binary path: %v", err)
	}
	if _, err := os.Stat(binaryPath); err == nil {
		return binaryPath
	}

	t.Log("Building healthimpact binary...")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../cmd/healthimpact")
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("failed to build healthimpact: %v\nOutput: %s", err, output)
	}

	return binaryPath
}

// waitForHealthy waits for a health endpoint to return 200
func waitForHealthy(url string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 1 * time.Second}

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			return true
		}
		if resp != nil {
			resp.Body.Close()
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}

// createTestConfig writes content to path
func createTestConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	f, err := os.CreateTemp(dir, "config-*.yaml")
	if err != nil {
		t.Fatalf("create config: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return f.Name()
}
