package cli

import (
	"errors"
	"fmt"
	"testing"
)

func TestConfigError(t *testing.T) {
	tests := []struct {
		err  *ConfigError
		want string
	}{
		{NewConfigError("server.listen_address", "missing required field"), "config error in server.listen_address: missing required field"},
		{NewConfigError("", "file not found"), "config error: file not found"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestCommandError_Unwrap(t *testing.T) {
	base := errors.New("listener closed")
	err := NewCommandError("run", base)

	if err.Error() != "command run failed: listener closed" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, base) {
		t.Error("CommandError does not unwrap to its cause")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"plain", errors.New("boom"), ExitFailure},
		{"config", NewConfigError("format", "bad"), ExitConfig},
		{"wrapped config", fmt.Errorf("startup: %w", NewConfigError("", "bad")), ExitConfig},
		{"input", NewInputError("rules.yaml", errors.New("no elements")), ExitInvalidInput},
		{"command wrapping input", NewCommandError("evaluate", NewInputError("s.json", errors.New("x"))), ExitInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
