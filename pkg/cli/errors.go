package cli

import (
	"errors"
	"fmt"
)

// Process exit codes.
const (
	ExitOK = 0
	// ExitFailure is any command failure without a more specific code.
	ExitFailure = 1
	// ExitConfig means the configuration or a flag was invalid.
	ExitConfig = 2
	// ExitInvalidInput means an input document (rules, sample, seed file)
	// failed validation.
	ExitInvalidInput = 3
)

// ConfigError represents an error in configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "config error: " + e.Message
	}
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// InputError reports an input document that failed validation.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// NewInputError creates a new InputError.
func NewInputError(path string, err error) *InputError {
	return &InputError{Path: path, Err: err}
}

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var (
		cfgErr   *ConfigError
		inputErr *InputError
	)
	switch {
	case errors.As(err, &cfgErr):
		return ExitConfig
	case errors.As(err, &inputErr):
		return ExitInvalidInput
	default:
		return ExitFailure
	}
}
