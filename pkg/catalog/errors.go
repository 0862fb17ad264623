package catalog

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when no entry has the requested name.
	ErrNotFound = errors.New("element not found")

	// ErrAlreadyExists is returned when an entry name is already taken.
	ErrAlreadyExists = errors.New("element already exists")
)

// FieldError describes one invalid field of an entry.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError lists every invalid field of an entry or update.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "element validation failed"
	}
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Error()
	}
	return "element validation failed: " + strings.Join(parts, "; ")
}

// StorageError wraps a backend failure.
type StorageError struct {
	Backend   string
	Operation string
	Cause     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("catalog storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}

// NotFound wraps ErrNotFound with the requested name.
func NotFound(name string) error {
	return fmt.Errorf("%w: %q", ErrNotFound, name)
}

// AlreadyExists wraps ErrAlreadyExists with the conflicting name.
func AlreadyExists(name string) error {
	return fmt.Errorf("%w: %q", ErrAlreadyExists, name)
}
