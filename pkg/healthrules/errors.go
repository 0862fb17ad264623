package healthrules

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyDocument is returned when the rule source contains no data.
	ErrEmptyDocument = errors.New("rule document is empty")

	// ErrMultipleDocuments is returned when the rule source holds more than
	// one YAML document.
	ErrMultipleDocuments = errors.New("rule source must contain a single document")
)

// FieldError describes a single problem found in a rule document.
type FieldError struct {
	// Field is the dotted path into the document (e.g. "heavy_metals[2].risk_levels[0].min_value").
	Field string

	// Message is a human-readable description.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// RuleLoadError is returned when a rule document cannot be parsed or is
// internally inconsistent. A store is never built from a document that
// produced a RuleLoadError.
type RuleLoadError struct {
	// Origin names where the document came from (file path or "embedded").
	Origin string

	// Errors lists every problem found. Empty when Cause is set.
	Errors []FieldError

	// Cause is the underlying read or parse error, if any.
	Cause error
}

func (e *RuleLoadError) Error() string {
	prefix := "rule load failed"
	if e.Origin != "" {
		prefix = fmt.Sprintf("rule load failed for %s", e.Origin)
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", prefix, e.Cause)
	}

	switch len(e.Errors) {
	case 0:
		return prefix
	case 1:
		return fmt.Sprintf("%s: %s", prefix, e.Errors[0].Error())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s with %d errors:\n", prefix, len(e.Errors))
	for _, fe := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", fe.Error())
	}
	return sb.String()
}

func (e *RuleLoadError) Unwrap() error {
	return e.Cause
}
