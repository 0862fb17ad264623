package assessment

import (
	"errors"
	"fmt"
)

var (
	// ErrNoElementsEvaluated is matched by NoElementsEvaluatedError via errors.Is.
	ErrNoElementsEvaluated = errors.New("no elements evaluated")

	ErrInvalidConfig = errors.New("invalid engine configuration")

	ErrNoRules = errors.New("no rules loaded")
)

// NoElementsEvaluatedError is returned when a sample yields no usable
// measurement for any known element.
type NoElementsEvaluatedError struct {
	// Skipped lists fields that named a known element but could not be used.
	Skipped []FieldIssue
}

func (e *NoElementsEvaluatedError) Error() string {
	if len(e.Skipped) == 0 {
		return "no elements evaluated: sample contains no recognised element measurements"
	}
	return fmt.Sprintf("no elements evaluated: %d element field(s) could not be used", len(e.Skipped))
}

func (e *NoElementsEvaluatedError) Is(target error) bool {
	return target == ErrNoElementsEvaluated
}

// FieldError reports which input field caused a strict-mode failure.
type FieldError struct {
	Field string
	Cause error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %v", e.Field, e.Cause)
}

func (e *FieldError) Unwrap() error {
	return e.Cause
}

// TooManyFieldsError is returned when a sample exceeds EngineConfig.MaxFields.
type TooManyFieldsError struct {
	Count int
	Limit int
}

func (e *TooManyFieldsError) Error() string {
	return fmt.Sprintf("sample has %d fields, limit is %d", e.Count, e.Limit)
}
