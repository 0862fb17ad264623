package assessment

import "fmt"

// FieldPolicy determines what happens when a single measurement field
// cannot be used.
type FieldPolicy string

const (
	// FieldPolicySkip records the problem in EvaluationResult.SkippedFields
	// and evaluates the remaining fields. This is the default.
	FieldPolicySkip FieldPolicy = "skip"

	// FieldPolicyStrict fails the whole evaluation on the first bad field.
	FieldPolicyStrict FieldPolicy = "strict"
)

// EngineConfig contains configuration for the evaluation engine.
type EngineConfig struct {
	// FieldPolicy selects skip or strict handling of bad fields.
	// Default: FieldPolicySkip.
	FieldPolicy FieldPolicy

	// ParallelThreshold is the number of evaluated elements at which
	// classification fans out across goroutines. Zero disables fan-out.
	// Default: 0.
	ParallelThreshold int

	// MaxFields caps the number of keys accepted in one sample.
	// Default: 512.
	MaxFields int
}

// DefaultEngineConfig returns the default engine configuration.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		FieldPolicy:       FieldPolicySkip,
		ParallelThreshold: 0,
		MaxFields:         512,
	}
}

// Validate validates the engine configuration.
func (c *EngineConfig) Validate() error {
	switch c.FieldPolicy {
	case FieldPolicySkip, FieldPolicyStrict:
	default:
		return fmt.Errorf("%w: invalid field policy %q", ErrInvalidConfig, c.FieldPolicy)
	}

	if c.ParallelThreshold < 0 {
		return fmt.Errorf("%w: parallel threshold cannot be negative", ErrInvalidConfig)
	}
	if c.MaxFields <= 0 {
		return fmt.Errorf("%w: max fields must be positive", ErrInvalidConfig)
	}
	return nil
}

// WithFieldPolicy sets the per-field error policy.
func (c *EngineConfig) WithFieldPolicy(p FieldPolicy) *EngineConfig {
	c.FieldPolicy = p
	return c
}

// WithParallelThreshold sets the fan-out threshold.
func (c *EngineConfig) WithParallelThreshold(n int) *EngineConfig {
	c.ParallelThreshold = n
	return c
}

// WithMaxFields sets the per-sample field cap.
func (c *EngineConfig) WithMaxFields(n int) *EngineConfig {
	c.MaxFields = n
	return c
}
