package units

import "fmt"

// InvalidMeasurementError is returned for readings that are negative or not
// finite. Readings are never clamped.
type InvalidMeasurementError struct {
	Element string
	Value   float64
}

func (e *InvalidMeasurementError) Error() string {
	return fmt.Sprintf("invalid measurement for %s: %v (must be a finite, non-negative number)", e.Element, e.Value)
}

// UnsupportedUnitError is returned when no conversion exists from the
// reading's unit to the element's canonical unit.
type UnsupportedUnitError struct {
	Element string
	Unit    string
	Target  string
}

func (e *UnsupportedUnitError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("unsupported unit %q for %s", e.Unit, e.Element)
	}
	return fmt.Sprintf("unsupported unit %q for %s: no conversion to %s", e.Unit, e.Element, e.Target)
}

// UnknownElementError is returned for symbols absent from the rule store.
type UnknownElementError struct {
	Element string
}

func (e *UnknownElementError) Error() string {
	return fmt.Sprintf("unknown element %q", e.Element)
}
