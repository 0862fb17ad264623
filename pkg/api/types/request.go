package types

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"waterwatch-hq/healthimpact/pkg/assessment"
	"waterwatch-hq/healthimpact/pkg/healthrules"
	"waterwatch-hq/healthimpact/pkg/units"
)

// Location keys of an evaluation request. Every other key is a candidate
// measurement.
const (
	KeyLocation  = "Location"
	KeyState     = "State"
	KeyDistrict  = "District"
	KeyLatitude  = "Latitude"
	KeyLongitude = "Longitude"
	KeyYear      = "Year"
)

// LocationRequest is the validated location part of an evaluation request.
type LocationRequest struct {
	Location  *string  `validate:"omitempty,max=256"`
	State     *string  `validate:"omitempty,max=256"`
	District  *string  `validate:"omitempty,max=256"`
	Latitude  *float64 `validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `validate:"omitempty,gte=-180,lte=180"`
	Year      *int     `validate:"omitempty,gte=0"`
}

// EvaluateRequest is a decoded evaluation request body.
type EvaluateRequest struct {
	LocationRequest

	// Measurements holds every non-location key with a numeric value.
	Measurements map[string]float64

	// Invalid holds keys whose value was present but not numeric.
	Invalid map[string]string
}

// RequestError reports a request that cannot be evaluated at all.
type RequestError struct {
	Param   string
	Code    string
	Message string
}

func (e *RequestError) Error() string {
	if e.Param == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Param, e.Message)
}

// DecodeEvaluateRequest parses an evaluation request body. Values may be
// JSON numbers or numeric strings; null, "" and "-" mean "not measured" and
// are dropped.
func DecodeEvaluateRequest(body []byte) (*EvaluateRequest, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, &RequestError{Code: CodeInvalidJSON, Message: fmt.Sprintf("request body is not a JSON object: %v", err)}
	}
	if raw == nil {
		return nil, &RequestError{Code: CodeInvalidJSON, Message: "request body must be a JSON object"}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &RequestError{Code: CodeInvalidJSON, Message: "request body has data after the JSON object"}
	}

	req := &EvaluateRequest{
		Measurements: make(map[string]float64),
		Invalid:      make(map[string]string),
	}

	for key, v := range raw {
		var err error
		switch key {
		case KeyLocation:
			req.Location, err = stringValue(key, v)
		case KeyState:
			req.State, err = stringValue(key, v)
		case KeyDistrict:
			req.District, err = stringValue(key, v)
		case KeyLatitude:
			req.Latitude, err = floatValue(key, v)
		case KeyLongitude:
			req.Longitude, err = floatValue(key, v)
		case KeyYear:
			req.Year, err = intValue(key, v)
		default:
			f, present, ok := numeric(v)
			switch {
			case !present:
			case ok:
				req.Measurements[key] = f
			default:
				req.Invalid[key] = fmt.Sprintf("value %s is not a number", describe(v))
			}
		}
		if err != nil {
			return nil, err
		}
	}

	return req, nil
}

// Validate checks location ranges with the package validator.
func (r *EvaluateRequest) Validate(v *validator.Validate) error {
	err := v.Struct(&r.LocationRequest)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &RequestError{
			Param:   fe.Field(),
			Code:    CodeInvalidValue,
			Message: fmt.Sprintf("failed %q constraint (value %v)", constraint(fe), fe.Value()),
		}
	}
	return &RequestError{Code: CodeInvalidValue, Message: err.Error()}
}

// Sample converts the request into engine input.
func (r *EvaluateRequest) Sample() assessment.SampleInput {
	loc := assessment.Location{
		Name:      r.Location,
		State:     r.State,
		District:  r.District,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		Year:      r.Year,
	}
	return assessment.SampleInput{Location: loc, Measurements: r.Measurements}
}

func constraint(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}

// numeric interprets a measurement value. present is false for the
// "not measured" markers.
func numeric(v any) (f float64, present, ok bool) {
	switch x := v.(type) {
	case nil:
		return 0, false, false
	case json.Number:
		f, err := x.Float64()
		return f, true, err == nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" || s == "-" {
			return 0, false, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, true, err == nil
	default:
		return 0, true, false
	}
}

func stringValue(key string, v any) (*string, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return &x, nil
	case json.Number:
		s := x.String()
		return &s, nil
	default:
		return nil, &RequestError{Param: key, Code: CodeInvalidValue, Message: fmt.Sprintf("must be a string, got %s", describe(v))}
	}
}

func floatValue(key string, v any) (*float64, error) {
	f, present, ok := numeric(v)
	if !present {
		return nil, nil
	}
	if !ok {
		return nil, &RequestError{Param: key, Code: CodeInvalidValue, Message: fmt.Sprintf("must be a number, got %s", describe(v))}
	}
	return &f, nil
}

func intValue(key string, v any) (*int, error) {
	f, err := floatValue(key, v)
	if err != nil || f == nil {
		return nil, err
	}
	if *f != float64(int(*f)) {
		return nil, &RequestError{Param: key, Code: CodeInvalidValue, Message: fmt.Sprintf("must be an integer, got %v", *f)}
	}
	n := int(*f)
	return &n, nil
}

func describe(v any) string {
	switch x := v.(type) {
	case string:
		return strconv.Quote(x)
	case bool:
		return "a boolean"
	case []any:
		return "an array"
	case map[string]any:
		return "an object"
	default:
		return fmt.Sprintf("%v", x)
	}
}

// InvalidIssues turns non-numeric values of known element fields into
// issues, sorted by field. Keys that do not name an element in store are
// ignored like any other unrecognised key.
func (r *EvaluateRequest) InvalidIssues(store *healthrules.Store) []assessment.FieldIssue {
	var issues []assessment.FieldIssue
	for field, msg := range r.Invalid {
		sym, _, ok := assessment.ParseFieldName(field)
		if !ok {
			continue
		}
		if _, known := store.Lookup(sym); !known {
			continue
		}
		issues = append(issues, assessment.FieldIssue{
			Field:   field,
			Element: sym,
			Reason:  assessment.IssueInvalidValue,
			Message: fmt.Sprintf("%s: %s", field, msg),
		})
	}
	slices.SortFunc(issues, byField)
	return issues
}

// MergeIssues returns a and b combined and sorted by field.
func MergeIssues(a, b []assessment.FieldIssue) []assessment.FieldIssue {
	if len(b) == 0 {
		return a
	}
	out := make([]assessment.FieldIssue, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	slices.SortFunc(out, byField)
	return out
}

func byField(a, b assessment.FieldIssue) int {
	return cmp.Compare(a.Field, b.Field)
}

// FieldErrorCode picks the error code for a rejected measurement field.
func FieldErrorCode(err error) string {
	var (
		unsupported *units.UnsupportedUnitError
		invalid     *units.InvalidMeasurementError
	)
	switch {
	case errors.As(err, &unsupported):
		return CodeUnsupportedUnit
	case errors.As(err, &invalid):
		return CodeInvalidMeasurement
	default:
		return CodeInvalidValue
	}
}
