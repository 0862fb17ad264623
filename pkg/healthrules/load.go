package healthrules

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var schema *validator.Validate

func init() {
	schema = validator.New(validator.WithRequiredStructEnabled())
	schema.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// LoadFile reads and validates the rule document at path.
func LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &RuleLoadError{Origin: path, Cause: err}
	}
	return LoadBytes(data, path)
}

// Load reads a rule document from r.
func Load(r io.Reader) (*Store, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &RuleLoadError{Cause: fmt.Errorf("read rules: %w", err)}
	}
	return LoadBytes(data, "")
}

// LoadBytes parses data as YAML (JSON is accepted as a subset) and builds a
// Store. origin is only used in error messages and Store.Origin.
func LoadBytes(data []byte, origin string) (*Store, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &RuleLoadError{Origin: origin, Cause: ErrEmptyDocument}
	}

	var doc RuleDocument
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			err = ErrEmptyDocument
		}
		return nil, &RuleLoadError{Origin: origin, Cause: fmt.Errorf("parse rules: %w", err)}
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, &RuleLoadError{Origin: origin, Cause: ErrMultipleDocuments}
	}

	if errs := validateDocument(&doc); len(errs) > 0 {
		return nil, &RuleLoadError{Origin: origin, Errors: errs}
	}

	sum := sha256.Sum256(data)
	return newStore(doc, origin, hex.EncodeToString(sum[:])), nil
}

// validateDocument runs the schema check first and only runs the semantic
// checks on documents that are structurally sound.
func validateDocument(doc *RuleDocument) []FieldError {
	if errs := schemaErrors(schema.Struct(doc)); len(errs) > 0 {
		return errs
	}

	var errs []FieldError
	conversions := make(map[[2]string]bool, len(doc.UnitConversions))

	for i, c := range doc.UnitConversions {
		path := fmt.Sprintf("unit_conversions[%d]", i)
		key := [2]string{c.From, c.To}
		if conversions[key] {
			errs = append(errs, FieldError{Field: path, Message: fmt.Sprintf("duplicate conversion %s -> %s", c.From, c.To)})
		}
		conversions[key] = true

		if c.From == c.To && c.Factor != 1 {
			errs = append(errs, FieldError{Field: path + ".factor", Message: "identity conversion must have factor 1"})
		}
		if math.IsInf(c.Factor, 0) || math.IsNaN(c.Factor) {
			errs = append(errs, FieldError{Field: path + ".factor", Message: "must be finite"})
		}
	}

	seen := make(map[string]int, len(doc.HeavyMetals))
	for i := range doc.HeavyMetals {
		el := &doc.HeavyMetals[i]
		path := fmt.Sprintf("heavy_metals[%d]", i)

		if j, dup := seen[el.Symbol]; dup {
			errs = append(errs, FieldError{
				Field:   path + ".symbol",
				Message: fmt.Sprintf("duplicate symbol %q (first defined at heavy_metals[%d])", el.Symbol, j),
			})
		} else {
			seen[el.Symbol] = i
		}

		for k, u := range el.AcceptedUnits {
			if u != el.Unit && !conversions[[2]string{u, el.Unit}] {
				errs = append(errs, FieldError{
					Field:   fmt.Sprintf("%s.accepted_units[%d]", path, k),
					Message: fmt.Sprintf("no conversion from %q to %q", u, el.Unit),
				})
			}
		}

		errs = append(errs, validateBands(path, el)...)
	}

	return errs
}

func validateBands(path string, el *ElementSpec) []FieldError {
	var errs []FieldError
	levels := el.RiskLevels

	if levels[0].MinValue != 0 {
		errs = append(errs, FieldError{
			Field:   path + ".risk_levels[0].min_value",
			Message: fmt.Sprintf("first band must start at 0, got %g", levels[0].MinValue),
		})
	}

	for j, lv := range levels {
		p := fmt.Sprintf("%s.risk_levels[%d]", path, j)
		last := j == len(levels)-1

		if lv.MaxValue == nil {
			if !last {
				errs = append(errs, FieldError{Field: p + ".max_value", Message: "only the last band may be unbounded"})
			}
		} else {
			if math.IsInf(*lv.MaxValue, 0) || math.IsNaN(*lv.MaxValue) {
				errs = append(errs, FieldError{Field: p + ".max_value", Message: "must be finite; omit it on the last band instead"})
			}
			if last {
				errs = append(errs, FieldError{Field: p + ".max_value", Message: "last band must be unbounded"})
			}
			if *lv.MaxValue <= lv.MinValue {
				errs = append(errs, FieldError{
					Field:   p + ".max_value",
					Message: fmt.Sprintf("must be greater than min_value (%g <= %g)", *lv.MaxValue, lv.MinValue),
				})
			}
		}

		if j == 0 {
			continue
		}

		prev := levels[j-1]
		if prev.MaxValue != nil && lv.MinValue != *prev.MaxValue {
			kind := "gap"
			if lv.MinValue < *prev.MaxValue {
				kind = "overlap"
			}
			errs = append(errs, FieldError{
				Field:   p + ".min_value",
				Message: fmt.Sprintf("%s: starts at %g but previous band ends at %g", kind, lv.MinValue, *prev.MaxValue),
			})
		}
		if lv.Level <= prev.Level {
			errs = append(errs, FieldError{
				Field:   p + ".level",
				Message: fmt.Sprintf("%s must be more severe than %s", lv.Level, prev.Level),
			})
		}
	}

	if math.IsInf(el.PermissibleLimit, 0) || math.IsNaN(el.PermissibleLimit) {
		errs = append(errs, FieldError{Field: path + ".permissible_limit", Message: "must be finite"})
	}

	first := levels[0]
	if first.Level == Safe && first.MaxValue != nil && *first.MaxValue != el.PermissibleLimit {
		errs = append(errs, FieldError{
			Field:   path + ".permissible_limit",
			Message: fmt.Sprintf("must equal the Safe band upper bound %g, got %g", *first.MaxValue, el.PermissibleLimit),
		})
	}

	return errs
}

func schemaErrors(err error) []FieldError {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "document", Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		out = append(out, FieldError{Field: field, Message: describeTag(fe)})
	}
	return out
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "min":
		return fmt.Sprintf("must have at least %s entries", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "alpha":
		return "must contain only letters"
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
