package catalog

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validate checks an entry before it is stored.
func Validate(e *Element) error {
	if e == nil {
		return &ValidationError{Errors: []FieldError{{Field: "element", Message: "is required"}}}
	}
	if err := toValidationError(validate.Struct(e)); err != nil {
		return err
	}
	if strings.TrimSpace(e.Element) == "" {
		return &ValidationError{Errors: []FieldError{{Field: "element", Message: "must not be blank"}}}
	}
	return nil
}

// ValidateUpdate checks a partial update.
func ValidateUpdate(u Update) error {
	if u.Element != nil && strings.TrimSpace(*u.Element) == "" {
		return &ValidationError{Errors: []FieldError{{Field: "element", Message: "must not be blank"}}}
	}
	return toValidationError(validate.Struct(u))
}

// Prepare validates e and fills in a missing ID and timestamps. It returns a
// copy ready to be stored.
func Prepare(e *Element, now time.Time) (*Element, error) {
	if err := Validate(e); err != nil {
		return nil, err
	}
	out := e.Clone()
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	out.UpdatedAt = now
	return out, nil
}

func toValidationError(err error) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Errors: []FieldError{{Field: "element", Message: err.Error()}}}
	}

	out := &ValidationError{Errors: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		out.Errors = append(out.Errors, FieldError{Field: field, Message: describe(fe)})
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
