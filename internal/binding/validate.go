package binding

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tjfontaine/actionpipe/internal/core/domain"
)

// newValidate returns a validator that reports fields by their JSON names.
func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})
	return v
}

// validateValue runs struct validation for struct values and tag validation
// when tag is set, recording failures under field.
func validateValue(v *validator.Validate, vs *domain.ValidationState, field string, value any, tag string) {
	if tag != "" {
		record(vs, field, v.Var(value, tag))
	}
	if isStruct(value) {
		record(vs, field, v.Struct(value))
	}
}

func isStruct(value any) bool {
	t := reflect.TypeOf(value)
	if t == nil {
		return false
	}
	if t.Kind() == reflect.Pointer {
		if reflect.ValueOf(value).IsNil() {
			return false
		}
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

// record adds validator failures to vs. Struct field errors are keyed
// "field.json_name" so callers can check a slot and its members together.
func record(vs *domain.ValidationState, field string, err error) {
	if err == nil {
		return
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		vs.AddError(field, err)
		return
	}
	for _, fe := range verrs {
		key := field
		// Namespace is "Type.field.sub"; drop the type name.
		if _, rest, ok := strings.Cut(fe.Namespace(), "."); ok {
			key = field + "." + rest
		}
		vs.AddError(key, fieldError{fe})
	}
}

// fieldError renders a validator.FieldError for API clients.
type fieldError struct {
	fe validator.FieldError
}

func (e fieldError) Error() string {
	if e.fe.Param() != "" {
		return fmt.Sprintf("failed '%s' validation (%s)", e.fe.Tag(), e.fe.Param())
	}
	return fmt.Sprintf("failed '%s' validation", e.fe.Tag())
}

func (e fieldError) Unwrap() error { return e.fe }
