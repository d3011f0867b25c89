package outcome

import (
	"errors"
	"reflect"

	"github.com/tjfontaine/actionpipe/internal/core/domain"
)

// Factory is the default ports.OutcomeFactory.
type Factory struct{}

// NewFactory returns the default factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Create converts value. Outcomes pass through unchanged, nil becomes 204,
// strings become text/plain and anything else is encoded as JSON.
func (Factory) Create(ac *domain.ActionContext, declared reflect.Type, value any) domain.Outcome {
	switch v := value.(type) {
	case domain.Outcome:
		return v
	case nil:
		return NoContent()
	case string:
		return NewContent(v)
	case []byte:
		return &Content{Body: string(v), ContentType: "application/octet-stream"}
	}

	// A typed nil behind a declared pointer or slice result still means
	// "nothing to say".
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		if rv.IsNil() && (declared == nil || declared.Kind() != reflect.Slice) {
			return NoContent()
		}
	}
	return NewObject(value)
}

// ToCanonicalError converts any error to a domain.APIError.
// If the error is already a domain.APIError, it returns it directly.
// Otherwise, it wraps the error in a generic server error.
func ToCanonicalError(err error) *domain.APIError {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return domain.ErrServer("internal error")
}
