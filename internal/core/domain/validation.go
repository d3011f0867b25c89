package domain

import (
	"sort"
	"strings"
)

// FieldError is one accumulated validation failure.
type FieldError struct {
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// ValidationState accumulates binding and business-logic errors for one
// invocation. It is created per request and passed explicitly; it is not
// safe for concurrent use.
type ValidationState struct {
	fields map[string][]FieldError
	values map[string]any
}

// NewValidationState returns an empty state.
func NewValidationState() *ValidationState {
	return &ValidationState{
		fields: make(map[string][]FieldError),
		values: make(map[string]any),
	}
}

// AddError records err against field.
func (v *ValidationState) AddError(field string, err error) {
	if err == nil {
		return
	}
	v.fields[field] = append(v.fields[field], FieldError{Message: err.Error(), Err: err})
}

// AddMessage records a plain message against field.
func (v *ValidationState) AddMessage(field, message string) {
	v.fields[field] = append(v.fields[field], FieldError{Message: message})
}

// SetAttempted remembers the raw value that was bound for field.
func (v *ValidationState) SetAttempted(field string, raw any) {
	v.values[field] = raw
}

// Attempted returns the raw value recorded for field.
func (v *ValidationState) Attempted(field string) (any, bool) {
	raw, ok := v.values[field]
	return raw, ok
}

// Errors returns the errors recorded for field.
func (v *ValidationState) Errors(field string) []FieldError {
	return v.fields[field]
}

// IsValid reports whether no errors have been recorded.
func (v *ValidationState) IsValid() bool {
	return len(v.fields) == 0
}

// IsFieldValid reports whether field and every nested field ("field.x")
// are free of errors.
func (v *ValidationState) IsFieldValid(field string) bool {
	prefix := field + "."
	for name := range v.fields {
		if name == field || strings.HasPrefix(name, prefix) {
			return false
		}
	}
	return true
}

// Fields returns the names of fields with errors, sorted.
func (v *ValidationState) Fields() []string {
	names := make([]string, 0, len(v.fields))
	for name := range v.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Messages flattens the state into field -> messages.
func (v *ValidationState) Messages() map[string][]string {
	out := make(map[string][]string, len(v.fields))
	for name, errs := range v.fields {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Message
		}
		out[name] = msgs
	}
	return out
}
