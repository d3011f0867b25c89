package domain

import (
	"fmt"
	"net/http"
)

// ErrorType represents the category of an action error.
type ErrorType string

const (
	// ErrorTypeInvalidRequest indicates a malformed or invalid request.
	ErrorTypeInvalidRequest ErrorType = "invalid_request"

	// ErrorTypeAuthentication indicates an authentication failure.
	ErrorTypeAuthentication ErrorType = "authentication"

	// ErrorTypePermission indicates a permission/authorization failure.
	ErrorTypePermission ErrorType = "permission"

	// ErrorTypeNotFound indicates a resource was not found.
	ErrorTypeNotFound ErrorType = "not_found"

	// ErrorTypeConflict indicates the request conflicts with current state.
	ErrorTypeConflict ErrorType = "conflict"

	// ErrorTypeUnavailable indicates a dependency of the action is down.
	ErrorTypeUnavailable ErrorType = "unavailable"

	// ErrorTypeServer indicates an internal server error.
	ErrorTypeServer ErrorType = "server"
)

// ErrorCode provides additional specificity beyond the error type.
type ErrorCode string

const (
	ErrorCodeValidationFailed ErrorCode = "validation_failed"
	ErrorCodeMissingBody      ErrorCode = "missing_body"
	ErrorCodeInvalidAPIKey    ErrorCode = "invalid_api_key"
	ErrorCodePolicyDenied     ErrorCode = "policy_denied"
	ErrorCodeWebhookDenied    ErrorCode = "webhook_denied"
)

// APIError is an error an action or filter can return to choose the problem
// response the host writes for it.
type APIError struct {
	// Type is the category of error
	Type ErrorType `json:"type"`

	// Code is an optional specific error code
	Code ErrorCode `json:"code,omitempty"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// Field is the input slot that caused the error (if applicable)
	Field string `json:"field,omitempty"`

	// Details carries per-field validation messages.
	Details map[string][]string `json:"details,omitempty"`

	// StatusCode is the suggested HTTP status code
	StatusCode int `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// HTTPStatusCode returns the appropriate HTTP status code for this error.
func (e *APIError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}

	switch e.Type {
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case ErrorTypePermission:
		return http.StatusForbidden
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// NewAPIError creates a new API error.
func NewAPIError(errType ErrorType, message string) *APIError {
	return &APIError{
		Type:    errType,
		Message: message,
	}
}

// WithCode adds an error code to the error.
func (e *APIError) WithCode(code ErrorCode) *APIError {
	e.Code = code
	return e
}

// WithField names the input slot that caused the error.
func (e *APIError) WithField(field string) *APIError {
	e.Field = field
	return e
}

// WithDetails attaches per-field messages.
func (e *APIError) WithDetails(details map[string][]string) *APIError {
	e.Details = details
	return e
}

// WithStatusCode sets a specific HTTP status code.
func (e *APIError) WithStatusCode(code int) *APIError {
	e.StatusCode = code
	return e
}

// Convenience constructors for common errors

// ErrInvalidRequest creates an invalid request error.
func ErrInvalidRequest(message string) *APIError {
	return NewAPIError(ErrorTypeInvalidRequest, message)
}

// ErrAuthentication creates an authentication error.
func ErrAuthentication(message string) *APIError {
	return NewAPIError(ErrorTypeAuthentication, message)
}

// ErrPermission creates a permission error.
func ErrPermission(message string) *APIError {
	return NewAPIError(ErrorTypePermission, message)
}

// ErrNotFound creates a not found error.
func ErrNotFound(message string) *APIError {
	return NewAPIError(ErrorTypeNotFound, message)
}

// ErrConflict creates a conflict error.
func ErrConflict(message string) *APIError {
	return NewAPIError(ErrorTypeConflict, message)
}

// ErrServer creates a server error.
func ErrServer(message string) *APIError {
	return NewAPIError(ErrorTypeServer, message)
}

// ErrValidation creates an invalid request error carrying the messages of vs.
func ErrValidation(vs *ValidationState) *APIError {
	return ErrInvalidRequest("one or more inputs are invalid").
		WithCode(ErrorCodeValidationFailed).
		WithDetails(vs.Messages())
}
