// Package outcome provides the concrete outcomes actions return and the
// factory that converts target return values into them.
package outcome

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tjfontaine/actionpipe/internal/core/domain"
)

// Object writes Value as JSON.
type Object struct {
	Value      any
	StatusCode int
}

// NewObject returns a 200 JSON outcome.
func NewObject(v any) *Object {
	return &Object{Value: v, StatusCode: http.StatusOK}
}

// Created returns a 201 JSON outcome.
func Created(v any) *Object {
	return &Object{Value: v, StatusCode: http.StatusCreated}
}

func (o *Object) Execute(ctx context.Context, ac *domain.ActionContext) error {
	return writeJSON(ac, o.Status(), o.Value)
}

func (o *Object) Status() int {
	if o.StatusCode == 0 {
		return http.StatusOK
	}
	return o.StatusCode
}

// Content writes Body as text/plain.
type Content struct {
	Body        string
	ContentType string
	StatusCode  int
}

// NewContent returns a 200 text/plain outcome.
func NewContent(body string) *Content {
	return &Content{Body: body, StatusCode: http.StatusOK}
}

func (o *Content) Execute(ctx context.Context, ac *domain.ActionContext) error {
	w, err := writer(ac)
	if err != nil {
		return err
	}
	ct := o.ContentType
	if ct == "" {
		ct = "text/plain; charset=utf-8"
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(o.Status())
	if _, err := io.WriteString(w, o.Body); err != nil {
		return fmt.Errorf("write content: %w", err)
	}
	return nil
}

func (o *Content) Status() int {
	if o.StatusCode == 0 {
		return http.StatusOK
	}
	return o.StatusCode
}

// NoContent writes 204 and no body.
func NoContent() domain.Outcome {
	return domain.NoContent()
}

// ValidationProblem writes 400 with the messages of a validation state.
type ValidationProblem struct {
	Validation *domain.ValidationState
}

// NewValidationProblem wraps vs.
func NewValidationProblem(vs *domain.ValidationState) *ValidationProblem {
	return &ValidationProblem{Validation: vs}
}

func (o *ValidationProblem) Execute(ctx context.Context, ac *domain.ActionContext) error {
	return writeProblem(ac, domain.ErrValidation(o.Validation))
}

func (o *ValidationProblem) Status() int { return http.StatusBadRequest }

// Problem writes an APIError as a JSON error envelope.
type Problem struct {
	Err *domain.APIError
}

// NewProblem wraps err.
func NewProblem(err *domain.APIError) *Problem {
	return &Problem{Err: err}
}

func (o *Problem) Execute(ctx context.Context, ac *domain.ActionContext) error {
	return writeProblem(ac, o.Err)
}

func (o *Problem) Status() int { return o.Err.HTTPStatusCode() }

type errorEnvelope struct {
	Error *domain.APIError `json:"error"`
}

func writeProblem(ac *domain.ActionContext, apiErr *domain.APIError) error {
	return writeJSON(ac, apiErr.HTTPStatusCode(), errorEnvelope{Error: apiErr})
}

func writeJSON(ac *domain.ActionContext, status int, v any) error {
	w, err := writer(ac)
	if err != nil {
		return err
	}
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

func writer(ac *domain.ActionContext) (http.ResponseWriter, error) {
	if ac == nil || ac.Response == nil {
		return nil, fmt.Errorf("no response writer")
	}
	return ac.Response, nil
}
