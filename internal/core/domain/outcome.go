package domain

import (
	"context"
	"fmt"
	"net/http"
)

// Outcome produces the response for an invocation.
type Outcome interface {
	Execute(ctx context.Context, ac *ActionContext) error
}

// StatusCoder is implemented by outcomes that know their status up front.
type StatusCoder interface {
	Status() int
}

// StatusOf returns the status an outcome will write, or 200 when the outcome
// does not say.
func StatusOf(o Outcome) int {
	if sc, ok := o.(StatusCoder); ok {
		return sc.Status()
	}
	return http.StatusOK
}

// StatusOutcome writes a bare status code.
type StatusOutcome struct {
	StatusCode int
}

// NewStatusOutcome returns a status-only outcome.
func NewStatusOutcome(code int) *StatusOutcome {
	return &StatusOutcome{StatusCode: code}
}

// NotFound is the outcome for an unresolvable target.
func NotFound() *StatusOutcome { return NewStatusOutcome(http.StatusNotFound) }

// Unauthorized is the default outcome of a failed authorization chain.
func Unauthorized() *StatusOutcome { return NewStatusOutcome(http.StatusUnauthorized) }

// Forbidden is the outcome of an action chain denied without an outcome.
func Forbidden() *StatusOutcome { return NewStatusOutcome(http.StatusForbidden) }

// NoContent is the outcome of an action chain that produced nothing.
func NoContent() *StatusOutcome { return NewStatusOutcome(http.StatusNoContent) }

func (o *StatusOutcome) Execute(ctx context.Context, ac *ActionContext) error {
	if ac == nil || ac.Response == nil {
		return fmt.Errorf("status outcome %d: no response writer", o.StatusCode)
	}
	ac.Response.WriteHeader(o.StatusCode)
	return nil
}

func (o *StatusOutcome) Status() int { return o.StatusCode }

func (o *StatusOutcome) String() string {
	return fmt.Sprintf("status(%d)", o.StatusCode)
}
