package filters

import (
	"context"

	"github.com/tjfontaine/actionpipe/internal/core/domain"
	"github.com/tjfontaine/actionpipe/internal/core/ports"
	"github.com/tjfontaine/actionpipe/internal/outcome"
)

// ValidationFilter short-circuits the action chain with a 400 problem when
// input resolution recorded errors.
type ValidationFilter struct{}

func (ValidationFilter) OnAction(ctx context.Context, c *domain.ActionExecutingContext, next domain.Next) (domain.Transition, error) {
	if c.Validation != nil && !c.Validation.IsValid() {
		return domain.Completed(outcome.NewValidationProblem(c.Validation)), nil
	}
	return next(ctx)
}

var _ ports.ActionFilter = ValidationFilter{}
