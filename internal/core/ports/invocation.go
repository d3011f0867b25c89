package ports

import (
	"context"
	"reflect"

	"github.com/tjfontaine/actionpipe/internal/core/domain"
)

// TargetFactory creates the instance an action's logic runs on.
type TargetFactory interface {
	// Create returns (nil, nil) when no instance can serve the request.
	Create(ctx context.Context, ac *domain.ActionContext, vs *domain.ValidationState) (any, error)
}

// InputFormatter resolves body slots.
type InputFormatter interface {
	// Read returns the deserialized value. Deserialization failures are
	// recorded in vs; the error return is reserved for faults and
	// cancellation.
	Read(ctx context.Context, ac *domain.ActionContext, vs *domain.ValidationState, slot domain.InputSlot) (any, error)
}

// ModelBinder resolves bound slots. Same error contract as InputFormatter.
type ModelBinder interface {
	Bind(ctx context.Context, ac *domain.ActionContext, vs *domain.ValidationState, slot domain.InputSlot) (any, error)
}

// OutcomeFactory turns a target's return value into an outcome.
type OutcomeFactory interface {
	Create(ac *domain.ActionContext, declared reflect.Type, value any) domain.Outcome
}
