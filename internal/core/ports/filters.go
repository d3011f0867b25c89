// Package ports defines the collaborator contracts the invoker depends on.
// This file contains the filter contracts for the three chains.
package ports

import (
	"context"

	"github.com/tjfontaine/actionpipe/internal/core/domain"
)

// AuthorizationFilter takes part in the authorization chain. Returning
// without calling next short-circuits the chain.
type AuthorizationFilter interface {
	OnAuthorization(ctx context.Context, c *domain.AuthorizationContext, next domain.Next) (domain.Transition, error)
}

// ActionFilter wraps the target call.
type ActionFilter interface {
	OnAction(ctx context.Context, c *domain.ActionExecutingContext, next domain.Next) (domain.Transition, error)
}

// ResultFilter wraps outcome execution.
type ResultFilter interface {
	OnResult(ctx context.Context, c *domain.ResultContext, next domain.Next) (domain.Transition, error)
}

// FilterSet is the ordered filters that apply to one descriptor.
type FilterSet struct {
	Authorization []AuthorizationFilter
	Action        []ActionFilter
	Result        []ResultFilter
}

// FilterProvider discovers the filters for a descriptor.
type FilterProvider interface {
	Discover(d *domain.ActionDescriptor) (FilterSet, error)
}
