package invoker

import (
	"context"
	"log/slog"

	"github.com/tjfontaine/actionpipe/internal/core/domain"
	"github.com/tjfontaine/actionpipe/internal/core/ports"
	"github.com/tjfontaine/actionpipe/internal/pipeline"
)

// authorizationEndpoint terminates the authorization chain and records that
// it was reached.
type authorizationEndpoint struct {
	reached bool
}

func (e *authorizationEndpoint) Invoke(ctx context.Context, c *domain.AuthorizationContext, _ domain.Next) (domain.Transition, error) {
	e.reached = true
	return domain.Passed(), nil
}

// actionEndpoint calls the target and converts its return value.
type actionEndpoint struct {
	target   *domain.Target
	instance any
	outcomes ports.OutcomeFactory
	logger   *slog.Logger
}

func (e *actionEndpoint) Invoke(ctx context.Context, c *domain.ActionExecutingContext, _ domain.Next) (domain.Transition, error) {
	args, defaulted := Materialize(e.target.Params, c.Arguments())
	if len(defaulted) > 0 {
		e.logger.DebugContext(ctx, "parameters without a resolved input use their defaults",
			slog.String("action", c.Action.ActionName()),
			slog.Any("params", defaulted),
		)
	}

	value, err := e.target.Invoke(ctx, e.instance, args)
	if err != nil {
		return domain.Pending(), err
	}
	return domain.Completed(e.outcomes.Create(c.Action, c.ResultType, value)), nil
}

// resultEndpoint executes whatever outcome the result context holds.
type resultEndpoint struct {
	executed bool
}

func (e *resultEndpoint) Invoke(ctx context.Context, c *domain.ResultContext, _ domain.Next) (domain.Transition, error) {
	return e.execute(ctx, c)
}

func (e *resultEndpoint) execute(ctx context.Context, c *domain.ResultContext) (domain.Transition, error) {
	if c.Outcome == nil {
		return domain.Pending(), ErrNoOutcome
	}
	e.executed = true
	if err := c.Outcome.Execute(ctx, c.Action); err != nil {
		return domain.Pending(), err
	}
	return domain.Completed(c.Outcome), nil
}

func authorizationLinks(filters []ports.AuthorizationFilter) []pipeline.Link[*domain.AuthorizationContext] {
	links := make([]pipeline.Link[*domain.AuthorizationContext], len(filters))
	for i, f := range filters {
		links[i] = pipeline.LinkFunc[*domain.AuthorizationContext](f.OnAuthorization)
	}
	return links
}

func actionLinks(filters []ports.ActionFilter) []pipeline.Link[*domain.ActionExecutingContext] {
	links := make([]pipeline.Link[*domain.ActionExecutingContext], len(filters))
	for i, f := range filters {
		links[i] = pipeline.LinkFunc[*domain.ActionExecutingContext](f.OnAction)
	}
	return links
}

// resultLinks wraps each filter so that a short-circuit executes the
// outcome before control returns to the enclosing filters. A supplied
// outcome replaces the context's. Enclosing filters therefore always see
// the executed outcome once their next returns.
func resultLinks(filters []ports.ResultFilter, end *resultEndpoint) []pipeline.Link[*domain.ResultContext] {
	links := make([]pipeline.Link[*domain.ResultContext], len(filters))
	for i, f := range filters {
		links[i] = pipeline.LinkFunc[*domain.ResultContext](func(ctx context.Context, c *domain.ResultContext, next domain.Next) (domain.Transition, error) {
			t, err := f.OnResult(ctx, c, next)
			if err != nil || end.executed {
				return t, err
			}
			if err := ctx.Err(); err != nil {
				return t, err
			}
			if t.HasOutcome() {
				c.Outcome = t.Outcome
			}
			return end.execute(ctx, c)
		})
	}
	return links
}
