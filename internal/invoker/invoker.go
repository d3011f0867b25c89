// Package invoker drives one action invocation through the authorization,
// action and result chains.
package invoker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/actionpipe/internal/core/domain"
	"github.com/tjfontaine/actionpipe/internal/core/ports"
	"github.com/tjfontaine/actionpipe/internal/pipeline"
)

const tracerName = "github.com/tjfontaine/actionpipe/internal/invoker"

// ErrNoOutcome is returned when the result chain is left without an outcome
// to execute.
var ErrNoOutcome = errors.New("no outcome to execute")

// Invoker executes actions. It holds no per-request state and is safe for
// concurrent use as long as its collaborators are.
type Invoker struct {
	filters   ports.FilterProvider
	targets   ports.TargetFactory
	formatter ports.InputFormatter
	binder    ports.ModelBinder
	outcomes  ports.OutcomeFactory
	logger    *slog.Logger
	tracer    trace.Tracer
}

// New creates an invoker. Target factory, input formatter, model binder
// and outcome factory are required.
func New(opts ...Option) (*Invoker, error) {
	inv := &Invoker{
		filters: noFilters{},
		logger:  slog.Default(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		if err := opt(inv); err != nil {
			return nil, err
		}
	}

	switch {
	case inv.targets == nil:
		return nil, fmt.Errorf("target factory required")
	case inv.formatter == nil:
		return nil, fmt.Errorf("input formatter required")
	case inv.binder == nil:
		return nil, fmt.Errorf("model binder required")
	case inv.outcomes == nil:
		return nil, fmt.Errorf("outcome factory required")
	}
	return inv, nil
}

// Invoke runs d for the request in ac. It returns once the result chain has
// executed the outcome; an error means a collaborator faulted or ctx was
// cancelled, and the response may be incomplete.
func (inv *Invoker) Invoke(ctx context.Context, ac *domain.ActionContext, d *domain.ActionDescriptor) error {
	if d == nil {
		return fmt.Errorf("invoke: nil descriptor")
	}
	if ac.Descriptor == nil {
		ac.Descriptor = d
	}

	ctx, span := inv.tracer.Start(ctx, "invoke "+d.Name,
		trace.WithAttributes(
			attribute.String("action.name", d.Name),
			attribute.String("action.controller", d.Controller),
		))
	defer span.End()

	// Discovery happens once, before any filter runs.
	set, err := inv.filters.Discover(d)
	if err != nil {
		return recordError(span, fmt.Errorf("discover filters for %s: %w", d.Name, err))
	}

	vs := domain.NewValidationState()

	outcome, err := inv.produce(ctx, ac, d, set, vs)
	if err != nil {
		return recordError(span, fmt.Errorf("invoke %s: %w", d.Name, err))
	}

	if err := inv.executeResult(ctx, ac, set.Result, outcome, vs); err != nil {
		return recordError(span, fmt.Errorf("execute result for %s: %w", d.Name, err))
	}

	span.SetAttributes(attribute.Int("action.status", domain.StatusOf(outcome)))
	return nil
}

// produce runs everything up to the result chain and returns the outcome it
// must execute.
func (inv *Invoker) produce(ctx context.Context, ac *domain.ActionContext, d *domain.ActionDescriptor, set ports.FilterSet, vs *domain.ValidationState) (domain.Outcome, error) {
	instance, err := inv.targets.Create(ctx, ac, vs)
	if err != nil {
		return nil, fmt.Errorf("create target: %w", err)
	}
	if instance == nil {
		inv.logger.DebugContext(ctx, "no target instance",
			slog.String("action", d.Name),
			slog.String("controller", d.Controller),
		)
		return domain.NotFound(), nil
	}
	if d.Target == nil {
		inv.logger.DebugContext(ctx, "action has no target handle", slog.String("action", d.Name))
		return domain.NotFound(), nil
	}

	// Inputs resolve before authorization so that binding side effects on
	// the validation state happen even for requests that are later denied.
	values, err := inv.resolveInputs(ctx, ac, d, vs)
	if err != nil {
		return nil, err
	}

	outcome, err := inv.authorize(ctx, ac, set.Authorization)
	if err != nil {
		return nil, fmt.Errorf("authorization: %w", err)
	}
	if outcome != nil {
		return outcome, nil
	}

	outcome, err = inv.executeAction(ctx, ac, d, set.Action, instance, values, vs)
	if err != nil {
		return nil, fmt.Errorf("action: %w", err)
	}
	return outcome, nil
}

// authorize returns nil when the request may proceed: either no
// authorization filters apply or the chain reached its terminal stage
// without objection.
func (inv *Invoker) authorize(ctx context.Context, ac *domain.ActionContext, filters []ports.AuthorizationFilter) (domain.Outcome, error) {
	if len(filters) == 0 {
		return nil, nil
	}

	ctx, span := inv.tracer.Start(ctx, "authorization")
	defer span.End()

	end := &authorizationEndpoint{}
	ch := pipeline.New("authorization", authorizationLinks(filters), pipeline.Link[*domain.AuthorizationContext](end))

	t, err := ch.Run(ctx, &domain.AuthorizationContext{Action: ac})
	if err != nil {
		return nil, recordError(span, err)
	}
	span.SetAttributes(attribute.String("chain.state", t.State.String()))

	if t.State == domain.StatePassed && !t.HasOutcome() && end.reached {
		return nil, nil
	}
	if t.HasOutcome() {
		return t.Outcome, nil
	}
	return domain.Unauthorized(), nil
}

func (inv *Invoker) executeAction(ctx context.Context, ac *domain.ActionContext, d *domain.ActionDescriptor, filters []ports.ActionFilter, instance any, values map[string]any, vs *domain.ValidationState) (domain.Outcome, error) {
	ctx, span := inv.tracer.Start(ctx, "action")
	defer span.End()

	end := &actionEndpoint{
		target:   d.Target,
		instance: instance,
		outcomes: inv.outcomes,
		logger:   inv.logger,
	}
	ch := pipeline.New("action", actionLinks(filters), pipeline.Link[*domain.ActionExecutingContext](end))

	t, err := ch.Run(ctx, domain.NewActionExecutingContext(ac, values, d.ResultType, vs))
	if err != nil {
		return nil, recordError(span, err)
	}
	span.SetAttributes(attribute.String("chain.state", t.State.String()))

	if t.HasOutcome() {
		return t.Outcome, nil
	}
	if t.State == domain.StateDenied {
		return domain.Forbidden(), nil
	}
	inv.logger.DebugContext(ctx, "action chain produced no outcome",
		slog.String("action", d.Name),
		slog.String("state", t.State.String()),
	)
	return domain.NoContent(), nil
}

// executeResult runs the result chain. The outcome is executed exactly once,
// by the terminal stage or by the innermost filter that short-circuited.
func (inv *Invoker) executeResult(ctx context.Context, ac *domain.ActionContext, filters []ports.ResultFilter, outcome domain.Outcome, vs *domain.ValidationState) error {
	ctx, span := inv.tracer.Start(ctx, "result")
	defer span.End()

	rc := &domain.ResultContext{Action: ac, Outcome: outcome, Validation: vs}
	end := &resultEndpoint{}
	ch := pipeline.New("result", resultLinks(filters, end), pipeline.Link[*domain.ResultContext](end))

	if _, err := ch.Run(ctx, rc); err != nil {
		return recordError(span, err)
	}
	if !end.executed {
		return recordError(span, ErrNoOutcome)
	}
	return nil
}

func recordError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

type noFilters struct{}

func (noFilters) Discover(*domain.ActionDescriptor) (ports.FilterSet, error) {
	return ports.FilterSet{}, nil
}
