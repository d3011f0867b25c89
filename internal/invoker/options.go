package invoker

import (
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/actionpipe/internal/core/ports"
)

// Option is a functional option for configuring an Invoker.
type Option func(*Invoker) error

// WithFilterProvider sets filter discovery. Without it no filters apply.
func WithFilterProvider(p ports.FilterProvider) Option {
	return func(inv *Invoker) error {
		if p == nil {
			return fmt.Errorf("filter provider is nil")
		}
		inv.filters = p
		return nil
	}
}

// WithTargetFactory sets the factory that creates action instances.
func WithTargetFactory(f ports.TargetFactory) Option {
	return func(inv *Invoker) error {
		inv.targets = f
		return nil
	}
}

// WithInputFormatter sets the body slot resolver.
func WithInputFormatter(f ports.InputFormatter) Option {
	return func(inv *Invoker) error {
		inv.formatter = f
		return nil
	}
}

// WithModelBinder sets the bound slot resolver.
func WithModelBinder(b ports.ModelBinder) Option {
	return func(inv *Invoker) error {
		inv.binder = b
		return nil
	}
}

// WithOutcomeFactory sets the converter from return values to outcomes.
func WithOutcomeFactory(f ports.OutcomeFactory) Option {
	return func(inv *Invoker) error {
		inv.outcomes = f
		return nil
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(inv *Invoker) error {
		if logger != nil {
			inv.logger = logger
		}
		return nil
	}
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(inv *Invoker) error {
		if tp != nil {
			inv.tracer = tp.Tracer(tracerName)
		}
		return nil
	}
}
