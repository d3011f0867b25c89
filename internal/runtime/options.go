package runtime

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/actionpipe/internal/core/ports"
	"github.com/tjfontaine/actionpipe/internal/pkg/config"
)

// Option is a functional option for configuring a Runtime.
type Option func(*Runtime) error

// WithFileConfig loads configuration from path plus the environment.
func WithFileConfig(path string) Option {
	return func(rt *Runtime) error {
		cfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		rt.config = cfg
		return nil
	}
}

// WithConfig uses an already loaded configuration.
func WithConfig(cfg *config.Config) Option {
	return func(rt *Runtime) error {
		if cfg == nil {
			return fmt.Errorf("config is nil")
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		rt.config = cfg
		return nil
	}
}

// WithApplication adds controllers and their routes.
func WithApplication(app Application) Option {
	return func(rt *Runtime) error {
		if app == nil {
			return fmt.Errorf("application is nil")
		}
		rt.apps = append(rt.apps, app)
		return nil
	}
}

// WithStore overrides the configured invocation store. The caller keeps
// ownership and closes it.
func WithStore(store ports.InvocationStore) Option {
	return func(rt *Runtime) error {
		rt.store = store
		return nil
	}
}

// WithRegistry sets the Prometheus registry metrics filters register with
// and /metrics serves.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(rt *Runtime) error {
		rt.registry = reg
		return nil
	}
}

// WithTracerProvider overrides the configured tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(rt *Runtime) error {
		rt.tracer = tp
		return nil
	}
}

// WithHTTPClient sets the client webhook filters use.
func WithHTTPClient(c *http.Client) Option {
	return func(rt *Runtime) error {
		rt.httpClient = c
		return nil
	}
}

// WithLogger sets the logger used by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(rt *Runtime) error {
		if logger != nil {
			rt.logger = logger
		}
		return nil
	}
}
