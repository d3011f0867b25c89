// Package runtime assembles configuration, storage, filters, the invoker
// and the HTTP host into one service with a start/shutdown lifecycle.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/actionpipe/internal/activation"
	"github.com/tjfontaine/actionpipe/internal/binding"
	"github.com/tjfontaine/actionpipe/internal/core/domain"
	"github.com/tjfontaine/actionpipe/internal/core/ports"
	"github.com/tjfontaine/actionpipe/internal/filters"
	"github.com/tjfontaine/actionpipe/internal/invoker"
	"github.com/tjfontaine/actionpipe/internal/outcome"
	"github.com/tjfontaine/actionpipe/internal/pkg/config"
	"github.com/tjfontaine/actionpipe/internal/server"
	"github.com/tjfontaine/actionpipe/internal/storage/memory"
	"github.com/tjfontaine/actionpipe/internal/storage/sqldb"
	"github.com/tjfontaine/actionpipe/internal/telemetry"
)

// Application contributes controllers and their routes.
type Application interface {
	Register(r *activation.Registry) error
	Descriptors() []*domain.ActionDescriptor
}

// Runtime is one running action host.
type Runtime struct {
	// Dependencies (injected via options)
	config     *config.Config
	apps       []Application
	store      ports.InvocationStore
	ownsStore  bool
	registry   *prometheus.Registry
	tracer     trace.TracerProvider
	logger     *slog.Logger
	httpClient *http.Client

	// Internal state
	server         *server.Server
	tracerShutdown func(context.Context) error
	errCh          chan error

	mu      sync.Mutex
	started bool
}

// New assembles a runtime. A config is required (WithFileConfig or
// WithConfig).
func New(opts ...Option) (*Runtime, error) {
	rt := &Runtime{
		logger: slog.Default(),
		errCh:  make(chan error, 1),
	}

	for _, opt := range opts {
		if err := opt(rt); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	if rt.config == nil {
		return nil, fmt.Errorf("config required (use WithFileConfig or WithConfig)")
	}
	if rt.registry == nil {
		rt.registry = prometheus.NewRegistry()
	}

	if err := rt.init(); err != nil {
		rt.closeResources(context.Background())
		return nil, err
	}
	return rt, nil
}

func (rt *Runtime) init() error {
	cfg := rt.config

	if rt.tracer == nil {
		tp, shutdown, err := telemetry.InitTracer(telemetry.TracerConfig{
			Enabled:     cfg.Telemetry.Enabled,
			ServiceName: cfg.Telemetry.ServiceName,
		}, rt.logger)
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		rt.tracer = tp
		rt.tracerShutdown = shutdown
	}

	if rt.store == nil {
		store, err := openStore(cfg.Storage)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		rt.store = store
		rt.ownsStore = store != nil
	}

	global, err := filters.NewFromConfig(cfg.Filters, filters.Dependencies{
		Logger:     rt.logger,
		Store:      rt.store,
		Registerer: rt.registry,
		HTTPClient: rt.httpClient,
	})
	if err != nil {
		return fmt.Errorf("build filters: %w", err)
	}
	provider, err := filters.NewProvider(global)
	if err != nil {
		return fmt.Errorf("filter provider: %w", err)
	}

	registry := activation.NewRegistry()
	var descriptors []*domain.ActionDescriptor
	for _, app := range rt.apps {
		if err := app.Register(registry); err != nil {
			return fmt.Errorf("register application: %w", err)
		}
		descriptors = append(descriptors, app.Descriptors()...)
	}

	inv, err := invoker.New(
		invoker.WithFilterProvider(provider),
		invoker.WithTargetFactory(registry),
		invoker.WithInputFormatter(binding.NewJSONFormatter()),
		invoker.WithModelBinder(binding.NewBinder()),
		invoker.WithOutcomeFactory(outcome.NewFactory()),
		invoker.WithLogger(rt.logger),
		invoker.WithTracerProvider(rt.tracer),
	)
	if err != nil {
		return fmt.Errorf("create invoker: %w", err)
	}

	rt.server = server.New(server.Options{
		Port:           cfg.Server.Port,
		Timeout:        cfg.Server.Timeout,
		ServiceName:    cfg.Telemetry.ServiceName,
		TracerProvider: rt.tracer,
	}, rt.logger)
	if err := rt.server.Mount(descriptors, inv); err != nil {
		return fmt.Errorf("mount actions: %w", err)
	}
	if cfg.Metrics.Enabled {
		rt.server.MountMetrics(cfg.Metrics.Path, rt.registry)
	}
	if cfg.Admin.Enabled {
		if rt.store == nil {
			return fmt.Errorf("admin endpoints require storage")
		}
		rt.server.MountAdmin(rt.store)
	}

	rt.logger.Info("runtime assembled",
		slog.Int("actions", len(descriptors)),
		slog.Int("filters", len(global)),
		slog.String("storage", cfg.Storage.Type),
	)
	return nil
}

func openStore(cfg config.StorageConfig) (ports.InvocationStore, error) {
	switch cfg.Type {
	case "", "memory":
		return memory.New(), nil
	case "sqlite":
		return sqldb.NewSQLite(cfg.SQLite.Path)
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

// Handler returns the HTTP handler serving every mounted route.
func (rt *Runtime) Handler() http.Handler {
	return rt.server.Router
}

// Start serves HTTP in the background. Listener failures are reported on
// Errors.
func (rt *Runtime) Start(ctx context.Context) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.started {
		return fmt.Errorf("runtime already started")
	}
	rt.started = true

	go func() {
		if err := rt.server.Start(); err != nil {
			rt.errCh <- err
		}
	}()

	rt.logger.InfoContext(ctx, "runtime started", slog.Int("port", rt.config.Server.Port))
	return nil
}

// Errors reports a server that stopped on its own.
func (rt *Runtime) Errors() <-chan error {
	return rt.errCh
}

// Shutdown drains the server and closes owned resources.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.logger.Info("shutting down runtime")

	if rt.server != nil {
		if err := rt.server.Shutdown(ctx); err != nil {
			rt.logger.Error("failed to shutdown server", slog.String("error", err.Error()))
			return err
		}
	}
	rt.closeResources(ctx)

	rt.logger.Info("runtime shutdown complete")
	return nil
}

func (rt *Runtime) closeResources(ctx context.Context) {
	if rt.ownsStore && rt.store != nil {
		if err := rt.store.Close(); err != nil {
			rt.logger.Error("failed to close storage", slog.String("error", err.Error()))
		}
		rt.ownsStore = false
	}
	if rt.tracerShutdown != nil {
		if err := rt.tracerShutdown(ctx); err != nil {
			rt.logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
		rt.tracerShutdown = nil
	}
}
