// Package server hosts action descriptors on a chi router.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/actionpipe/internal/core/domain"
	"github.com/tjfontaine/actionpipe/internal/core/ports"
)

// ActionInvoker runs one action for one request.
type ActionInvoker interface {
	Invoke(ctx context.Context, ac *domain.ActionContext, d *domain.ActionDescriptor) error
}

// Options configures a Server.
type Options struct {
	Port    int
	Timeout time.Duration
	// ServiceName names the otelhttp server span.
	ServiceName string
	// TracerProvider overrides the global provider for otelhttp.
	TracerProvider trace.TracerProvider
}

type Server struct {
	Router     *chi.Mux
	Port       int
	logger     *slog.Logger
	httpServer *http.Server
}

func New(opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "actiond"
	}

	r := chi.NewRouter()

	// Apply middleware in order
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(TimeoutMiddleware(opts.Timeout))
	r.Use(middleware.Recoverer)

	// Wrap with OpenTelemetry HTTP instrumentation
	otelOpts := []otelhttp.Option{}
	if opts.TracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(opts.TracerProvider))
	}
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, opts.ServiceName, otelOpts...)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return &Server{
		Router:     r,
		Port:       opts.Port,
		logger:     logger,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", opts.Port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Mount registers every descriptor on its method and path.
func (s *Server) Mount(descriptors []*domain.ActionDescriptor, inv ActionInvoker) error {
	if inv == nil {
		return fmt.Errorf("mount: invoker required")
	}
	for _, d := range descriptors {
		if d == nil {
			continue
		}
		if d.Method == "" || d.Path == "" {
			return fmt.Errorf("mount %s: method and path required", d.Name)
		}
		s.Router.Method(d.Method, d.Path, s.actionHandler(d, inv))
		s.logger.Debug("action mounted",
			slog.String("action", d.Name),
			slog.String("method", d.Method),
			slog.String("path", d.Path),
		)
	}
	return nil
}

// MountMetrics serves g in the Prometheus text format at path.
func (s *Server) MountMetrics(path string, g prometheus.Gatherer) {
	if path == "" {
		path = "/metrics"
	}
	s.Router.Handle(path, promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}

// MountAdmin serves the read-only audit view over store.
func (s *Server) MountAdmin(store ports.InvocationStore) {
	h := &adminHandler{store: store, logger: s.logger}
	s.Router.Route("/admin", func(r chi.Router) {
		r.Get("/invocations", h.list)
		r.Get("/invocations/{id}", h.get)
	})
}

// Start listens on the configured port until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting server", slog.Int("port", s.Port))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
