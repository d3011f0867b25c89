package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/actionpipe/internal/core/domain"
	"github.com/tjfontaine/actionpipe/internal/outcome"
	"github.com/tjfontaine/actionpipe/internal/telemetry"
)

func (s *Server) actionHandler(d *domain.ActionDescriptor, inv ActionInvoker) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		telemetry.AddLogField(ctx, "action", d.Name)

		tw := &trackingWriter{ResponseWriter: w}
		ac := domain.NewActionContext(tw, r, d, routeValues(r))
		ac.RequestID = GetRequestID(ctx)

		err := inv.Invoke(ctx, ac, d)
		if err == nil {
			return
		}

		telemetry.AddError(ctx, err)
		s.logger.ErrorContext(ctx, "action invocation failed",
			slog.String("request_id", ac.RequestID),
			slog.String("action", d.Name),
			slog.String("error", err.Error()),
		)
		if tw.written || errors.Is(err, context.Canceled) {
			return
		}
		if werr := outcome.NewProblem(outcome.ToCanonicalError(err)).Execute(ctx, ac); werr != nil {
			s.logger.ErrorContext(ctx, "failed to write error response", slog.String("error", werr.Error()))
		}
	})
}

// routeValues copies chi's URL parameters for the current route.
func routeValues(r *http.Request) map[string]string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return map[string]string{}
	}
	values := make(map[string]string, len(rctx.URLParams.Keys))
	for i, k := range rctx.URLParams.Keys {
		if k == "*" {
			continue
		}
		values[k] = rctx.URLParams.Values[i]
	}
	return values
}

// trackingWriter records whether a response was started.
type trackingWriter struct {
	http.ResponseWriter
	written bool
}

func (tw *trackingWriter) WriteHeader(code int) {
	tw.written = true
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *trackingWriter) Write(b []byte) (int, error) {
	tw.written = true
	return tw.ResponseWriter.Write(b)
}

func (tw *trackingWriter) Unwrap() http.ResponseWriter {
	return tw.ResponseWriter
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
