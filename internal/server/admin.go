package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/actionpipe/internal/core/domain"
	"github.com/tjfontaine/actionpipe/internal/core/ports"
	"github.com/tjfontaine/actionpipe/internal/storage"
)

type adminHandler struct {
	store  ports.InvocationStore
	logger *slog.Logger
}

type invocationList struct {
	Object string                     `json:"object"`
	Data   []*domain.InvocationRecord `json:"data"`
}

func (h *adminHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := ports.InvocationListOptions{Action: q.Get("action")}

	for key, dst := range map[string]*int{"status": &opts.Status, "limit": &opts.Limit, "offset": &opts.Offset} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, domain.ErrInvalidRequest(key+" must be a non-negative integer").WithField(key))
			return
		}
		*dst = n
	}

	recs, err := h.store.ListInvocations(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list invocations", slog.String("error", err.Error()))
		writeError(w, domain.ErrServer("failed to list invocations"))
		return
	}
	if recs == nil {
		recs = []*domain.InvocationRecord{}
	}
	writeJSON(w, http.StatusOK, invocationList{Object: "list", Data: recs})
}

func (h *adminHandler) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.store.GetInvocation(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, domain.ErrNotFound("invocation not found"))
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get invocation", slog.String("error", err.Error()))
		writeError(w, domain.ErrServer("failed to get invocation"))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func writeError(w http.ResponseWriter, apiErr *domain.APIError) {
	writeJSON(w, apiErr.HTTPStatusCode(), map[string]*domain.APIError{"error": apiErr})
}
