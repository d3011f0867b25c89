package filters

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tjfontaine/actionpipe/internal/core/domain"
	"github.com/tjfontaine/actionpipe/internal/core/ports"
)

// AuditFilter appends an InvocationRecord for every executed outcome.
// Store failures are logged and never fail the request.
type AuditFilter struct {
	store  ports.InvocationStore
	logger *slog.Logger
	now    func() time.Time
}

func NewAuditFilter(store ports.InvocationStore, logger *slog.Logger) *AuditFilter {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditFilter{store: store, logger: logger, now: time.Now}
}

// auditMetadata is stored as the record's JSON metadata.
type auditMetadata struct {
	Principal string              `json:"principal,omitempty"`
	Route     map[string]string   `json:"route,omitempty"`
	Errors    map[string][]string `json:"errors,omitempty"`
}

func (f *AuditFilter) OnResult(ctx context.Context, c *domain.ResultContext, next domain.Next) (domain.Transition, error) {
	start := f.now()

	t, err := next(ctx)
	if err != nil {
		return t, err
	}

	ac := c.Action
	rec := &domain.InvocationRecord{
		ID:         uuid.New().String(),
		RequestID:  ac.RequestID,
		Action:     ac.ActionName(),
		Valid:      true,
		DurationNs: f.now().Sub(start).Nanoseconds(),
		CreatedAt:  start.UTC(),
	}
	if c.Outcome != nil {
		rec.Status = domain.StatusOf(c.Outcome)
	}
	if r := ac.Request; r != nil {
		rec.Method = r.Method
		rec.Path = r.URL.Path
	}

	meta := auditMetadata{Route: ac.RouteValues}
	if p, ok := ac.Principal(); ok {
		meta.Principal = p.Name
	}
	if vs := c.Validation; vs != nil && !vs.IsValid() {
		rec.Valid = false
		meta.Errors = vs.Messages()
	}
	if b, err := json.Marshal(meta); err == nil {
		rec.Metadata = b
	}

	// Detached: the response is already written.
	if err := f.store.RecordInvocation(context.WithoutCancel(ctx), rec); err != nil {
		f.logger.ErrorContext(ctx, "failed to record invocation",
			slog.String("action", rec.Action),
			slog.String("error", err.Error()),
		)
	}
	return t, nil
}

var _ ports.ResultFilter = (*AuditFilter)(nil)
