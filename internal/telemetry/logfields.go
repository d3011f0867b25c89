package telemetry

import (
	"context"
	"maps"
	"sync"
)

// logFieldsKey identifies request-scoped logging fields.
type logFieldsKey struct{}

// LogFields is a mutable set of fields attached to one request's log line.
type LogFields struct {
	mu     sync.Mutex
	fields map[string]string
}

// WithLogFields returns a context carrying an empty field set.
func WithLogFields(ctx context.Context) (context.Context, *LogFields) {
	lf := &LogFields{fields: make(map[string]string)}
	return context.WithValue(ctx, logFieldsKey{}, lf), lf
}

// Snapshot returns a copy of the current fields.
func (lf *LogFields) Snapshot() map[string]string {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	return maps.Clone(lf.fields)
}

// AddLogField attaches a key/value to the request-scoped log fields so the
// request logger can emit it. It is safe to call multiple times. No-op if
// no field set is attached.
func AddLogField(ctx context.Context, key, value string) {
	if value == "" {
		return
	}
	if lf, ok := ctx.Value(logFieldsKey{}).(*LogFields); ok {
		lf.mu.Lock()
		lf.fields[key] = value
		lf.mu.Unlock()
	}
}

// AddError attaches an error message to the request-scoped log fields.
// No-op if err is nil.
func AddError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	AddLogField(ctx, "error", err.Error())
}
