package filters

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/tjfontaine/actionpipe/internal/core/domain"
	"github.com/tjfontaine/actionpipe/internal/core/ports"
	"github.com/tjfontaine/actionpipe/internal/telemetry"
)

// LoggingFilter logs every executed outcome and adds its status to the
// request log line.
type LoggingFilter struct {
	logger *slog.Logger
}

func NewLoggingFilter(logger *slog.Logger) *LoggingFilter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingFilter{logger: logger}
}

func (f *LoggingFilter) OnResult(ctx context.Context, c *domain.ResultContext, next domain.Next) (domain.Transition, error) {
	start := time.Now()
	status := 0
	if c.Outcome != nil {
		status = domain.StatusOf(c.Outcome)
	}

	t, err := next(ctx)

	attrs := []slog.Attr{
		slog.String("request_id", c.Action.RequestID),
		slog.String("action", c.Action.ActionName()),
		slog.Int("status", status),
		slog.Duration("duration", time.Since(start)),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		f.logger.LogAttrs(ctx, slog.LevelWarn, "outcome failed", attrs...)
		return t, err
	}

	telemetry.AddLogField(ctx, "outcome_status", strconv.Itoa(status))
	f.logger.LogAttrs(ctx, slog.LevelInfo, "outcome executed", attrs...)
	return t, nil
}

var _ ports.ResultFilter = (*LoggingFilter)(nil)
