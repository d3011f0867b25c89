package filters

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tjfontaine/actionpipe/internal/core/domain"
	"github.com/tjfontaine/actionpipe/internal/core/ports"
)

// MetricsFilter records Prometheus metrics for every executed outcome.
type MetricsFilter struct {
	// InvocationsTotal tracks completed invocations by action and status
	InvocationsTotal *prometheus.CounterVec
	// ResultDuration tracks outcome execution time in seconds
	ResultDuration *prometheus.HistogramVec
}

// NewMetricsFilter registers the collectors with reg. A nil reg uses the
// default registerer.
func NewMetricsFilter(reg prometheus.Registerer) *MetricsFilter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &MetricsFilter{
		InvocationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "actionpipe",
				Name:      "invocations_total",
				Help:      "Total number of action invocations by status",
			},
			[]string{"action", "status"},
		),
		ResultDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "actionpipe",
				Name:      "result_duration_seconds",
				Help:      "Duration of outcome execution in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"action"},
		),
	}
}

func (f *MetricsFilter) OnResult(ctx context.Context, c *domain.ResultContext, next domain.Next) (domain.Transition, error) {
	start := time.Now()
	action := c.Action.ActionName()

	t, err := next(ctx)

	status := "error"
	if err == nil && c.Outcome != nil {
		status = strconv.Itoa(domain.StatusOf(c.Outcome))
	}
	f.InvocationsTotal.WithLabelValues(action, status).Inc()
	f.ResultDuration.WithLabelValues(action).Observe(time.Since(start).Seconds())
	return t, err
}

var _ ports.ResultFilter = (*MetricsFilter)(nil)
