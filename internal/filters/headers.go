package filters

import (
	"context"

	"github.com/tjfontaine/actionpipe/internal/core/domain"
	"github.com/tjfontaine/actionpipe/internal/core/ports"
)

// HeadersFilter sets static response headers and X-Action before the
// outcome writes the response.
type HeadersFilter struct {
	headers map[string]string
}

func NewHeadersFilter(headers map[string]string) *HeadersFilter {
	return &HeadersFilter{headers: headers}
}

func (f *HeadersFilter) OnResult(ctx context.Context, c *domain.ResultContext, next domain.Next) (domain.Transition, error) {
	if w := c.Action.Response; w != nil {
		h := w.Header()
		for k, v := range f.headers {
			h.Set(k, v)
		}
		if name := c.Action.ActionName(); name != "" {
			h.Set("X-Action", name)
		}
	}
	return next(ctx)
}

var _ ports.ResultFilter = (*HeadersFilter)(nil)
