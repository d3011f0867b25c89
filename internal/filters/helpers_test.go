package filters

import (
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/tjfontaine/actionpipe/internal/core/domain"
)

// nextSpy stands in for the rest of a chain.
type nextSpy struct {
	calls int
	t     domain.Transition
	err   error
}

func (n *nextSpy) next(ctx context.Context) (domain.Transition, error) {
	n.calls++
	return n.t, n.err
}

func passed() *nextSpy { return &nextSpy{t: domain.Passed()} }

func newActionContext(method, target string, d *domain.ActionDescriptor) (*domain.ActionContext, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(method, target, nil)
	if d == nil {
		d = &domain.ActionDescriptor{Name: "greet", Controller: "greeter", Method: method, Path: "/greet/{name}"}
	}
	ac := domain.NewActionContext(rec, r, d, map[string]string{"name": "alice"})
	ac.RequestID = "req-1"
	return ac, rec
}

func withBearer(ac *domain.ActionContext, key string) {
	ac.Request.Header.Set("Authorization", "Bearer "+key)
}

func okOutcome() domain.Outcome { return domain.NewStatusOutcome(http.StatusOK) }
