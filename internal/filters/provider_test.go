package filters

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tjfontaine/actionpipe/internal/core/domain"
)

type namedAuthz string

func (namedAuthz) OnAuthorization(ctx context.Context, c *domain.AuthorizationContext, next domain.Next) (domain.Transition, error) {
	return next(ctx)
}

type namedAction string

func (namedAction) OnAction(ctx context.Context, c *domain.ActionExecutingContext, next domain.Next) (domain.Transition, error) {
	return next(ctx)
}

// both takes part in the action and result chains.
type both string

func (both) OnAction(ctx context.Context, c *domain.ActionExecutingContext, next domain.Next) (domain.Transition, error) {
	return next(ctx)
}

func (both) OnResult(ctx context.Context, c *domain.ResultContext, next domain.Next) (domain.Transition, error) {
	return next(ctx)
}

func TestProvider_OrdersByOrderThenScope(t *testing.T) {
	p, err := NewProvider([]domain.FilterDescriptor{
		{Name: "g-late", Filter: namedAction("g-late"), Order: 10},
		{Name: "g-tie", Filter: namedAction("g-tie"), Order: 5},
	})
	require.NoError(t, err)

	d := &domain.ActionDescriptor{
		Name: "greet",
		Filters: []domain.FilterDescriptor{
			{Name: "a-tie", Filter: namedAction("a-tie"), Order: 5},
			{Name: "a-first", Filter: namedAction("a-first"), Order: -1},
		},
	}

	set, err := p.Discover(d)
	require.NoError(t, err)

	var got []string
	for _, f := range set.Action {
		got = append(got, string(f.(namedAction)))
	}
	assert.Equal(t, []string{"a-first", "g-tie", "a-tie", "g-late"}, got)
}

func TestProvider_ClassifiesByInterface(t *testing.T) {
	p, err := NewProvider([]domain.FilterDescriptor{
		{Name: "authz", Filter: namedAuthz("authz")},
		{Name: "both", Filter: both("both")},
	})
	require.NoError(t, err)

	set, err := p.Discover(&domain.ActionDescriptor{Name: "greet"})
	require.NoError(t, err)

	assert.Len(t, set.Authorization, 1)
	assert.Len(t, set.Action, 1)
	assert.Len(t, set.Result, 1)
}

func TestProvider_When(t *testing.T) {
	p, err := NewProvider([]domain.FilterDescriptor{
		{Name: "get-only", Filter: namedAction("get-only"), When: `method == "GET"`},
		{Name: "greeter", Filter: namedAction("greeter"), When: `controller == "greeter" && name startsWith "gr"`},
	})
	require.NoError(t, err)

	set, err := p.Discover(&domain.ActionDescriptor{Name: "greet", Controller: "greeter", Method: "POST"})
	require.NoError(t, err)
	require.Len(t, set.Action, 1)
	assert.Equal(t, namedAction("greeter"), set.Action[0])

	set, err = p.Discover(&domain.ActionDescriptor{Name: "echo", Controller: "echo", Method: "GET"})
	require.NoError(t, err)
	require.Len(t, set.Action, 1)
	assert.Equal(t, namedAction("get-only"), set.Action[0])
}

func TestProvider_CachesPerDescriptor(t *testing.T) {
	p, err := NewProvider(nil)
	require.NoError(t, err)

	d := &domain.ActionDescriptor{
		Name:    "greet",
		Filters: []domain.FilterDescriptor{{Name: "a", Filter: namedAction("a")}},
	}
	first, err := p.Discover(d)
	require.NoError(t, err)

	second, err := p.Discover(d)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, p.sets, 1)
}

func TestProvider_RejectsInvalidFilters(t *testing.T) {
	_, err := NewProvider([]domain.FilterDescriptor{{Name: "bogus", Filter: "not a filter"}})
	assert.ErrorContains(t, err, "implements no filter interface")

	_, err = NewProvider([]domain.FilterDescriptor{{Name: "bad-when", Filter: namedAction("x"), When: `method ==`}})
	assert.ErrorContains(t, err, "compile when")

	_, err = NewProvider([]domain.FilterDescriptor{{Name: "not-bool", Filter: namedAction("x"), When: `method`}})
	assert.Error(t, err)

	p, err := NewProvider(nil)
	require.NoError(t, err)
	_, err = p.Discover(&domain.ActionDescriptor{
		Name:    "greet",
		Filters: []domain.FilterDescriptor{{Name: "bogus", Filter: 42}},
	})
	assert.ErrorContains(t, err, "action greet")
}
