package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/tjfontaine/actionpipe/internal/core/domain"
)

// ErrNextCalledTwice is returned when a link invokes next more than once.
var ErrNextCalledTwice = errors.New("next called more than once")

// Link is one stage of a chain over input C.
type Link[C any] interface {
	Invoke(ctx context.Context, c C, next domain.Next) (domain.Transition, error)
}

// LinkFunc adapts a function to Link.
type LinkFunc[C any] func(ctx context.Context, c C, next domain.Next) (domain.Transition, error)

func (f LinkFunc[C]) Invoke(ctx context.Context, c C, next domain.Next) (domain.Transition, error) {
	return f(ctx, c, next)
}

// Chain is an ordered list of links that always ends in a terminal stage.
type Chain[C any] struct {
	name  string
	links []Link[C]
}

// New builds a chain from links followed by terminal. The links slice is
// copied; the caller's slice is never appended to.
func New[C any](name string, links []Link[C], terminal Link[C]) *Chain[C] {
	all := make([]Link[C], 0, len(links)+1)
	all = append(all, links...)
	if terminal != nil {
		all = append(all, terminal)
	}
	return &Chain[C]{name: name, links: all}
}

// Name returns the chain name used in errors and spans.
func (ch *Chain[C]) Name() string {
	return ch.name
}

// Len returns the number of links including the terminal stage.
func (ch *Chain[C]) Len() int {
	return len(ch.links)
}

// Run executes the chain against c. Links run strictly in order; the next
// link starts only after the previous one called next.
func (ch *Chain[C]) Run(ctx context.Context, c C) (domain.Transition, error) {
	return ch.next(0, c)(ctx)
}

func (ch *Chain[C]) next(i int, c C) domain.Next {
	called := false
	return func(ctx context.Context) (domain.Transition, error) {
		if called {
			return domain.Pending(), fmt.Errorf("%s chain link %d: %w", ch.name, i-1, ErrNextCalledTwice)
		}
		called = true

		// Falling off the end only happens for chains built without a terminal.
		if i >= len(ch.links) {
			return domain.Pending(), nil
		}
		if err := ctx.Err(); err != nil {
			return domain.Pending(), err
		}
		return ch.links[i].Invoke(ctx, c, ch.next(i+1, c))
	}
}

// Run is a convenience for a chain without a terminal stage.
func Run[C any](ctx context.Context, name string, links []Link[C], c C) (domain.Transition, error) {
	return New(name, links, nil).Run(ctx, c)
}
