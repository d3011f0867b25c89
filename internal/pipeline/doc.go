// Package pipeline provides the chain runner shared by the authorization,
// action and result chains.
//
// A chain is an ordered list of links followed by a terminal stage that the
// invoker appends. Each link receives the chain input and a next function,
// and returns a domain.Transition describing how the chain ended:
//
//	Pending   nothing decided (a link returned without calling next)
//	Completed an outcome ends the chain
//	Denied    failure, optionally with an outcome
//	Passed    the terminal authorization stage was reached
//
// A link short-circuits by returning without calling next. A link that calls
// next may return the downstream transition unchanged or replace it:
//
//	func (f *audit) Invoke(ctx context.Context, c *domain.ResultContext, next domain.Next) (domain.Transition, error) {
//		t, err := next(ctx)
//		if err != nil {
//			return t, err
//		}
//		f.record(c)
//		return t, nil
//	}
//
// next is single-shot. Cancellation of ctx is checked before each link runs
// and is returned to the caller unchanged.
package pipeline
