package domain

import "context"

// ChainState is the state a chain link hands back to its caller.
type ChainState int

const (
	// StatePending means no link decided anything.
	StatePending ChainState = iota
	// StateCompleted carries an outcome that ends the chain.
	StateCompleted
	// StateDenied marks failure without an outcome of its own.
	StateDenied
	// StatePassed is only produced by a terminal authorization stage.
	StatePassed
)

func (s ChainState) String() string {
	switch s {
	case StateCompleted:
		return "completed"
	case StateDenied:
		return "denied"
	case StatePassed:
		return "passed"
	default:
		return "pending"
	}
}

// Transition is the result of running a link and everything after it.
type Transition struct {
	State   ChainState
	Outcome Outcome
}

// Pending is the zero transition.
func Pending() Transition { return Transition{State: StatePending} }

// Completed ends the chain with o.
func Completed(o Outcome) Transition { return Transition{State: StateCompleted, Outcome: o} }

// Denied marks the chain as failed without an outcome.
func Denied() Transition { return Transition{State: StateDenied} }

// DeniedWith marks the chain as failed and supplies the outcome to run.
func DeniedWith(o Outcome) Transition { return Transition{State: StateDenied, Outcome: o} }

// Passed signals that the terminal stage was reached without objection.
func Passed() Transition { return Transition{State: StatePassed} }

// HasOutcome reports whether an outcome was supplied.
func (t Transition) HasOutcome() bool { return t.Outcome != nil }

// Next invokes the rest of the chain. It may be called at most once.
type Next func(ctx context.Context) (Transition, error)
