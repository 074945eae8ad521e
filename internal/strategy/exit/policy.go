// Package exit implements the exit policies plugged into the position state machine.
//
// A Policy holds immutable parameters. Bind precomputes whatever the policy needs over
// the whole series and returns an Evaluator holding the per-run state, so one Policy can
// serve many concurrent runs.
package exit

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// Policy decides when an open position is closed.
type Policy interface {
	// Name returns the registry name of the policy, e.g. "atr".
	Name() string
	// Bind prepares an evaluator for one run over the series.
	Bind(series types.Series, entries types.EntryTable) (Evaluator, error)
}

// Evaluator is the per-run half of a Policy. It is not safe for concurrent use.
type Evaluator interface {
	// OnEntry is called on the bar a position is opened, after the position is filled.
	OnEntry(position types.Position, index int)
	// Evaluate is called on every bar the position stays open, after HoldingDays and
	// HighestPrice have been updated for that bar.
	Evaluate(position types.Position, index int) (Decision, error)
}

// SameBarExit is implemented by policies that are also evaluated on the entry bar.
type SameBarExit interface {
	ExitsOnEntryBar() bool
}

// Parametrized is implemented by policies that can report their effective parameters.
type Parametrized interface {
	Params() map[string]any
}

// Decision is the outcome of evaluating one bar.
type Decision struct {
	// Exit closes the whole remaining position.
	Exit   bool
	Reason types.ExitReason
	// Price is the fill level before slippage. None fills at the close.
	Price optional.Option[float64]
	// Reduce is the fraction of the original position sold on this bar without closing it.
	Reduce float64
}

// Hold keeps the position open.
func Hold() Decision {
	return Decision{}
}

// ExitAtClose closes the position at the bar's close.
func ExitAtClose(reason types.ExitReason) Decision {
	return Decision{Exit: true, Reason: reason}
}

// ExitAt closes the position at a given level.
func ExitAt(reason types.ExitReason, price float64) Decision {
	return Decision{Exit: true, Reason: reason, Price: optional.Some(price)}
}

// ShouldExit reports whether the decision closes the position.
func (d Decision) ShouldExit() bool {
	return d.Exit
}

// ShouldReduce reports whether the decision sells part of the position.
func (d Decision) ShouldReduce() bool {
	return !d.Exit && d.Reduce > 0
}

