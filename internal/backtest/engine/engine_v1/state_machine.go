package engine

import (
	"math"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/strategy/exit"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// remainingEpsilon is the fraction below which a scaled-out position counts as closed.
const remainingEpsilon = 1e-9

// Costs are the proportional trading costs applied to every fill.
type Costs struct {
	// Slippage moves the buy fill up and the sell fill down by this fraction.
	Slippage float64
	// Commission is charged on both legs, so a round trip costs twice this rate.
	Commission float64
}

// Validate rejects negative or non-finite costs.
func (c Costs) Validate() error {
	if math.IsNaN(c.Slippage) || math.IsInf(c.Slippage, 0) || c.Slippage < 0 {
		return errors.Newf(errors.ErrCodeInvalidCost, "slippage must be a non-negative number, got %v", c.Slippage)
	}

	if math.IsNaN(c.Commission) || math.IsInf(c.Commission, 0) || c.Commission < 0 {
		return errors.Newf(errors.ErrCodeInvalidCost, "commission must be a non-negative number, got %v", c.Commission)
	}

	return nil
}

// Sizer returns how many shares to buy at a fill price. Zero skips the entry.
type Sizer func(fill float64) int64

// StepResult is what happened to the position on one bar.
type StepResult struct {
	// Entered is set when a position was opened on this bar.
	Entered bool
	// EntryFill is the buy fill including slippage, set together with Entered.
	EntryFill float64
	// EntryShares is the number of shares bought, set together with Entered.
	EntryShares int64
	// Partial is a scale-out leg sold on this bar.
	Partial optional.Option[types.PartialExit]
	// Trade is the position closed on this bar.
	Trade optional.Option[types.Trade]
	// ExitShares is the number of shares sold by the closing leg, set together with Trade.
	ExitShares int64
	// Position is the position at the end of the bar. IsOpen is false once it closed.
	Position types.Position
}

// PositionStateMachine walks one series bar by bar, opening a position on the bar after an
// entry signal and closing it when the exit policy fires. It holds at most one position.
type PositionStateMachine struct {
	series      types.Series
	entries     types.EntryTable
	evaluator   exit.Evaluator
	sameBarExit bool
	costs       Costs

	position       types.Position
	lastValidClose float64
	next           int
}

// NewPositionStateMachine binds the exit policy to the series and entry table.
func NewPositionStateMachine(series types.Series, entries types.EntryTable, policy exit.Policy, costs Costs) (*PositionStateMachine, error) {
	if err := costs.Validate(); err != nil {
		return nil, err
	}

	if entries.Len() != series.Len() {
		return nil, errors.Newf(errors.ErrCodeSignalLengthMismatch,
			"entry table has %d rows but the series has %d bars", entries.Len(), series.Len())
	}

	evaluator, err := policy.Bind(series, entries)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeExitPolicyFailed, err, "failed to bind exit policy %s", policy.Name())
	}

	return &PositionStateMachine{
		series:      series,
		entries:     entries,
		evaluator:   evaluator,
		sameBarExit: exit.ExitsOnEntryBar(policy),
		costs:       costs,
	}, nil
}

// Position returns the current position. IsOpen is false when flat.
func (m *PositionStateMachine) Position() types.Position {
	return m.position
}

// Step advances the machine by one bar. Bars must be stepped in ascending order starting at 0.
func (m *PositionStateMachine) Step(index int, sizer Sizer) (StepResult, error) {
	if index != m.next {
		return StepResult{}, errors.Newf(errors.ErrCodeInvalidParameter, "expected bar %d, got %d", m.next, index)
	}

	m.next++

	bar := m.series.Data[index]
	if types.IsValidPrice(bar.Close) {
		m.lastValidClose = bar.Close
	}

	// the first bar has no previous signal to act on
	if index == 0 {
		return StepResult{Position: m.position}, nil
	}

	var result StepResult

	if m.position.IsOpen {
		m.position.HoldingDays++
		if types.IsValidPrice(bar.High) {
			m.position.HighestPrice = math.Max(m.position.HighestPrice, bar.High)
		}
	} else {
		if !m.enter(index, sizer) {
			return StepResult{Position: m.position}, nil
		}

		result.Entered = true
		result.EntryFill = m.position.EntryPrice
		result.EntryShares = m.position.Shares

		if !m.sameBarExit {
			result.Position = m.position

			return result, nil
		}
	}

	decision, err := m.evaluator.Evaluate(m.position, index)
	if err != nil {
		m.position = types.Position{}

		return StepResult{}, errors.Wrapf(errors.ErrCodeExitPolicyFailed, err, "exit policy failed on bar %d", index)
	}

	switch {
	case decision.ShouldExit():
		result.ExitShares = m.position.Shares
		result.Trade = optional.Some(m.close(index, decision))
	case decision.ShouldReduce():
		leg := m.reduce(index, decision)
		result.Partial = optional.Some(leg)

		if m.position.Remaining <= remainingEpsilon {
			result.ExitShares = m.position.Shares
			result.Trade = optional.Some(m.close(index, exit.ExitAtClose(leg.Reason)))
		}
	}

	result.Position = m.position

	return result, nil
}

// enter opens a position when the previous bar signalled and a valid fill and size exist.
func (m *PositionStateMachine) enter(index int, sizer Sizer) bool {
	if !m.entries.Rows[index-1].EntrySignal {
		return false
	}

	reference, ok := m.resolveEntryPrice(index)
	if !ok {
		return false
	}

	fill := reference * (1 + m.costs.Slippage)

	shares := sizer(fill)
	if shares <= 0 {
		return false
	}

	bar := m.series.Data[index]

	highest := bar.High
	if !types.IsValidPrice(highest) {
		highest = reference
	}

	m.position = types.Position{
		IsOpen:         true,
		EntryPrice:     fill,
		ReferencePrice: reference,
		EntryDate:      bar.Time,
		EntryIndex:     index,
		Shares:         shares,
		HoldingDays:    1,
		HighestPrice:   highest,
		Remaining:      1,
	}

	m.evaluator.OnEntry(m.position, index)

	return true
}

// resolveEntryPrice prefers the bar's own entry price, then the previous bar's target
// price, then the bar's open. An unusable result drops the signal.
func (m *PositionStateMachine) resolveEntryPrice(index int) (float64, bool) {
	if price := m.entries.Rows[index].EntryPrice; price.IsSome() && types.IsValidPrice(price.Unwrap()) {
		return price.Unwrap(), true
	}

	price := m.series.Data[index].Open
	if target := m.entries.Rows[index-1].TargetPrice; target.IsSome() && !math.IsNaN(target.Unwrap()) {
		price = target.Unwrap()
	}

	return price, types.IsValidPrice(price)
}

// exitFill is the sell fill for a decision: its level or the close, falling back to the
// last valid close, less slippage.
func (m *PositionStateMachine) exitFill(index int, decision exit.Decision) float64 {
	price := m.series.Data[index].Close
	if decision.Price.IsSome() {
		price = decision.Price.Unwrap()
	}

	if !types.IsValidPrice(price) {
		price = m.lastValidClose
	}

	if !types.IsValidPrice(price) {
		price = m.position.ReferencePrice
	}

	return price * (1 - m.costs.Slippage)
}

func (m *PositionStateMachine) legReturn(fill float64) float64 {
	return (fill-m.position.EntryPrice)/m.position.EntryPrice - 2*m.costs.Commission
}

func (m *PositionStateMachine) reduce(index int, decision exit.Decision) types.PartialExit {
	fraction := math.Min(decision.Reduce, m.position.Remaining)
	fill := m.exitFill(index, decision)

	sold := int64(math.Floor(float64(m.position.Shares) * fraction / m.position.Remaining))

	leg := types.PartialExit{
		Index:    index,
		Date:     m.series.Data[index].Time,
		Price:    fill,
		Fraction: fraction,
		Shares:   sold,
		Return:   m.legReturn(fill),
		Reason:   decision.Reason,
	}

	m.position.Remaining -= fraction
	m.position.Shares -= sold
	m.position.Partials = append(m.position.Partials, leg)

	return leg
}

func (m *PositionStateMachine) close(index int, decision exit.Decision) types.Trade {
	fill := m.exitFill(index, decision)
	finalReturn := m.legReturn(fill)

	shares := m.position.Shares
	tradeReturn := finalReturn

	if len(m.position.Partials) > 0 {
		tradeReturn = m.position.Remaining * finalReturn
		for _, leg := range m.position.Partials {
			tradeReturn += leg.Fraction * leg.Return
			shares += leg.Shares
		}
	}

	trade := types.Trade{
		EntryIndex:  m.position.EntryIndex,
		ExitIndex:   index,
		EntryDate:   m.position.EntryDate,
		ExitDate:    m.series.Data[index].Time,
		EntryPrice:  m.position.EntryPrice,
		ExitPrice:   fill,
		Shares:      shares,
		HoldingDays: m.position.HoldingDays,
		Return:      tradeReturn,
		ExitReason:  decision.Reason,
		Partials:    m.position.Partials,
	}

	m.position = types.Position{}

	return trade
}
