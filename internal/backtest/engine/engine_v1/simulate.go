package engine

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/strategy/entry"
	"github.com/rxtech-lab/argo-backtest/internal/strategy/exit"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// unitSize holds one share per trade. Trade-only simulations compound returns and never
// look at the share count.
func unitSize(float64) int64 {
	return 1
}

// Simulate runs the same position state machine without an account. Each closed trade
// contributes its return on its exit bar and cumulative returns compound those.
func Simulate(series types.Series, provider entry.Provider, policy exit.Policy, costs Costs) (*types.Result, error) {
	if err := series.Validate(); err != nil {
		return nil, err
	}

	entries, err := GenerateEntries(series, provider)
	if err != nil {
		return nil, err
	}

	return SimulateEntries(series, entries, provider.Name(), policy, costs)
}

// SimulateEntries is Simulate over an entry table that was already generated, so one table
// can be reused across exit policies.
func SimulateEntries(series types.Series, entries types.EntryTable, entryName string, policy exit.Policy, costs Costs) (*types.Result, error) {
	if err := series.Validate(); err != nil {
		return nil, err
	}

	machine, err := NewPositionStateMachine(series, entries, policy, costs)
	if err != nil {
		return nil, err
	}

	result := &types.Result{
		Symbol:        series.Symbol,
		EntryStrategy: entryName,
		ExitStrategy:  policy.Name(),
		Rows:          make([]types.ResultRow, 0, series.Len()),
		OpenPosition:  optional.None[types.Position](),
	}

	firstClose := series.Data[0].Close
	cumulative := 1.0

	for i, bar := range series.Data {
		step, err := machine.Step(i, unitSize)
		if err != nil {
			return nil, err
		}

		row := types.ResultRow{
			Time:        bar.Time,
			Close:       bar.Close,
			EntrySignal: entries.Rows[i].EntrySignal,
		}

		if step.Trade.IsSome() {
			trade := step.Trade.Unwrap()

			row.ExitSignal = true
			row.ExitReason = trade.ExitReason
			row.HoldingDays = trade.HoldingDays
			row.TradeReturns = trade.Return
			row.Returns = trade.Return
			result.Trades = append(result.Trades, trade)
		} else if step.Position.IsOpen {
			row.Position = step.Position.Remaining
			row.HoldingDays = step.Position.HoldingDays
		}

		if step.Partial.IsSome() && step.Trade.IsNone() {
			row.ExitReason = step.Partial.Unwrap().Reason
		}

		cumulative *= 1 + row.Returns
		row.CumulativeReturns = cumulative
		row.BuyHoldReturns = bar.Close / firstClose

		result.Rows = append(result.Rows, row)
	}

	if position := machine.Position(); position.IsOpen {
		result.OpenPosition = optional.Some(position)
	}

	return result, nil
}

// ExitSignals reports, for every bar, whether the policy closed a position there, how long
// the position had been held and why. It runs the state machine without costs.
func ExitSignals(series types.Series, entries types.EntryTable, policy exit.Policy) (types.ExitTable, error) {
	machine, err := NewPositionStateMachine(series, entries, policy, Costs{})
	if err != nil {
		return types.ExitTable{}, err
	}

	table := types.ExitTable{Rows: make([]types.ExitRow, series.Len())}

	for i := range series.Data {
		step, err := machine.Step(i, unitSize)
		if err != nil {
			return types.ExitTable{}, err
		}

		switch {
		case step.Trade.IsSome():
			trade := step.Trade.Unwrap()
			table.Rows[i] = types.ExitRow{ExitSignal: true, HoldingDays: trade.HoldingDays, ExitReason: trade.ExitReason}
		case step.Position.IsOpen:
			table.Rows[i].HoldingDays = step.Position.HoldingDays
		}
	}

	return table, nil
}
