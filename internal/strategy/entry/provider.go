// Package entry implements the entry signal providers. Every provider is a pure function
// of the price series: it returns one SignalRow per bar and never mutates its input.
package entry

import (
	"math"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// Provider generates entry signals for a whole series.
type Provider interface {
	// Name returns the registry name of the provider, e.g. "volatility_breakout".
	Name() string
	// Generate returns a table with exactly one row per bar of the series.
	Generate(series types.Series) (types.EntryTable, error)
}

// Parametrized is implemented by providers that can report their effective parameters.
type Parametrized interface {
	Params() map[string]any
}

// ColumnTargetPrice is the diagnostic column holding the breakout level of each bar.
const ColumnTargetPrice = "target_price"

// prevRange is the previous bar's high-low range, NaN on the first bar.
func prevRange(series types.Series) []float64 {
	highs := series.Highs()
	lows := series.Lows()
	ranges := make([]float64, len(highs))

	for i := range highs {
		ranges[i] = highs[i] - lows[i]
	}

	return indicator.Shift(ranges, 1)
}

// breakoutTargets returns open + previous range * k for every bar, k given per bar.
func breakoutTargets(series types.Series, k []float64) []float64 {
	ranges := prevRange(series)
	targets := make([]float64, series.Len())

	for i, bar := range series.Data {
		targets[i] = bar.Open + ranges[i]*k[i]
	}

	return targets
}

func constant(n int, value float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}

	return out
}

// crossesAbove reports high > level per bar; NaN levels never cross.
func crossesAbove(series types.Series, levels []float64) []bool {
	out := make([]bool, series.Len())
	for i, bar := range series.Data {
		out[i] = bar.High > levels[i]
	}

	return out
}

func and(a []bool, others ...[]bool) []bool {
	out := make([]bool, len(a))
	for i := range a {
		out[i] = a[i]
		for _, o := range others {
			out[i] = out[i] && o[i]
		}
	}

	return out
}

func always(n int, value bool) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = value
	}

	return out
}

func someIfValid(value float64) optional.Option[float64] {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return optional.None[float64]()
	}

	return optional.Some(value)
}

// breakoutTable builds the normalized table of a breakout provider: the level is published
// as TargetPrice on every bar and as EntryPrice on signal bars only.
func breakoutTable(signals []bool, targets []float64) types.EntryTable {
	table := types.NewEntryTable(len(signals))

	for i := range signals {
		table.Rows[i] = types.SignalRow{
			EntrySignal: signals[i],
			TargetPrice: someIfValid(targets[i]),
		}

		if signals[i] {
			table.Rows[i].EntryPrice = someIfValid(targets[i])
		}
	}

	table.Columns[ColumnTargetPrice] = targets

	return table
}

// rsi14 is the 14-bar simple RSI shared by several providers.
func rsi14(series types.Series) []float64 {
	return indicator.CalculateRSI(series.Closes(), 14)
}
