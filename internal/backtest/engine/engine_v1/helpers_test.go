package engine

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/strategy/entry"
	"github.com/rxtech-lab/argo-backtest/internal/strategy/exit"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// bar is open, high, low, close.
type bar []float64

func barSeries(bars ...bar) types.Series {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	data := make([]types.MarketData, len(bars))

	for i, b := range bars {
		data[i] = types.MarketData{
			Symbol: "TEST",
			Time:   start.AddDate(0, 0, i),
			Open:   b[0],
			High:   b[1],
			Low:    b[2],
			Close:  b[3],
			Volume: 1000,
		}
	}

	series, err := types.NewSeries("TEST", data)
	if err != nil {
		panic(err)
	}

	return series
}

// flatBars is one bar per close with open equal to close and a one point range.
func flatBars(closes ...float64) types.Series {
	bars := make([]bar, len(closes))
	for i, c := range closes {
		bars[i] = bar{c, c + 1, c - 1, c}
	}

	return barSeries(bars...)
}

// signalTable signals on the given bars and carries no prices.
func signalTable(n int, signalBars ...int) types.EntryTable {
	table := types.NewEntryTable(n)
	for _, i := range signalBars {
		table.Rows[i].EntrySignal = true
	}

	return table
}

// breakoutSeries breaks out at k=0.5 on bar 1 only, at a level of 115.
func breakoutSeries() types.Series {
	return barSeries(
		bar{100, 110, 90, 105},
		bar{105, 120, 104, 118},
		bar{119, 124, 117, 121},
	)
}

func someFloat(value float64) optional.Option[float64] {
	return optional.Some(value)
}

func mustExit(policy exit.Policy, err error) exit.Policy {
	if err != nil {
		panic(err)
	}

	return policy
}

func mustEntry(provider entry.Provider, err error) entry.Provider {
	if err != nil {
		panic(err)
	}

	return provider
}

func someTime(value time.Time) optional.Option[time.Time] {
	return optional.Some(value)
}
