package exit

import (
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// bar is open, high, low, close and optionally volume.
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
		}

		if len(b) > 4 {
			data[i].Volume = b[4]
		}
	}

	series, err := types.NewSeries("TEST", data)
	if err != nil {
		panic(err)
	}

	return series
}

// closeBars builds flat candles (open == close) with a one point range.
func closeBars(closes ...float64) types.Series {
	bars := make([]bar, len(closes))
	for i, c := range closes {
		bars[i] = bar{c, c + 1, c - 1, c}
	}

	return barSeries(bars...)
}

func openPosition(reference float64, days int) types.Position {
	return types.Position{
		IsOpen:         true,
		EntryPrice:     reference,
		ReferencePrice: reference,
		Shares:         100,
		HoldingDays:    days,
		HighestPrice:   reference,
		Remaining:      1,
	}
}

func bind(policy Policy, err error, series types.Series) Evaluator {
	if err != nil {
		panic(err)
	}

	evaluator, err := policy.Bind(series, types.NewEntryTable(series.Len()))
	if err != nil {
		panic(err)
	}

	return evaluator
}
