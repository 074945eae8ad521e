package indicator

import (
	"math"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

func testSeries(highs, lows, closes, volumes []float64) types.Series {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	data := make([]types.MarketData, len(closes))

	for i := range closes {
		data[i] = types.MarketData{
			Symbol: "TEST",
			Time:   start.AddDate(0, 0, i),
			Open:   closes[i],
			High:   highs[i],
			Low:    lows[i],
			Close:  closes[i],
		}

		if volumes != nil {
			data[i].Volume = volumes[i]
		}
	}

	series, err := types.NewSeries("TEST", data)
	if err != nil {
		panic(err)
	}

	return series
}

func closeSeries(closes ...float64) types.Series {
	highs := make([]float64, len(closes))
	lows := make([]float64, len(closes))

	for i, c := range closes {
		highs[i] = c + 1
		lows[i] = c - 1
	}

	return testSeries(highs, lows, closes, nil)
}

func assertFloats(expected, actual []float64) bool {
	if len(expected) != len(actual) {
		return false
	}

	for i := range expected {
		if math.IsNaN(expected[i]) != math.IsNaN(actual[i]) {
			return false
		}

		if !math.IsNaN(expected[i]) && math.Abs(expected[i]-actual[i]) > 1e-9 {
			return false
		}
	}

	return true
}
