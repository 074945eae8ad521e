package entry

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

// breakoutFixture breaks out (k=0.5) on the last bar only, at a level of 116.
func breakoutFixture() types.Series {
	return barSeries(
		bar{100, 110, 90, 105},
		bar{105, 112, 100, 110},
		bar{110, 120, 108, 118},
	)
}

func signals(table types.EntryTable) []bool {
	out := make([]bool, table.Len())
	for i, row := range table.Rows {
		out[i] = row.EntrySignal
	}

	return out
}
