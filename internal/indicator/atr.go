package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// ATR represents the Average True Range indicator, the simple moving average of the true range.
type ATR struct {
	period int
}

// NewATR creates a new ATR indicator with default configuration.
func NewATR() Indicator {
	return &ATR{
		period: 14, // Default period
	}
}

// Name returns the name of the indicator.
func (a *ATR) Name() types.IndicatorType {
	return types.IndicatorTypeATR
}

// Config configures the ATR indicator. Expected parameters: period (int).
func (a *ATR) Config(params ...any) error {
	period, err := periodParam(params)
	if err != nil {
		return err
	}

	a.period = period

	return nil
}

// Compute attaches the "atr" column.
func (a *ATR) Compute(series types.Series) (map[string][]float64, error) {
	return map[string][]float64{
		types.ColumnATR: CalculateATR(series.Highs(), series.Lows(), series.Closes(), a.period),
	}, nil
}

// TrueRange is max(high-low, |high-prev close|, |low-prev close|). The first bar has no
// previous close and uses high-low alone.
func TrueRange(highs, lows, closes []float64) []float64 {
	out := make([]float64, len(highs))

	for i := range highs {
		tr := highs[i] - lows[i]
		if i > 0 && !math.IsNaN(closes[i-1]) {
			tr = math.Max(tr, math.Abs(highs[i]-closes[i-1]))
			tr = math.Max(tr, math.Abs(lows[i]-closes[i-1]))
		}

		out[i] = tr
	}

	return out
}

// CalculateATR returns the period-bar simple average of the true range.
func CalculateATR(highs, lows, closes []float64, period int) []float64 {
	return RollingMean(TrueRange(highs, lows, closes), period)
}

// SeriesATR returns the precomputed "atr" column when the series carries one,
// otherwise the ATR computed with the given period.
func SeriesATR(series types.Series, period int) []float64 {
	if column := series.Column(types.ColumnATR); column.IsSome() {
		return column.Unwrap()
	}

	return CalculateATR(series.Highs(), series.Lows(), series.Closes(), period)
}
