package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// RSI represents the Relative Strength Index computed with simple rolling averages of gains and losses.
type RSI struct {
	period int
}

// NewRSI creates a new RSI indicator with default configuration.
func NewRSI() Indicator {
	return &RSI{
		period: 14,
	}
}

// Name returns the name of the indicator.
func (r *RSI) Name() types.IndicatorType {
	return types.IndicatorTypeRSI
}

// Config configures the RSI indicator. Expected parameters: period (int).
func (r *RSI) Config(params ...any) error {
	period, err := periodParam(params)
	if err != nil {
		return err
	}

	r.period = period

	return nil
}

// Compute attaches the "rsi" column.
func (r *RSI) Compute(series types.Series) (map[string][]float64, error) {
	return map[string][]float64{
		"rsi": CalculateRSI(series.Closes(), r.period),
	}, nil
}

// CalculateRSI returns 100 - 100/(1+avg gain/avg loss). A window with gains and no losses
// yields 100; a window with neither yields NaN.
func CalculateRSI(closes []float64, period int) []float64 {
	delta := Diff(closes)
	gains := make([]float64, len(delta))
	losses := make([]float64, len(delta))

	for i, d := range delta {
		if d > 0 {
			gains[i] = d
		} else if d < 0 {
			losses[i] = -d
		}
	}

	avgGain := RollingMean(gains, period)
	avgLoss := RollingMean(losses, period)
	out := NaNs(len(closes))

	for i := range out {
		if math.IsNaN(avgGain[i]) || math.IsNaN(avgLoss[i]) {
			continue
		}

		if avgLoss[i] == 0 {
			if avgGain[i] > 0 {
				out[i] = 100
			}

			continue
		}

		out[i] = 100 - 100/(1+avgGain[i]/avgLoss[i])
	}

	return out
}
