package indicator

import (
	"fmt"
	"math"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// EMA represents the exponential moving average of closes.
type EMA struct {
	period int
}

// NewEMA creates a new EMA indicator with default configuration.
func NewEMA() Indicator {
	return &EMA{
		period: 20,
	}
}

// Name returns the name of the indicator.
func (e *EMA) Name() types.IndicatorType {
	return types.IndicatorTypeEMA
}

// Config configures the EMA indicator. Expected parameters: period (int).
func (e *EMA) Config(params ...any) error {
	period, err := periodParam(params)
	if err != nil {
		return err
	}

	e.period = period

	return nil
}

// Compute attaches a column named "ema_<period>".
func (e *EMA) Compute(series types.Series) (map[string][]float64, error) {
	return map[string][]float64{
		fmt.Sprintf("ema_%d", e.period): CalculateEMA(series.Closes(), e.period),
	}, nil
}

// CalculateEMA is the span-weighted exponential average with alpha = 2/(span+1).
// Weights are normalized over the observations seen so far, so the first value equals
// the first input instead of being seeded by an SMA. NaN inputs decay the weights
// without contributing.
func CalculateEMA(values []float64, span int) []float64 {
	out := NaNs(len(values))
	decay := 1 - 2/float64(span+1)
	numerator, denominator := 0.0, 0.0

	for i, v := range values {
		numerator *= decay
		denominator *= decay

		if !math.IsNaN(v) {
			numerator += v
			denominator++
		}

		if denominator > 0 {
			out[i] = numerator / denominator
		}
	}

	return out
}
