package indicator

import (
	"fmt"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// MA represents a simple moving average of closes.
type MA struct {
	period int
}

// NewMA creates a new MA indicator with default configuration.
func NewMA() Indicator {
	return &MA{
		period: 20,
	}
}

// Name returns the name of the indicator.
func (m *MA) Name() types.IndicatorType {
	return types.IndicatorTypeMA
}

// Expected parameters: period (int).
func (m *MA) Config(params ...any) error {
	period, err := periodParam(params)
	if err != nil {
		return err
	}

	m.period = period

	return nil
}

// Compute attaches a column named "ma_<period>".
func (m *MA) Compute(series types.Series) (map[string][]float64, error) {
	return map[string][]float64{
		fmt.Sprintf("ma_%d", m.period): SMA(series.Closes(), m.period),
	}, nil
}

// SMA is the simple moving average over a full window.
func SMA(values []float64, period int) []float64 {
	return RollingMean(values, period)
}
