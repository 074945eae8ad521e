package indicator

import (
	"fmt"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// Momentum is the percentage change of the close over a look-back period.
type Momentum struct {
	period int
}

func NewMomentum() Indicator {
	return &Momentum{
		period: 20,
	}
}

func (m *Momentum) Name() types.IndicatorType {
	return types.IndicatorTypeMomentum
}

// Config expects one parameter: period (int).
func (m *Momentum) Config(params ...any) error {
	period, err := periodParam(params)
	if err != nil {
		return err
	}

	m.period = period

	return nil
}

// Compute attaches a column named "momentum_<period>", which for 20 is types.ColumnMomentum20.
func (m *Momentum) Compute(series types.Series) (map[string][]float64, error) {
	return map[string][]float64{
		fmt.Sprintf("momentum_%d", m.period): PctChange(series.Closes(), m.period),
	}, nil
}
