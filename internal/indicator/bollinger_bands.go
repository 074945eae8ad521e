package indicator

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// BollingerBands represents the Bollinger Bands indicator.
type BollingerBands struct {
	period    int
	stdDevMul float64
}

// NewBollingerBands creates a new Bollinger Bands indicator with default configuration.
func NewBollingerBands() Indicator {
	return &BollingerBands{
		period:    20,
		stdDevMul: 2.0,
	}
}

// Name returns the name of the indicator.
func (bb *BollingerBands) Name() types.IndicatorType {
	return types.IndicatorTypeBollingerBands
}

// Config configures the Bollinger Bands indicator. Expected parameters: period (int), stdDevMul (float64).
func (bb *BollingerBands) Config(params ...any) error {
	if len(params) != 2 {
		return errors.New(errors.ErrCodeMissingParameter, "Config expects 2 parameters: period (int), stdDevMul (float64)")
	}

	period, err := toPeriod(params[0], "period")
	if err != nil {
		return err
	}

	stdDevMul, ok := params[1].(float64)
	if !ok {
		return errors.New(errors.ErrCodeInvalidType, "invalid type for stdDevMul parameter, expected float64")
	}

	if stdDevMul <= 0 {
		return errors.Newf(errors.ErrCodeInvalidMultiplier, "stdDevMul must be positive, got %f", stdDevMul)
	}

	bb.period = period
	bb.stdDevMul = stdDevMul

	return nil
}

// Compute attaches the "bb_upper", "bb_middle" and "bb_lower" columns.
func (bb *BollingerBands) Compute(series types.Series) (map[string][]float64, error) {
	bands := CalculateBollingerBands(series.Closes(), bb.period, bb.stdDevMul)

	return map[string][]float64{
		"bb_upper":  bands.Upper,
		"bb_middle": bands.Middle,
		"bb_lower":  bands.Lower,
	}, nil
}

// Bands holds the three Bollinger lines.
type Bands struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// CalculateBollingerBands uses the simple mean and sample standard deviation of closes.
func CalculateBollingerBands(closes []float64, period int, stdDevMul float64) Bands {
	middle := RollingMean(closes, period)
	std := RollingStd(closes, period)
	bands := Bands{
		Upper:  make([]float64, len(closes)),
		Middle: middle,
		Lower:  make([]float64, len(closes)),
	}

	for i := range closes {
		bands.Upper[i] = middle[i] + std[i]*stdDevMul
		bands.Lower[i] = middle[i] - std[i]*stdDevMul
	}

	return bands
}
