package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// OBV is the On-Balance Volume indicator.
type OBV struct{}

func NewOBV() Indicator {
	return &OBV{}
}

func (o *OBV) Name() types.IndicatorType {
	return types.IndicatorTypeOBV
}

// Config takes no parameters.
func (o *OBV) Config(params ...any) error {
	return nil
}

func (o *OBV) Compute(series types.Series) (map[string][]float64, error) {
	return map[string][]float64{
		"obv": CalculateOBV(series.Closes(), series.Volumes()),
	}, nil
}

// CalculateOBV accumulates sign(close change) * volume. The first bar has no change and is NaN.
func CalculateOBV(closes, volumes []float64) []float64 {
	delta := Diff(closes)
	signed := make([]float64, len(closes))

	for i, d := range delta {
		switch {
		case math.IsNaN(d):
			signed[i] = math.NaN()
		case d > 0:
			signed[i] = volumes[i]
		case d < 0:
			signed[i] = -volumes[i]
		}
	}

	return CumSum(signed)
}
