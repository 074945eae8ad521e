package indicator

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// VWAP is the running volume-weighted average close since the first bar.
type VWAP struct{}

func NewVWAP() Indicator {
	return &VWAP{}
}

func (v *VWAP) Name() types.IndicatorType {
	return types.IndicatorTypeVWAP
}

// Config takes no parameters.
func (v *VWAP) Config(params ...any) error {
	return nil
}

func (v *VWAP) Compute(series types.Series) (map[string][]float64, error) {
	volumes := series.Volumes()
	if !series.HasVolume() {
		volumes = nil
	}

	return map[string][]float64{
		"vwap": CalculateVWAP(series.Closes(), volumes),
	}, nil
}

// CalculateVWAP returns cumsum(close*volume)/cumsum(volume). Without volumes every bar
// weighs 1 and the result is the running mean of closes.
func CalculateVWAP(closes, volumes []float64) []float64 {
	out := NaNs(len(closes))
	weighted, total := 0.0, 0.0

	for i, c := range closes {
		volume := 1.0
		if volumes != nil {
			volume = volumes[i]
		}

		weighted += c * volume
		total += volume

		if total != 0 {
			out[i] = weighted / total
		}
	}

	return out
}
