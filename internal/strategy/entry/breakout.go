package entry

import (
	"math"

	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// VolatilityBreakoutParams configures the plain volatility breakout.
type VolatilityBreakoutParams struct {
	K float64 `mapstructure:"k" json:"k" jsonschema:"title=K,description=Fraction of the previous range added to the open,default=0.5" validate:"gte=0"`
}

// VolatilityBreakout enters when the high crosses open + previous range * k.
type VolatilityBreakout struct {
	params VolatilityBreakoutParams
}

func NewVolatilityBreakout(params map[string]any) (Provider, error) {
	p := VolatilityBreakoutParams{K: 0.5}
	if err := strategy.DecodeParams(params, &p); err != nil {
		return nil, err
	}

	return &VolatilityBreakout{params: p}, nil
}

func (v *VolatilityBreakout) Name() string {
	return NameVolatilityBreakout
}

func (v *VolatilityBreakout) Params() map[string]any {
	return strategy.EncodeParams(v.params)
}

func (v *VolatilityBreakout) Generate(series types.Series) (types.EntryTable, error) {
	targets := breakoutTargets(series, constant(series.Len(), v.params.K))

	return breakoutTable(crossesAbove(series, targets), targets), nil
}

// AdaptiveKParams configures the adaptive breakout.
type AdaptiveKParams struct {
	Lookback    int     `mapstructure:"lookback" json:"lookback" jsonschema:"default=20" validate:"gt=0"`
	ShortWindow int     `mapstructure:"short_window" json:"short_window" jsonschema:"description=Bars of the recent range average compared with the lookback average,default=5" validate:"gt=0"`
	KMin        float64 `mapstructure:"k_min" json:"k_min" jsonschema:"default=0.3" validate:"gte=0"`
	KMax        float64 `mapstructure:"k_max" json:"k_max" jsonschema:"default=0.7" validate:"gtefield=KMin"`
}

// AdaptiveK scales k with the volatility regime: when the recent range is at least 1.2x the
// lookback average k is KMin, at most 0.8x it is KMax, and in between it is interpolated.
// Bars before the lookback is filled use KMin.
type AdaptiveK struct {
	params AdaptiveKParams
}

func NewAdaptiveK(params map[string]any) (Provider, error) {
	p := AdaptiveKParams{Lookback: 20, ShortWindow: 5, KMin: 0.3, KMax: 0.7}
	if err := strategy.DecodeParams(params, &p); err != nil {
		return nil, err
	}

	return &AdaptiveK{params: p}, nil
}

func (a *AdaptiveK) Name() string {
	return NameAdaptiveK
}

func (a *AdaptiveK) Params() map[string]any {
	return strategy.EncodeParams(a.params)
}

func (a *AdaptiveK) Generate(series types.Series) (types.EntryTable, error) {
	ranges := prevRange(series)
	ks := constant(series.Len(), a.params.KMin)

	for i := a.params.Lookback; i < series.Len(); i++ {
		average := nanMean(ranges[i-a.params.Lookback : i])
		recent := nanMean(ranges[max(i-a.params.ShortWindow, i-a.params.Lookback):i])

		if math.IsNaN(average) || average == 0 || math.IsNaN(recent) {
			continue
		}

		ratio := recent / average

		switch {
		case ratio >= 1.2:
			ks[i] = a.params.KMin
		case ratio <= 0.8:
			ks[i] = a.params.KMax
		default:
			ks[i] = a.params.KMax - (a.params.KMax-a.params.KMin)*(ratio-0.8)/0.4
		}
	}

	targets := breakoutTargets(series, ks)
	table := breakoutTable(crossesAbove(series, targets), targets)
	table.Columns["adaptive_k"] = ks

	return table, nil
}

// DoubleBreakoutParams configures the two-stage breakout.
type DoubleBreakoutParams struct {
	K1            float64 `mapstructure:"k1" json:"k1" jsonschema:"default=0.5" validate:"gte=0"`
	K2            float64 `mapstructure:"k2" json:"k2" jsonschema:"default=0.7" validate:"gte=0"`
	HoldingPeriod int     `mapstructure:"holding_period" json:"holding_period" jsonschema:"description=Bars in which a first-stage breakout must have happened,default=5" validate:"gt=0"`
}

// DoubleBreakout enters on a second-stage (k2) breakout that follows a first-stage (k1)
// breakout within the previous HoldingPeriod bars.
type DoubleBreakout struct {
	params DoubleBreakoutParams
}

func NewDoubleBreakout(params map[string]any) (Provider, error) {
	p := DoubleBreakoutParams{K1: 0.5, K2: 0.7, HoldingPeriod: 5}
	if err := strategy.DecodeParams(params, &p); err != nil {
		return nil, err
	}

	return &DoubleBreakout{params: p}, nil
}

func (d *DoubleBreakout) Name() string {
	return NameDoubleBreakout
}

func (d *DoubleBreakout) Params() map[string]any {
	return strategy.EncodeParams(d.params)
}

func (d *DoubleBreakout) Generate(series types.Series) (types.EntryTable, error) {
	n := series.Len()
	first := crossesAbove(series, breakoutTargets(series, constant(n, d.params.K1)))
	targets := breakoutTargets(series, constant(n, d.params.K2))
	second := crossesAbove(series, targets)
	signals := make([]bool, n)

	for i := d.params.HoldingPeriod; i < n; i++ {
		if !second[i] {
			continue
		}

		for j := i - d.params.HoldingPeriod; j < i; j++ {
			if first[j] {
				signals[i] = true

				break
			}
		}
	}

	return breakoutTable(signals, targets), nil
}

// GapAdjustedParams configures the gap-aware breakout.
type GapAdjustedParams struct {
	K            float64 `mapstructure:"k" json:"k" jsonschema:"default=0.5" validate:"gte=0"`
	GapThreshold float64 `mapstructure:"gap_threshold" json:"gap_threshold" jsonschema:"description=Open gap versus previous close that counts as a gap,default=0.02" validate:"gte=0"`
}

// GapAdjusted lowers k by 20% after a gap up and raises it by 20% after a gap down.
type GapAdjusted struct {
	params GapAdjustedParams
}

func NewGapAdjusted(params map[string]any) (Provider, error) {
	p := GapAdjustedParams{K: 0.5, GapThreshold: 0.02}
	if err := strategy.DecodeParams(params, &p); err != nil {
		return nil, err
	}

	return &GapAdjusted{params: p}, nil
}

func (g *GapAdjusted) Name() string {
	return NameGapAdjusted
}

func (g *GapAdjusted) Params() map[string]any {
	return strategy.EncodeParams(g.params)
}

func (g *GapAdjusted) Generate(series types.Series) (types.EntryTable, error) {
	prevClose := indicator.Shift(series.Closes(), 1)
	ks := constant(series.Len(), g.params.K)
	gaps := indicator.NaNs(series.Len())

	for i, bar := range series.Data {
		gaps[i] = (bar.Open - prevClose[i]) / prevClose[i]

		switch {
		case gaps[i] > g.params.GapThreshold:
			ks[i] = g.params.K * 0.8
		case gaps[i] < -g.params.GapThreshold:
			ks[i] = g.params.K * 1.2
		}
	}

	targets := breakoutTargets(series, ks)
	table := breakoutTable(crossesAbove(series, targets), targets)
	table.Columns["gap"] = gaps

	return table, nil
}

func nanMean(values []float64) float64 {
	sum, count := 0.0, 0

	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}

		sum += v
		count++
	}

	if count == 0 {
		return math.NaN()
	}

	return sum / float64(count)
}
