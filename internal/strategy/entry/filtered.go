package entry

import (
	"fmt"
	"math"

	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// VolumeConfirmedParams configures the volume-confirmed breakout.
type VolumeConfirmedParams struct {
	K                float64 `mapstructure:"k" json:"k" jsonschema:"default=0.5" validate:"gte=0"`
	VolumeMultiplier float64 `mapstructure:"volume_multiplier" json:"volume_multiplier" jsonschema:"default=1.5" validate:"gt=0"`
	VolumeMA         int     `mapstructure:"volume_ma" json:"volume_ma" jsonschema:"default=20" validate:"gt=0"`
}

// VolumeConfirmed requires volume above its moving average times a multiplier.
// A series without volume treats the volume filter as passed.
type VolumeConfirmed struct {
	params VolumeConfirmedParams
}

func NewVolumeConfirmed(params map[string]any) (Provider, error) {
	p := VolumeConfirmedParams{K: 0.5, VolumeMultiplier: 1.5, VolumeMA: 20}
	if err := strategy.DecodeParams(params, &p); err != nil {
		return nil, err
	}

	return &VolumeConfirmed{params: p}, nil
}

func (v *VolumeConfirmed) Name() string {
	return NameVolumeConfirmed
}

func (v *VolumeConfirmed) Params() map[string]any {
	return strategy.EncodeParams(v.params)
}

func (v *VolumeConfirmed) Generate(series types.Series) (types.EntryTable, error) {
	targets := breakoutTargets(series, constant(series.Len(), v.params.K))
	surge := always(series.Len(), true)

	if series.HasVolume() {
		volumes := series.Volumes()
		average := indicator.SMA(volumes, v.params.VolumeMA)

		for i := range surge {
			surge[i] = volumes[i] > average[i]*v.params.VolumeMultiplier
		}
	}

	return breakoutTable(and(crossesAbove(series, targets), surge), targets), nil
}

// MomentumFilteredParams configures the momentum-filtered breakout.
type MomentumFilteredParams struct {
	K                 float64 `mapstructure:"k" json:"k" jsonschema:"default=0.5" validate:"gte=0"`
	MomentumPeriod    int     `mapstructure:"momentum_period" json:"momentum_period" jsonschema:"default=20" validate:"gt=0"`
	MomentumThreshold float64 `mapstructure:"momentum_threshold" json:"momentum_threshold" jsonschema:"default=0.05"`
}

// MomentumFiltered requires the close to have risen more than the threshold over the
// momentum period and a 14-bar RSI strictly between 30 and 70.
type MomentumFiltered struct {
	params MomentumFilteredParams
}

func NewMomentumFiltered(params map[string]any) (Provider, error) {
	p := MomentumFilteredParams{K: 0.5, MomentumPeriod: 20, MomentumThreshold: 0.05}
	if err := strategy.DecodeParams(params, &p); err != nil {
		return nil, err
	}

	return &MomentumFiltered{params: p}, nil
}

func (m *MomentumFiltered) Name() string {
	return NameMomentumFiltered
}

func (m *MomentumFiltered) Params() map[string]any {
	return strategy.EncodeParams(m.params)
}

func (m *MomentumFiltered) Generate(series types.Series) (types.EntryTable, error) {
	targets := breakoutTargets(series, constant(series.Len(), m.params.K))
	momentum := indicator.PctChange(series.Closes(), m.params.MomentumPeriod)
	rsi := rsi14(series)
	filter := make([]bool, series.Len())

	for i := range filter {
		filter[i] = momentum[i] > m.params.MomentumThreshold && rsi[i] > 30 && rsi[i] < 70
	}

	table := breakoutTable(and(crossesAbove(series, targets), filter), targets)
	table.Columns["momentum"] = momentum
	table.Columns["rsi"] = rsi

	return table, nil
}

// PatternParams configures the candle-pattern breakout.
type PatternParams struct {
	K               float64 `mapstructure:"k" json:"k" jsonschema:"default=0.5" validate:"gte=0"`
	PatternLookback int     `mapstructure:"pattern_lookback" json:"pattern_lookback" jsonschema:"description=Consecutive bullish candles required,default=3" validate:"gt=0"`
}

// Pattern requires one of: PatternLookback consecutive bullish candles, a hammer after a
// drop of more than 2%, or a close above the previous high on volume 1.2x its 20-bar average.
type Pattern struct {
	params PatternParams
}

func NewPattern(params map[string]any) (Provider, error) {
	p := PatternParams{K: 0.5, PatternLookback: 3}
	if err := strategy.DecodeParams(params, &p); err != nil {
		return nil, err
	}

	return &Pattern{params: p}, nil
}

func (p *Pattern) Name() string {
	return NamePattern
}

func (p *Pattern) Params() map[string]any {
	return strategy.EncodeParams(p.params)
}

func (p *Pattern) Generate(series types.Series) (types.EntryTable, error) {
	n := series.Len()
	targets := breakoutTargets(series, constant(n, p.params.K))
	closes := series.Closes()
	change := indicator.PctChange(closes, 1)
	prevHigh := indicator.Shift(series.Highs(), 1)
	hasVolume := series.HasVolume()
	volumeMA := indicator.SMA(series.Volumes(), 20)
	patterns := make([]bool, n)

	for i, bar := range series.Data {
		body := math.Abs(bar.Close-bar.Open) / bar.Open
		upper := (bar.High - math.Max(bar.Open, bar.Close)) / bar.Open
		lower := (math.Min(bar.Open, bar.Close) - bar.Low) / bar.Open

		consecutive := i >= p.params.PatternLookback
		for j := 0; consecutive && j < p.params.PatternLookback; j++ {
			consecutive = series.Data[i-j].Close > series.Data[i-j].Open
		}

		hammer := lower > body*2 && upper < body*0.5 && change[i] < -0.02
		breakout := hasVolume && closes[i] > prevHigh[i] && bar.Volume > volumeMA[i]*1.2

		patterns[i] = consecutive || hammer || breakout
	}

	return breakoutTable(and(crossesAbove(series, targets), patterns), targets), nil
}

// MultiTimeframeParams configures the trend-aligned breakout.
type MultiTimeframeParams struct {
	K              float64 `mapstructure:"k" json:"k" jsonschema:"default=0.5" validate:"gte=0"`
	ConfirmPeriods []int   `mapstructure:"confirm_periods" json:"confirm_periods" jsonschema:"description=Moving average periods that must all be rising with the close above them" validate:"min=1,dive,gt=0"`
}

// MultiTimeframe requires the close above every confirmation moving average and each of
// those averages rising versus the previous bar.
type MultiTimeframe struct {
	params MultiTimeframeParams
}

func NewMultiTimeframe(params map[string]any) (Provider, error) {
	p := MultiTimeframeParams{K: 0.5, ConfirmPeriods: []int{5, 20}}
	if raw, ok := params["confirm_periods"]; ok && raw != nil {
		// replace rather than merge the default slice
		p.ConfirmPeriods = nil
	}

	if err := strategy.DecodeParams(params, &p); err != nil {
		return nil, err
	}

	return &MultiTimeframe{params: p}, nil
}

func (m *MultiTimeframe) Name() string {
	return NameMultiTimeframe
}

func (m *MultiTimeframe) Params() map[string]any {
	return strategy.EncodeParams(m.params)
}

func (m *MultiTimeframe) Generate(series types.Series) (types.EntryTable, error) {
	targets := breakoutTargets(series, constant(series.Len(), m.params.K))
	closes := series.Closes()
	aligned := always(series.Len(), true)
	columns := make(map[string][]float64)

	for _, period := range m.params.ConfirmPeriods {
		ma := indicator.SMA(closes, period)
		prevMA := indicator.Shift(ma, 1)

		for i := range aligned {
			aligned[i] = aligned[i] && closes[i] > ma[i] && ma[i] > prevMA[i]
		}

		columns[fmt.Sprintf("ma_%d", period)] = ma
	}

	table := breakoutTable(and(crossesAbove(series, targets), aligned), targets)
	for name, values := range columns {
		table.Columns[name] = values
	}

	return table, nil
}

// ATRFilteredParams configures the volatility-filtered breakout.
type ATRFilteredParams struct {
	K                 float64 `mapstructure:"k" json:"k" jsonschema:"default=0.5" validate:"gte=0"`
	ATRPeriod         int     `mapstructure:"atr_period" json:"atr_period" jsonschema:"default=14" validate:"gt=0"`
	MinATRPercentile  float64 `mapstructure:"min_atr_percentile" json:"min_atr_percentile" jsonschema:"default=30" validate:"gte=0,lte=100"`
	PercentileWindow  int     `mapstructure:"percentile_window" json:"percentile_window" jsonschema:"description=Bars over which the ATR percentile is ranked,default=252" validate:"gt=0"`
	ExpansionLookback int     `mapstructure:"expansion_lookback" json:"expansion_lookback" jsonschema:"description=Bars of the ATR average the current ATR must exceed,default=5" validate:"gt=0"`
}

// ATRFiltered requires the ATR percentile over the trailing window above a minimum and the
// ATR above its short average.
type ATRFiltered struct {
	params ATRFilteredParams
}

func NewATRFiltered(params map[string]any) (Provider, error) {
	p := ATRFilteredParams{K: 0.5, ATRPeriod: 14, MinATRPercentile: 30, PercentileWindow: 252, ExpansionLookback: 5}
	if err := strategy.DecodeParams(params, &p); err != nil {
		return nil, err
	}

	return &ATRFiltered{params: p}, nil
}

func (a *ATRFiltered) Name() string {
	return NameATRFiltered
}

func (a *ATRFiltered) Params() map[string]any {
	return strategy.EncodeParams(a.params)
}

func (a *ATRFiltered) Generate(series types.Series) (types.EntryTable, error) {
	targets := breakoutTargets(series, constant(series.Len(), a.params.K))
	atr := indicator.CalculateATR(series.Highs(), series.Lows(), series.Closes(), a.params.ATRPeriod)
	percentile := indicator.PercentileRank(atr, a.params.PercentileWindow)
	expansion := indicator.SMA(atr, a.params.ExpansionLookback)
	filter := make([]bool, series.Len())

	for i := range filter {
		filter[i] = percentile[i] > a.params.MinATRPercentile && atr[i] > expansion[i]
	}

	table := breakoutTable(and(crossesAbove(series, targets), filter), targets)
	table.Columns[types.ColumnATR] = atr
	table.Columns["atr_percentile"] = percentile

	return table, nil
}
