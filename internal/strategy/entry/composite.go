package entry

import (
	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// ColumnEntryScore is the per-bar score published by the composite provider.
const ColumnEntryScore = "entry_score"

// CompositeParams configures the scored entry.
type CompositeParams struct {
	K        float64 `mapstructure:"k" json:"k" jsonschema:"default=0.5" validate:"gte=0"`
	MinScore int     `mapstructure:"min_score" json:"min_score" jsonschema:"description=Score from 0 to 7 at which an entry is signalled,default=3" validate:"gte=0"`
}

// Composite scores every bar and signals when the score reaches MinScore:
//
//	breakout above the target            +2
//	volume above 1.3x its 20-bar average +1
//	close above its 20-bar average       +1
//	5-bar momentum above 2%              +1
//	RSI(14) between 40 and 60            +1
//	previous candle bullish              +1
type Composite struct {
	params CompositeParams
}

func NewComposite(params map[string]any) (Provider, error) {
	p := CompositeParams{K: 0.5, MinScore: 3}
	if err := strategy.DecodeParams(params, &p); err != nil {
		return nil, err
	}

	return &Composite{params: p}, nil
}

func (c *Composite) Name() string {
	return NameComposite
}

func (c *Composite) Params() map[string]any {
	return strategy.EncodeParams(c.params)
}

func (c *Composite) Generate(series types.Series) (types.EntryTable, error) {
	n := series.Len()
	targets := breakoutTargets(series, constant(n, c.params.K))
	breakout := crossesAbove(series, targets)
	closes := series.Closes()
	volumes := series.Volumes()
	hasVolume := series.HasVolume()
	volumeMA := indicator.SMA(volumes, 20)
	ma20 := indicator.SMA(closes, 20)
	momentum := indicator.PctChange(closes, 5)
	rsi := rsi14(series)

	scores := make([]float64, n)
	signals := make([]bool, n)

	for i := range scores {
		score := 0
		if breakout[i] {
			score += 2
		}

		if hasVolume && volumes[i] > volumeMA[i]*1.3 {
			score++
		}

		if closes[i] > ma20[i] {
			score++
		}

		if momentum[i] > 0.02 {
			score++
		}

		if rsi[i] > 40 && rsi[i] < 60 {
			score++
		}

		if i > 0 && series.Data[i-1].Close > series.Data[i-1].Open {
			score++
		}

		scores[i] = float64(score)
		signals[i] = score >= c.params.MinScore
	}

	table := breakoutTable(signals, targets)
	table.Columns[ColumnEntryScore] = scores

	return table, nil
}

// FilteredBreakoutParams configures the breakout with trend and volatility filters.
type FilteredBreakoutParams struct {
	K                 float64 `mapstructure:"k" json:"k" jsonschema:"default=0.5" validate:"gte=0"`
	ADXThreshold      float64 `mapstructure:"adx_threshold" json:"adx_threshold" jsonschema:"default=20" validate:"gte=0"`
	MomentumThreshold float64 `mapstructure:"momentum_threshold" json:"momentum_threshold" jsonschema:"default=0"`
	UseATRFilter      bool    `mapstructure:"use_atr_filter" json:"use_atr_filter" jsonschema:"default=true"`
}

// FilteredBreakout takes a breakout when either the trend filters agree (ADX with +DI above
// -DI, 20-bar momentum, ATR above its 14-bar average) or, in a weak trend, the Chaikin
// oscillator is rising or above its signal line.
//
// ADX and Chaikin come from the precomputed series columns. Without an ADX column the ADX
// filter passes and the Chaikin branch is off; without a Chaikin column the Chaikin branch is off.
type FilteredBreakout struct {
	params FilteredBreakoutParams
}

func NewFilteredBreakout(params map[string]any) (Provider, error) {
	p := FilteredBreakoutParams{K: 0.5, ADXThreshold: 20, MomentumThreshold: 0, UseATRFilter: true}
	if err := strategy.DecodeParams(params, &p); err != nil {
		return nil, err
	}

	return &FilteredBreakout{params: p}, nil
}

func (f *FilteredBreakout) Name() string {
	return NameFilteredBreakout
}

func (f *FilteredBreakout) Params() map[string]any {
	return strategy.EncodeParams(f.params)
}

func (f *FilteredBreakout) Generate(series types.Series) (types.EntryTable, error) {
	n := series.Len()
	targets := breakoutTargets(series, constant(n, f.params.K))

	adxFilter := always(n, true)
	chaikinFilter := always(n, false)
	adx, hasADX := columnOrZero(series, types.ColumnADX)
	plusDI, _ := columnOrZero(series, types.ColumnPlusDI)
	minusDI, _ := columnOrZero(series, types.ColumnMinusDI)

	if hasADX {
		for i := range adxFilter {
			adxFilter[i] = adx[i] > f.params.ADXThreshold && plusDI[i] > minusDI[i]
		}
	}

	if oscillator, ok := columnOrZero(series, types.ColumnChaikinOscillator); ok && hasADX {
		signal, _ := columnOrZero(series, types.ColumnChaikinSignal)
		prev := indicator.Shift(oscillator, 1)

		for i := range chaikinFilter {
			chaikinFilter[i] = adx[i] < f.params.ADXThreshold &&
				(oscillator[i] > signal[i] || oscillator[i] > prev[i])
		}
	}

	momentum, ok := columnOrZero(series, types.ColumnMomentum20)
	if !ok {
		momentum = indicator.PctChange(series.Closes(), 20)
	}

	atrFilter := always(n, true)
	if f.params.UseATRFilter {
		atr := indicator.CalculateATR(series.Highs(), series.Lows(), series.Closes(), 14)
		atrMA := indicator.SMA(atr, 14)

		for i := range atrFilter {
			atrFilter[i] = atr[i] > atrMA[i]
		}
	}

	signals := make([]bool, n)
	breakout := crossesAbove(series, targets)

	for i := range signals {
		trend := adxFilter[i] && momentum[i] > f.params.MomentumThreshold && atrFilter[i]
		signals[i] = breakout[i] && (trend || chaikinFilter[i])
	}

	return breakoutTable(signals, targets), nil
}

// columnOrZero returns the named column, or zeros when the series does not carry it.
func columnOrZero(series types.Series, name string) ([]float64, bool) {
	values, ok := series.Columns[name]
	if !ok || len(values) != series.Len() {
		return make([]float64, series.Len()), false
	}

	return values, true
}
