package exit

import (
	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// MovingAverageParams configures the moving-average exit.
type MovingAverageParams struct {
	ShortMA        int `mapstructure:"short_ma" json:"short_ma" jsonschema:"default=5" validate:"gt=0"`
	LongMA         int `mapstructure:"long_ma" json:"long_ma" jsonschema:"default=20" validate:"gtfield=ShortMA"`
	MaxHoldingDays int `mapstructure:"max_holding_days" json:"max_holding_days" jsonschema:"default=20" validate:"gt=0"`
}

// MovingAverage holds while the close stays above the short average and the short average
// above the long one.
type MovingAverage struct {
	params MovingAverageParams
}

func NewMovingAverage(params map[string]any) (Policy, error) {
	p := MovingAverageParams{ShortMA: 5, LongMA: 20, MaxHoldingDays: 20}
	if err := strategy.DecodeParams(params, &p); err != nil {
		return nil, err
	}

	return &MovingAverage{params: p}, nil
}

func (m *MovingAverage) Name() string {
	return NameMovingAverage
}

func (m *MovingAverage) Params() map[string]any {
	return strategy.EncodeParams(m.params)
}

func (m *MovingAverage) Bind(series types.Series, _ types.EntryTable) (Evaluator, error) {
	closes := series.Closes()

	return &movingAverageEvaluator{
		maxHoldingDays: m.params.MaxHoldingDays,
		closes:         closes,
		short:          indicator.SMA(closes, m.params.ShortMA),
		long:           indicator.SMA(closes, m.params.LongMA),
	}, nil
}

type movingAverageEvaluator struct {
	maxHoldingDays int
	closes         []float64
	short          []float64
	long           []float64
}

func (e *movingAverageEvaluator) OnEntry(types.Position, int) {}

func (e *movingAverageEvaluator) Evaluate(position types.Position, index int) (Decision, error) {
	if e.closes[index] < e.short[index] || e.short[index] < e.long[index] {
		return ExitAtClose(types.ExitReasonMACross), nil
	}

	if position.HoldingDays >= e.maxHoldingDays {
		return ExitAtClose(types.ExitReasonMaxDays), nil
	}

	return Hold(), nil
}

// ADXParams configures the trend-strength exit.
type ADXParams struct {
	StrongTrendADX  float64 `mapstructure:"strong_trend_adx" json:"strong_trend_adx" jsonschema:"default=25" validate:"gtefield=WeakTrendADX"`
	WeakTrendADX    float64 `mapstructure:"weak_trend_adx" json:"weak_trend_adx" jsonschema:"default=20" validate:"gte=0"`
	StrongTrendDays int     `mapstructure:"strong_trend_days" json:"strong_trend_days" jsonschema:"default=10" validate:"gt=0"`
	WeakTrendDays   int     `mapstructure:"weak_trend_days" json:"weak_trend_days" jsonschema:"default=5" validate:"gt=0"`
	StrongStop      float64 `mapstructure:"strong_stop" json:"strong_stop" jsonschema:"description=Stop loss fraction in a strong trend,default=0.05" validate:"gte=0"`
	WeakStop        float64 `mapstructure:"weak_stop" json:"weak_stop" jsonschema:"description=Stop loss fraction in a weak trend,default=0.03" validate:"gte=0"`
}

// ADX picks the holding horizon and stop at entry from the adx_14, pdi_14 and mdi_14
// columns: a strong up trend holds longest with the widest stop, a weak one shorter, and
// anything else (including a series without ADX) exits after one day with no stop.
// Missing DI columns count as zero.
type ADX struct {
	params ADXParams
}

func NewADX(params map[string]any) (Policy, error) {
	p := ADXParams{StrongTrendADX: 25, WeakTrendADX: 20, StrongTrendDays: 10, WeakTrendDays: 5, StrongStop: 0.05, WeakStop: 0.03}
	if err := strategy.DecodeParams(params, &p); err != nil {
		return nil, err
	}

	return &ADX{params: p}, nil
}

func (a *ADX) Name() string {
	return NameADX
}

func (a *ADX) Params() map[string]any {
	return strategy.EncodeParams(a.params)
}

func (a *ADX) Bind(series types.Series, _ types.EntryTable) (Evaluator, error) {
	_, hasADX := series.Columns[types.ColumnADX]

	return &adxEvaluator{
		params:  a.params,
		closes:  series.Closes(),
		hasADX:  hasADX,
		adx:     columnOrZero(series, types.ColumnADX),
		plusDI:  columnOrZero(series, types.ColumnPlusDI),
		minusDI: columnOrZero(series, types.ColumnMinusDI),
	}, nil
}

type adxEvaluator struct {
	params  ADXParams
	closes  []float64
	hasADX  bool
	adx     []float64
	plusDI  []float64
	minusDI []float64

	maxHoldingDays int
	stopLoss       float64
}

func (e *adxEvaluator) OnEntry(_ types.Position, index int) {
	e.maxHoldingDays, e.stopLoss = 1, 0
	if !e.hasADX {
		return
	}

	rising := e.plusDI[index] > e.minusDI[index]

	switch {
	case e.adx[index] > e.params.StrongTrendADX && rising:
		e.maxHoldingDays, e.stopLoss = e.params.StrongTrendDays, e.params.StrongStop
	case e.adx[index] > e.params.WeakTrendADX && rising:
		e.maxHoldingDays, e.stopLoss = e.params.WeakTrendDays, e.params.WeakStop
	}
}

func (e *adxEvaluator) Evaluate(position types.Position, index int) (Decision, error) {
	if e.stopLoss > 0 && position.Return(e.closes[index]) <= -e.stopLoss {
		return ExitAtClose(types.ExitReasonStopLoss), nil
	}

	if position.HoldingDays >= e.maxHoldingDays {
		return ExitAtClose(types.ExitReasonMaxDaysByADX), nil
	}

	return Hold(), nil
}

// columnOrZero returns the named column, or zeros when the series does not carry it.
func columnOrZero(series types.Series, name string) []float64 {
	if values, ok := series.Columns[name]; ok && len(values) == series.Len() {
		return values
	}

	return make([]float64, series.Len())
}
