package exit

import (
	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// VolatilityParams configures the volatility regime exit.
type VolatilityParams struct {
	HighVolMultiplier float64 `mapstructure:"high_vol_multiplier" json:"high_vol_multiplier" jsonschema:"default=1.2" validate:"gtfield=LowVolMultiplier"`
	LowVolMultiplier  float64 `mapstructure:"low_vol_multiplier" json:"low_vol_multiplier" jsonschema:"default=0.8" validate:"gt=0"`
	MaxHoldingDays    int     `mapstructure:"max_holding_days" json:"max_holding_days" jsonschema:"default=15" validate:"gt=0"`
	ATRPeriod         int     `mapstructure:"atr_period" json:"atr_period" jsonschema:"default=14" validate:"gt=0"`
	ATRMAPeriod       int     `mapstructure:"atr_ma_period" json:"atr_ma_period" jsonschema:"default=20" validate:"gt=0"`
}

// Volatility compares the ATR with its moving average. It closes when volatility
// contracts below the low multiplier, or when the position loses money while volatility
// sits between the two multipliers.
type Volatility struct {
	params VolatilityParams
}

func NewVolatility(params map[string]any) (Policy, error) {
	p := VolatilityParams{HighVolMultiplier: 1.2, LowVolMultiplier: 0.8, MaxHoldingDays: 15, ATRPeriod: 14, ATRMAPeriod: 20}
	if err := strategy.DecodeParams(params, &p); err != nil {
		return nil, err
	}

	return &Volatility{params: p}, nil
}

func (v *Volatility) Name() string {
	return NameVolatility
}

func (v *Volatility) Params() map[string]any {
	return strategy.EncodeParams(v.params)
}

func (v *Volatility) Bind(series types.Series, _ types.EntryTable) (Evaluator, error) {
	atr := indicator.SeriesATR(series, v.params.ATRPeriod)

	return &volatilityEvaluator{
		params: v.params,
		closes: series.Closes(),
		atr:    atr,
		atrMA:  indicator.SMA(atr, v.params.ATRMAPeriod),
	}, nil
}

type volatilityEvaluator struct {
	params VolatilityParams
	closes []float64
	atr    []float64
	atrMA  []float64
}

func (e *volatilityEvaluator) OnEntry(types.Position, int) {}

func (e *volatilityEvaluator) Evaluate(position types.Position, index int) (Decision, error) {
	atr, average := e.atr[index], e.atrMA[index]
	low, high := average*e.params.LowVolMultiplier, average*e.params.HighVolMultiplier

	switch {
	case atr < low:
		return ExitAtClose(types.ExitReasonLowVolatility), nil
	case atr > low && atr < high && position.Return(e.closes[index]) < 0:
		return ExitAtClose(types.ExitReasonLossInNormalVol), nil
	case position.HoldingDays >= e.params.MaxHoldingDays:
		return ExitAtClose(types.ExitReasonMaxDays), nil
	}

	return Hold(), nil
}
