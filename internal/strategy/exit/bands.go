package exit

import (
	"math"

	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// ATRParams configures the ATR band exit.
type ATRParams struct {
	TakeProfitATR   float64 `mapstructure:"take_profit_atr" json:"take_profit_atr" jsonschema:"default=2" validate:"gt=0"`
	StopLossATR     float64 `mapstructure:"stop_loss_atr" json:"stop_loss_atr" jsonschema:"default=1" validate:"gt=0"`
	TrailingStopATR float64 `mapstructure:"trailing_stop_atr" json:"trailing_stop_atr" jsonschema:"default=1.5" validate:"gt=0"`
	MaxHoldingDays  int     `mapstructure:"max_holding_days" json:"max_holding_days" jsonschema:"default=20" validate:"gt=0"`
	ATRPeriod       int     `mapstructure:"atr_period" json:"atr_period" jsonschema:"description=Used when the series carries no atr column,default=14" validate:"gt=0"`
}

// ATR closes on the first of, in this order: take profit at entry + k*ATR at entry, stop
// loss at entry - k*ATR at entry, a trailing stop k*ATR below the highest high, max days.
// Band exits fill at the breached level, or at the open when the bar gaps through it.
type ATR struct {
	params ATRParams
}

func NewATR(params map[string]any) (Policy, error) {
	p := ATRParams{TakeProfitATR: 2, StopLossATR: 1, TrailingStopATR: 1.5, MaxHoldingDays: 20, ATRPeriod: 14}
	if err := strategy.DecodeParams(params, &p); err != nil {
		return nil, err
	}

	return &ATR{params: p}, nil
}

func (a *ATR) Name() string {
	return NameATR
}

func (a *ATR) Params() map[string]any {
	return strategy.EncodeParams(a.params)
}

func (a *ATR) Bind(series types.Series, _ types.EntryTable) (Evaluator, error) {
	return &atrEvaluator{
		params:   a.params,
		series:   series,
		atr:      indicator.SeriesATR(series, a.params.ATRPeriod),
		entryATR: math.NaN(),
	}, nil
}

type atrEvaluator struct {
	params   ATRParams
	series   types.Series
	atr      []float64
	entryATR float64
}

func (e *atrEvaluator) OnEntry(_ types.Position, index int) {
	e.entryATR = e.atr[index]
}

func (e *atrEvaluator) Evaluate(position types.Position, index int) (Decision, error) {
	bar := e.series.Data[index]
	entry := position.ReferencePrice

	takeProfit := entry + e.entryATR*e.params.TakeProfitATR
	if bar.High >= takeProfit {
		return ExitAt(types.ExitReasonTakeProfit, math.Max(takeProfit, bar.Open)), nil
	}

	stopLoss := entry - e.entryATR*e.params.StopLossATR
	if bar.Low <= stopLoss {
		return ExitAt(types.ExitReasonStopLoss, math.Min(stopLoss, bar.Open)), nil
	}

	trailing := position.HighestPrice - e.atr[index]*e.params.TrailingStopATR
	if bar.Low <= trailing {
		return ExitAt(types.ExitReasonTrailingStop, math.Min(trailing, bar.Open)), nil
	}

	if position.HoldingDays >= e.params.MaxHoldingDays {
		return ExitAtClose(types.ExitReasonMaxDays), nil
	}

	return Hold(), nil
}

// BollingerParams configures the Bollinger band exit.
type BollingerParams struct {
	BBPeriod       int     `mapstructure:"bb_period" json:"bb_period" jsonschema:"default=20" validate:"gt=1"`
	BBStd          float64 `mapstructure:"bb_std" json:"bb_std" jsonschema:"default=2" validate:"gt=0"`
	MaxHoldingDays int     `mapstructure:"max_holding_days" json:"max_holding_days" jsonschema:"default=15" validate:"gt=0"`
}

// Bollinger closes below the lower band, below the middle band while in profit, or at max days.
type Bollinger struct {
	params BollingerParams
}

func NewBollinger(params map[string]any) (Policy, error) {
	p := BollingerParams{BBPeriod: 20, BBStd: 2, MaxHoldingDays: 15}
	if err := strategy.DecodeParams(params, &p); err != nil {
		return nil, err
	}

	return &Bollinger{params: p}, nil
}

func (b *Bollinger) Name() string {
	return NameBollinger
}

func (b *Bollinger) Params() map[string]any {
	return strategy.EncodeParams(b.params)
}

func (b *Bollinger) Bind(series types.Series, _ types.EntryTable) (Evaluator, error) {
	return &bollingerEvaluator{
		params: b.params,
		closes: series.Closes(),
		bands:  indicator.CalculateBollingerBands(series.Closes(), b.params.BBPeriod, b.params.BBStd),
	}, nil
}

type bollingerEvaluator struct {
	params BollingerParams
	closes []float64
	bands  indicator.Bands
}

func (e *bollingerEvaluator) OnEntry(types.Position, int) {}

func (e *bollingerEvaluator) Evaluate(position types.Position, index int) (Decision, error) {
	price := e.closes[index]

	switch {
	case price < e.bands.Lower[index]:
		return ExitAtClose(types.ExitReasonBollingerLower), nil
	case price < e.bands.Middle[index] && position.Return(price) > 0:
		return ExitAtClose(types.ExitReasonBollingerMiddle), nil
	case position.HoldingDays >= e.params.MaxHoldingDays:
		return ExitAtClose(types.ExitReasonMaxDays), nil
	}

	return Hold(), nil
}
