package exit

import (
	"slices"

	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// PartialProfitParams configures the profit ladder.
type PartialProfitParams struct {
	ProfitLevels   []float64 `mapstructure:"profit_levels" json:"profit_levels" jsonschema:"description=Returns at which a tier is sold" validate:"min=1,dive,gt=0"`
	SellRatios     []float64 `mapstructure:"sell_ratios" json:"sell_ratios" jsonschema:"description=Fraction of the remaining position sold at each tier" validate:"min=1,dive,gt=0,lte=1"`
	StopLoss       float64   `mapstructure:"stop_loss" json:"stop_loss" jsonschema:"default=-0.02" validate:"lte=0"`
	MaxHoldingDays int       `mapstructure:"max_holding_days" json:"max_holding_days" jsonschema:"default=30" validate:"gt=0"`
}

// PartialProfit scales out as the return climbs through ProfitLevels, selling SellRatios of
// what is left at each tier. Several tiers can trigger on one bar. The rest is sold once
// less than a tenth remains, on the stop loss, or at max days.
type PartialProfit struct {
	params PartialProfitParams
}

// finalExitRemaining is the remaining fraction below which the ladder sells everything.
const finalExitRemaining = 0.1

func NewPartialProfit(params map[string]any) (Policy, error) {
	p := PartialProfitParams{
		ProfitLevels:   []float64{0.03, 0.05, 0.08},
		SellRatios:     []float64{0.3, 0.3, 0.2},
		StopLoss:       -0.02,
		MaxHoldingDays: 30,
	}
	resetProvidedSlices(params, map[string]func(){
		"profit_levels": func() { p.ProfitLevels = nil },
		"sell_ratios":   func() { p.SellRatios = nil },
	})

	if err := strategy.DecodeParams(params, &p); err != nil {
		return nil, err
	}

	if len(p.ProfitLevels) != len(p.SellRatios) {
		return nil, errors.Newf(errors.ErrCodeStrategyConfigError,
			"profit_levels has %d tiers but sell_ratios has %d", len(p.ProfitLevels), len(p.SellRatios))
	}

	return &PartialProfit{params: p}, nil
}

func (p *PartialProfit) Name() string {
	return NamePartialProfit
}

func (p *PartialProfit) Params() map[string]any {
	return strategy.EncodeParams(p.params)
}

func (p *PartialProfit) Bind(series types.Series, _ types.EntryTable) (Evaluator, error) {
	return &partialProfitEvaluator{
		params:    p.params,
		closes:    series.Closes(),
		triggered: make([]bool, len(p.params.ProfitLevels)),
	}, nil
}

type partialProfitEvaluator struct {
	params    PartialProfitParams
	closes    []float64
	triggered []bool
}

func (e *partialProfitEvaluator) OnEntry(types.Position, int) {
	clear(e.triggered)
}

func (e *partialProfitEvaluator) Evaluate(position types.Position, index int) (Decision, error) {
	profit := position.Return(e.closes[index])
	if profit <= e.params.StopLoss {
		return ExitAtClose(types.ExitReasonStopLoss), nil
	}

	remaining := position.Remaining

	for tier, level := range e.params.ProfitLevels {
		if e.triggered[tier] || profit < level {
			continue
		}

		e.triggered[tier] = true
		remaining *= 1 - e.params.SellRatios[tier]

		if remaining < finalExitRemaining {
			return ExitAtClose(types.ExitReasonFinalExit), nil
		}
	}

	if position.HoldingDays >= e.params.MaxHoldingDays {
		return ExitAtClose(types.ExitReasonMaxDays), nil
	}

	if remaining < position.Remaining {
		return Decision{Reason: types.ExitReasonPartialTakeProfit, Reduce: position.Remaining - remaining}, nil
	}

	return Hold(), nil
}

// TimeWeightedParams configures the day-indexed loss schedule.
type TimeWeightedParams struct {
	LossThresholds     []float64 `mapstructure:"loss_thresholds" json:"loss_thresholds" jsonschema:"description=Return below which the position is closed on the matching day" validate:"min=1"`
	MaxDays            []int     `mapstructure:"max_days" json:"max_days" jsonschema:"description=Holding day each loss threshold applies to" validate:"min=1,dive,gt=0"`
	ExceptionalReturn  float64   `mapstructure:"exceptional_return" json:"exceptional_return" jsonschema:"default=0.05"`
	ExceptionalMaxDays int       `mapstructure:"exceptional_max_days" json:"exceptional_max_days" jsonschema:"description=Last holding day on which an exceptional return defers every exit,default=10" validate:"gt=0"`
}

// TimeWeighted closes on day MaxDays[k] when the return is below LossThresholds[k], and
// one day after the last scheduled day otherwise. A return above ExceptionalReturn within
// the first ExceptionalMaxDays days defers every check.
type TimeWeighted struct {
	params  TimeWeightedParams
	lastDay int
}

func NewTimeWeighted(params map[string]any) (Policy, error) {
	p := TimeWeightedParams{
		LossThresholds:     []float64{0, -0.01, -0.02, -0.03},
		MaxDays:            []int{1, 2, 3, 4},
		ExceptionalReturn:  0.05,
		ExceptionalMaxDays: 10,
	}
	resetProvidedSlices(params, map[string]func(){
		"loss_thresholds": func() { p.LossThresholds = nil },
		"max_days":        func() { p.MaxDays = nil },
	})

	if err := strategy.DecodeParams(params, &p); err != nil {
		return nil, err
	}

	if len(p.LossThresholds) != len(p.MaxDays) {
		return nil, errors.Newf(errors.ErrCodeStrategyConfigError,
			"loss_thresholds has %d entries but max_days has %d", len(p.LossThresholds), len(p.MaxDays))
	}

	return &TimeWeighted{params: p, lastDay: slices.Max(p.MaxDays)}, nil
}

func (t *TimeWeighted) Name() string {
	return NameTimeWeighted
}

func (t *TimeWeighted) Params() map[string]any {
	return strategy.EncodeParams(t.params)
}

func (t *TimeWeighted) Bind(series types.Series, _ types.EntryTable) (Evaluator, error) {
	return &timeWeightedEvaluator{params: t.params, lastDay: t.lastDay, closes: series.Closes()}, nil
}

type timeWeightedEvaluator struct {
	params  TimeWeightedParams
	lastDay int
	closes  []float64
}

func (e *timeWeightedEvaluator) OnEntry(types.Position, int) {}

func (e *timeWeightedEvaluator) Evaluate(position types.Position, index int) (Decision, error) {
	profit := position.Return(e.closes[index])
	days := position.HoldingDays

	if profit > e.params.ExceptionalReturn && days <= e.params.ExceptionalMaxDays {
		return Hold(), nil
	}

	for k, day := range e.params.MaxDays {
		if days == day && profit < e.params.LossThresholds[k] {
			return ExitAtClose(types.DayThresholdReason(day)), nil
		}
	}

	if days >= e.lastDay+1 {
		return ExitAtClose(types.ExitReasonMaxDays), nil
	}

	return Hold(), nil
}

// resetProvidedSlices clears default slices the user overrides, so decoding replaces
// them instead of overlaying element by element.
func resetProvidedSlices(params map[string]any, resets map[string]func()) {
	for key, reset := range resets {
		if value, ok := params[key]; ok && value != nil {
			reset()
		}
	}
}
