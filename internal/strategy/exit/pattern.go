package exit

import (
	"math"

	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// PatternParams configures the candle pattern exit.
type PatternParams struct {
	ConsecutiveUpDays int     `mapstructure:"consecutive_up_days" json:"consecutive_up_days" jsonschema:"default=3" validate:"gt=0"`
	MaxHoldingDays    int     `mapstructure:"max_holding_days" json:"max_holding_days" jsonschema:"default=5" validate:"gt=0"`
	TargetReturn      float64 `mapstructure:"target_return" json:"target_return" jsonschema:"description=Return that ends a bullish run,default=0.08" validate:"gt=0"`
	ProfitThreshold   float64 `mapstructure:"profit_threshold" json:"profit_threshold" jsonschema:"description=Return required to take profit at max days,default=0.02"`
	MinLossDays       int     `mapstructure:"min_loss_days" json:"min_loss_days" jsonschema:"description=Holding day from which a loss is cut,default=2" validate:"gt=0"`
	DojiThreshold     float64 `mapstructure:"doji_threshold" json:"doji_threshold" jsonschema:"description=Body to open ratio under which a candle is a doji,default=0.001" validate:"gt=0"`
}

// Pattern reads the current candle. A run of bullish candles holds until the target
// return; otherwise a doji or a bearish candle with a long upper shadow closes the
// position, as do a profit at max days and a loss from MinLossDays on. Positions that
// match none of these are closed at four times max days.
type Pattern struct {
	params PatternParams
}

func NewPattern(params map[string]any) (Policy, error) {
	p := PatternParams{
		ConsecutiveUpDays: 3,
		MaxHoldingDays:    5,
		TargetReturn:      0.08,
		ProfitThreshold:   0.02,
		MinLossDays:       2,
		DojiThreshold:     0.001,
	}
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

func (p *Pattern) Bind(series types.Series, _ types.EntryTable) (Evaluator, error) {
	return &patternEvaluator{params: p.params, bars: series.Data}, nil
}

type patternEvaluator struct {
	params PatternParams
	bars   []types.MarketData
}

func (e *patternEvaluator) OnEntry(types.Position, int) {}

func (e *patternEvaluator) Evaluate(position types.Position, index int) (Decision, error) {
	bar := e.bars[index]
	profit := position.Return(bar.Close)
	days := position.HoldingDays

	if e.bullishRun(index) {
		if profit < e.params.TargetReturn {
			return e.guard(days), nil
		}

		return ExitAtClose(types.ExitReasonTargetReached), nil
	}

	bodyTop := math.Max(bar.Open, bar.Close)
	body := bodyTop - math.Min(bar.Open, bar.Close)

	switch {
	case body/bar.Open < e.params.DojiThreshold:
		return ExitAtClose(types.ExitReasonDoji), nil
	case bar.High-bodyTop > body*2 && !isBullish(bar):
		return ExitAtClose(types.ExitReasonBearishRejection), nil
	case profit > e.params.ProfitThreshold && days >= e.params.MaxHoldingDays:
		return ExitAtClose(types.ExitReasonProfitWithMaxDays), nil
	case profit < 0 && days >= e.params.MinLossDays:
		return ExitAtClose(types.ExitReasonLossCut), nil
	}

	return e.guard(days), nil
}

// bullishRun reports whether the bar and the ones before it make ConsecutiveUpDays bullish candles.
func (e *patternEvaluator) bullishRun(index int) bool {
	if index < e.params.ConsecutiveUpDays {
		return false
	}

	for j := 0; j < e.params.ConsecutiveUpDays; j++ {
		if !isBullish(e.bars[index-j]) {
			return false
		}
	}

	return true
}

func (e *patternEvaluator) guard(days int) Decision {
	if days >= e.params.MaxHoldingDays*4 {
		return ExitAtClose(types.ExitReasonMaxDays)
	}

	return Hold()
}

func isBullish(bar types.MarketData) bool {
	return bar.Close > bar.Open
}
