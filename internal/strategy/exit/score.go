package exit

import (
	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// ColumnMomentumScore and ColumnCompositeScore name the per-bar scores the score policies report.
const (
	ColumnMomentumScore  = "momentum_score"
	ColumnCompositeScore = "composite_score"
)

// MomentumParams configures the momentum score exit.
type MomentumParams struct {
	MinScore       int `mapstructure:"min_score" json:"min_score" jsonschema:"description=Score from 0 to 4 below which the position is closed,default=2" validate:"gte=0"`
	MaxHoldingDays int `mapstructure:"max_holding_days" json:"max_holding_days" jsonschema:"default=10" validate:"gt=0"`
}

// Momentum scores every bar one point each for an up close, a close above the prior
// 5-bar high, volume above 1.2x its 20-bar average and RSI(14) above 50, and closes
// when the score drops below MinScore.
type Momentum struct {
	params MomentumParams
}

func NewMomentum(params map[string]any) (Policy, error) {
	p := MomentumParams{MinScore: 2, MaxHoldingDays: 10}
	if err := strategy.DecodeParams(params, &p); err != nil {
		return nil, err
	}

	return &Momentum{params: p}, nil
}

func (m *Momentum) Name() string {
	return NameMomentum
}

func (m *Momentum) Params() map[string]any {
	return strategy.EncodeParams(m.params)
}

func (m *Momentum) Bind(series types.Series, _ types.EntryTable) (Evaluator, error) {
	return &momentumEvaluator{params: m.params, scores: MomentumScores(series)}, nil
}

// MomentumScores returns the 0-4 momentum score of every bar.
func MomentumScores(series types.Series) []int {
	closes := series.Closes()
	change := indicator.PctChange(closes, 1)
	priorHigh := indicator.Shift(indicator.RollingMax(series.Highs(), 5), 1)
	volumes := series.Volumes()
	volumeMA := indicator.SMA(volumes, 20)
	hasVolume := series.HasVolume()
	rsi := indicator.CalculateRSI(closes, 14)
	scores := make([]int, len(closes))

	for i := range scores {
		if change[i] > 0 {
			scores[i]++
		}

		if closes[i] > priorHigh[i] {
			scores[i]++
		}

		if hasVolume && volumes[i] > volumeMA[i]*1.2 {
			scores[i]++
		}

		if rsi[i] > 50 {
			scores[i]++
		}
	}

	return scores
}

type momentumEvaluator struct {
	params MomentumParams
	scores []int
}

func (e *momentumEvaluator) OnEntry(types.Position, int) {}

func (e *momentumEvaluator) Evaluate(position types.Position, index int) (Decision, error) {
	if e.scores[index] < e.params.MinScore {
		return ExitAtClose(types.ExitReasonLowMomentum), nil
	}

	if position.HoldingDays >= e.params.MaxHoldingDays {
		return ExitAtClose(types.ExitReasonMaxDays), nil
	}

	return Hold(), nil
}

// CompositeParams configures the composite score exit.
type CompositeParams struct {
	MinScore       int `mapstructure:"min_score" json:"min_score" jsonschema:"description=Score from 0 to 100 a position must keep to pass max days,default=60" validate:"gtefield=LowScore"`
	LowScore       int `mapstructure:"low_score" json:"low_score" jsonschema:"description=Score below which the position is closed at once,default=40" validate:"gte=0"`
	MaxHoldingDays int `mapstructure:"max_holding_days" json:"max_holding_days" jsonschema:"default=10" validate:"gt=0"`
}

// Composite scores the open position out of 100 on every bar:
//
//	close above the entry price      20
//	close above its 5-bar average    10
//	close above the VWAP             10
//	RSI(14) between 50 and 70        15
//	MACD above its signal line       15
//	volume above 1.2x its average    15
//	OBV rising                       15
//
// It closes on a low score, on a medium score while losing, or past max days without a
// high score. A hard guard at three times max days closes the position regardless.
type Composite struct {
	params CompositeParams
}

func NewComposite(params map[string]any) (Policy, error) {
	p := CompositeParams{MinScore: 60, LowScore: 40, MaxHoldingDays: 10}
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

func (c *Composite) Bind(series types.Series, _ types.EntryTable) (Evaluator, error) {
	closes := series.Closes()
	hasVolume := series.HasVolume()

	var volumes []float64
	if hasVolume {
		volumes = series.Volumes()
	}

	macd, signal := indicator.CalculateMACD(closes, 12, 26, 9)
	marketScores := make([]int, len(closes))
	ma5 := indicator.SMA(closes, 5)
	vwap := indicator.CalculateVWAP(closes, volumes)
	rsi := indicator.CalculateRSI(closes, 14)

	var volumeMA, obv []float64
	if hasVolume {
		volumeMA = indicator.SMA(volumes, 20)
		obv = indicator.CalculateOBV(closes, volumes)
	}

	for i := range marketScores {
		if closes[i] > ma5[i] {
			marketScores[i] += 10
		}

		if closes[i] > vwap[i] {
			marketScores[i] += 10
		}

		if rsi[i] > 50 && rsi[i] < 70 {
			marketScores[i] += 15
		}

		if macd[i] > signal[i] {
			marketScores[i] += 15
		}

		if hasVolume && volumes[i] > volumeMA[i]*1.2 {
			marketScores[i] += 15
		}

		if hasVolume && i > 0 && obv[i] > obv[i-1] {
			marketScores[i] += 15
		}
	}

	return &compositeEvaluator{params: c.params, closes: closes, marketScores: marketScores}, nil
}

type compositeEvaluator struct {
	params       CompositeParams
	closes       []float64
	marketScores []int
}

func (e *compositeEvaluator) OnEntry(types.Position, int) {}

// Score is the full score of the open position on a bar.
func (e *compositeEvaluator) Score(position types.Position, index int) int {
	score := e.marketScores[index]
	if e.closes[index] > position.ReferencePrice {
		score += 20
	}

	return score
}

func (e *compositeEvaluator) Evaluate(position types.Position, index int) (Decision, error) {
	score := e.Score(position, index)
	profit := position.Return(e.closes[index])

	switch {
	case score < e.params.LowScore:
		return ExitAtClose(types.ExitReasonLowScore), nil
	case score < e.params.MinScore && profit < 0:
		return ExitAtClose(types.ExitReasonMediumScoreLoss), nil
	case position.HoldingDays >= e.params.MaxHoldingDays && score < e.params.MinScore:
		return ExitAtClose(types.ExitReasonMaxDays), nil
	case position.HoldingDays >= e.params.MaxHoldingDays*3:
		return ExitAtClose(types.ExitReasonMaxDays), nil
	}

	return Hold(), nil
}
