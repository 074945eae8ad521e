package exit

import (
	"testing"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/stretchr/testify/suite"
)

type ScoreTestSuite struct {
	suite.Suite
}

func TestScoreSuite(t *testing.T) {
	suite.Run(t, new(ScoreTestSuite))
}

func (suite *ScoreTestSuite) TestMomentumScores() {
	bars := make([]bar, 6)
	for i := range bars {
		price := 100 + float64(i)
		bars[i] = bar{price, price + 0.5, price - 0.5, price}
	}

	scores := MomentumScores(barSeries(bars...))
	suite.Len(scores, 6)
	suite.Equal(0, scores[0])
	// up close only; the prior 5-bar high is not defined yet
	suite.Equal(1, scores[4])
	// up close above the prior 5-bar high of 104.5
	suite.Equal(2, scores[5])
}

func (suite *ScoreTestSuite) TestMomentum() {
	evaluator := &momentumEvaluator{params: MomentumParams{MinScore: 2, MaxHoldingDays: 10}, scores: []int{0, 3, 1}}

	decision, err := evaluator.Evaluate(openPosition(100, 2), 1)
	suite.Require().NoError(err)
	suite.False(decision.ShouldExit())

	decision, err = evaluator.Evaluate(openPosition(100, 2), 2)
	suite.Require().NoError(err)
	suite.Equal(types.ExitReasonLowMomentum, decision.Reason)

	decision, err = evaluator.Evaluate(openPosition(100, 10), 1)
	suite.Require().NoError(err)
	suite.Equal(types.ExitReasonMaxDays, decision.Reason)
}

func (suite *ScoreTestSuite) TestComposite() {
	params := CompositeParams{MinScore: 60, LowScore: 40, MaxHoldingDays: 10}

	tests := []struct {
		name        string
		marketScore int
		close       float64
		days        int
		exit        bool
		reason      types.ExitReason
	}{
		{name: "low score", marketScore: 10, close: 101, days: 2, exit: true, reason: types.ExitReasonLowScore},
		{name: "losing removes the entry points", marketScore: 30, close: 99, days: 2, exit: true, reason: types.ExitReasonLowScore},
		{name: "medium score while losing", marketScore: 45, close: 99, days: 2, exit: true, reason: types.ExitReasonMediumScoreLoss},
		{name: "medium score in profit holds", marketScore: 25, close: 101, days: 5},
		{name: "medium score at max days", marketScore: 25, close: 101, days: 10, exit: true, reason: types.ExitReasonMaxDays},
		{name: "high score passes max days", marketScore: 45, close: 101, days: 10},
		{name: "hard guard", marketScore: 45, close: 101, days: 30, exit: true, reason: types.ExitReasonMaxDays},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			evaluator := &compositeEvaluator{params: params, closes: []float64{tc.close}, marketScores: []int{tc.marketScore}}

			decision, err := evaluator.Evaluate(openPosition(100, tc.days), 0)
			suite.Require().NoError(err)
			suite.Equal(tc.exit, decision.ShouldExit())
			suite.Equal(tc.reason, decision.Reason)
		})
	}
}

func (suite *ScoreTestSuite) TestCompositeBindWithoutVolume() {
	policy, err := NewComposite(nil)
	evaluator := bind(policy, err, closeBars(10, 11, 12, 13, 14, 15, 16))

	composite, ok := evaluator.(*compositeEvaluator)
	suite.Require().True(ok)
	suite.Len(composite.marketScores, 7)
	// rising closes sit above their 5-bar average, the running VWAP and the MACD signal
	suite.Equal(35, composite.marketScores[6])
	suite.Equal(55, composite.Score(openPosition(15, 2), 6))
}

func (suite *ScoreTestSuite) TestVolatility() {
	params := VolatilityParams{HighVolMultiplier: 1.2, LowVolMultiplier: 0.8, MaxHoldingDays: 15}

	tests := []struct {
		name   string
		atr    float64
		close  float64
		days   int
		exit   bool
		reason types.ExitReason
	}{
		{name: "contracting volatility", atr: 0.7, close: 101, days: 2, exit: true, reason: types.ExitReasonLowVolatility},
		{name: "loss in normal volatility", atr: 1.0, close: 99, days: 2, exit: true, reason: types.ExitReasonLossInNormalVol},
		{name: "profit in normal volatility", atr: 1.0, close: 101, days: 2},
		{name: "loss in high volatility", atr: 1.5, close: 99, days: 2},
		{name: "max days", atr: 1.5, close: 99, days: 15, exit: true, reason: types.ExitReasonMaxDays},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			evaluator := &volatilityEvaluator{params: params, closes: []float64{tc.close}, atr: []float64{tc.atr}, atrMA: []float64{1}}

			decision, err := evaluator.Evaluate(openPosition(100, tc.days), 0)
			suite.Require().NoError(err)
			suite.Equal(tc.exit, decision.ShouldExit())
			suite.Equal(tc.reason, decision.Reason)
		})
	}
}
