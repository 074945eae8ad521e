package exit

import (
	"testing"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/stretchr/testify/suite"
)

type TrendTestSuite struct {
	suite.Suite
}

func TestTrendSuite(t *testing.T) {
	suite.Run(t, new(TrendTestSuite))
}

func (suite *TrendTestSuite) TestMovingAverage() {
	policy, err := NewMovingAverage(map[string]any{"short_ma": 2, "long_ma": 3, "max_holding_days": 4})
	evaluator := bind(policy, err, closeBars(10, 11, 12, 11.4, 11.8))

	// bar 2: close 12 over MA2 11.5 over MA3 11
	decision, err := evaluator.Evaluate(openPosition(11, 2), 2)
	suite.Require().NoError(err)
	suite.False(decision.ShouldExit())

	// bar 3: close 11.4 under MA2 11.7
	decision, err = evaluator.Evaluate(openPosition(11, 3), 3)
	suite.Require().NoError(err)
	suite.Equal(types.ExitReasonMACross, decision.Reason)

	decision, err = evaluator.Evaluate(openPosition(11, 4), 2)
	suite.Require().NoError(err)
	suite.Equal(types.ExitReasonMaxDays, decision.Reason)
}

func (suite *TrendTestSuite) TestMovingAverageRejectsInvertedPeriods() {
	_, err := NewMovingAverage(map[string]any{"short_ma": 20, "long_ma": 5})
	suite.Error(err)
}

func (suite *TrendTestSuite) TestADXHorizonChosenAtEntry() {
	series := closeBars(100, 100, 100, 100).
		WithColumn(types.ColumnADX, []float64{30, 30, 22, 10}).
		WithColumn(types.ColumnPlusDI, []float64{25, 25, 25, 25}).
		WithColumn(types.ColumnMinusDI, []float64{15, 15, 15, 15})

	tests := []struct {
		name       string
		entryIndex int
		days       int
		profit     float64
		exit       bool
		reason     types.ExitReason
	}{
		{name: "strong trend holds nine days", entryIndex: 1, days: 9},
		{name: "strong trend leaves on day ten", entryIndex: 1, days: 10, exit: true, reason: types.ExitReasonMaxDaysByADX},
		{name: "strong trend stop at five percent", entryIndex: 1, days: 3, profit: -0.06, exit: true, reason: types.ExitReasonStopLoss},
		{name: "strong trend tolerates a smaller loss", entryIndex: 1, days: 3, profit: -0.04},
		{name: "weak trend leaves on day five", entryIndex: 2, days: 5, exit: true, reason: types.ExitReasonMaxDaysByADX},
		{name: "weak trend stop at three percent", entryIndex: 2, days: 2, profit: -0.035, exit: true, reason: types.ExitReasonStopLoss},
		{name: "no trend leaves at once", entryIndex: 3, days: 2, profit: -0.5, exit: true, reason: types.ExitReasonMaxDaysByADX},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			policy, err := NewADX(nil)
			evaluator := bind(policy, err, series)
			evaluator.OnEntry(openPosition(100, 1), tc.entryIndex)

			// closes are all 100, so the reference sets the return
			reference := 100 / (1 + tc.profit)
			decision, err := evaluator.Evaluate(openPosition(reference, tc.days), 3)
			suite.Require().NoError(err)
			suite.Equal(tc.exit, decision.ShouldExit())
			suite.Equal(tc.reason, decision.Reason)
		})
	}
}

func (suite *TrendTestSuite) TestADXWithoutColumns() {
	policy, err := NewADX(nil)
	evaluator := bind(policy, err, closeBars(100, 100, 100))
	evaluator.OnEntry(openPosition(100, 1), 1)

	decision, err := evaluator.Evaluate(openPosition(100, 2), 2)
	suite.Require().NoError(err)
	suite.Equal(types.ExitReasonMaxDaysByADX, decision.Reason)
}

func (suite *TrendTestSuite) TestADXMissingDirectionalIndexCountsAsZero() {
	series := closeBars(100, 100, 100).WithColumn(types.ColumnADX, []float64{40, 40, 40})

	policy, err := NewADX(nil)
	evaluator := bind(policy, err, series)
	evaluator.OnEntry(openPosition(100, 1), 1)

	// +DI 0 is not above -DI 0, so the strong trend is not recognised
	decision, err := evaluator.Evaluate(openPosition(100, 2), 2)
	suite.Require().NoError(err)
	suite.Equal(types.ExitReasonMaxDaysByADX, decision.Reason)
}
