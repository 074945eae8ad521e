package types

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ResultTestSuite struct {
	suite.Suite
}

func TestResultSuite(t *testing.T) {
	suite.Run(t, new(ResultTestSuite))
}

func (suite *ResultTestSuite) TestEmptyResult() {
	result := &Result{}

	suite.Equal(1.0, result.FinalCumulativeReturn())
	suite.Equal(0.0, result.TotalReturn())
	suite.Equal(0.0, result.AverageHoldingDays())
	suite.Empty(result.Returns())
	suite.True(result.OpenPosition.IsNone())
}

func (suite *ResultTestSuite) TestAccessors() {
	result := &Result{
		Rows: []ResultRow{
			{Returns: 0, CumulativeReturns: 1},
			{Returns: 0.1, CumulativeReturns: 1.1},
			{Returns: -0.05, CumulativeReturns: 1.045},
		},
		Trades: []Trade{
			{Return: 0.1, HoldingDays: 1, ExitReason: ExitReasonNextBar},
			{Return: -0.05, HoldingDays: 3, ExitReason: ExitReasonStopLoss},
			{Return: 0.02, HoldingDays: 2, ExitReason: ExitReasonNextBar},
		},
	}

	suite.Equal(3, result.Len())
	suite.InDelta(1.045, result.FinalCumulativeReturn(), 1e-12)
	suite.InDelta(0.045, result.TotalReturn(), 1e-12)
	suite.Equal([]float64{0, 0.1, -0.05}, result.Returns())
	suite.Equal([]float64{0.1, -0.05, 0.02}, result.TradeReturns())
	suite.Equal(2.0, result.AverageHoldingDays())
	suite.Equal(map[ExitReason]int{ExitReasonNextBar: 2, ExitReasonStopLoss: 1}, result.ExitReasonCounts())
	suite.True(result.Trades[0].IsWin())
	suite.False(result.Trades[1].IsWin())
}

func (suite *ResultTestSuite) TestPositionReturn() {
	position := Position{ReferencePrice: 100}
	suite.InDelta(0.05, position.Return(105), 1e-12)

	suite.Equal(0.0, Position{}.Return(105))
}

func (suite *ResultTestSuite) TestWriteAndReadTradeStats() {
	path := filepath.Join(suite.T().TempDir(), "stats.yaml")
	stats := []TradeStats{
		{
			ID:        "run-1",
			Timestamp: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Symbol:    "005930",
			TradeResult: TradeResult{
				NumberOfTrades:        3,
				NumberOfWinningTrades: 2,
				NumberOfLosingTrades:  1,
				WinRate:               2.0 / 3.0,
			},
			ExitReasons: map[string]int{"next_bar": 3},
			Strategy: StrategyInfo{
				Entry:       "volatility_breakout",
				EntryParams: map[string]any{"k": 0.5},
				Exit:        "next_bar",
			},
		},
	}

	suite.Require().NoError(WriteTradeStats(path, stats))

	loaded, err := ReadTradeStats(path)
	suite.Require().NoError(err)
	suite.Require().Len(loaded, 1)
	suite.Equal("run-1", loaded[0].ID)
	suite.Equal(3, loaded[0].TradeResult.NumberOfTrades)
	suite.Equal("volatility_breakout", loaded[0].Strategy.Entry)
	suite.Equal(0.5, loaded[0].Strategy.EntryParams["k"])
	suite.Equal(3, loaded[0].ExitReasons["next_bar"])
}

func (suite *ResultTestSuite) TestReadTradeStatsMissingFile() {
	_, err := ReadTradeStats(filepath.Join(suite.T().TempDir(), "missing.yaml"))
	suite.Error(err)
}
