package engine

import (
	"database/sql"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/stretchr/testify/suite"
)

type BacktestStateTestSuite struct {
	suite.Suite
	state *BacktestState
}

func TestBacktestStateSuite(t *testing.T) {
	suite.Run(t, new(BacktestStateTestSuite))
}

func (suite *BacktestStateTestSuite) SetupSuite() {
	state, err := NewBacktestState(logger.NewNopLogger())
	suite.Require().NoError(err)

	suite.state = state
}

func (suite *BacktestStateTestSuite) TearDownSuite() {
	suite.NoError(suite.state.Close())
}

func (suite *BacktestStateTestSuite) SetupTest() {
	suite.Require().NoError(suite.state.Initialize())
}

func (suite *BacktestStateTestSuite) TearDownTest() {
	suite.Require().NoError(suite.state.Cleanup())
}

func day(n int) time.Time {
	return time.Date(2024, 1, 1+n, 0, 0, 0, 0, time.UTC)
}

// journalResult is five bars with one winning trade that scaled out once, one losing
// trade and a position still open at the end.
func journalResult() *types.Result {
	totals := []float64{1000, 1000, 1100, 1045, 1060}
	rows := make([]types.ResultRow, len(totals))

	for i, total := range totals {
		rows[i] = types.ResultRow{
			Time:              day(i),
			Close:             10 + float64(i),
			TotalValue:        total,
			CumulativeReturns: total / 1000,
			BuyHoldReturns:    (10 + float64(i)) / 10,
		}

		if i > 0 {
			rows[i].Returns = total/totals[i-1] - 1
		}
	}

	rows[4].StockValue = 140
	rows[4].Cash = 920

	return &types.Result{
		ID:             "run-1",
		Symbol:         "AAA",
		EntryStrategy:  "volatility_breakout",
		ExitStrategy:   "partial_profit",
		InitialCapital: 1000,
		Fees:           1.5,
		Rows:           rows,
		Trades: []types.Trade{
			{
				EntryIndex: 1, ExitIndex: 2, EntryDate: day(1), ExitDate: day(2),
				EntryPrice: 10, ExitPrice: 12, Shares: 100, HoldingDays: 2,
				Return: 0.15, ExitReason: types.ExitReasonFinalExit,
				Partials: []types.PartialExit{{Index: 2, Date: day(2), Price: 11, Fraction: 0.5, Shares: 50}},
			},
			{
				EntryIndex: 3, ExitIndex: 3, EntryDate: day(3), ExitDate: day(3),
				EntryPrice: 13, ExitPrice: 12, Shares: 10, HoldingDays: 1,
				Return: -0.08, ExitReason: types.ExitReasonStopLoss,
			},
		},
		OpenPosition: optional.Some(types.Position{IsOpen: true, EntryPrice: 13, Shares: 10}),
	}
}

func (suite *BacktestStateTestSuite) TestTradePnL() {
	trade := journalResult().Trades[0]

	// 50 sold at 11 and 50 at 12 against 100 bought at 10
	suite.InDelta(150.0, tradePnL(trade), 1e-9)
	suite.InDelta(-10.0, tradePnL(journalResult().Trades[1]), 1e-9)
}

func (suite *BacktestStateTestSuite) TestGetStats() {
	result := journalResult()
	suite.Require().NoError(suite.state.Record(result))

	stats, err := suite.state.GetStats(result, types.StrategyInfo{Entry: "volatility_breakout", Exit: "partial_profit"})
	suite.Require().NoError(err)

	suite.Equal("run-1", stats.ID)
	suite.Equal("AAA", stats.Symbol)
	suite.Equal(2, stats.TradeResult.NumberOfTrades)
	suite.Equal(1, stats.TradeResult.NumberOfWinningTrades)
	suite.Equal(1, stats.TradeResult.NumberOfLosingTrades)
	suite.InDelta(0.5, stats.TradeResult.WinRate, 1e-12)
	suite.InDelta(1045.0/1100-1, stats.TradeResult.MaxDrawdown, 1e-12)

	suite.Equal(1, stats.TradeHoldingTime.Min)
	suite.Equal(2, stats.TradeHoldingTime.Max)
	suite.InDelta(1.5, stats.TradeHoldingTime.Avg, 1e-12)

	suite.InDelta(140.0, stats.TradePnl.RealizedPnL, 1e-9)
	suite.InDelta(-0.08, stats.TradePnl.MaximumLoss, 1e-12)
	suite.InDelta(0.15, stats.TradePnl.MaximumProfit, 1e-12)
	suite.InDelta(60.0, stats.TradePnl.TotalPnL, 1e-9)
	suite.InDelta(10.0, stats.TradePnl.UnrealizedPnL, 1e-9)

	suite.Equal(1.5, stats.TotalFees)
	suite.InDelta(1.06, stats.CumulativeReturn, 1e-12)
	suite.InDelta(1.4, stats.BuyAndHoldReturn, 1e-12)
	suite.InDelta(0.06, stats.Performance.TotalReturn, 1e-9)
	suite.Equal(map[string]int{"final_exit": 1, "stop_loss": 1}, stats.ExitReasons)
	suite.Equal("partial_profit", stats.Strategy.Exit)
}

func (suite *BacktestStateTestSuite) TestGetStatsWithoutTrades() {
	result := journalResult()
	result.Trades = nil
	result.OpenPosition = optional.None[types.Position]()
	suite.Require().NoError(suite.state.Record(result))

	stats, err := suite.state.GetStats(result, types.StrategyInfo{})
	suite.Require().NoError(err)

	suite.Zero(stats.TradeResult.NumberOfTrades)
	suite.Zero(stats.TradeResult.WinRate)
	suite.Zero(stats.TradeHoldingTime.Avg)
	suite.Zero(stats.TradePnl.RealizedPnL)
	suite.Zero(stats.TradePnl.UnrealizedPnL)
	suite.Empty(stats.ExitReasons)
}

func (suite *BacktestStateTestSuite) TestRecordNaNClose() {
	result := journalResult()
	result.Rows[2].Close = math.NaN()
	result.Rows[2].BuyHoldReturns = math.NaN()

	suite.Require().NoError(suite.state.Record(result))
}

func (suite *BacktestStateTestSuite) TestWrite() {
	suite.Require().NoError(suite.state.Record(journalResult()))

	tradesPath, equityPath, err := suite.state.Write(suite.T().TempDir())
	suite.Require().NoError(err)

	db, err := sql.Open("duckdb", "")
	suite.Require().NoError(err)

	defer db.Close()

	for path, expected := range map[string]int{tradesPath: 2, equityPath: 5} {
		var count int
		suite.Require().NoError(db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM read_parquet('%s')", path)).Scan(&count))
		suite.Equal(expected, count, path)
	}
}

func (suite *BacktestStateTestSuite) TestCleanupEmptiesJournal() {
	suite.Require().NoError(suite.state.Record(journalResult()))
	suite.Require().NoError(suite.state.Cleanup())

	stats, err := suite.state.GetStats(&types.Result{}, types.StrategyInfo{})
	suite.Require().NoError(err)
	suite.Zero(stats.TradeResult.NumberOfTrades)
	suite.Zero(stats.TradeResult.MaxDrawdown)
}
