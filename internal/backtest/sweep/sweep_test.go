package sweep

import (
	"context"
	"errors"
	"testing"

	engine "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/strategy/entry"
	"github.com/rxtech-lab/argo-backtest/internal/strategy/exit"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/mocks"
	argoErrors "github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type SweepTestSuite struct {
	suite.Suite
	series types.Series
}

func TestSweepSuite(t *testing.T) {
	suite.Run(t, new(SweepTestSuite))
}

func (suite *SweepTestSuite) SetupSuite() {
	suite.series = mocks.GenerateYear("005930")
}

func (suite *SweepTestSuite) costs() engine.Costs {
	return engine.Costs{Slippage: 0.002, Commission: 0.001}
}

func (suite *SweepTestSuite) newRunner(options Options) *Runner {
	return NewRunner(options, nil)
}

func (suite *SweepTestSuite) TestCartesianOrder() {
	entries := []Spec{{Name: entry.NameVolatilityBreakout}, {Name: entry.NameAdaptiveK}}
	exits := []Spec{{Name: exit.NameNextBar}, {Name: exit.NameATR}, {Name: exit.NameBollinger}}

	combinations := Cartesian(entries, exits)
	suite.Require().Len(combinations, 6)

	labels := make([]string, len(combinations))
	for i, c := range combinations {
		labels[i] = c.Label()
	}

	suite.Equal([]string{
		"volatility_breakout+next_bar",
		"volatility_breakout+atr",
		"volatility_breakout+bollinger",
		"adaptive_k+next_bar",
		"adaptive_k+atr",
		"adaptive_k+bollinger",
	}, labels)
}

func (suite *SweepTestSuite) TestDefaultsBuild() {
	exits := DefaultExits()
	suite.Len(exits, len(exit.Names()))

	for _, combination := range Cartesian(DefaultEntries(0.5), exits) {
		_, _, err := combination.build()
		suite.NoError(err, combination.Label())
	}

	// a small base k must not push k_min below zero
	for _, combination := range Cartesian(DefaultEntries(0.1), exits[:1]) {
		_, _, err := combination.build()
		suite.NoError(err, combination.Label())
	}
}

func (suite *SweepTestSuite) TestKGrid() {
	base := Spec{Name: entry.NameVolumeConfirmed, Params: map[string]any{"k": 0.5, "volume_multiplier": 1.5}}

	grid := KGrid(base, []float64{0.3, 0.7})
	suite.Require().Len(grid, 2)
	suite.Equal(0.3, grid[0].Entry.Params["k"])
	suite.Equal(0.7, grid[1].Entry.Params["k"])
	suite.Equal(1.5, grid[1].Entry.Params["volume_multiplier"])
	suite.Equal(exit.NameNextBar, grid[0].Exit.Name)
	suite.Equal(0.5, base.Params["k"], "base params are copied")

	adaptive := KGrid(Spec{Name: entry.NameAdaptiveK}, []float64{0.1})
	suite.InDelta(0.0, adaptive[0].Entry.Params["k_min"], 1e-12)
	suite.InDelta(0.3, adaptive[0].Entry.Params["k_max"], 1e-12)
	suite.NotContains(adaptive[0].Entry.Params, "k")

	double := KGrid(Spec{Name: entry.NameDoubleBreakout}, []float64{0.4})
	suite.InDelta(0.4, double[0].Entry.Params["k1"], 1e-12)
	suite.InDelta(0.6, double[0].Entry.Params["k2"], 1e-12)
}

func (suite *SweepTestSuite) TestRunMatchesSimulate() {
	combinations := Cartesian(
		[]Spec{{Name: entry.NameVolatilityBreakout}, {Name: entry.NameComposite}},
		[]Spec{{Name: exit.NameNextBar}, {Name: exit.NameATR}},
	)

	outcomes, err := suite.newRunner(Options{Costs: suite.costs(), Workers: 3}).Run(context.Background(), suite.series, combinations)
	suite.Require().NoError(err)
	suite.Require().Len(outcomes, len(combinations))

	for i, outcome := range outcomes {
		suite.Require().NoError(outcome.Err)
		suite.Equal(i, outcome.Index)
		suite.Equal(combinations[i].Label(), outcome.Combination.Label())

		provider, policy, err := combinations[i].build()
		suite.Require().NoError(err)

		expected, err := engine.Simulate(suite.series, provider, policy, suite.costs())
		suite.Require().NoError(err)

		suite.Equal(expected.FinalCumulativeReturn(), outcome.FinalCumulativeReturn)
		suite.Equal(len(expected.Trades), outcome.NumberOfTrades)
		suite.Equal(expected.Returns(), outcome.Returns)
		suite.Len(outcome.Returns, suite.series.Len())
		suite.InDelta(expected.TotalReturn(), outcome.TotalReturn(), 1e-12)
	}
}

func (suite *SweepTestSuite) TestFailuresAreRecorded() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	failing := mocks.NewMockProvider(ctrl)
	failing.EXPECT().Name().Return("failing").AnyTimes()
	failing.EXPECT().Generate(gomock.Any()).Return(types.EntryTable{}, errors.New("malformed input")).AnyTimes()

	panicking := mocks.NewMockProvider(ctrl)
	panicking.EXPECT().Name().Return("panicking").AnyTimes()
	panicking.EXPECT().Generate(gomock.Any()).DoAndReturn(func(types.Series) (types.EntryTable, error) {
		panic("boom")
	}).AnyTimes()

	nextBar, err := exit.New(exit.NameNextBar, nil)
	suite.Require().NoError(err)

	combinations := []Combination{
		{Entry: Spec{Name: entry.NameVolatilityBreakout}, Exit: Spec{Name: exit.NameNextBar}},
		{Entry: Spec{Name: "moon_phase"}, Exit: Spec{Name: exit.NameNextBar}},
		Prebuilt(failing, nextBar),
		Prebuilt(panicking, nextBar),
		{Entry: Spec{Name: entry.NameVolatilityBreakout}, Exit: Spec{Name: exit.NameATR, Params: map[string]any{"max_holding_days": -1}}},
		{Entry: Spec{Name: entry.NameVolatilityBreakout}, Exit: Spec{Name: exit.NameATR}},
	}

	outcomes, err := suite.newRunner(Options{Costs: suite.costs(), Workers: 2}).Run(context.Background(), suite.series, combinations)
	suite.Require().NoError(err)
	suite.Require().Len(outcomes, len(combinations))

	suite.False(outcomes[0].Failed())
	suite.False(outcomes[5].Failed())

	suite.True(argoErrors.HasCode(outcomes[1].Err, argoErrors.ErrCodeCombinationFailed))
	suite.True(argoErrors.InChain(outcomes[1].Err, argoErrors.ErrCodeUnknownEntryStrategy))

	suite.True(argoErrors.HasCode(outcomes[2].Err, argoErrors.ErrCodeCombinationFailed))
	suite.True(argoErrors.InChain(outcomes[2].Err, argoErrors.ErrCodeSignalProviderFailed))
	suite.Nil(outcomes[2].Result)

	suite.True(argoErrors.HasCode(outcomes[3].Err, argoErrors.ErrCodeCombinationPanic))
	suite.Contains(outcomes[3].Err.Error(), "boom")
	suite.Equal(3, outcomes[3].Index)

	suite.True(argoErrors.InChain(outcomes[4].Err, argoErrors.ErrCodeStrategyConfigError))

	suite.Len(Failures(outcomes), 4)
	suite.Len(Rank(outcomes), 2)
}

func (suite *SweepTestSuite) TestSeriesIsNotMutated() {
	before := suite.series.Clone()

	_, err := suite.newRunner(Options{Costs: suite.costs()}).Run(context.Background(), suite.series,
		Cartesian(DefaultEntries(0.5)[:3], DefaultExits()[:4]))
	suite.Require().NoError(err)

	suite.Equal(before.Data, suite.series.Data)
	suite.Len(suite.series.Columns, len(before.Columns))
}

func (suite *SweepTestSuite) TestRank() {
	outcomes := []Outcome{
		{Index: 0, FinalCumulativeReturn: 1.05},
		{Index: 1, FinalCumulativeReturn: 1.20},
		{Index: 2, Err: errors.New("failed")},
		{Index: 3, FinalCumulativeReturn: 0.90},
		{Index: 4, FinalCumulativeReturn: 1.20},
	}

	ranked := Rank(outcomes)
	suite.Require().Len(ranked, 4)

	indexes := []int{ranked[0].Index, ranked[1].Index, ranked[2].Index, ranked[3].Index}
	suite.Equal([]int{1, 4, 0, 3}, indexes)
}

func (suite *SweepTestSuite) TestBestPerEntry() {
	var combinations []Combination
	combinations = append(combinations, KGrid(Spec{Name: entry.NameVolatilityBreakout}, []float64{0.3, 0.5, 0.7})...)
	combinations = append(combinations, KGrid(Spec{Name: entry.NameGapAdjusted}, []float64{0.3, 0.5, 0.7})...)

	outcomes, err := suite.newRunner(Options{Costs: suite.costs()}).Run(context.Background(), suite.series, combinations)
	suite.Require().NoError(err)

	best := BestPerEntry(outcomes)
	suite.Require().Len(best, 2)
	suite.NotEqual(best[0].Combination.Entry.Name, best[1].Combination.Entry.Name)
	suite.GreaterOrEqual(best[0].FinalCumulativeReturn, best[1].FinalCumulativeReturn)

	for _, b := range best {
		for _, outcome := range outcomes {
			if outcome.Combination.Entry.Name == b.Combination.Entry.Name {
				suite.GreaterOrEqual(b.FinalCumulativeReturn, outcome.FinalCumulativeReturn)
			}
		}
	}
}

func (suite *SweepTestSuite) TestAccountMode() {
	runConfig := engine.RunConfig{InitialCapital: 5_000_000, Commission: 0.001, Slippage: 0.001}
	combinations := Cartesian([]Spec{{Name: entry.NameVolatilityBreakout}}, []Spec{{Name: exit.NameNextBar}, {Name: exit.NameATR}})

	outcomes, err := suite.newRunner(Options{Mode: ModeAccount, RunConfig: runConfig}).Run(context.Background(), suite.series, combinations)
	suite.Require().NoError(err)

	for _, outcome := range outcomes {
		suite.Require().NoError(outcome.Err)

		last := outcome.Result.Rows[len(outcome.Result.Rows)-1]
		suite.Equal(5_000_000.0, outcome.Result.InitialCapital)
		suite.Equal(last.TotalValue/5_000_000, outcome.FinalCumulativeReturn)
		suite.Greater(outcome.Result.Fees, 0.0)
	}
}

func (suite *SweepTestSuite) TestProgress() {
	var progress []int

	combinations := Cartesian(DefaultEntries(0.5)[:2], DefaultExits()[:3])
	runner := suite.newRunner(Options{
		Costs:   suite.costs(),
		Workers: 4,
		OnProgress: func(done int, total int) {
			suite.Equal(len(combinations), total)
			progress = append(progress, done)
		},
	})

	_, err := runner.Run(context.Background(), suite.series, combinations)
	suite.Require().NoError(err)
	suite.Equal([]int{1, 2, 3, 4, 5, 6}, progress)
}

func (suite *SweepTestSuite) TestCancelled() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes, err := suite.newRunner(Options{Costs: suite.costs()}).Run(ctx, suite.series, Cartesian(DefaultEntries(0.5)[:2], DefaultExits()[:2]))
	suite.True(argoErrors.HasCode(err, argoErrors.ErrCodeBacktestCancelled))
	suite.Require().Len(outcomes, 4)

	for _, outcome := range outcomes {
		suite.True(argoErrors.HasCode(outcome.Err, argoErrors.ErrCodeBacktestCancelled))
	}
}

func (suite *SweepTestSuite) TestInvalidSeries() {
	_, err := suite.newRunner(Options{}).Run(context.Background(), types.Series{}, Cartesian(DefaultEntries(0.5)[:1], DefaultExits()[:1]))
	suite.True(argoErrors.HasCode(err, argoErrors.ErrCodeEmptySeries))
}

func (suite *SweepTestSuite) TestCompareToBaseline() {
	combinations := Cartesian([]Spec{{Name: entry.NameVolatilityBreakout}}, DefaultExits()[:3])

	outcomes, err := suite.newRunner(Options{Costs: suite.costs()}).Run(context.Background(), suite.series, combinations)
	suite.Require().NoError(err)

	baseline, ok := Find(outcomes, entry.NameVolatilityBreakout, exit.NameNextBar)
	suite.Require().True(ok)

	improvements, err := CompareToBaseline(baseline, outcomes)
	suite.Require().NoError(err)
	suite.Require().Len(improvements, 3)

	suite.Zero(improvements[0].TotalReturnDelta)
	suite.Zero(improvements[0].SharpeDelta)
	suite.Zero(improvements[0].MaxDrawdownDelta)

	for i, improvement := range improvements {
		suite.InDelta(outcomes[i].Summary.TotalReturn-baseline.Summary.TotalReturn, improvement.TotalReturnDelta, 1e-12)
		suite.Equal(outcomes[i].AverageHoldingDays, improvement.AverageHoldingDays)
	}

	_, err = CompareToBaseline(Outcome{Err: errors.New("failed")}, outcomes)
	suite.True(argoErrors.HasCode(err, argoErrors.ErrCodeInvalidParameter))

	_, ok = Find(outcomes, entry.NameComposite, exit.NameNextBar)
	suite.False(ok)
}

func (suite *SweepTestSuite) TestBlend() {
	combinations := Cartesian([]Spec{{Name: entry.NameVolatilityBreakout}}, DefaultExits()[:2])

	outcomes, err := suite.newRunner(Options{Costs: suite.costs()}).Run(context.Background(), suite.series, combinations)
	suite.Require().NoError(err)

	blend, err := Blend(outcomes, nil)
	suite.Require().NoError(err)
	suite.Len(blend.Returns, suite.series.Len())
	suite.InDelta(0.5*outcomes[0].Returns[10]+0.5*outcomes[1].Returns[10], blend.Returns[10], 1e-12)

	_, err = Blend([]Outcome{outcomes[0], {Err: errors.New("failed")}}, nil)
	suite.True(argoErrors.HasCode(err, argoErrors.ErrCodeInvalidParameter))
}
