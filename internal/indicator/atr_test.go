package indicator

import (
	"math"
	"testing"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/stretchr/testify/suite"
)

type ATRTestSuite struct {
	suite.Suite
}

func TestATRSuite(t *testing.T) {
	suite.Run(t, new(ATRTestSuite))
}

func (suite *ATRTestSuite) TestNewATR() {
	atr := NewATR()
	suite.Equal(types.IndicatorTypeATR, atr.Name())
	suite.Equal(14, atr.(*ATR).period)
}

func (suite *ATRTestSuite) TestConfig() {
	atr := NewATR()

	suite.NoError(atr.Config(5))
	suite.Equal(5, atr.(*ATR).period)

	suite.NoError(atr.Config(7.0))
	suite.Equal(7, atr.(*ATR).period)

	err := atr.Config()
	suite.Error(err)
	suite.Contains(err.Error(), "expects 1 parameter")

	suite.Error(atr.Config("14"))
	suite.Error(atr.Config(0))
}

func (suite *ATRTestSuite) TestTrueRange() {
	highs := []float64{10, 12, 11}
	lows := []float64{8, 9, 9}
	closes := []float64{9, 11, 10}

	suite.Equal([]float64{2, 3, 2}, TrueRange(highs, lows, closes))
}

func (suite *ATRTestSuite) TestCompute() {
	series := testSeries([]float64{10, 12, 11}, []float64{8, 9, 9}, []float64{9, 11, 10}, nil)
	atr := NewATR()
	suite.Require().NoError(atr.Config(2))

	columns, err := atr.Compute(series)
	suite.Require().NoError(err)
	suite.True(assertFloats([]float64{math.NaN(), 2.5, 2.5}, columns[types.ColumnATR]))
}

func (suite *ATRTestSuite) TestSeriesATRPrefersPrecomputedColumn() {
	series := testSeries([]float64{10, 12, 11}, []float64{8, 9, 9}, []float64{9, 11, 10}, nil)

	suite.True(assertFloats([]float64{math.NaN(), 2.5, 2.5}, SeriesATR(series, 2)))

	series = series.WithColumn(types.ColumnATR, []float64{1, 1, 1})
	suite.Equal([]float64{1, 1, 1}, SeriesATR(series, 2))
}

func (suite *ATRTestSuite) TestAttach() {
	series := testSeries([]float64{10, 12, 11}, []float64{8, 9, 9}, []float64{9, 11, 10}, nil)

	enriched, err := Attach(series, NewATR())
	suite.Require().NoError(err)
	suite.True(enriched.HasColumn(types.ColumnATR))
	suite.False(series.HasColumn(types.ColumnATR))
}
