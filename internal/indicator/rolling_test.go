package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/suite"
)

type RollingTestSuite struct {
	suite.Suite
}

func TestRollingSuite(t *testing.T) {
	suite.Run(t, new(RollingTestSuite))
}

func (suite *RollingTestSuite) TestShift() {
	nan := math.NaN()

	suite.True(assertFloats([]float64{nan, 1, 2}, Shift([]float64{1, 2, 3}, 1)))
	suite.True(assertFloats([]float64{2, 3, nan}, Shift([]float64{1, 2, 3}, -1)))
}

func (suite *RollingTestSuite) TestDiffAndPctChange() {
	nan := math.NaN()

	suite.True(assertFloats([]float64{nan, 1, -2}, Diff([]float64{1, 2, 0})))
	suite.True(assertFloats([]float64{nan, nan, 0.5}, PctChange([]float64{10, 11, 15}, 2)))
}

func (suite *RollingTestSuite) TestRollingMean() {
	nan := math.NaN()

	suite.True(assertFloats([]float64{nan, nan, 2, 3}, RollingMean([]float64{1, 2, 3, 4}, 3)))
	// a NaN inside the window poisons it
	suite.True(assertFloats([]float64{nan, nan, nan, 3}, RollingMean([]float64{nan, 2, 3, 4}, 3)))
	suite.True(assertFloats([]float64{nan, nan}, RollingMean([]float64{1, 2}, 0)))
}

func (suite *RollingTestSuite) TestRollingMax() {
	nan := math.NaN()

	suite.True(assertFloats([]float64{nan, 5, 4, 4}, RollingMax([]float64{5, 1, 4, 2}, 2)))
}

func (suite *RollingTestSuite) TestRollingStdIsSampleStd() {
	nan := math.NaN()

	suite.True(assertFloats([]float64{nan, nan, 1, 1}, RollingStd([]float64{1, 2, 3, 4}, 3)))
	suite.True(assertFloats([]float64{nan}, RollingStd([]float64{1}, 1)))
}

func (suite *RollingTestSuite) TestPercentileRankAveragesTies() {
	nan := math.NaN()
	ranks := PercentileRank([]float64{1, 3, 2, 3}, 3)

	suite.True(assertFloats([]float64{nan, nan, 200.0 / 3, 250.0 / 3}, ranks))
}

func (suite *RollingTestSuite) TestCumSumSkipsNaN() {
	nan := math.NaN()

	suite.True(assertFloats([]float64{nan, 2, 1}, CumSum([]float64{nan, 2, -1})))
}
