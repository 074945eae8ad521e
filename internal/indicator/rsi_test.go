package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/suite"
)

type RSITestSuite struct {
	suite.Suite
}

func TestRSISuite(t *testing.T) {
	suite.Run(t, new(RSITestSuite))
}

func (suite *RSITestSuite) TestOnlyGainsIsHundred() {
	rsi := CalculateRSI([]float64{1, 2, 3, 4}, 3)

	suite.True(math.IsNaN(rsi[1]))
	suite.Equal(100.0, rsi[2])
	suite.Equal(100.0, rsi[3])
}

func (suite *RSITestSuite) TestFlatIsNaN() {
	rsi := CalculateRSI([]float64{1, 1, 1, 1}, 3)

	suite.True(math.IsNaN(rsi[3]))
}

func (suite *RSITestSuite) TestMixed() {
	// gains 2, losses 1 over the last 3 changes -> rs = 2
	rsi := CalculateRSI([]float64{10, 12, 11, 11}, 3)

	suite.InDelta(100-100/3.0, rsi[3], 1e-9)
}

func (suite *RSITestSuite) TestConfig() {
	rsi := NewRSI()

	suite.NoError(rsi.Config(7))
	suite.Equal(7, rsi.(*RSI).period)
	suite.Error(rsi.Config(-1))

	columns, err := rsi.Compute(closeSeries(1, 2, 3))
	suite.Require().NoError(err)
	suite.Len(columns["rsi"], 3)
}
