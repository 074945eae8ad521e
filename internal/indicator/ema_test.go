package indicator

import (
	"math"
	"testing"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/stretchr/testify/suite"
)

type EMATestSuite struct {
	suite.Suite
}

func TestEMASuite(t *testing.T) {
	suite.Run(t, new(EMATestSuite))
}

func (suite *EMATestSuite) TestCalculateEMANormalizesWeights() {
	ema := CalculateEMA([]float64{1, 2, 3}, 3)

	suite.True(assertFloats([]float64{1, 2.5 / 1.5, 4.25 / 1.75}, ema))
}

func (suite *EMATestSuite) TestCalculateEMALeadingNaN() {
	nan := math.NaN()
	ema := CalculateEMA([]float64{nan, 4, 4}, 3)

	suite.True(math.IsNaN(ema[0]))
	suite.InDelta(4.0, ema[1], 1e-12)
	suite.InDelta(4.0, ema[2], 1e-12)
}

func (suite *EMATestSuite) TestComputeColumnName() {
	ema := NewEMA()
	suite.Require().NoError(ema.Config(2))

	columns, err := ema.Compute(closeSeries(1, 2, 3))
	suite.Require().NoError(err)
	suite.Contains(columns, "ema_2")
	suite.Equal(types.IndicatorTypeEMA, ema.Name())
}

func (suite *EMATestSuite) TestMACDOfConstantSeriesIsZero() {
	line, signal := CalculateMACD([]float64{5, 5, 5, 5, 5}, 12, 26, 9)

	for i := range line {
		suite.InDelta(0.0, line[i], 1e-12)
		suite.InDelta(0.0, signal[i], 1e-12)
	}
}

func (suite *EMATestSuite) TestMACDConfig() {
	macd := NewMACD()

	suite.NoError(macd.Config(5, 10, 3))
	suite.Equal(5, macd.(*MACD).fastPeriod)

	suite.Error(macd.Config(10, 5, 3))
	suite.Error(macd.Config(5, 10))

	columns, err := macd.Compute(closeSeries(1, 2, 3, 4))
	suite.Require().NoError(err)
	suite.Len(columns["macd"], 4)
	suite.Len(columns["macd_signal"], 4)
}
