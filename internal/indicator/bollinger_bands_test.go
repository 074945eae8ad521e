package indicator

import (
	"testing"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/stretchr/testify/suite"
)

type BollingerBandsTestSuite struct {
	suite.Suite
}

func TestBollingerBandsSuite(t *testing.T) {
	suite.Run(t, new(BollingerBandsTestSuite))
}

func (suite *BollingerBandsTestSuite) TestCalculate() {
	bands := CalculateBollingerBands([]float64{1, 2, 3}, 3, 2)

	suite.InDelta(2.0, bands.Middle[2], 1e-12)
	suite.InDelta(4.0, bands.Upper[2], 1e-12)
	suite.InDelta(0.0, bands.Lower[2], 1e-12)
}

func (suite *BollingerBandsTestSuite) TestConfig() {
	bb := NewBollingerBands()
	suite.Equal(types.IndicatorTypeBollingerBands, bb.Name())

	suite.NoError(bb.Config(10, 1.5))
	suite.Equal(10, bb.(*BollingerBands).period)
	suite.Equal(1.5, bb.(*BollingerBands).stdDevMul)

	suite.Error(bb.Config(10))
	suite.Error(bb.Config(10, "2"))
	suite.Error(bb.Config(10, -1.0))
}

func (suite *BollingerBandsTestSuite) TestCompute() {
	columns, err := NewBollingerBands().Compute(closeSeries(1, 2, 3))
	suite.Require().NoError(err)

	suite.Contains(columns, "bb_upper")
	suite.Contains(columns, "bb_middle")
	suite.Contains(columns, "bb_lower")
}
