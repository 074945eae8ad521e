package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/suite"
)

type VolumeIndicatorTestSuite struct {
	suite.Suite
}

func TestVolumeIndicatorSuite(t *testing.T) {
	suite.Run(t, new(VolumeIndicatorTestSuite))
}

func (suite *VolumeIndicatorTestSuite) TestOBV() {
	obv := CalculateOBV([]float64{10, 11, 10, 10}, []float64{100, 200, 300, 400})

	suite.True(assertFloats([]float64{math.NaN(), 200, -100, -100}, obv))
}

func (suite *VolumeIndicatorTestSuite) TestVWAP() {
	suite.Equal([]float64{10, 17.5}, CalculateVWAP([]float64{10, 20}, []float64{1, 3}))
	suite.Equal([]float64{10, 15}, CalculateVWAP([]float64{10, 20}, nil))
}

func (suite *VolumeIndicatorTestSuite) TestVWAPComputeWithoutVolume() {
	columns, err := NewVWAP().Compute(closeSeries(10, 20))
	suite.Require().NoError(err)
	suite.Equal([]float64{10, 15}, columns["vwap"])
}

func (suite *VolumeIndicatorTestSuite) TestMomentum() {
	momentum := NewMomentum()
	suite.Require().NoError(momentum.Config(1))

	columns, err := momentum.Compute(closeSeries(10, 11))
	suite.Require().NoError(err)
	suite.True(assertFloats([]float64{math.NaN(), 0.1}, columns["momentum_1"]))
}
