package indicator

import (
	"testing"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type RegistryTestSuite struct {
	suite.Suite
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func (suite *RegistryTestSuite) TestRegisterAndGet() {
	registry := NewIndicatorRegistry()

	suite.NoError(registry.RegisterIndicator(NewATR()))
	suite.Error(registry.RegisterIndicator(NewATR()))

	ind, err := registry.GetIndicator(types.IndicatorTypeATR)
	suite.NoError(err)
	suite.Equal(types.IndicatorTypeATR, ind.Name())

	_, err = registry.GetIndicator(types.IndicatorTypeRSI)
	suite.Error(err)
}

func (suite *RegistryTestSuite) TestRemove() {
	registry := NewIndicatorRegistry()
	suite.Require().NoError(registry.RegisterIndicator(NewMA()))

	suite.NoError(registry.RemoveIndicator(types.IndicatorTypeMA))
	suite.Error(registry.RemoveIndicator(types.IndicatorTypeMA))
	suite.Empty(registry.ListIndicators())
}

func (suite *RegistryTestSuite) TestDefaultRegistryIsSorted() {
	names := NewDefaultRegistry().ListIndicators()

	suite.Len(names, 9)
	suite.Equal(types.IndicatorTypeATR, names[0])
	suite.Contains(names, types.IndicatorTypeVWAP)
}

func (suite *RegistryTestSuite) TestEnrich() {
	series := closeSeries(1, 2, 3, 4)

	enriched, err := Enrich(NewDefaultRegistry(), series, types.IndicatorTypeATR, types.IndicatorTypeOBV)
	suite.Require().NoError(err)
	suite.True(enriched.HasColumn(types.ColumnATR))
	suite.True(enriched.HasColumn("obv"))

	_, err = Enrich(NewDefaultRegistry(), series, types.IndicatorType("unknown"))
	suite.True(errors.HasCode(err, errors.ErrCodeIndicatorNotFound))
}
