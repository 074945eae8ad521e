package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

type EngineTestSuite struct {
	suite.Suite
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (suite *EngineTestSuite) TestOnProcessDataCallbackWithProgress() {
	var progress []int

	callback := OnProcessDataCallback(func(current int, total int) error {
		progress = append(progress, current)

		return nil
	})

	for i := 1; i <= 5; i++ {
		suite.NoError(callback(i, 5))
	}

	suite.Equal([]int{1, 2, 3, 4, 5}, progress)
}

func (suite *EngineTestSuite) TestLifecycleCallbacksOptional() {
	var callbacks LifecycleCallbacks

	suite.Nil(callbacks.OnBacktestStart)
	suite.Nil(callbacks.OnProcessData)

	failing := OnStrategyStartCallback(func(int, string, int) error {
		return errors.New("stop")
	})
	callbacks.OnStrategyStart = &failing

	suite.Error((*callbacks.OnStrategyStart)(0, "volatility_breakout+atr", 1))
}
