package types

import (
	"testing"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
)

type SignalTestSuite struct {
	suite.Suite
}

func TestSignalSuite(t *testing.T) {
	suite.Run(t, new(SignalTestSuite))
}

func (suite *SignalTestSuite) TestExitReasonConstants() {
	suite.Equal(ExitReason("next_bar"), ExitReasonNextBar)
	suite.Equal(ExitReason("take_profit"), ExitReasonTakeProfit)
	suite.Equal(ExitReason("stop_loss"), ExitReasonStopLoss)
	suite.Equal(ExitReason("trailing_stop"), ExitReasonTrailingStop)
	suite.Equal(ExitReason("max_days"), ExitReasonMaxDays)
	suite.Equal(ExitReason("max_days_by_adx"), ExitReasonMaxDaysByADX)
	suite.Equal(ExitReason("bb_middle_break_profit"), ExitReasonBollingerMiddle)
}

func (suite *SignalTestSuite) TestDayThresholdReason() {
	suite.Equal(ExitReason("day2_threshold"), DayThresholdReason(2))
	suite.Equal(ExitReason("day10_threshold"), DayThresholdReason(10))
}

func (suite *SignalTestSuite) TestEntryTable() {
	table := NewEntryTable(3)
	suite.Equal(3, table.Len())
	suite.Equal(0, table.SignalCount())
	suite.NotNil(table.Columns)

	table.Rows[1] = SignalRow{
		EntrySignal: true,
		EntryPrice:  optional.Some(101.5),
		TargetPrice: optional.Some(101.5),
	}

	suite.Equal(1, table.SignalCount())
	suite.True(table.Rows[0].EntryPrice.IsNone())
	suite.Equal(101.5, table.Rows[1].EntryPrice.Unwrap())
}

func (suite *SignalTestSuite) TestExitTableCount() {
	table := ExitTable{Rows: []ExitRow{
		{},
		{ExitSignal: true, HoldingDays: 2, ExitReason: ExitReasonMaxDays},
		{ExitSignal: true, HoldingDays: 1, ExitReason: ExitReasonNextBar},
	}}

	suite.Equal(2, table.ExitCount())
}
