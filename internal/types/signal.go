package types

import (
	"fmt"

	"github.com/moznion/go-optional"
)

// SignalRow is the normalized output of an entry signal provider for one bar.
type SignalRow struct {
	// EntrySignal is true when the provider wants to enter on the following bar.
	EntrySignal bool
	// EntryPrice is the intended fill price if an entry is acted upon on this bar.
	EntryPrice optional.Option[float64]
	// TargetPrice is the breakout level of this bar. It is used as the fill price
	// of the next bar when that bar carries no explicit entry price.
	TargetPrice optional.Option[float64]
}

// EntryTable is what a signal provider returns: one row per input bar.
type EntryTable struct {
	Rows []SignalRow
	// Columns holds provider diagnostics such as target_price or entry_score.
	Columns map[string][]float64
}

// NewEntryTable creates an empty table for n bars.
func NewEntryTable(n int) EntryTable {
	return EntryTable{
		Rows:    make([]SignalRow, n),
		Columns: make(map[string][]float64),
	}
}

// Len returns the number of rows.
func (t EntryTable) Len() int {
	return len(t.Rows)
}

// SignalCount returns how many bars carry an entry signal.
func (t EntryTable) SignalCount() int {
	count := 0

	for _, row := range t.Rows {
		if row.EntrySignal {
			count++
		}
	}

	return count
}

// ExitReason is the fixed vocabulary tag of the predicate that closed a position.
type ExitReason string

const (
	ExitReasonNone                ExitReason = ""
	ExitReasonNextBar             ExitReason = "next_bar"
	ExitReasonTakeProfit          ExitReason = "take_profit"
	ExitReasonStopLoss            ExitReason = "stop_loss"
	ExitReasonTrailingStop        ExitReason = "trailing_stop"
	ExitReasonMaxDays             ExitReason = "max_days"
	ExitReasonMACross             ExitReason = "ma_cross"
	ExitReasonLowMomentum         ExitReason = "low_momentum"
	ExitReasonLowVolatility       ExitReason = "low_volatility"
	ExitReasonLossInNormalVol     ExitReason = "loss_in_normal_vol"
	ExitReasonFinalExit           ExitReason = "final_exit"
	ExitReasonBollingerLower      ExitReason = "bb_lower_break"
	ExitReasonBollingerMiddle     ExitReason = "bb_middle_break_profit"
	ExitReasonMaxDaysByADX        ExitReason = "max_days_by_adx"
	ExitReasonTargetReached       ExitReason = "target_reached"
	ExitReasonDoji                ExitReason = "doji_pattern"
	ExitReasonBearishRejection    ExitReason = "bearish_rejection"
	ExitReasonProfitWithMaxDays   ExitReason = "profit_with_max_days"
	ExitReasonLossCut             ExitReason = "loss_cut"
	ExitReasonLowScore            ExitReason = "low_score"
	ExitReasonMediumScoreLoss     ExitReason = "medium_score_loss"
	ExitReasonPartialTakeProfit   ExitReason = "partial_take_profit"
	exitReasonDayThresholdPattern            = "day%d_threshold"
)

// DayThresholdReason returns the reason used by the time-weighted policy when the
// loss threshold of a given holding day is breached, e.g. "day2_threshold".
func DayThresholdReason(day int) ExitReason {
	return ExitReason(fmt.Sprintf(exitReasonDayThresholdPattern, day))
}

// ExitRow is the per-bar output of an exit policy.
type ExitRow struct {
	ExitSignal  bool
	HoldingDays int
	ExitReason  ExitReason
}

// ExitTable is what an exit policy reports for a whole series.
type ExitTable struct {
	Rows []ExitRow
}

// ExitCount returns how many bars carry an exit signal.
func (t ExitTable) ExitCount() int {
	count := 0

	for _, row := range t.Rows {
		if row.ExitSignal {
			count++
		}
	}

	return count
}
