package types

import (
	"time"
)

// Position is the single open holding tracked by the state machine.
type Position struct {
	IsOpen bool `csv:"is_open"`
	// EntryPrice is the fill price including slippage.
	EntryPrice float64 `csv:"entry_price"`
	// ReferencePrice is the resolved entry price before slippage. Exit policies measure
	// returns and ATR bands against it.
	ReferencePrice float64   `csv:"reference_price"`
	EntryDate      time.Time `csv:"entry_date"`
	EntryIndex     int       `csv:"entry_index"`
	Shares         int64     `csv:"shares"`
	// HoldingDays counts bars since entry, the entry bar being day 1.
	HoldingDays  int     `csv:"holding_days"`
	HighestPrice float64 `csv:"highest_price"`
	// Remaining is the fraction of the original size still held. It is 1 at entry and only
	// drops below 1 for policies that scale out.
	Remaining float64       `csv:"remaining"`
	Partials  []PartialExit `csv:"-"`
}

// Return is the unrealized return of the position at the given price.
func (p Position) Return(price float64) float64 {
	if p.ReferencePrice == 0 {
		return 0
	}

	return (price - p.ReferencePrice) / p.ReferencePrice
}

// PartialExit is one leg of a scaled-out position.
type PartialExit struct {
	Index int       `csv:"index"`
	Date  time.Time `csv:"date"`
	// Price is the fill price including slippage.
	Price float64 `csv:"price"`
	// Fraction is the share of the original position sold on this leg.
	Fraction float64    `csv:"fraction"`
	Shares   int64      `csv:"shares"`
	Return   float64    `csv:"return"`
	Reason   ExitReason `csv:"reason"`
}

// Trade is the immutable record of a closed position.
type Trade struct {
	EntryIndex  int        `csv:"entry_index"`
	ExitIndex   int        `csv:"exit_index"`
	EntryDate   time.Time  `csv:"entry_date"`
	ExitDate    time.Time  `csv:"exit_date"`
	EntryPrice  float64    `csv:"entry_price"`
	ExitPrice   float64    `csv:"exit_price"`
	Shares      int64      `csv:"shares"`
	HoldingDays int        `csv:"holding_days"`
	Return      float64    `csv:"trade_return"`
	ExitReason  ExitReason `csv:"exit_reason"`
	// Partials lists the scale-out legs that preceded the final exit, if any.
	Partials []PartialExit `csv:"-"`
}

// IsWin reports whether the trade closed with a positive return.
func (t Trade) IsWin() bool {
	return t.Return > 0
}
