package types

import (
	"time"

	"github.com/moznion/go-optional"
)

// ResultRow is one bar of a simulation result, keyed by the same date as the input bar.
type ResultRow struct {
	Time  time.Time `csv:"time"`
	Close float64   `csv:"close"`
	// Position is the fraction of the original size held at the end of the bar.
	Position          float64    `csv:"position"`
	EntrySignal       bool       `csv:"entry_signal"`
	ExitSignal        bool       `csv:"exit_signal"`
	HoldingDays       int        `csv:"holding_days"`
	ExitReason        ExitReason `csv:"exit_reason"`
	Cash              float64    `csv:"cash"`
	Shares            int64      `csv:"shares"`
	StockValue        float64    `csv:"stock_value"`
	TotalValue        float64    `csv:"total_value"`
	Returns           float64    `csv:"returns"`
	TradeReturns      float64    `csv:"trade_returns"`
	CumulativeReturns float64    `csv:"cumulative_returns"`
	BuyHoldReturns    float64    `csv:"buy_hold_returns"`
}

// Result is the full output of one run.
//
// For the account-based driver, Cash/Shares/StockValue/TotalValue are populated and
// CumulativeReturns is TotalValue divided by the initial capital. For the trade-only
// simulation those columns stay zero and CumulativeReturns compounds the per-bar returns.
type Result struct {
	ID             string
	Symbol         string
	EntryStrategy  string
	ExitStrategy   string
	InitialCapital float64
	// Fees is the commission paid by the account driver over the run.
	Fees   float64
	Rows   []ResultRow
	Trades []Trade
	// OpenPosition is set when the series ended while a position was still held.
	OpenPosition optional.Option[Position]
}

// Len returns the number of rows.
func (r *Result) Len() int {
	return len(r.Rows)
}

// FinalCumulativeReturn returns the cumulative return multiple at the last bar, or 1 for an empty result.
func (r *Result) FinalCumulativeReturn() float64 {
	if len(r.Rows) == 0 {
		return 1
	}

	return r.Rows[len(r.Rows)-1].CumulativeReturns
}

// TotalReturn is FinalCumulativeReturn minus one.
func (r *Result) TotalReturn() float64 {
	return r.FinalCumulativeReturn() - 1
}

// Returns extracts the per-bar returns column.
func (r *Result) Returns() []float64 {
	out := make([]float64, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row.Returns
	}

	return out
}

// TradeReturns extracts the return of every closed trade in order.
func (r *Result) TradeReturns() []float64 {
	out := make([]float64, len(r.Trades))
	for i, trade := range r.Trades {
		out[i] = trade.Return
	}

	return out
}

// ExitReasonCounts tallies closed trades by exit reason.
func (r *Result) ExitReasonCounts() map[ExitReason]int {
	counts := make(map[ExitReason]int)
	for _, trade := range r.Trades {
		counts[trade.ExitReason]++
	}

	return counts
}

// AverageHoldingDays returns the mean holding period of closed trades, 0 when there are none.
func (r *Result) AverageHoldingDays() float64 {
	if len(r.Trades) == 0 {
		return 0
	}

	total := 0
	for _, trade := range r.Trades {
		total += trade.HoldingDays
	}

	return float64(total) / float64(len(r.Trades))
}
