package performance

import (
	"sort"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// ExitReasonStats aggregates the closed trades of one exit reason.
type ExitReasonStats struct {
	Reason             types.ExitReason `yaml:"reason" json:"reason"`
	Count              int              `yaml:"count" json:"count"`
	AverageReturn      float64          `yaml:"average_return" json:"average_return"`
	AverageHoldingDays float64          `yaml:"average_holding_days" json:"average_holding_days"`
}

// ExitReasonBreakdown groups trades by exit reason, most frequent first and ties by name.
func ExitReasonBreakdown(trades []types.Trade) []ExitReasonStats {
	byReason := make(map[types.ExitReason]*ExitReasonStats)

	for _, trade := range trades {
		if trade.ExitReason == types.ExitReasonNone {
			continue
		}

		stats, ok := byReason[trade.ExitReason]
		if !ok {
			stats = &ExitReasonStats{Reason: trade.ExitReason}
			byReason[trade.ExitReason] = stats
		}

		stats.Count++
		stats.AverageReturn += trade.Return
		stats.AverageHoldingDays += float64(trade.HoldingDays)
	}

	out := make([]ExitReasonStats, 0, len(byReason))
	for _, stats := range byReason {
		stats.AverageReturn /= float64(stats.Count)
		stats.AverageHoldingDays /= float64(stats.Count)
		out = append(out, *stats)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}

		return out[i].Reason < out[j].Reason
	})

	return out
}

// PortfolioResult is the blend of several runs over the same bars.
type PortfolioResult struct {
	Returns           []float64
	CumulativeReturns []float64
	Weights           []float64
}

// Portfolio blends the per-bar returns of runs over the same bars. Nil weights mean
// equal weights. Every run must have the same number of rows.
func Portfolio(results []*types.Result, weights []float64) (PortfolioResult, error) {
	if len(results) == 0 {
		return PortfolioResult{}, errors.New(errors.ErrCodeInvalidParameter, "portfolio needs at least one result")
	}

	if weights == nil {
		weights = make([]float64, len(results))
		for i := range weights {
			weights[i] = 1 / float64(len(results))
		}
	}

	if len(weights) != len(results) {
		return PortfolioResult{}, errors.Newf(errors.ErrCodeInvalidParameter,
			"got %d weights for %d results", len(weights), len(results))
	}

	n := results[0].Len()
	for _, result := range results[1:] {
		if result.Len() != n {
			return PortfolioResult{}, errors.Newf(errors.ErrCodeSignalLengthMismatch,
				"result %s+%s has %d rows, expected %d", result.EntryStrategy, result.ExitStrategy, result.Len(), n)
		}
	}

	portfolio := PortfolioResult{
		Returns:           make([]float64, n),
		CumulativeReturns: make([]float64, n),
		Weights:           weights,
	}

	cumulative := 1.0

	for i := 0; i < n; i++ {
		for j, result := range results {
			portfolio.Returns[i] += weights[j] * result.Rows[i].Returns
		}

		cumulative *= 1 + portfolio.Returns[i]
		portfolio.CumulativeReturns[i] = cumulative
	}

	return portfolio, nil
}
