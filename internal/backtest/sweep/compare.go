package sweep

import (
	"github.com/rxtech-lab/argo-backtest/internal/performance"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// Improvement is the difference of one outcome against a baseline. Drawdowns are
// non-positive, so a MaxDrawdownDelta above zero means a shallower drawdown.
type Improvement struct {
	Combination        Combination
	TotalReturnDelta   float64 `yaml:"total_return_delta" json:"total_return_delta"`
	SharpeDelta        float64 `yaml:"sharpe_delta" json:"sharpe_delta"`
	MaxDrawdownDelta   float64 `yaml:"max_drawdown_delta" json:"max_drawdown_delta"`
	AverageHoldingDays float64 `yaml:"average_holding_days" json:"average_holding_days"`
}

// CompareToBaseline measures every successful outcome against the baseline outcome.
func CompareToBaseline(baseline Outcome, outcomes []Outcome) ([]Improvement, error) {
	if baseline.Failed() {
		return nil, errors.Wrap(errors.ErrCodeInvalidParameter, "baseline combination failed", baseline.Err)
	}

	improvements := make([]Improvement, 0, len(outcomes))
	for _, outcome := range outcomes {
		if outcome.Failed() {
			continue
		}

		improvements = append(improvements, Improvement{
			Combination:        outcome.Combination,
			TotalReturnDelta:   outcome.Summary.TotalReturn - baseline.Summary.TotalReturn,
			SharpeDelta:        outcome.Summary.SharpeRatio - baseline.Summary.SharpeRatio,
			MaxDrawdownDelta:   outcome.Summary.MaxDrawdown - baseline.Summary.MaxDrawdown,
			AverageHoldingDays: outcome.AverageHoldingDays,
		})
	}

	return improvements, nil
}

// Find returns the first successful outcome of the entry/exit pair.
func Find(outcomes []Outcome, entryName, exitName string) (Outcome, bool) {
	for _, outcome := range outcomes {
		if outcome.Failed() {
			continue
		}

		if outcome.Combination.Entry.Name == entryName && outcome.Combination.Exit.Name == exitName {
			return outcome, true
		}
	}

	return Outcome{}, false
}

// Blend mixes the returns of the given successful outcomes into one portfolio. Nil weights
// mean equal weights.
func Blend(outcomes []Outcome, weights []float64) (performance.PortfolioResult, error) {
	results := make([]*types.Result, 0, len(outcomes))
	for _, outcome := range outcomes {
		if outcome.Failed() {
			return performance.PortfolioResult{}, errors.Wrapf(errors.ErrCodeInvalidParameter, outcome.Err,
				"cannot blend failed combination %s", outcome.Combination.Label())
		}

		results = append(results, outcome.Result)
	}

	return performance.Portfolio(results, weights)
}
