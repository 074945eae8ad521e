// Package performance reduces per-bar returns and closed trades to summary metrics.
package performance

import (
	"math"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

const (
	// TradingDaysPerYear annualizes daily returns and volatility.
	TradingDaysPerYear = 252
	// DefaultRiskFreeRate is the annual rate subtracted in the Sharpe ratio.
	DefaultRiskFreeRate = 0.02
)

// Calculate summarizes a daily returns series with the default risk free rate.
func Calculate(returns []float64) types.PerformanceSummary {
	return CalculateWithRiskFree(returns, DefaultRiskFreeRate)
}

// CalculateWithRiskFree summarizes a daily returns series. Non-zero returns count as trades,
// so the win rate and averages describe the bars that moved the equity. MaxDrawdown is
// reported as a non-positive fraction. ProfitLossRatio is +Inf when nothing lost.
func CalculateWithRiskFree(returns []float64, riskFree float64) types.PerformanceSummary {
	n := len(returns)
	if n == 0 {
		return types.PerformanceSummary{}
	}

	summary := types.PerformanceSummary{NumberOfObservation: n}

	compounded := 1.0
	peak := 1.0
	wins, losses := 0, 0
	winSum, lossSum := 0.0, 0.0

	for _, r := range returns {
		compounded *= 1 + r
		peak = math.Max(peak, compounded)

		if drawdown := compounded/peak - 1; drawdown < summary.MaxDrawdown {
			summary.MaxDrawdown = drawdown
		}

		switch {
		case r > 0:
			wins++
			winSum += r
		case r < 0:
			losses++
			lossSum += r
		}
	}

	summary.TotalReturn = compounded - 1
	summary.AnnualizedReturn = math.Pow(compounded, float64(TradingDaysPerYear)/float64(n)) - 1
	summary.AnnualizedVol = sampleStd(returns) * math.Sqrt(TradingDaysPerYear)

	if summary.AnnualizedVol > 0 {
		summary.SharpeRatio = (summary.AnnualizedReturn - riskFree) / summary.AnnualizedVol
	}

	summary.NumberOfTrades = wins + losses
	if summary.NumberOfTrades > 0 {
		summary.WinRate = float64(wins) / float64(summary.NumberOfTrades)
	}

	if wins > 0 {
		summary.AverageWin = winSum / float64(wins)
	}

	if losses > 0 {
		summary.AverageLoss = lossSum / float64(losses)
	}

	summary.ProfitLossRatio = math.Inf(1)
	if summary.AverageLoss != 0 {
		summary.ProfitLossRatio = math.Abs(summary.AverageWin / summary.AverageLoss)
	}

	if summary.MaxDrawdown != 0 {
		summary.CalmarRatio = summary.AnnualizedReturn / math.Abs(summary.MaxDrawdown)
	}

	summary.TradesPerBar = float64(summary.NumberOfTrades) / float64(n)

	return summary
}

// FromResult summarizes the per-bar returns of a run.
func FromResult(result *types.Result) types.PerformanceSummary {
	return Calculate(result.Returns())
}

// TradeSummary describes closed trades independently of how the equity was marked.
type TradeSummary struct {
	NumberOfTrades     int     `yaml:"number_of_trades" json:"number_of_trades"`
	WinRate            float64 `yaml:"win_rate" json:"win_rate"`
	AverageReturn      float64 `yaml:"average_return" json:"average_return"`
	AverageWin         float64 `yaml:"average_win" json:"average_win"`
	AverageLoss        float64 `yaml:"average_loss" json:"average_loss"`
	AverageHoldingDays float64 `yaml:"average_holding_days" json:"average_holding_days"`
}

// FromTrades summarizes closed trades. The win rate is over all trades.
func FromTrades(trades []types.Trade) TradeSummary {
	summary := TradeSummary{NumberOfTrades: len(trades)}
	if len(trades) == 0 {
		return summary
	}

	wins, losses := 0, 0
	total, winSum, lossSum := 0.0, 0.0, 0.0
	days := 0

	for _, trade := range trades {
		total += trade.Return
		days += trade.HoldingDays

		switch {
		case trade.Return > 0:
			wins++
			winSum += trade.Return
		case trade.Return < 0:
			losses++
			lossSum += trade.Return
		}
	}

	count := float64(len(trades))
	summary.WinRate = float64(wins) / count
	summary.AverageReturn = total / count
	summary.AverageHoldingDays = float64(days) / count

	if wins > 0 {
		summary.AverageWin = winSum / float64(wins)
	}

	if losses > 0 {
		summary.AverageLoss = lossSum / float64(losses)
	}

	return summary
}

// sampleStd is the standard deviation with n-1 degrees of freedom, 0 below two values.
func sampleStd(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}

	mean /= float64(len(values))

	sum := 0.0
	for _, v := range values {
		sum += (v - mean) * (v - mean)
	}

	return math.Sqrt(sum / float64(len(values)-1))
}
