package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type TradeHoldingTime struct {
	// Minimum holding time of a trade in bars
	Min int `yaml:"min"`
	// Maximum holding time of a trade in bars
	Max int `yaml:"max"`
	// Average holding time of a trade in bars
	Avg float64 `yaml:"avg"`
}

type TradePnl struct {
	// Realized PnL. Sum of the cash gained or lost by every closed trade before commission.
	RealizedPnL float64 `yaml:"realized_pnl"`
	// Unrealized PnL of the position still open at the last bar, marked at the last close.
	UnrealizedPnL float64 `yaml:"unrealized_pnl"`
	// Total PnL. Final total value minus initial capital.
	TotalPnL float64 `yaml:"total_pnl"`
	// Maximum loss. The worst single trade return.
	MaximumLoss float64 `yaml:"maximum_loss"`
	// Maximum profit. The best single trade return.
	MaximumProfit float64 `yaml:"maximum_profit"`
}

type TradeResult struct {
	// Count of all closed trades.
	NumberOfTrades int `yaml:"number_of_trades"`
	// Count of winning trades that has positive return.
	NumberOfWinningTrades int `yaml:"number_of_winning_trades"`
	// Count of losing trades that has negative return.
	NumberOfLosingTrades int `yaml:"number_of_losing_trades"`
	// Win rate.
	WinRate float64 `yaml:"win_rate"`
	// Maximum drawdown of the equity curve as a non-positive fraction.
	MaxDrawdown float64 `yaml:"max_drawdown"`
}

// PerformanceSummary is the reduction of a returns series to headline metrics.
type PerformanceSummary struct {
	TotalReturn         float64 `yaml:"total_return" json:"total_return"`
	AnnualizedReturn    float64 `yaml:"annualized_return" json:"annualized_return"`
	AnnualizedVol       float64 `yaml:"annualized_volatility" json:"annualized_volatility"`
	SharpeRatio         float64 `yaml:"sharpe_ratio" json:"sharpe_ratio"`
	MaxDrawdown         float64 `yaml:"max_drawdown" json:"max_drawdown"`
	WinRate             float64 `yaml:"win_rate" json:"win_rate"`
	AverageWin          float64 `yaml:"average_win" json:"average_win"`
	AverageLoss         float64 `yaml:"average_loss" json:"average_loss"`
	ProfitLossRatio     float64 `yaml:"profit_loss_ratio" json:"profit_loss_ratio"`
	CalmarRatio         float64 `yaml:"calmar_ratio" json:"calmar_ratio"`
	NumberOfTrades      int     `yaml:"number_of_trades" json:"number_of_trades"`
	TradesPerBar        float64 `yaml:"trades_per_bar" json:"trades_per_bar"`
	NumberOfObservation int     `yaml:"number_of_observations" json:"number_of_observations"`
}

// StrategyInfo names the entry/exit pair that generated stats.
type StrategyInfo struct {
	Entry       string         `yaml:"entry" json:"entry"`
	EntryParams map[string]any `yaml:"entry_params,omitempty" json:"entry_params,omitempty"`
	Exit        string         `yaml:"exit" json:"exit"`
	ExitParams  map[string]any `yaml:"exit_params,omitempty" json:"exit_params,omitempty"`
}

type TradeStats struct {
	// ID is the unique identifier for this backtest run.
	ID string `yaml:"id" json:"id"`
	// Timestamp is when this backtest run was executed.
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	// Symbol of the instrument.
	Symbol string `yaml:"symbol"`
	// Result of all trades.
	TradeResult TradeResult `yaml:"trade_result"`
	// Total commission paid on both legs.
	TotalFees float64 `yaml:"total_fees"`
	// Holding time of all trades.
	TradeHoldingTime TradeHoldingTime `yaml:"trade_holding_time"`
	// PnL of all trades.
	TradePnl TradePnl `yaml:"trade_pnl"`
	// Buy and hold return multiple at the last bar.
	BuyAndHoldReturn float64 `yaml:"buy_and_hold_return"`
	// Final cumulative return multiple of the strategy.
	CumulativeReturn float64 `yaml:"cumulative_return"`
	// Performance metrics of the per-bar returns.
	Performance PerformanceSummary `yaml:"performance"`
	// ExitReasons counts closed trades per exit reason.
	ExitReasons map[string]int `yaml:"exit_reasons"`
	// TradesFilePath is the path to the trades parquet file.
	TradesFilePath string `yaml:"trades_file_path" json:"trades_file_path"`
	// EquityFilePath is the path to the per-bar equity parquet file.
	EquityFilePath string `yaml:"equity_file_path" json:"equity_file_path"`
	// Strategy contains the entry/exit pair that generated these stats.
	Strategy StrategyInfo `yaml:"strategy" json:"strategy"`
	// DataPath is the path to the market data file used for this backtest.
	DataPath string `yaml:"data_path" json:"data_path"`
}

func WriteTradeStats(path string, stats []TradeStats) error {
	data, err := yaml.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal trade stats to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write trade stats to file: %w", err)
	}

	return nil
}

// ReadTradeStats loads a stats file written by WriteTradeStats.
func ReadTradeStats(path string) ([]TradeStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trade stats file: %w", err)
	}

	var stats []TradeStats
	if err := yaml.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trade stats: %w", err)
	}

	return stats, nil
}
