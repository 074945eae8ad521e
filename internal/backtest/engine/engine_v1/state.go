package engine

import (
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/performance"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BacktestState journals the trades and the equity curve of one run in an in-memory
// DuckDB so statistics can be computed with SQL and exported to parquet.
type BacktestState struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

func NewBacktestState(logger *logger.Logger) (*BacktestState, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBacktestStateNil, "failed to open database", err)
	}

	return &BacktestState{
		logger: logger,
		db:     db,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Initialize creates the journal tables.
func (b *BacktestState) Initialize() error {
	_, err := b.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			trade_id INTEGER,
			symbol TEXT,
			entry_strategy TEXT,
			exit_strategy TEXT,
			entry_index INTEGER,
			exit_index INTEGER,
			entry_date TIMESTAMP,
			exit_date TIMESTAMP,
			entry_price DOUBLE,
			exit_price DOUBLE,
			shares BIGINT,
			holding_days INTEGER,
			trade_return DOUBLE,
			pnl DOUBLE,
			exit_reason TEXT,
			partial_exits INTEGER
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestStateNil, "failed to create trades table", err)
	}

	_, err = b.db.Exec(`
		CREATE TABLE IF NOT EXISTS equity (
			bar_index INTEGER,
			time TIMESTAMP,
			close DOUBLE,
			entry_signal BOOLEAN,
			exit_signal BOOLEAN,
			exit_reason TEXT,
			position DOUBLE,
			holding_days INTEGER,
			cash DOUBLE,
			shares BIGINT,
			stock_value DOUBLE,
			total_value DOUBLE,
			returns DOUBLE,
			cumulative_returns DOUBLE,
			buy_hold_returns DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestStateNil, "failed to create equity table", err)
	}

	return nil
}

// Record journals every trade and every bar of a result in one transaction.
func (b *BacktestState) Record(result *types.Result) error {
	tx, err := b.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to begin transaction", err)
	}

	if err := b.recordTrades(tx, result); err != nil {
		_ = tx.Rollback()

		return err
	}

	if err := b.recordEquity(tx, result); err != nil {
		_ = tx.Rollback()

		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to commit journal", err)
	}

	b.logger.Debug("Run journaled",
		zap.String("id", result.ID),
		zap.Int("trades", len(result.Trades)),
		zap.Int("bars", result.Len()),
	)

	return nil
}

func (b *BacktestState) recordTrades(tx *sql.Tx, result *types.Result) error {
	if len(result.Trades) == 0 {
		return nil
	}

	insert := b.sq.Insert("trades").Columns(
		"trade_id", "symbol", "entry_strategy", "exit_strategy", "entry_index", "exit_index",
		"entry_date", "exit_date", "entry_price", "exit_price", "shares", "holding_days",
		"trade_return", "pnl", "exit_reason", "partial_exits",
	)

	for i, trade := range result.Trades {
		insert = insert.Values(
			i, result.Symbol, result.EntryStrategy, result.ExitStrategy, trade.EntryIndex, trade.ExitIndex,
			trade.EntryDate, trade.ExitDate, trade.EntryPrice, trade.ExitPrice, trade.Shares, trade.HoldingDays,
			trade.Return, tradePnL(trade), string(trade.ExitReason), len(trade.Partials),
		)
	}

	if _, err := insert.RunWith(tx).Exec(); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to insert trades", err)
	}

	return nil
}

func (b *BacktestState) recordEquity(tx *sql.Tx, result *types.Result) error {
	if result.Len() == 0 {
		return nil
	}

	insert := b.sq.Insert("equity").Columns(
		"bar_index", "time", "close", "entry_signal", "exit_signal", "exit_reason", "position",
		"holding_days", "cash", "shares", "stock_value", "total_value", "returns",
		"cumulative_returns", "buy_hold_returns",
	)

	for i, row := range result.Rows {
		insert = insert.Values(
			i, row.Time, nullableFloat(row.Close), row.EntrySignal, row.ExitSignal, string(row.ExitReason), row.Position,
			row.HoldingDays, row.Cash, row.Shares, row.StockValue, row.TotalValue, row.Returns,
			row.CumulativeReturns, nullableFloat(row.BuyHoldReturns),
		)
	}

	if _, err := insert.RunWith(tx).Exec(); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to insert equity", err)
	}

	return nil
}

// tradePnL is the cash gained over all legs of a trade before commission.
func tradePnL(trade types.Trade) float64 {
	remaining := trade.Shares
	proceeds := decimal.Zero

	for _, leg := range trade.Partials {
		proceeds = proceeds.Add(decimal.NewFromFloat(leg.Price).Mul(decimal.NewFromInt(leg.Shares)))
		remaining -= leg.Shares
	}

	proceeds = proceeds.Add(decimal.NewFromFloat(trade.ExitPrice).Mul(decimal.NewFromInt(remaining)))
	cost := decimal.NewFromFloat(trade.EntryPrice).Mul(decimal.NewFromInt(trade.Shares))

	return proceeds.Sub(cost).InexactFloat64()
}

// nullableFloat maps NaN, which DuckDB cannot bind, to NULL.
func nullableFloat(value float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: value, Valid: !math.IsNaN(value)}
}

// GetStats computes the statistics of the journaled run. The caller supplies the
// result for the values that are not journaled, such as fees and the open position.
func (b *BacktestState) GetStats(result *types.Result, strategy types.StrategyInfo) (types.TradeStats, error) {
	tradeResult, err := b.calculateTradeResult()
	if err != nil {
		return types.TradeStats{}, err
	}

	holding, err := b.calculateTradeHoldingTime()
	if err != nil {
		return types.TradeStats{}, err
	}

	pnl, err := b.calculateTradePnl()
	if err != nil {
		return types.TradeStats{}, err
	}

	reasons, err := b.calculateExitReasons()
	if err != nil {
		return types.TradeStats{}, err
	}

	stats := types.TradeStats{
		ID:               result.ID,
		Timestamp:        time.Now(),
		Symbol:           result.Symbol,
		TradeResult:      tradeResult,
		TotalFees:        result.Fees,
		TradeHoldingTime: holding,
		TradePnl:         pnl,
		CumulativeReturn: result.FinalCumulativeReturn(),
		Performance:      performance.FromResult(result),
		ExitReasons:      reasons,
		Strategy:         strategy,
	}

	if result.Len() > 0 {
		last := result.Rows[result.Len()-1]
		stats.BuyAndHoldReturn = last.BuyHoldReturns
		stats.TradePnl.TotalPnL = last.TotalValue - result.InitialCapital

		if result.OpenPosition.IsSome() {
			position := result.OpenPosition.Unwrap()
			stats.TradePnl.UnrealizedPnL = last.StockValue - position.EntryPrice*float64(position.Shares)
		}
	}

	return stats, nil
}

func (b *BacktestState) calculateTradeResult() (types.TradeResult, error) {
	query, args, err := b.sq.Select(
		"COUNT(*)",
		"COUNT(CASE WHEN trade_return > 0 THEN 1 END)",
		"COUNT(CASE WHEN trade_return < 0 THEN 1 END)",
	).From("trades").ToSql()
	if err != nil {
		return types.TradeResult{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build trade result query", err)
	}

	var result types.TradeResult

	err = b.db.QueryRow(query, args...).Scan(
		&result.NumberOfTrades,
		&result.NumberOfWinningTrades,
		&result.NumberOfLosingTrades,
	)
	if err != nil {
		return types.TradeResult{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to calculate trade result", err)
	}

	if result.NumberOfTrades > 0 {
		result.WinRate = float64(result.NumberOfWinningTrades) / float64(result.NumberOfTrades)
	}

	curve := b.sq.Select(
		"total_value",
		"MAX(total_value) OVER (ORDER BY bar_index ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW) AS peak",
	).From("equity")

	query, args, err = b.sq.Select("COALESCE(MIN(total_value / peak - 1), 0)").
		FromSelect(curve, "curve").
		Where("peak > 0").
		ToSql()
	if err != nil {
		return types.TradeResult{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build drawdown query", err)
	}

	if err := b.db.QueryRow(query, args...).Scan(&result.MaxDrawdown); err != nil {
		return types.TradeResult{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to calculate max drawdown", err)
	}

	return result, nil
}

func (b *BacktestState) calculateTradeHoldingTime() (types.TradeHoldingTime, error) {
	query, args, err := b.sq.Select(
		"COALESCE(MIN(holding_days), 0)",
		"COALESCE(MAX(holding_days), 0)",
		"COALESCE(AVG(holding_days), 0)",
	).From("trades").ToSql()
	if err != nil {
		return types.TradeHoldingTime{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build holding time query", err)
	}

	var holding types.TradeHoldingTime
	if err := b.db.QueryRow(query, args...).Scan(&holding.Min, &holding.Max, &holding.Avg); err != nil {
		return types.TradeHoldingTime{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to calculate holding time", err)
	}

	return holding, nil
}

func (b *BacktestState) calculateTradePnl() (types.TradePnl, error) {
	query, args, err := b.sq.Select(
		"COALESCE(SUM(pnl), 0)",
		"COALESCE(MIN(trade_return), 0)",
		"COALESCE(MAX(trade_return), 0)",
	).From("trades").ToSql()
	if err != nil {
		return types.TradePnl{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build pnl query", err)
	}

	var pnl types.TradePnl
	if err := b.db.QueryRow(query, args...).Scan(&pnl.RealizedPnL, &pnl.MaximumLoss, &pnl.MaximumProfit); err != nil {
		return types.TradePnl{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to calculate pnl", err)
	}

	return pnl, nil
}

func (b *BacktestState) calculateExitReasons() (map[string]int, error) {
	query, args, err := b.sq.Select("exit_reason", "COUNT(*)").
		From("trades").
		GroupBy("exit_reason").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build exit reason query", err)
	}

	rows, err := b.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count exit reasons", err)
	}
	defer rows.Close()

	reasons := make(map[string]int)

	for rows.Next() {
		var (
			reason string
			count  int
		)

		if err := rows.Scan(&reason, &count); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan exit reason", err)
		}

		reasons[reason] = count
	}

	return reasons, rows.Err()
}

// Write exports the journal tables to trades.parquet and equity.parquet under path.
func (b *BacktestState) Write(path string) (string, string, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", "", errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to create directory", err)
	}

	tradesPath := filepath.Join(path, "trades.parquet")
	equityPath := filepath.Join(path, "equity.parquet")

	// squirrel doesn't support COPY
	for table, target := range map[string]string{"trades": tradesPath, "equity": equityPath} {
		query := fmt.Sprintf(`COPY %s TO '%s' (FORMAT PARQUET)`, table, strings.ReplaceAll(target, "'", "''"))
		if _, err := b.db.Exec(query); err != nil {
			return "", "", errors.Wrapf(errors.ErrCodeBacktestWriteFailed, err, "failed to export %s to parquet", table)
		}
	}

	b.logger.Info("Successfully exported backtest results to Parquet files",
		zap.String("trades", tradesPath),
		zap.String("equity", equityPath),
	)

	return tradesPath, equityPath, nil
}

// Cleanup empties the journal for the next run.
func (b *BacktestState) Cleanup() error {
	// squirrel doesn't have DROP syntax
	_, err := b.db.Exec(`
		DROP TABLE IF EXISTS trades;
		DROP TABLE IF EXISTS equity;
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestStateNil, "failed to cleanup tables", err)
	}

	return b.Initialize()
}

// Close releases the database.
func (b *BacktestState) Close() error {
	return b.db.Close()
}
