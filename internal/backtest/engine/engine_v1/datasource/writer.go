package datasource

import (
	"database/sql"
	"fmt"
	"math"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

// SeriesWriter exports bars and indicator columns to a file the DuckDB data source can
// read back. Rows are staged in an in-memory table inside one transaction and copied out
// on Finalize. Files ending in .csv are written as CSV, everything else as parquet.
type SeriesWriter struct {
	db      *sql.DB
	tx      *sql.Tx
	stmt    *sql.Stmt
	logger  *logger.Logger
	path    string
	columns []string
}

// NewSeriesWriter creates a writer for path. columns are the indicator columns every
// Write call supplies, in order.
func NewSeriesWriter(path string, columns []string, log *logger.Logger) *SeriesWriter {
	return &SeriesWriter{
		path:    path,
		columns: slices.Clone(columns),
		logger:  log.Named("writer"),
	}
}

// Initialize opens the staging database and prepares the insert statement.
func (w *SeriesWriter) Initialize() (err error) {
	for _, column := range w.columns {
		if !validIdentifier(column) {
			return errors.Newf(errors.ErrCodeInvalidParameter, "invalid column name %q", column)
		}
	}

	w.db, err = sql.Open("duckdb", "")
	if err != nil {
		return errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	definitions := []string{
		"id TEXT",
		"time TIMESTAMP",
		"symbol TEXT",
		"open DOUBLE",
		"high DOUBLE",
		"low DOUBLE",
		"close DOUBLE",
		"volume DOUBLE",
	}
	for _, column := range w.columns {
		definitions = append(definitions, column+" DOUBLE")
	}

	if _, err = w.db.Exec("CREATE TABLE market_data (" + strings.Join(definitions, ", ") + ")"); err != nil {
		w.db.Close()

		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to create table", err)
	}

	w.tx, err = w.db.Begin()
	if err != nil {
		w.db.Close()

		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to begin transaction", err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(definitions)), ", ")

	w.stmt, err = w.tx.Prepare("INSERT INTO market_data VALUES (" + placeholders + ")")
	if err != nil {
		w.tx.Rollback()
		w.db.Close()

		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to prepare statement", err)
	}

	return nil
}

// Write stages one bar. values must line up with the writer's columns; NaN is stored as NULL.
func (w *SeriesWriter) Write(bar types.MarketData, values []float64) error {
	if w.stmt == nil {
		return errors.New(errors.ErrCodeBacktestStateNil, "writer not initialized")
	}

	if len(values) != len(w.columns) {
		return errors.Newf(errors.ErrCodeInvalidParameter, "expected %d column values, got %d", len(w.columns), len(values))
	}

	id := bar.Id
	if id == "" {
		id = uuid.New().String()
	}

	args := []any{
		id,
		bar.Time,
		bar.Symbol,
		nullFloat(bar.Open),
		nullFloat(bar.High),
		nullFloat(bar.Low),
		nullFloat(bar.Close),
		nullFloat(bar.Volume),
	}
	for _, value := range values {
		args = append(args, nullFloat(value))
	}

	if _, err := w.stmt.Exec(args...); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to insert bar", err)
	}

	return nil
}

// Finalize commits the staged rows and copies them to the output file.
func (w *SeriesWriter) Finalize() (string, error) {
	if w.tx == nil {
		return "", errors.New(errors.ErrCodeBacktestStateNil, "writer not initialized")
	}

	if err := w.tx.Commit(); err != nil {
		w.tx.Rollback()

		return "", errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to commit transaction", err)
	}

	w.tx = nil

	format := "FORMAT PARQUET"
	if strings.EqualFold(filepath.Ext(w.path), ".csv") {
		format = "FORMAT CSV, HEADER"
	}

	query := fmt.Sprintf("COPY (SELECT * FROM market_data ORDER BY time) TO '%s' (%s)", strings.ReplaceAll(w.path, "'", "''"), format)
	if _, err := w.db.Exec(query); err != nil {
		return "", errors.Wrapf(errors.ErrCodeBacktestWriteFailed, err, "failed to export %s", w.path)
	}

	w.logger.Debug("Series exported", zap.String("path", w.path))

	return w.path, nil
}

// Close releases the statement and database. An unfinished transaction is rolled back.
func (w *SeriesWriter) Close() error {
	var closeErr error

	if w.stmt != nil {
		if err := w.stmt.Close(); err != nil {
			closeErr = errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to close statement", err)
		}

		w.stmt = nil
	}

	if w.tx != nil {
		if err := w.tx.Rollback(); err != nil {
			w.logger.Warn("Failed to roll back series writer", zap.Error(err))
		}

		w.tx = nil
	}

	if w.db != nil {
		if err := w.db.Close(); err != nil && closeErr == nil {
			closeErr = errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to close db connection", err)
		}

		w.db = nil
	}

	return closeErr
}

// WriteSeries exports the whole series to path, including every attached column.
// Well-known indicator columns come first, the rest follow in name order.
func WriteSeries(series types.Series, path string, log *logger.Logger) error {
	if err := series.Validate(); err != nil {
		return err
	}

	columns := seriesColumns(series)

	writer := NewSeriesWriter(path, columns, log)
	if err := writer.Initialize(); err != nil {
		return err
	}
	defer writer.Close()

	values := make([]float64, len(columns))

	for i, bar := range series.Data {
		for j, column := range columns {
			values[j] = series.Columns[column][i]
		}

		if err := writer.Write(bar, values); err != nil {
			return err
		}
	}

	_, err := writer.Finalize()

	return err
}

func seriesColumns(series types.Series) []string {
	var known, rest []string

	for _, column := range types.OptionalColumns {
		if series.HasColumn(column) {
			known = append(known, column)
		}
	}

	for column := range series.Columns {
		if !slices.Contains(known, column) {
			rest = append(rest, column)
		}
	}

	slices.Sort(rest)

	return append(known, rest...)
}

func nullFloat(value float64) sql.NullFloat64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return sql.NullFloat64{}
	}

	return sql.NullFloat64{Float64: value, Valid: true}
}

func validIdentifier(name string) bool {
	if name == "" {
		return false
	}

	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}

	return true
}
