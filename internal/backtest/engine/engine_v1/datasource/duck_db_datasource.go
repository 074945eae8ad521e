package datasource

import (
	"database/sql"
	"fmt"
	"math"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

var requiredColumns = []string{"time", "open", "high", "low", "close"}

type DuckDBDataSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType

	path      string
	hasSymbol bool
	hasVolume bool
	columns   []string
}

// NewDataSource creates a new DuckDB data source instance with the specified database path.
// An empty path opens an in-memory database.
// This is distinct from Initialize() which points the source at a market data file.
func NewDataSource(path string, logger *logger.Logger) (DataSource, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	_, err = db.Exec(`SET threads=4;`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to set DuckDB optimizations", err)
	}

	return &DuckDBDataSource{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// Initialize implements DataSource. Files ending in .csv are read with read_csv_auto,
// everything else as parquet.
func (d *DuckDBDataSource) Initialize(path string) error {
	d.logger.Debug("Initializing DuckDB data source", zap.String("path", path))

	_, err := d.db.Exec(`DROP VIEW IF EXISTS market_data;`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to drop existing view", err)
	}

	reader := "read_parquet('%s')"
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		reader = "read_csv_auto('%s', header=true)"
	}

	// squirrel has no CREATE VIEW
	query := fmt.Sprintf("CREATE VIEW market_data AS SELECT * FROM "+reader+";", strings.ReplaceAll(path, "'", "''"))

	if _, err := d.db.Exec(query); err != nil {
		return errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to read market data from %s", path)
	}

	present, err := d.describe()
	if err != nil {
		return err
	}

	for _, column := range requiredColumns {
		if !slices.Contains(present, column) {
			return errors.Newf(errors.ErrCodeColumnNotFound, "market data %s has no %s column", path, column)
		}
	}

	d.path = path
	d.hasSymbol = slices.Contains(present, "symbol")
	d.hasVolume = slices.Contains(present, "volume")
	d.columns = d.columns[:0]

	for _, column := range types.OptionalColumns {
		if slices.Contains(present, column) {
			d.columns = append(d.columns, column)
		}
	}

	d.logger.Debug("Market data columns detected",
		zap.Bool("volume", d.hasVolume),
		zap.Strings("indicators", d.columns),
	)

	return nil
}

// describe lists the lower-cased column names of the market_data view.
func (d *DuckDBDataSource) describe() ([]string, error) {
	query, args, err := d.sq.Select("column_name").
		From("information_schema.columns").
		Where(squirrel.Eq{"table_name": "market_data"}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build column query", err)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to list columns", err)
	}
	defer rows.Close()

	var columns []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan column name", err)
		}

		columns = append(columns, strings.ToLower(name))
	}

	return columns, rows.Err()
}

// Columns implements DataSource.
func (d *DuckDBDataSource) Columns() []string {
	return slices.Clone(d.columns)
}

func withRange(query squirrel.SelectBuilder, start optional.Option[time.Time], end optional.Option[time.Time]) squirrel.SelectBuilder {
	if start.IsSome() {
		query = query.Where(squirrel.GtOrEq{"time": start.Unwrap()})
	}

	if end.IsSome() {
		query = query.Where(squirrel.LtOrEq{"time": end.Unwrap()})
	}

	return query
}

// Count implements DataSource.
func (d *DuckDBDataSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	query, args, err := withRange(d.sq.Select("COUNT(*)").From("market_data"), start, end).ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build count query", err)
	}

	var count int
	if err := d.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count market data", err)
	}

	return count, nil
}

// barQuery selects the bar fields, plus the given indicator columns, cast to stable types.
func (d *DuckDBDataSource) barQuery(indicators []string, start optional.Option[time.Time], end optional.Option[time.Time]) (string, []any, error) {
	symbol := "CAST(symbol AS VARCHAR)"
	if !d.hasSymbol {
		symbol = "CAST(NULL AS VARCHAR)"
	}

	volume := "CAST(volume AS DOUBLE)"
	if !d.hasVolume {
		volume = "CAST(NULL AS DOUBLE)"
	}

	columns := []string{
		"CAST(time AS TIMESTAMP) AS time",
		symbol + " AS symbol",
		"CAST(open AS DOUBLE) AS open",
		"CAST(high AS DOUBLE) AS high",
		"CAST(low AS DOUBLE) AS low",
		"CAST(close AS DOUBLE) AS close",
		volume + " AS volume",
	}

	for _, column := range indicators {
		columns = append(columns, fmt.Sprintf("CAST(%s AS DOUBLE) AS %s", column, column))
	}

	return withRange(d.sq.Select(columns...).From("market_data"), start, end).OrderBy("time ASC").ToSql()
}

func nullable(value sql.NullFloat64) float64 {
	if !value.Valid {
		return math.NaN()
	}

	return value.Float64
}

// scanBar reads one row produced by barQuery; extra receives the indicator values.
func (d *DuckDBDataSource) scanBar(rows *sql.Rows, extra []sql.NullFloat64) (types.MarketData, error) {
	var (
		timestamp                        time.Time
		symbol                           sql.NullString
		open, high, low, closing, volume sql.NullFloat64
	)

	dest := []any{&timestamp, &symbol, &open, &high, &low, &closing, &volume}
	for i := range extra {
		dest = append(dest, &extra[i])
	}

	if err := rows.Scan(dest...); err != nil {
		return types.MarketData{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan market data", err)
	}

	name := symbol.String
	if !symbol.Valid || name == "" {
		name = strings.TrimSuffix(filepath.Base(d.path), filepath.Ext(d.path))
	}

	return types.MarketData{
		Symbol: name,
		Time:   timestamp,
		Open:   nullable(open),
		High:   nullable(high),
		Low:    nullable(low),
		Close:  nullable(closing),
		Volume: nullable(volume),
	}, nil
}

// ReadAll implements DataSource.
func (d *DuckDBDataSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.MarketData, error) bool) {
	return func(yield func(types.MarketData, error) bool) {
		query, args, err := d.barQuery(nil, start, end)
		if err != nil {
			yield(types.MarketData{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build bar query", err))

			return
		}

		rows, err := d.db.Query(query, args...)
		if err != nil {
			yield(types.MarketData{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to read market data", err))

			return
		}
		defer rows.Close()

		for rows.Next() {
			bar, err := d.scanBar(rows, nil)
			if !yield(bar, err) || err != nil {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(types.MarketData{}, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating market data", err))
		}
	}
}

// LoadSeries implements DataSource. Null prices and indicator values load as NaN.
func (d *DuckDBDataSource) LoadSeries(start optional.Option[time.Time], end optional.Option[time.Time]) (types.Series, error) {
	query, args, err := d.barQuery(d.columns, start, end)
	if err != nil {
		return types.Series{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build series query", err)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return types.Series{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to read market data", err)
	}
	defer rows.Close()

	var data []types.MarketData

	indicators := make([][]float64, len(d.columns))
	extra := make([]sql.NullFloat64, len(d.columns))

	for rows.Next() {
		bar, err := d.scanBar(rows, extra)
		if err != nil {
			return types.Series{}, err
		}

		data = append(data, bar)

		for i := range extra {
			indicators[i] = append(indicators[i], nullable(extra[i]))
		}
	}

	if err := rows.Err(); err != nil {
		return types.Series{}, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating market data", err)
	}

	if len(data) == 0 {
		return types.Series{}, errors.Newf(errors.ErrCodeNoDataFound, "no market data in %s for the requested period", d.path)
	}

	series, err := types.NewSeries(data[0].Symbol, data)
	if err != nil {
		return types.Series{}, err
	}

	for i, column := range d.columns {
		series = series.WithColumn(column, indicators[i])
	}

	d.logger.Debug("Series loaded",
		zap.String("symbol", series.Symbol),
		zap.Int("bars", series.Len()),
	)

	return series, nil
}

// ExecuteSQL implements DataSource.
func (d *DuckDBDataSource) ExecuteSQL(query string, params ...any) ([]SQLResult, error) {
	d.logger.Debug("Executing SQL query", zap.String("query", query))

	rows, err := d.db.Query(query, params...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to execute query", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to get columns", err)
	}

	var result []SQLResult

	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))

		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan row", err)
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col] = values[i]
		}

		result = append(result, SQLResult{Values: rowMap})
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating rows", err)
	}

	return result, nil
}

// Close implements DataSource.
func (d *DuckDBDataSource) Close() error {
	return d.db.Close()
}
