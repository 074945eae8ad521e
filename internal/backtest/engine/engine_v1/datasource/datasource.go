package datasource

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// SQLResult represents a row of data from a SQL query
type SQLResult struct {
	Values map[string]any
}

type DataSource interface {
	// Initialize points the data source at a parquet or csv file of daily bars
	Initialize(path string) error
	// ReadAll reads the bars in time order and yields them to the caller
	ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.MarketData, error) bool)
	// LoadSeries reads the bars together with every optional indicator column the file carries
	LoadSeries(start optional.Option[time.Time], end optional.Option[time.Time]) (types.Series, error)
	// Columns lists the optional indicator columns present in the current file
	Columns() []string
	// ExecuteSQL executes a raw SQL query and returns the results as SQLResult
	ExecuteSQL(query string, params ...any) ([]SQLResult, error)
	// Count returns the number of rows in the data source
	Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error)
	// Close closes the data source and releases any resources
	Close() error
}

// inRange reports whether t falls inside the optional inclusive bounds.
func inRange(t time.Time, start optional.Option[time.Time], end optional.Option[time.Time]) bool {
	if start.IsSome() && t.Before(start.Unwrap()) {
		return false
	}

	if end.IsSome() && t.After(end.Unwrap()) {
		return false
	}

	return true
}
