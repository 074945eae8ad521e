package datasource

import (
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// MemoryDataSource serves series that are already in memory, keyed by the path they
// would have been loaded from. Sweeps and tests use it to skip the file round trip.
type MemoryDataSource struct {
	series  map[string]types.Series
	current optional.Option[types.Series]
	mu      sync.RWMutex
}

func NewMemoryDataSource(series map[string]types.Series) *MemoryDataSource {
	return &MemoryDataSource{
		series:  series,
		current: optional.None[types.Series](),
	}
}

// Initialize implements DataSource.
func (m *MemoryDataSource) Initialize(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	series, ok := m.series[path]
	if !ok {
		return errors.Newf(errors.ErrCodeDataNotFound, "no series registered for %s", path)
	}

	m.current = optional.Some(series)

	return nil
}

func (m *MemoryDataSource) active() (types.Series, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current.IsNone() {
		return types.Series{}, errors.New(errors.ErrCodeDataSourceUnavailable, "data source is not initialized")
	}

	return m.current.Unwrap(), nil
}

// Paths lists the registered paths in sorted order.
func (m *MemoryDataSource) Paths() []string {
	paths := make([]string, 0, len(m.series))
	for path := range m.series {
		paths = append(paths, path)
	}

	sort.Strings(paths)

	return paths
}

// ReadAll implements DataSource.
func (m *MemoryDataSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.MarketData, error) bool) {
	return func(yield func(types.MarketData, error) bool) {
		series, err := m.active()
		if err != nil {
			yield(types.MarketData{}, err)

			return
		}

		for _, bar := range series.Data {
			if !inRange(bar.Time, start, end) {
				continue
			}

			if !yield(bar, nil) {
				return
			}
		}
	}
}

// LoadSeries implements DataSource. Columns are sliced to the same window as the bars.
func (m *MemoryDataSource) LoadSeries(start optional.Option[time.Time], end optional.Option[time.Time]) (types.Series, error) {
	series, err := m.active()
	if err != nil {
		return types.Series{}, err
	}

	first, last := -1, -1

	for i, bar := range series.Data {
		if inRange(bar.Time, start, end) {
			if first < 0 {
				first = i
			}

			last = i
		}
	}

	if first < 0 {
		return types.Series{}, errors.Newf(errors.ErrCodeNoDataFound, "no market data for %s in the requested period", series.Symbol)
	}

	window := types.Series{
		Symbol:  series.Symbol,
		Data:    slices.Clone(series.Data[first : last+1]),
		Columns: make(map[string][]float64, len(series.Columns)),
	}

	for name, values := range series.Columns {
		window.Columns[name] = slices.Clone(values[first : last+1])
	}

	if err := window.Validate(); err != nil {
		return types.Series{}, err
	}

	return window, nil
}

// Columns implements DataSource.
func (m *MemoryDataSource) Columns() []string {
	series, err := m.active()
	if err != nil {
		return nil
	}

	var columns []string

	for _, column := range types.OptionalColumns {
		if series.HasColumn(column) {
			columns = append(columns, column)
		}
	}

	return columns
}

// ExecuteSQL implements DataSource. Memory series have no SQL engine behind them.
func (m *MemoryDataSource) ExecuteSQL(string, ...any) ([]SQLResult, error) {
	return nil, errors.New(errors.ErrCodeDataSourceUnavailable, "memory data source does not support SQL")
}

// Count implements DataSource.
func (m *MemoryDataSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	series, err := m.active()
	if err != nil {
		return 0, err
	}

	count := 0

	for _, bar := range series.Data {
		if inRange(bar.Time, start, end) {
			count++
		}
	}

	return count, nil
}

// Close implements DataSource.
func (m *MemoryDataSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = optional.None[types.Series]()

	return nil
}
