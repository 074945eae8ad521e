package types

import (
	"math"
	"slices"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// MarketData is one daily OHLCV bar.
type MarketData struct {
	Id     string    `csv:"id"`
	Symbol string    `csv:"symbol"`
	Time   time.Time `csv:"time"`
	Open   float64   `csv:"open"`
	High   float64   `csv:"high"`
	Low    float64   `csv:"low"`
	Close  float64   `csv:"close"`
	Volume float64   `csv:"volume"`
}

// Well-known optional indicator columns a data file may carry next to the OHLCV values.
const (
	ColumnATR               = "atr"
	ColumnADX               = "adx_14"
	ColumnPlusDI            = "pdi_14"
	ColumnMinusDI           = "mdi_14"
	ColumnChaikinOscillator = "chaikin_oscillator"
	ColumnChaikinSignal     = "chaikin_signal"
	ColumnMomentum20        = "momentum_20"
)

// OptionalColumns lists the indicator columns the datasource tries to load when present.
var OptionalColumns = []string{
	ColumnATR,
	ColumnADX,
	ColumnPlusDI,
	ColumnMinusDI,
	ColumnChaikinOscillator,
	ColumnChaikinSignal,
	ColumnMomentum20,
}

// Series is an ordered-by-date table of bars for a single instrument.
// Columns holds precomputed indicator values aligned with Data; it is read-only once built.
type Series struct {
	Symbol  string
	Data    []MarketData
	Columns map[string][]float64
}

// NewSeries builds a series and validates the date ordering.
func NewSeries(symbol string, data []MarketData) (Series, error) {
	s := Series{
		Symbol:  symbol,
		Data:    data,
		Columns: make(map[string][]float64),
	}

	if err := s.Validate(); err != nil {
		return Series{}, err
	}

	return s, nil
}

// Len returns the number of bars.
func (s Series) Len() int {
	return len(s.Data)
}

// Validate checks that bars are strictly ascending by time and that every column is aligned.
func (s Series) Validate() error {
	if len(s.Data) == 0 {
		return errors.New(errors.ErrCodeEmptySeries, "series has no bars")
	}

	for i := 1; i < len(s.Data); i++ {
		if !s.Data[i].Time.After(s.Data[i-1].Time) {
			return errors.Newf(errors.ErrCodeUnorderedSeries,
				"bar %d (%s) is not after bar %d (%s)", i, s.Data[i].Time.Format(time.DateOnly), i-1, s.Data[i-1].Time.Format(time.DateOnly))
		}
	}

	for name, values := range s.Columns {
		if len(values) != len(s.Data) {
			return errors.Newf(errors.ErrCodeInvalidParameter, "column %s has %d values, expected %d", name, len(values), len(s.Data))
		}
	}

	return nil
}

// Column returns a precomputed indicator column if the series carries it.
func (s Series) Column(name string) optional.Option[[]float64] {
	values, ok := s.Columns[name]
	if !ok {
		return optional.None[[]float64]()
	}

	return optional.Some(values)
}

// HasColumn reports whether the series carries the named column.
func (s Series) HasColumn(name string) bool {
	_, ok := s.Columns[name]

	return ok
}

// WithColumn returns a shallow copy of the series with one more column attached.
func (s Series) WithColumn(name string, values []float64) Series {
	columns := make(map[string][]float64, len(s.Columns)+1)
	for k, v := range s.Columns {
		columns[k] = v
	}

	columns[name] = values
	s.Columns = columns

	return s
}

// Clone deep-copies bars and columns so a run can never observe another run's writes.
func (s Series) Clone() Series {
	columns := make(map[string][]float64, len(s.Columns))
	for k, v := range s.Columns {
		columns[k] = slices.Clone(v)
	}

	return Series{
		Symbol:  s.Symbol,
		Data:    slices.Clone(s.Data),
		Columns: columns,
	}
}

// Opens returns the open prices.
func (s Series) Opens() []float64 {
	return s.pluck(func(m MarketData) float64 { return m.Open })
}

// Highs returns the high prices.
func (s Series) Highs() []float64 {
	return s.pluck(func(m MarketData) float64 { return m.High })
}

// Lows returns the low prices.
func (s Series) Lows() []float64 {
	return s.pluck(func(m MarketData) float64 { return m.Low })
}

// Closes returns the close prices.
func (s Series) Closes() []float64 {
	return s.pluck(func(m MarketData) float64 { return m.Close })
}

// Volumes returns the traded volumes.
func (s Series) Volumes() []float64 {
	return s.pluck(func(m MarketData) float64 { return m.Volume })
}

// HasVolume reports whether any bar carries a positive volume.
func (s Series) HasVolume() bool {
	for _, m := range s.Data {
		if m.Volume > 0 && !math.IsNaN(m.Volume) {
			return true
		}
	}

	return false
}

func (s Series) pluck(f func(MarketData) float64) []float64 {
	out := make([]float64, len(s.Data))
	for i, m := range s.Data {
		out[i] = f(m)
	}

	return out
}

// IsValidPrice reports whether a price can be used as a fill.
func IsValidPrice(price float64) bool {
	return !math.IsNaN(price) && !math.IsInf(price, 0) && price > 0
}
