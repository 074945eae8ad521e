package datasource

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type SeriesWriterTestSuite struct {
	suite.Suite
	dir    string
	series types.Series
}

func TestSeriesWriterSuite(t *testing.T) {
	suite.Run(t, new(SeriesWriterTestSuite))
}

func (suite *SeriesWriterTestSuite) SetupTest() {
	suite.dir = suite.T().TempDir()

	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	closes := []float64{100, 102, 101, 105}

	data := make([]types.MarketData, len(closes))
	for i, c := range closes {
		data[i] = types.MarketData{
			Symbol: "BBB",
			Time:   start.AddDate(0, 0, i),
			Open:   c - 1,
			High:   c + 2,
			Low:    c - 2,
			Close:  c,
			Volume: 1000 + float64(i),
		}
	}

	series, err := types.NewSeries("BBB", data)
	suite.Require().NoError(err)

	suite.series = series.
		WithColumn(types.ColumnATR, []float64{math.NaN(), 2.1, 2.2, 2.3}).
		WithColumn(types.ColumnMomentum20, []float64{math.NaN(), math.NaN(), 0.5, 0.7})
}

func (suite *SeriesWriterTestSuite) roundTrip(name string) types.Series {
	path := filepath.Join(suite.dir, name)
	suite.Require().NoError(WriteSeries(suite.series, path, logger.NewNopLogger()))

	source, err := NewDataSource("", logger.NewNopLogger())
	suite.Require().NoError(err)

	defer source.Close()

	suite.Require().NoError(source.Initialize(path))
	suite.Equal([]string{types.ColumnATR, types.ColumnMomentum20}, source.Columns())

	loaded, err := source.LoadSeries(optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)

	return loaded
}

func (suite *SeriesWriterTestSuite) assertSameSeries(loaded types.Series) {
	suite.Equal("BBB", loaded.Symbol)
	suite.Require().Equal(suite.series.Len(), loaded.Len())

	for i, bar := range loaded.Data {
		want := suite.series.Data[i]
		suite.True(want.Time.Equal(bar.Time), "bar %d time", i)
		suite.Equal(want.Close, bar.Close)
		suite.Equal(want.Volume, bar.Volume)
	}

	atr := loaded.Columns[types.ColumnATR]
	suite.True(math.IsNaN(atr[0]))
	suite.Equal(2.2, atr[2])

	momentum := loaded.Columns[types.ColumnMomentum20]
	suite.True(math.IsNaN(momentum[1]))
	suite.Equal(0.7, momentum[3])
}

func (suite *SeriesWriterTestSuite) TestParquetRoundTrip() {
	suite.assertSameSeries(suite.roundTrip("bbb.parquet"))
}

func (suite *SeriesWriterTestSuite) TestCSVRoundTrip() {
	suite.assertSameSeries(suite.roundTrip("bbb.csv"))
}

func (suite *SeriesWriterTestSuite) TestColumnOrder() {
	series := suite.series.WithColumn("zeta", make([]float64, 4)).WithColumn("alpha", make([]float64, 4))

	suite.Equal([]string{types.ColumnATR, types.ColumnMomentum20, "alpha", "zeta"}, seriesColumns(series))
}

func (suite *SeriesWriterTestSuite) TestWriteBeforeInitialize() {
	writer := NewSeriesWriter(filepath.Join(suite.dir, "x.parquet"), nil, nil)

	err := writer.Write(suite.series.Data[0], nil)
	suite.Equal(errors.ErrCodeBacktestStateNil, errors.GetCode(err))

	_, err = writer.Finalize()
	suite.Equal(errors.ErrCodeBacktestStateNil, errors.GetCode(err))
	suite.NoError(writer.Close())
}

func (suite *SeriesWriterTestSuite) TestValueCountMismatch() {
	writer := NewSeriesWriter(filepath.Join(suite.dir, "x.parquet"), []string{types.ColumnATR}, logger.NewNopLogger())
	suite.Require().NoError(writer.Initialize())

	defer writer.Close()

	err := writer.Write(suite.series.Data[0], []float64{1, 2})
	suite.Equal(errors.ErrCodeInvalidParameter, errors.GetCode(err))
}

func (suite *SeriesWriterTestSuite) TestInvalidColumnName() {
	writer := NewSeriesWriter(filepath.Join(suite.dir, "x.parquet"), []string{"atr; DROP TABLE"}, logger.NewNopLogger())

	err := writer.Initialize()
	suite.Equal(errors.ErrCodeInvalidParameter, errors.GetCode(err))
	suite.NoError(writer.Close())
}

func (suite *SeriesWriterTestSuite) TestEmptySeries() {
	err := WriteSeries(types.Series{}, filepath.Join(suite.dir, "empty.parquet"), nil)
	suite.Equal(errors.ErrCodeEmptySeries, errors.GetCode(err))
}
