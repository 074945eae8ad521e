package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// DataGenerator produces synthetic daily bars for tests and benchmarks.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a generator; a fixed seed gives reproducible bars.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how bars are generated.
type GeneratorConfig struct {
	Symbol string
	// StartDate is the date of the first bar
	StartDate time.Time
	// Count is the number of daily bars
	Count        int
	InitialPrice float64
	// Volatility is the typical daily move (0.02 = 2%)
	Volatility float64
	// Drift is added to every daily return (0.001 = +0.1% per day)
	Drift float64
	// GapProbability is the chance that a bar opens away from the previous close
	GapProbability float64
	// VolumeBase is the average volume; zero produces a series without volume
	VolumeBase     float64
	VolumeVariance float64
}

// DefaultConfig returns one trading year of moderately volatile bars.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbol:         "TEST",
		StartDate:      time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Count:          252,
		InitialPrice:   100.0,
		Volatility:     0.02,
		Drift:          0.0005,
		GapProbability: 0.1,
		VolumeBase:     1_000_000,
		VolumeVariance: 0.4,
	}
}

// Generate creates daily bars following a geometric random walk. Weekends are skipped.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.MarketData {
	data := make([]types.MarketData, config.Count)
	prevClose := config.InitialPrice
	date := config.StartDate

	for i := 0; i < config.Count; i++ {
		open := prevClose
		if i > 0 && g.rng.Float64() < config.GapProbability {
			open = prevClose * (1 + g.normal()*config.Volatility*1.5)
		}

		close := open * (1 + g.normal()*config.Volatility + config.Drift)
		if close <= 0 {
			close = open * 0.99
		}

		high := math.Max(open, close) * (1 + g.rng.Float64()*config.Volatility*0.5)
		low := math.Min(open, close) * (1 - g.rng.Float64()*config.Volatility*0.5)

		volume := 0.0
		if config.VolumeBase > 0 {
			volume = math.Max(config.VolumeBase*(1+(g.rng.Float64()*2-1)*config.VolumeVariance), 1)
		}

		data[i] = types.MarketData{
			Symbol: config.Symbol,
			Time:   date,
			Open:   roundToDecimals(open, 4),
			High:   roundToDecimals(high, 4),
			Low:    roundToDecimals(low, 4),
			Close:  roundToDecimals(close, 4),
			Volume: math.Round(volume),
		}

		prevClose = close
		date = nextWeekday(date)
	}

	return data
}

// GenerateSeries wraps Generate into a validated series.
func (g *DataGenerator) GenerateSeries(config GeneratorConfig) types.Series {
	series, err := types.NewSeries(config.Symbol, g.Generate(config))
	if err != nil {
		// generated dates are strictly increasing
		panic(err)
	}

	return series
}

// GenerateYear is a convenience for one year of default bars with a fixed seed.
func GenerateYear(symbol string) types.Series {
	config := DefaultConfig()
	config.Symbol = symbol

	return NewDataGenerator(42).GenerateSeries(config)
}

// normal draws from N(0,1) with the Box-Muller transform.
func (g *DataGenerator) normal() float64 {
	u1 := 1 - g.rng.Float64()
	u2 := g.rng.Float64()

	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

func nextWeekday(date time.Time) time.Time {
	next := date.AddDate(0, 0, 1)
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}

	return next
}

func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(val*pow) / pow
}
