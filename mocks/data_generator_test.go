package mocks

import (
	"testing"
	"time"
)

func TestDataGenerator_Generate(t *testing.T) {
	gen := NewDataGenerator(42)
	config := DefaultConfig()
	config.Count = 100

	data := gen.Generate(config)

	if len(data) != 100 {
		t.Errorf("expected 100 bars, got %d", len(data))
	}

	for i := 1; i < len(data); i++ {
		if !data[i].Time.After(data[i-1].Time) {
			t.Errorf("bars not in chronological order at index %d", i)
		}

		if wd := data[i].Time.Weekday(); wd == time.Saturday || wd == time.Sunday {
			t.Errorf("weekend bar at index %d: %v", i, data[i].Time)
		}
	}

	for i, d := range data {
		if d.Open <= 0 || d.High <= 0 || d.Low <= 0 || d.Close <= 0 {
			t.Errorf("invalid OHLC values at index %d: O=%f H=%f L=%f C=%f",
				i, d.Open, d.High, d.Low, d.Close)
		}

		if d.High < d.Low || d.High < d.Open || d.High < d.Close || d.Low > d.Open || d.Low > d.Close {
			t.Errorf("inconsistent bar at index %d: O=%f H=%f L=%f C=%f", i, d.Open, d.High, d.Low, d.Close)
		}

		if d.Volume <= 0 {
			t.Errorf("expected volume at index %d", i)
		}
	}
}

func TestDataGenerator_WithoutVolume(t *testing.T) {
	config := DefaultConfig()
	config.Count = 20
	config.VolumeBase = 0

	series := NewDataGenerator(1).GenerateSeries(config)

	if series.HasVolume() {
		t.Error("expected a series without volume")
	}
}

func TestDataGenerator_Reproducibility(t *testing.T) {
	config := DefaultConfig()
	config.Count = 10

	data1 := NewDataGenerator(42).Generate(config)
	data2 := NewDataGenerator(42).Generate(config)

	for i := range data1 {
		if data1[i] != data2[i] {
			t.Errorf("bars not reproducible at index %d", i)
		}
	}
}

func TestDataGenerator_DifferentSeeds(t *testing.T) {
	config := DefaultConfig()
	config.Count = 10

	data1 := NewDataGenerator(42).Generate(config)
	data2 := NewDataGenerator(123).Generate(config)

	sameCount := 0
	for i := range data1 {
		if data1[i].Close == data2[i].Close {
			sameCount++
		}
	}

	if sameCount == len(data1) {
		t.Error("different seeds produced identical data")
	}
}

func TestGenerateYear(t *testing.T) {
	series := GenerateYear("SPY")

	if series.Len() != 252 {
		t.Errorf("expected 252 bars, got %d", series.Len())
	}

	if series.Symbol != "SPY" || series.Data[0].Symbol != "SPY" {
		t.Errorf("expected symbol SPY, got %s", series.Symbol)
	}

	if err := series.Validate(); err != nil {
		t.Errorf("generated series is invalid: %v", err)
	}
}
