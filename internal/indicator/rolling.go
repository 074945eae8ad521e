package indicator

import (
	"math"
)

// NaNs returns a slice of n NaN values.
func NaNs(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}

	return out
}

// Shift moves values forward by n positions, filling the head with NaN.
// A negative n shifts backwards and fills the tail.
func Shift(values []float64, n int) []float64 {
	out := NaNs(len(values))

	for i := range values {
		j := i - n
		if j >= 0 && j < len(values) {
			out[i] = values[j]
		}
	}

	return out
}

// Diff returns values[i] - values[i-1], NaN at index 0.
func Diff(values []float64) []float64 {
	out := NaNs(len(values))
	for i := 1; i < len(values); i++ {
		out[i] = values[i] - values[i-1]
	}

	return out
}

// PctChange returns values[i]/values[i-periods] - 1, NaN for the first periods bars.
func PctChange(values []float64, periods int) []float64 {
	out := NaNs(len(values))
	for i := periods; i < len(values); i++ {
		out[i] = values[i]/values[i-periods] - 1
	}

	return out
}

// RollingMean is the simple moving average over a full window; any NaN in the window yields NaN.
func RollingMean(values []float64, window int) []float64 {
	return rolling(values, window, func(w []float64) float64 {
		sum := 0.0
		for _, v := range w {
			sum += v
		}

		return sum / float64(len(w))
	})
}

// RollingMax is the maximum over a full window.
func RollingMax(values []float64, window int) []float64 {
	return rolling(values, window, func(w []float64) float64 {
		highest := math.Inf(-1)
		for _, v := range w {
			highest = math.Max(highest, v)
		}

		return highest
	})
}

// RollingStd is the sample standard deviation (n-1 denominator) over a full window.
func RollingStd(values []float64, window int) []float64 {
	return rolling(values, window, func(w []float64) float64 {
		if len(w) < 2 {
			return math.NaN()
		}

		mean := 0.0
		for _, v := range w {
			mean += v
		}

		mean /= float64(len(w))

		sq := 0.0
		for _, v := range w {
			sq += (v - mean) * (v - mean)
		}

		return math.Sqrt(sq / float64(len(w)-1))
	})
}

// PercentileRank returns, for each bar, the percentile (0-100] of the latest value within
// the trailing window, ties ranked by their average position.
func PercentileRank(values []float64, window int) []float64 {
	return rolling(values, window, func(w []float64) float64 {
		last := w[len(w)-1]
		less, equal := 0, 0

		for _, v := range w {
			switch {
			case v < last:
				less++
			case v == last:
				equal++
			}
		}

		rank := float64(less) + float64(equal+1)/2

		return rank / float64(len(w)) * 100
	})
}

// CumSum accumulates values, skipping NaN entries (their position stays NaN).
func CumSum(values []float64) []float64 {
	out := NaNs(len(values))
	sum := 0.0

	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}

		sum += v
		out[i] = sum
	}

	return out
}

func rolling(values []float64, window int, reduce func([]float64) float64) []float64 {
	out := NaNs(len(values))
	if window <= 0 {
		return out
	}

	for i := window - 1; i < len(values); i++ {
		w := values[i-window+1 : i+1]
		if hasNaN(w) {
			continue
		}

		out[i] = reduce(w)
	}

	return out
}

func hasNaN(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}

	return false
}
