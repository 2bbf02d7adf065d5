package common

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Basic statistical functions used across the engines, backed by gonum

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// PopulationStdDev calculates the population (1/N) standard deviation
func PopulationStdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	_, std := stat.PopMeanStdDev(data, nil)
	return std
}

// Median returns the median of data without modifying it
func Median(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return 0.5 * (sorted[mid-1] + sorted[mid])
}

// MedianAbs returns the median of |x|, the usual robust scale estimate for
// zero-mean wavelet detail coefficients
func MedianAbs(data []float64) float64 {
	abs := make([]float64, len(data))
	for i, v := range data {
		abs[i] = math.Abs(v)
	}
	return Median(abs)
}

// MeanSquare returns the average power of data
func MeanSquare(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return floats.Dot(data, data) / float64(len(data))
}

// RMS calculates root mean square
func RMS(data []float64) float64 {
	return math.Sqrt(MeanSquare(data))
}

// Peak returns the maximum absolute value
func Peak(data []float64) float64 {
	peak := 0.0
	for _, v := range data {
		peak = math.Max(peak, math.Abs(v))
	}
	return peak
}

// AmplitudeToDB converts a linear amplitude to dB (20·log10). Callers must
// reject non-positive amplitudes first.
func AmplitudeToDB(amplitude float64) float64 {
	return 20.0 * math.Log10(amplitude)
}

// DBToAmplitude converts dB to a linear amplitude
func DBToAmplitude(db float64) float64 {
	return math.Pow(10.0, db/20.0)
}

// PowerRatioDB returns 10·log10(signal/noise)
func PowerRatioDB(signalPower, noisePower float64) float64 {
	return 10.0 * math.Log10(signalPower/noisePower)
}

// AllFinite reports whether every value is neither NaN nor ±Inf
func AllFinite(data []float64) bool {
	for _, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Clamp limits value to [lo, hi]
func Clamp(value, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, value))
}

// Lerp performs linear interpolation between a and b
func Lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

// Subtract returns a - b element-wise over the shorter length
func Subtract(a, b []float64) []float64 {
	n := min(len(a), len(b))
	out := make([]float64, n)
	floats.SubTo(out, a[:n], b[:n])
	return out
}
