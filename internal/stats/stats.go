// Package stats provides the small set of descriptive statistics used to
// aggregate experiment results: means, dispersion, point-biserial
// correlation and Wilson score intervals.
//
// Functions never return NaN. Degenerate inputs (no samples, zero mean where a
// ratio is required, zero variance in a correlation) are reported as errors so
// callers can choose an explicit fallback.
package stats

import (
	"errors"
	"math"
)

var (
	// ErrInsufficientSamples indicates not enough samples for the computation
	ErrInsufficientSamples = errors.New("insufficient samples for statistical analysis")

	// ErrZeroVariance indicates a sample set (or the outcome indicator) has zero variance
	ErrZeroVariance = errors.New("sample set has zero variance")

	// ErrZeroMean indicates a ratio to the mean is undefined
	ErrZeroMean = errors.New("sample mean is zero")

	// ErrLengthMismatch indicates paired samples of different lengths
	ErrLengthMismatch = errors.New("paired samples differ in length")
)

// Mean returns the arithmetic mean, 0 for an empty slice
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Variance returns the population variance, 0 for fewer than one sample
func Variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := Mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation
func StdDev(values []float64) float64 {
	return math.Sqrt(Variance(values))
}

// CoefficientOfVariation returns stddev/|mean|
func CoefficientOfVariation(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrInsufficientSamples
	}
	m := Mean(values)
	if m == 0 {
		return 0, ErrZeroMean
	}
	return StdDev(values) / math.Abs(m), nil
}

// PointBiserial returns the point-biserial correlation between a continuous
// variable and a binary outcome. It equals Pearson's r with the outcome
// coded 1/0.
func PointBiserial(values []float64, outcomes []bool) (float64, error) {
	if len(values) != len(outcomes) {
		return 0, ErrLengthMismatch
	}
	if len(values) < 2 {
		return 0, ErrInsufficientSamples
	}

	var sum1, sum0 float64
	var n1, n0 int
	for i, v := range values {
		if outcomes[i] {
			sum1 += v
			n1++
		} else {
			sum0 += v
			n0++
		}
	}
	if n1 == 0 || n0 == 0 {
		return 0, ErrZeroVariance
	}

	sd := StdDev(values)
	if sd == 0 {
		return 0, ErrZeroVariance
	}

	n := float64(len(values))
	p := float64(n1) / n
	q := float64(n0) / n
	m1 := sum1 / float64(n1)
	m0 := sum0 / float64(n0)

	r := (m1 - m0) / sd * math.Sqrt(p*q)
	// guard against rounding just outside [-1, 1]
	return math.Max(-1, math.Min(1, r)), nil
}

// WilsonInterval returns the Wilson score interval for k successes out of n
// trials at the given z (1.96 for 95%).
func WilsonInterval(k, n int, z float64) (low, high float64) {
	if n == 0 {
		return 0, 0
	}
	p := float64(k) / float64(n)
	zz := z * z
	nf := float64(n)
	den := 1 + zz/nf
	center := (p + zz/(2*nf)) / den
	half := (z / den) * math.Sqrt((p*(1-p)+zz/(4*nf))/nf)
	return math.Max(0, center-half), math.Min(1, center+half)
}
