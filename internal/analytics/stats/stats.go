// Package stats computes descriptive statistics over a numeric series.
//
// Quartiles use a nearest-rank estimate taken straight from the sorted values
// (index floor(n*p)), with no interpolation. Callers expecting interpolated
// quantiles will see different Q1/Q3 values; use ComputeWithQuantile to plug in
// another method.
package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"

	mstats "github.com/montanaflynn/stats"
)

var (
	// ErrNoData is returned when there are no values to summarize.
	ErrNoData = errors.New("stats: no data")

	// ErrNonFinite is returned when a value is NaN or infinite.
	ErrNonFinite = errors.New("stats: non-finite value")
)

// Summary holds descriptive statistics of a series.
// Mean, Median and StdDev are rounded to two decimals; Min, Max, Q1 and Q3 keep
// the precision of the input.
type Summary struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"stdDev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Count  int     `json:"count"`
	Q1     float64 `json:"q1"`
	Q3     float64 `json:"q3"`
}

// QuantileFunc picks the p-quantile (0 <= p <= 1) from ascending sorted values.
type QuantileFunc func(sorted []float64, p float64) float64

// NearestRank returns sorted[floor(n*p)], clamped to the last element.
func NearestRank(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Floor(float64(len(sorted)) * p))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

// Compute summarizes values using nearest-rank quartiles.
func Compute(values []float64) (Summary, error) {
	return ComputeWithQuantile(values, NearestRank)
}

// ComputeWithQuantile summarizes values using q for the quartiles.
func ComputeWithQuantile(values []float64, q QuantileFunc) (Summary, error) {
	if len(values) == 0 {
		return Summary{}, ErrNoData
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Summary{}, fmt.Errorf("%w at index %d", ErrNonFinite, i)
		}
	}
	if q == nil {
		q = NearestRank
	}

	sorted := SortedCopy(values)
	count := len(sorted)

	mean, err := mstats.Mean(values)
	if err != nil {
		return Summary{}, fmt.Errorf("mean: %w", err)
	}
	stdDev, err := mstats.StandardDeviationPopulation(values)
	if err != nil {
		return Summary{}, fmt.Errorf("standard deviation: %w", err)
	}

	return Summary{
		Mean:   Round2(mean),
		Median: Round2(medianSorted(sorted)),
		StdDev: Round2(stdDev),
		Min:    sorted[0],
		Max:    sorted[count-1],
		Count:  count,
		Q1:     q(sorted, 0.25),
		Q3:     q(sorted, 0.75),
	}, nil
}

// MeanStdDev returns the mean and population standard deviation of values.
// Both are zero for an empty slice.
func MeanStdDev(values []float64) (mean, stdDev float64) {
	if len(values) == 0 {
		return 0, 0
	}
	mean, _ = mstats.Mean(values)
	stdDev, _ = mstats.StandardDeviationPopulation(values)
	return mean, stdDev
}

// SortedCopy returns an ascending copy of values.
func SortedCopy(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted
}

// Round2 rounds x to two decimal places, halves away from zero.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func medianSorted(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
