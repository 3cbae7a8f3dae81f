package calibration

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Errors returned by Spearman.
var (
	ErrLengthMismatch = errors.New("series lengths differ")
	ErrTooFewPoints   = errors.New("at least two points are required")
	ErrNaNInput       = errors.New("series contains NaN")
	ErrZeroVariance   = errors.New("series has zero variance")
)

// Spearman returns the rank correlation of x and y: the Pearson correlation
// of their average ranks, so ties share the mean of the ranks they span.
func Spearman(x, y []float64) (float64, error) {
	if len(x) != len(y) {
		return 0, ErrLengthMismatch
	}
	if len(x) < 2 {
		return 0, ErrTooFewPoints
	}
	if floats.HasNaN(x) || floats.HasNaN(y) {
		return 0, ErrNaNInput
	}
	rx, ry := Ranks(x), Ranks(y)
	if stat.Variance(rx, nil) == 0 || stat.Variance(ry, nil) == 0 {
		return 0, ErrZeroVariance
	}
	rho := stat.Correlation(rx, ry, nil)
	if math.IsNaN(rho) {
		return 0, ErrZeroVariance
	}
	return math.Max(-1, math.Min(1, rho)), nil
}

// Ranks assigns 1-based average ranks in ascending order of value.
func Ranks(v []float64) []float64 {
	idx := make([]int, len(v))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return v[idx[a]] < v[idx[b]] })

	ranks := make([]float64, len(v))
	for i := 0; i < len(idx); {
		j := i + 1
		for j < len(idx) && v[idx[j]] == v[idx[i]] {
			j++
		}
		// positions i..j-1 hold ranks i+1..j
		avg := float64(i+1+j) / 2
		for k := i; k < j; k++ {
			ranks[idx[k]] = avg
		}
		i = j
	}
	return ranks
}
