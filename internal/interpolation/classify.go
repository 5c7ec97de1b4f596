package interpolation

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/couchcryptid/sensor-idw-service/internal/domain"
)

// ValidateNumClasses rejects class counts below one.
func ValidateNumClasses(numClasses int) error {
	if numClasses < 1 {
		return fmt.Errorf("%w: numClasses must be >= 1, got %d", domain.ErrInvalidParameter, numClasses)
	}
	return nil
}

// Breaks computes numClasses+1 equal-interval boundaries spanning values.
// breaks[0] is the minimum and the last break is exactly the maximum. An empty
// input yields empty (non-nil) breaks.
func Breaks(values []float64, numClasses int) (domain.ClassBreaks, error) {
	if err := ValidateNumClasses(numClasses); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return domain.ClassBreaks{}, nil
	}

	lo, hi := floats.Min(values), floats.Max(values)
	step := (hi - lo) / float64(numClasses)

	breaks := make(domain.ClassBreaks, numClasses+1)
	for k := range breaks {
		breaks[k] = lo + float64(k)*step
	}
	breaks[numClasses] = hi
	return breaks, nil
}

// ClassOf returns the greatest k with breaks[k] <= v, capped to the last
// class so the maximum falls into class numClasses-1. Values below the first
// break map to class 0, and when all breaks are equal every value is class 0.
func ClassOf(breaks domain.ClassBreaks, v float64) int {
	n := breaks.NumClasses()
	if n == 0 || breaks[0] == breaks[n] {
		return 0
	}
	k := sort.Search(len(breaks), func(i int) bool { return breaks[i] > v }) - 1
	return max(0, min(k, n-1))
}

// Classify computes breaks for values and returns a classifier bound to them.
func Classify(values []float64, numClasses int) (domain.ClassBreaks, func(float64) int, error) {
	breaks, err := Breaks(values, numClasses)
	if err != nil {
		return nil, nil, err
	}
	return breaks, func(v float64) int { return ClassOf(breaks, v) }, nil
}
