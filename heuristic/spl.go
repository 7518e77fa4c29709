package heuristic

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidPathLength is returned when a path length cannot produce a coefficient
var ErrInvalidPathLength = errors.New("invalid path length")

// SPL returns the success-weighted-by-path-length coefficient
// groundTruth / max(groundTruth, observed).
//
// The result is in (0,1]: it is 1 when the observed path is no longer than the
// ground truth and shrinks as the observed path grows beyond it.
func SPL(observed, groundTruth float64) (float64, error) {
	if !finite(groundTruth) || groundTruth <= 0 {
		return 0, fmt.Errorf("%w: ground truth %v must be positive", ErrInvalidPathLength, groundTruth)
	}
	if !finite(observed) || observed < 0 {
		return 0, fmt.Errorf("%w: observed %v must be non-negative", ErrInvalidPathLength, observed)
	}
	return groundTruth / math.Max(groundTruth, observed), nil
}

// Composite weights a normalized score by its SPL coefficient.
func Composite(normalized, spl float64) float64 {
	return normalized * spl
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
