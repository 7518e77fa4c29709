package heuristic

import (
	"errors"
	"fmt"
	"math"
)

const (
	// LikertMin is the lowest raw score a judge can give
	LikertMin = 1.0
	// LikertMax is the highest raw score a judge can give
	LikertMax = 5.0
)

// ErrScoreOutOfRange is returned for raw scores outside [LikertMin, LikertMax]
var ErrScoreOutOfRange = errors.New("score out of range")

// NormalizeLikert maps a raw score in [1,5] to a percentage in [0,100].
// Scores outside the range are rejected, never clamped: an out-of-range value
// is usually a sentinel written by a failed judge call.
func NormalizeLikert(raw float64) (float64, error) {
	if math.IsNaN(raw) || raw < LikertMin || raw > LikertMax {
		return 0, fmt.Errorf("%w: %v not in [%v,%v]", ErrScoreOutOfRange, raw, LikertMin, LikertMax)
	}
	return 100.0 * (raw - LikertMin) / (LikertMax - LikertMin), nil
}
