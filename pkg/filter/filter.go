// Package filter provides the stateless shaping primitives applied to operator
// axis input: a zero-centered deadband and a rate-clipped first-order filter.
package filter

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidTimeConstant is returned when the filter time constant is not positive.
	ErrInvalidTimeConstant = errors.New("filter time constant must be positive")
	// ErrNegativeMaxRate is returned when the rate limit is negative.
	ErrNegativeMaxRate = errors.New("filter max rate must be non-negative")
)

// Deadband zeroes values within width of zero and shifts the rest toward zero
// by width, so the output stays continuous at ±width.
func Deadband(value, width float64) float64 {
	if math.Abs(value) <= width {
		return 0
	}
	if value > 0 {
		return value - width
	}
	return value + width
}

// ClippedFirstOrderFilter returns the rate that moves current toward target with
// the given time constant, with its magnitude clipped to maxRate. It returns a
// rate, not an updated value; integrating it is up to the caller.
func ClippedFirstOrderFilter(current, target, maxRate, timeConstant float64) (float64, error) {
	if !(timeConstant > 0) {
		return 0, fmt.Errorf("%w: got %v", ErrInvalidTimeConstant, timeConstant)
	}
	if !(maxRate >= 0) {
		return 0, fmt.Errorf("%w: got %v", ErrNegativeMaxRate, maxRate)
	}

	rate := (target - current) / timeConstant
	return Clip(rate, -maxRate, maxRate), nil
}

// Clip bounds value to [lo, hi].
func Clip(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
