package teleop

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedSample matches every *SampleError.
	ErrMalformedSample = errors.New("malformed input sample")

	ErrMissingChannel     = errors.New("missing channel")
	ErrUnexpectedChannel  = errors.New("unexpected channel")
	ErrChannelOutOfRange  = errors.New("axis value outside [-1, 1]")
	ErrInvalidToggleLevel = errors.New("toggle level must be 0 or 1")

	// ErrInvalidMessageRate is returned when a sample claims a non-positive rate.
	// It is an input configuration error: dt would be undefined.
	ErrInvalidMessageRate = errors.New("message rate must be positive")

	// ErrInvalidConfig wraps every settings validation failure.
	ErrInvalidConfig = errors.New("invalid teleop configuration")
)

// SampleError describes which channel of a sample violated the input contract.
type SampleError struct {
	Channel string
	Value   float64
	Err     error
}

func (e *SampleError) Error() string {
	if errors.Is(e.Err, ErrMissingChannel) {
		return fmt.Sprintf("%s: %v %q", ErrMalformedSample, e.Err, e.Channel)
	}
	return fmt.Sprintf("%s: channel %q value %v: %v", ErrMalformedSample, e.Channel, e.Value, e.Err)
}

func (e *SampleError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrMalformedSample) hold for any SampleError.
func (e *SampleError) Is(target error) bool {
	return target == ErrMalformedSample
}

func configErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
