package processing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/open-teleop/legged-teleop/domain/teleop"
)

// ErrInputTimeout is returned by an InputSource when no sample arrived within
// its wait window.
var ErrInputTimeout = errors.New("no input sample within timeout")

// ErrInvalidPayload is returned for input messages that do not decode to a
// channel map. It also matches teleop.ErrMalformedSample.
var ErrInvalidPayload = errors.New("invalid input payload")

// InputSource delivers operator samples to the command loop. Next blocks until
// a sample arrives, the source's timeout elapses (ErrInputTimeout) or ctx is done.
type InputSource interface {
	Next(ctx context.Context) (teleop.RawInputSample, error)
}

// PostureSource reports the latest robot posture.
type PostureSource interface {
	Current() teleop.RobotPosture
}

// PostureEcho receives the commanded posture when no feedback source exists.
type PostureEcho interface {
	Set(posture teleop.RobotPosture)
}

// ChannelSource is an InputSource fed by pushes from another goroutine, such as
// a websocket handler. When the buffer is full the oldest sample is dropped.
type ChannelSource struct {
	samples chan teleop.RawInputSample
	timeout time.Duration
}

// NewChannelSource creates a source buffering up to capacity samples and
// timing out after timeout without one.
func NewChannelSource(capacity int, timeout time.Duration) *ChannelSource {
	if capacity < 1 {
		capacity = 1
	}
	return &ChannelSource{
		samples: make(chan teleop.RawInputSample, capacity),
		timeout: timeout,
	}
}

// Push queues a sample. It reports false if a buffered sample had to be
// discarded to make room.
func (s *ChannelSource) Push(sample teleop.RawInputSample) bool {
	dropped := false
	for {
		select {
		case s.samples <- sample:
			return !dropped
		default:
		}
		select {
		case <-s.samples:
			dropped = true
		default:
		}
	}
}

// Next returns the oldest buffered sample.
func (s *ChannelSource) Next(ctx context.Context) (teleop.RawInputSample, error) {
	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case sample := <-s.samples:
		return sample, nil
	case <-timer.C:
		return teleop.RawInputSample{}, ErrInputTimeout
	case <-ctx.Done():
		return teleop.RawInputSample{}, ctx.Err()
	}
}

// Len returns the number of buffered samples.
func (s *ChannelSource) Len() int {
	return len(s.samples)
}

// DecodeInputJSON decodes a JSON object of channel name to number into a
// sample. The object must carry message_rate.
func DecodeInputJSON(payload []byte) (teleop.RawInputSample, error) {
	var values map[string]float64
	if err := json.Unmarshal(payload, &values); err != nil {
		return teleop.RawInputSample{}, InvalidPayload(err)
	}
	if values == nil {
		return teleop.RawInputSample{}, InvalidPayload(errors.New("payload is not a JSON object"))
	}
	return teleop.SampleFromValues(values)
}

// InvalidPayload wraps a decode failure so it matches both ErrInvalidPayload
// and teleop.ErrMalformedSample.
func InvalidPayload(err error) error {
	return fmt.Errorf("%w: %w: %v", ErrInvalidPayload, teleop.ErrMalformedSample, err)
}
