package zeromq

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/open-teleop/legged-teleop/domain/teleop"
	customlog "github.com/open-teleop/legged-teleop/pkg/log"
	"github.com/open-teleop/legged-teleop/pkg/processing"
	"github.com/pebbe/zmq4"
)

// subscriberPollSlice caps a single poll so context cancellation is noticed
// even with long input timeouts.
const subscriberPollSlice = 50 * time.Millisecond

// InputSubscriber receives operator samples on a SUB socket. It implements
// processing.InputSource and is meant to be read from a single goroutine.
type InputSubscriber struct {
	socket  *zmq4.Socket
	poller  *zmq4.Poller
	timeout time.Duration
	logger  customlog.Logger

	closeOnce sync.Once
}

var _ processing.InputSource = (*InputSubscriber)(nil)

// NewInputSubscriber connects a SUB socket to address, subscribed to topic
// (empty for everything), on the service's context.
func (s *ZeroMQService) NewInputSubscriber(address, topic string, timeout time.Duration) (*InputSubscriber, error) {
	socket, err := s.ctx.NewSocket(zmq4.SUB)
	if err != nil {
		return nil, fmt.Errorf("failed to create SUB socket: %w", err)
	}

	if err := socket.SetLinger(0); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to set linger option: %w", err)
	}

	// Only the newest samples matter to the loop
	if err := socket.SetRcvhwm(16); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to set receive high water mark: %w", err)
	}

	if err := socket.SetSubscribe(topic); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to subscribe to %q: %w", topic, err)
	}

	if err := socket.Connect(address); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", address, err)
	}

	poller := zmq4.NewPoller()
	poller.Add(socket, zmq4.POLLIN)

	s.logger.Infof("InputSubscriber connected to %s (topic %q, timeout %v)", address, topic, timeout)

	sub := &InputSubscriber{
		socket:  socket,
		poller:  poller,
		timeout: timeout,
		logger:  s.logger,
	}
	s.mu.Lock()
	s.subscribers = append(s.subscribers, sub)
	s.mu.Unlock()
	return sub, nil
}

// Next waits up to the input timeout for a sample.
func (s *InputSubscriber) Next(ctx context.Context) (teleop.RawInputSample, error) {
	deadline := time.Now().Add(s.timeout)

	for {
		if err := ctx.Err(); err != nil {
			return teleop.RawInputSample{}, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return teleop.RawInputSample{}, processing.ErrInputTimeout
		}
		if remaining > subscriberPollSlice {
			remaining = subscriberPollSlice
		}

		sockets, err := s.poller.Poll(remaining)
		if err != nil {
			return teleop.RawInputSample{}, fmt.Errorf("error polling SUB socket: %w", err)
		}
		if len(sockets) == 0 {
			continue
		}

		frames, err := s.socket.RecvMessageBytes(0)
		if err != nil {
			return teleop.RawInputSample{}, fmt.Errorf("error receiving input: %w", err)
		}
		return DecodeInputFrames(frames)
	}
}

// Close closes the socket. Safe to call more than once.
func (s *InputSubscriber) Close() {
	s.closeOnce.Do(func() {
		s.socket.Close()
	})
}

// DecodeInputFrames decodes a [topic, json] or [json] message into a sample.
// The JSON object maps channel names to numbers and must carry message_rate.
func DecodeInputFrames(frames [][]byte) (teleop.RawInputSample, error) {
	var payload []byte
	switch len(frames) {
	case 1:
		payload = frames[0]
	case 2:
		payload = frames[1]
	default:
		return teleop.RawInputSample{}, processing.InvalidPayload(fmt.Errorf("expected 1 or 2 frames, got %d", len(frames)))
	}

	return processing.DecodeInputJSON(payload)
}
