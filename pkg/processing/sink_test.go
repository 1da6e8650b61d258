package processing

import (
	"errors"
	"testing"

	"github.com/open-teleop/legged-teleop/domain/teleop"
	customlog "github.com/open-teleop/legged-teleop/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	topics []string
	data   [][]byte
	err    error
}

func (p *capturePublisher) PublishMessage(topic string, data []byte) error {
	p.topics = append(p.topics, topic)
	p.data = append(p.data, data)
	return p.err
}

func TestPublishingSinkEncodesCommand(t *testing.T) {
	pub := &capturePublisher{}
	sink := NewPublishingCommandSink(customlog.NewNopLogger(), pub)

	cmd := teleop.MotionCommand{GaitEvent: true, YawRate: 0.5}
	sink.HandleCycle(&CycleResult{Cycle: 1, Command: cmd, TimestampNs: 42})

	require.Len(t, pub.data, 1)
	assert.Equal(t, MotionCommandTopic, pub.topics[0])

	frame, err := DecodeMotionCommand(pub.data[0])
	require.NoError(t, err)
	assert.Equal(t, cmd, frame.Command)
	assert.Equal(t, int64(42), frame.TimestampNs)
	assert.False(t, frame.TimedOut)
}

func TestPublishingSinkSurvivesPublishError(t *testing.T) {
	pub := &capturePublisher{err: errors.New("boom")}
	sink := NewPublishingCommandSink(customlog.NewNopLogger(), pub)

	assert.NotPanics(t, func() {
		sink.HandleCycle(&CycleResult{Cycle: 1, TimedOut: true})
		sink.HandleCycle(nil)
	})
	assert.Len(t, pub.data, 1)
}

func TestCommandSinkFunc(t *testing.T) {
	var got *CycleResult
	var sink CommandSink = CommandSinkFunc(func(r *CycleResult) { got = r })

	want := &CycleResult{Cycle: 7}
	sink.HandleCycle(want)
	assert.Same(t, want, got)
}
