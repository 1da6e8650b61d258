package processing

import (
	"encoding/json"

	"github.com/open-teleop/legged-teleop/domain/teleop"
	customlog "github.com/open-teleop/legged-teleop/pkg/log"
)

// MotionCommandTopic is the topic motion commands are published on.
const MotionCommandTopic = "teleop.command.motion"

// CycleResult is the outcome of one loop cycle.
type CycleResult struct {
	Cycle       int64
	Command     teleop.MotionCommand
	TimestampNs int64
	TimedOut    bool
	Error       error
}

// CommandSink consumes cycle results
type CommandSink interface {
	HandleCycle(result *CycleResult)
}

// MessagePublisher defines the interface for publishing messages
type MessagePublisher interface {
	PublishMessage(topic string, data []byte) error
}

// PublishingCommandSink logs cycle results and publishes each command as a
// MotionCommand flatbuffer.
type PublishingCommandSink struct {
	logger    customlog.Logger
	publisher MessagePublisher
}

// NewPublishingCommandSink creates a sink. A nil publisher only logs.
func NewPublishingCommandSink(logger customlog.Logger, publisher MessagePublisher) *PublishingCommandSink {
	return &PublishingCommandSink{
		logger:    logger,
		publisher: publisher,
	}
}

// HandleCycle handles one cycle's command
func (h *PublishingCommandSink) HandleCycle(result *CycleResult) {
	if result == nil {
		h.logger.Errorf("Received nil CycleResult")
		return
	}

	if result.Error != nil {
		h.logger.Warnf("Cycle %d rejected input, sending neutral command: %v", result.Cycle, result.Error)
	} else if result.Command.HasEvent() {
		h.logger.Infof("Cycle %d events: gait=%t hop=%t activate=%t", result.Cycle,
			result.Command.GaitEvent, result.Command.HopEvent, result.Command.ActivateEvent)
	}

	if jsonData, err := json.Marshal(result.Command); err == nil {
		h.logger.Debugf("Cycle %d command (timed_out=%t): %s", result.Cycle, result.TimedOut, string(jsonData))
	}

	if h.publisher == nil {
		return
	}
	data := EncodeMotionCommand(CommandFrame{
		Command:     result.Command,
		TimestampNs: result.TimestampNs,
		TimedOut:    result.TimedOut,
	})
	if err := h.publisher.PublishMessage(MotionCommandTopic, data); err != nil {
		h.logger.Errorf("Failed to publish motion command for cycle %d: %v", result.Cycle, err)
	}
}

// CommandSinkFunc adapts a function to CommandSink
type CommandSinkFunc func(result *CycleResult)

// HandleCycle calls f(result)
func (f CommandSinkFunc) HandleCycle(result *CycleResult) {
	f(result)
}
