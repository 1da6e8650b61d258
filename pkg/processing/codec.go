package processing

import (
	"errors"
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/open-teleop/legged-teleop/domain/teleop"
	"github.com/open-teleop/legged-teleop/pkg/flatbuffers/open_teleop/command"
)

// ErrInvalidCommandFrame is returned when bytes do not hold a MotionCommand table.
var ErrInvalidCommandFrame = errors.New("invalid motion command frame")

// CommandFrame is a MotionCommand together with its wire metadata.
type CommandFrame struct {
	Command     teleop.MotionCommand
	TimestampNs int64
	TimedOut    bool
}

// EncodeMotionCommand serializes a frame as a MotionCommand flatbuffer.
func EncodeMotionCommand(frame CommandFrame) []byte {
	builder := flatbuffers.NewBuilder(128)
	cmd := frame.Command

	command.MotionCommandStart(builder)
	command.MotionCommandAddTimestampNs(builder, frame.TimestampNs)
	command.MotionCommandAddGaitEvent(builder, cmd.GaitEvent)
	command.MotionCommandAddHopEvent(builder, cmd.HopEvent)
	command.MotionCommandAddActivateEvent(builder, cmd.ActivateEvent)
	command.MotionCommandAddForwardVelocity(builder, cmd.HorizontalVelocity.Forward)
	command.MotionCommandAddLateralVelocity(builder, cmd.HorizontalVelocity.Lateral)
	command.MotionCommandAddYawRate(builder, cmd.YawRate)
	command.MotionCommandAddPitch(builder, cmd.Pitch)
	command.MotionCommandAddRoll(builder, cmd.Roll)
	command.MotionCommandAddHeight(builder, cmd.Height)
	command.MotionCommandAddTimedOut(builder, frame.TimedOut)
	root := command.MotionCommandEnd(builder)
	builder.Finish(root)

	return builder.FinishedBytes()
}

// DecodeMotionCommand parses a MotionCommand flatbuffer.
func DecodeMotionCommand(data []byte) (frame CommandFrame, err error) {
	if len(data) < flatbuffers.SizeUOffsetT+flatbuffers.SizeSOffsetT {
		return CommandFrame{}, fmt.Errorf("%w: %d bytes", ErrInvalidCommandFrame, len(data))
	}
	// Out-of-range offsets in a corrupt buffer panic inside the accessors.
	defer func() {
		if r := recover(); r != nil {
			frame = CommandFrame{}
			err = fmt.Errorf("%w: %v", ErrInvalidCommandFrame, r)
		}
	}()

	msg := command.GetRootAsMotionCommand(data, 0)
	return CommandFrame{
		Command: teleop.MotionCommand{
			GaitEvent:     msg.GaitEvent(),
			HopEvent:      msg.HopEvent(),
			ActivateEvent: msg.ActivateEvent(),
			HorizontalVelocity: teleop.HorizontalVelocity{
				Forward: msg.ForwardVelocity(),
				Lateral: msg.LateralVelocity(),
			},
			YawRate: msg.YawRate(),
			Pitch:   msg.Pitch(),
			Roll:    msg.Roll(),
			Height:  msg.Height(),
		},
		TimestampNs: msg.TimestampNs(),
		TimedOut:    msg.TimedOut(),
	}, nil
}
