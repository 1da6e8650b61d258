// Package teleop turns per-cycle operator input into motion commands for a
// legged-robot gait controller.
//
// The Synthesizer is driven by exactly one control loop and is not safe for
// concurrent use. It never blocks and performs no I/O.
package teleop

import (
	"fmt"
	"math"
	"sort"

	"github.com/open-teleop/legged-teleop/pkg/filter"
)

// Synthesizer converts raw input samples into MotionCommands, remembering the
// toggle levels of the last processed sample for rising-edge detection.
type Synthesizer struct {
	settings Settings
	expected map[string]bool // channel name -> is toggle
	memory   ToggleMemory
}

// NewSynthesizer validates settings and returns a synthesizer with all toggles
// released.
func NewSynthesizer(settings Settings) (*Synthesizer, error) {
	s := &Synthesizer{}
	if err := s.Reconfigure(settings); err != nil {
		return nil, err
	}
	return s, nil
}

// Reconfigure swaps the settings, keeping toggle memory so a held button does
// not fire again after a config reload.
func (s *Synthesizer) Reconfigure(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	expected := make(map[string]bool)
	for _, b := range settings.Channels.toggles() {
		expected[b.channel] = true
	}
	for _, b := range settings.Channels.axes() {
		expected[b.mapping.Channel] = false
	}

	s.settings = settings
	s.expected = expected
	return nil
}

// Settings returns the active settings.
func (s *Synthesizer) Settings() Settings {
	return s.settings
}

// Memory returns the toggle levels of the last processed sample.
func (s *Synthesizer) Memory() ToggleMemory {
	return s.memory
}

// reading is a validated sample resolved against the channel table.
type reading struct {
	toggles ToggleMemory
	dt      float64

	forward, lateral, yaw, pitch, height, roll float64
}

// Synthesize produces the command for one cycle.
//
// A timeout yields the neutral command and leaves toggle memory untouched. A
// sample that violates the input contract yields an error and also leaves
// memory untouched; substituting a neutral command is the caller's decision.
func (s *Synthesizer) Synthesize(delivery Delivery, posture RobotPosture) (MotionCommand, error) {
	if delivery.TimedOut {
		return MotionCommand{}, nil
	}

	r, err := s.read(delivery.Sample)
	if err != nil {
		return MotionCommand{}, err
	}

	limits := s.settings.Limits
	cmd := MotionCommand{
		GaitEvent:     risingEdge(r.toggles.Gait, s.memory.Gait),
		HopEvent:      risingEdge(r.toggles.Hop, s.memory.Hop),
		ActivateEvent: risingEdge(r.toggles.Activate, s.memory.Activate),
		HorizontalVelocity: HorizontalVelocity{
			Forward: r.forward * limits.MaxForwardVelocity,
			Lateral: r.lateral * limits.MaxLateralVelocity,
		},
		YawRate: -r.yaw * limits.MaxYawRate,
	}

	targetPitch := filter.Deadband(r.pitch*limits.MaxPitch, limits.PitchDeadbandWidth)
	pitchRate, err := filter.ClippedFirstOrderFilter(posture.Pitch, targetPitch, limits.MaxPitchRate, limits.PitchTimeConstant)
	if err != nil {
		return MotionCommand{}, fmt.Errorf("pitch filter: %w", err)
	}
	cmd.Pitch = posture.Pitch + r.dt*pitchRate

	cmd.Height = posture.Height - r.dt*limits.HeightSpeed*r.height
	cmd.Roll = posture.Roll + r.dt*limits.RollSpeed*(-r.roll)

	// All three edges above were computed against the old memory.
	s.memory = r.toggles
	return cmd, nil
}

func risingEdge(level, previous bool) bool {
	return level && !previous
}

// read validates the whole sample before anything is derived from it.
func (s *Synthesizer) read(sample RawInputSample) (reading, error) {
	var r reading

	if s.settings.StrictChannels {
		extra := make([]string, 0)
		for name := range sample.Channels {
			if _, ok := s.expected[name]; !ok {
				extra = append(extra, name)
			}
		}
		if len(extra) > 0 {
			sort.Strings(extra)
			return r, &SampleError{Channel: extra[0], Value: sample.Channels[extra[0]], Err: ErrUnexpectedChannel}
		}
	}

	var err error
	table := s.settings.Channels
	if r.toggles.Gait, err = toggleLevel(sample, table.GaitToggle); err != nil {
		return r, err
	}
	if r.toggles.Hop, err = toggleLevel(sample, table.HopToggle); err != nil {
		return r, err
	}
	if r.toggles.Activate, err = toggleLevel(sample, table.ActivateToggle); err != nil {
		return r, err
	}

	axes := []struct {
		mapping AxisMapping
		dst     *float64
	}{
		{table.Forward, &r.forward},
		{table.Lateral, &r.lateral},
		{table.Yaw, &r.yaw},
		{table.Pitch, &r.pitch},
		{table.Height, &r.height},
		{table.Roll, &r.roll},
	}
	for _, a := range axes {
		v, err := axisValue(sample, a.mapping.Channel)
		if err != nil {
			return r, err
		}
		*a.dst = a.mapping.apply(v)
	}

	// A tiny positive rate still overflows the time step, so check dt itself.
	dt := 1.0 / sample.MessageRate
	if !(sample.MessageRate > 0) || !(dt > 0) || math.IsInf(dt, 0) {
		return r, fmt.Errorf("%w: got %v", ErrInvalidMessageRate, sample.MessageRate)
	}
	r.dt = dt

	return r, nil
}

func toggleLevel(sample RawInputSample, channel string) (bool, error) {
	v, ok := sample.Channels[channel]
	if !ok {
		return false, &SampleError{Channel: channel, Err: ErrMissingChannel}
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, &SampleError{Channel: channel, Value: v, Err: ErrInvalidToggleLevel}
	}
}

func axisValue(sample RawInputSample, channel string) (float64, error) {
	v, ok := sample.Channels[channel]
	if !ok {
		return 0, &SampleError{Channel: channel, Err: ErrMissingChannel}
	}
	if math.IsNaN(v) || v < -1 || v > 1 {
		return 0, &SampleError{Channel: channel, Value: v, Err: ErrChannelOutOfRange}
	}
	return v, nil
}

// SampleFromValues builds a sample from a flat channel map as sent on the wire,
// lifting MessageRateChannel out of the channel set.
func SampleFromValues(values map[string]float64) (RawInputSample, error) {
	rate, ok := values[MessageRateChannel]
	if !ok {
		return RawInputSample{}, &SampleError{Channel: MessageRateChannel, Err: ErrMissingChannel}
	}

	channels := make(map[string]float64, len(values))
	for name, v := range values {
		if name == MessageRateChannel {
			continue
		}
		channels[name] = v
	}
	return RawInputSample{Channels: channels, MessageRate: rate}, nil
}
