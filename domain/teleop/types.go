package teleop

import "fmt"

// RawInputSample is one cycle's worth of operator input as delivered by the
// transport. Channels holds every named channel except the message rate, which
// is lifted into MessageRate.
type RawInputSample struct {
	Channels    map[string]float64 `json:"channels"`
	MessageRate float64            `json:"message_rate"`
}

// Delivery is what an input source hands the synthesizer each cycle: either a
// sample or an explicit timeout.
type Delivery struct {
	Sample   RawInputSample
	TimedOut bool
}

// SampleDelivery wraps a received sample.
func SampleDelivery(sample RawInputSample) Delivery {
	return Delivery{Sample: sample}
}

// TimeoutDelivery signals that no sample arrived within the transport's wait window.
func TimeoutDelivery() Delivery {
	return Delivery{TimedOut: true}
}

// RobotPosture is the body attitude and height reported by the gait controller
// at the start of a cycle.
type RobotPosture struct {
	Pitch  float64 `json:"pitch"`
	Roll   float64 `json:"roll"`
	Height float64 `json:"height"`
}

// ToggleMemory holds the level of each toggle channel seen on the most recently
// processed sample. The zero value is the all-released state.
type ToggleMemory struct {
	Gait     bool `json:"gait"`
	Hop      bool `json:"hop"`
	Activate bool `json:"activate"`
}

// HorizontalVelocity is the commanded planar body velocity.
type HorizontalVelocity struct {
	Forward float64 `json:"forward"`
	Lateral float64 `json:"lateral"`
}

// MotionCommand is the per-cycle output handed to the gait controller. Pitch,
// Roll and Height are absolute setpoints. The zero value is the neutral command.
type MotionCommand struct {
	GaitEvent     bool `json:"gait_event"`
	HopEvent      bool `json:"hop_event"`
	ActivateEvent bool `json:"activate_event"`

	HorizontalVelocity HorizontalVelocity `json:"horizontal_velocity"`
	YawRate            float64            `json:"yaw_rate"`

	Pitch  float64 `json:"pitch"`
	Roll   float64 `json:"roll"`
	Height float64 `json:"height"`
}

// HasEvent reports whether any discrete event fired this cycle.
func (c MotionCommand) HasEvent() bool {
	return c.GaitEvent || c.HopEvent || c.ActivateEvent
}

// IndicatorColor is the operator-facing status light color, 0-255 per channel.
type IndicatorColor struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// Validate rejects channels outside 0-255.
func (c IndicatorColor) Validate() error {
	for _, v := range []int{c.R, c.G, c.B} {
		if v < 0 || v > 255 {
			return fmt.Errorf("indicator color channel %d outside [0, 255]", v)
		}
	}
	return nil
}
