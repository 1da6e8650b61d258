package teleop

import (
	"math"
)

// Limits bounds the commands the synthesizer may produce. Velocities are m/s,
// angles rad, rates per second, heights m.
type Limits struct {
	MaxForwardVelocity float64 `yaml:"max_forward_velocity" json:"max_forward_velocity"`
	MaxLateralVelocity float64 `yaml:"max_lateral_velocity" json:"max_lateral_velocity"`
	MaxYawRate         float64 `yaml:"max_yaw_rate" json:"max_yaw_rate"`
	MaxPitch           float64 `yaml:"max_pitch" json:"max_pitch"`
	PitchDeadbandWidth float64 `yaml:"pitch_deadband_width" json:"pitch_deadband_width"`
	MaxPitchRate       float64 `yaml:"max_pitch_rate" json:"max_pitch_rate"`
	PitchTimeConstant  float64 `yaml:"pitch_time_constant" json:"pitch_time_constant"`
	RollSpeed          float64 `yaml:"roll_speed" json:"roll_speed"`
	HeightSpeed        float64 `yaml:"height_speed" json:"height_speed"`
}

// DefaultLimits returns the tuning of the reference quadruped.
func DefaultLimits() Limits {
	return Limits{
		MaxForwardVelocity: 0.4,
		MaxLateralVelocity: 0.3,
		MaxYawRate:         2.0,
		MaxPitch:           30.0 * math.Pi / 180.0,
		PitchDeadbandWidth: 0.02,
		MaxPitchRate:       0.15,
		PitchTimeConstant:  0.25,
		RollSpeed:          0.16,
		HeightSpeed:        0.03,
	}
}

// Validate rejects values that would corrupt the rate or time-step math.
func (l Limits) Validate() error {
	nonNegative := []struct {
		name  string
		value float64
	}{
		{"max_forward_velocity", l.MaxForwardVelocity},
		{"max_lateral_velocity", l.MaxLateralVelocity},
		{"max_yaw_rate", l.MaxYawRate},
		{"max_pitch", l.MaxPitch},
		{"pitch_deadband_width", l.PitchDeadbandWidth},
		{"max_pitch_rate", l.MaxPitchRate},
		{"roll_speed", l.RollSpeed},
		{"height_speed", l.HeightSpeed},
	}
	for _, f := range nonNegative {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) || f.value < 0 {
			return configErrorf("limits.%s must be a finite non-negative number, got %v", f.name, f.value)
		}
	}

	if !(l.PitchTimeConstant > 0) || math.IsInf(l.PitchTimeConstant, 0) {
		return configErrorf("limits.pitch_time_constant must be positive, got %v", l.PitchTimeConstant)
	}
	return nil
}

// Settings is everything the synthesizer needs besides its toggle memory.
// StrictChannels rejects samples carrying channels the table does not name.
type Settings struct {
	Limits         Limits       `yaml:"limits" json:"limits"`
	Channels       ChannelTable `yaml:"channels" json:"channels"`
	StrictChannels bool         `yaml:"strict_channels" json:"strict_channels"`
}

// DefaultSettings combines DefaultLimits and DefaultChannelTable in strict mode.
func DefaultSettings() Settings {
	return Settings{
		Limits:         DefaultLimits(),
		Channels:       DefaultChannelTable(),
		StrictChannels: true,
	}
}

// Validate validates limits and channel table.
func (s Settings) Validate() error {
	if err := s.Limits.Validate(); err != nil {
		return err
	}
	return s.Channels.Validate()
}
