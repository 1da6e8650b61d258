package teleop

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var approx = cmpopts.EquateApprox(0, 1e-12)

// neutralSample returns a sample carrying every default channel at rest.
func neutralSample(rate float64, overrides map[string]float64) RawInputSample {
	channels := map[string]float64{
		"B": 0, "X": 0, "V": 0,
		"W": 0, "E": 0, "R": 0, "T": 0, "U": 0,
	}
	for k, v := range overrides {
		channels[k] = v
	}
	return RawInputSample{Channels: channels, MessageRate: rate}
}

func newTestSynthesizer(t *testing.T, mutate func(*Settings)) *Synthesizer {
	t.Helper()
	settings := DefaultSettings()
	if mutate != nil {
		mutate(&settings)
	}
	s, err := NewSynthesizer(settings)
	require.NoError(t, err)
	return s
}

func TestFirstCycleAllReleased(t *testing.T) {
	s := newTestSynthesizer(t, nil)

	cmd, err := s.Synthesize(SampleDelivery(neutralSample(50, nil)), RobotPosture{})
	require.NoError(t, err)

	assert.False(t, cmd.GaitEvent)
	assert.False(t, cmd.HopEvent)
	assert.False(t, cmd.ActivateEvent)
	assert.Equal(t, ToggleMemory{}, s.Memory())
}

func TestPitchIntegrationScenario(t *testing.T) {
	s := newTestSynthesizer(t, func(st *Settings) {
		st.Limits.MaxPitch = 0.5
		st.Limits.PitchDeadbandWidth = 0.05
		st.Limits.MaxPitchRate = 2.0
		st.Limits.PitchTimeConstant = 0.1
	})

	cmd, err := s.Synthesize(SampleDelivery(neutralSample(50, map[string]float64{"T": 1.0})), RobotPosture{Pitch: 0})
	require.NoError(t, err)

	// 0.5 target, 0.45 after deadband, 4.5 unclipped, 2.0 clipped, dt 0.02.
	assert.InDelta(t, 0.04, cmd.Pitch, 1e-12)
}

func TestHeightIntegrationScenario(t *testing.T) {
	s := newTestSynthesizer(t, func(st *Settings) {
		st.Limits.HeightSpeed = 0.05
		st.Channels.Height = AxisMapping{Channel: "Y"}
	})

	sample := neutralSample(50, map[string]float64{"Y": 1.0})
	cmd, err := s.Synthesize(SampleDelivery(sample), RobotPosture{Height: 0.1})
	require.NoError(t, err)

	assert.InDelta(t, 0.099, cmd.Height, 1e-12)
}

func TestRollIntegrationIsNegated(t *testing.T) {
	s := newTestSynthesizer(t, func(st *Settings) {
		st.Limits.RollSpeed = 0.2
	})

	cmd, err := s.Synthesize(SampleDelivery(neutralSample(20, map[string]float64{"U": 0.5})), RobotPosture{Roll: 0.01})
	require.NoError(t, err)

	assert.InDelta(t, 0.01-0.05*0.2*0.5, cmd.Roll, 1e-12)
}

func TestVelocityAndYawScaling(t *testing.T) {
	s := newTestSynthesizer(t, func(st *Settings) {
		st.Channels.Height = AxisMapping{Channel: "Y"}
	})
	limits := s.Settings().Limits

	sample := neutralSample(50, map[string]float64{"W": 0.5, "E": -1, "R": 0.25, "Y": 0})
	cmd, err := s.Synthesize(SampleDelivery(sample), RobotPosture{})
	require.NoError(t, err)

	want := MotionCommand{
		HorizontalVelocity: HorizontalVelocity{
			Forward: 0.5 * limits.MaxForwardVelocity,
			Lateral: -1 * limits.MaxLateralVelocity,
		},
		YawRate: -0.25 * limits.MaxYawRate,
	}
	if diff := cmp.Diff(want, cmd, approx); diff != "" {
		t.Errorf("command mismatch (-want +got):\n%s", diff)
	}
}

func TestInvertedAxisMapping(t *testing.T) {
	s := newTestSynthesizer(t, func(st *Settings) {
		st.Channels.Lateral = AxisMapping{Channel: "E", Invert: true}
	})

	cmd, err := s.Synthesize(SampleDelivery(neutralSample(50, map[string]float64{"E": 0.5})), RobotPosture{})
	require.NoError(t, err)

	assert.InDelta(t, -0.5*s.Settings().Limits.MaxLateralVelocity, cmd.HorizontalVelocity.Lateral, 1e-12)
}

func TestDefaultTableCouplesYawAndHeight(t *testing.T) {
	s := newTestSynthesizer(t, nil)
	limits := s.Settings().Limits

	cmd, err := s.Synthesize(SampleDelivery(neutralSample(50, map[string]float64{"R": 1})), RobotPosture{Height: 0.2})
	require.NoError(t, err)

	assert.InDelta(t, -limits.MaxYawRate, cmd.YawRate, 1e-12)
	assert.InDelta(t, 0.2-0.02*limits.HeightSpeed, cmd.Height, 1e-12)
	assert.Equal(t, map[string][]Role{"R": {RoleHeight, RoleYaw}}, DefaultChannelTable().SharedChannels())
}

func TestPitchEquilibrium(t *testing.T) {
	s := newTestSynthesizer(t, func(st *Settings) {
		st.Limits.MaxPitch = 0.5
		st.Limits.PitchDeadbandWidth = 0.1
	})

	// 0.6 * 0.5 = 0.3, deadbanded to 0.2.
	posture := RobotPosture{Pitch: 0.2, Roll: 0.03, Height: 0.15}
	cmd, err := s.Synthesize(SampleDelivery(neutralSample(50, map[string]float64{"T": 0.6})), posture)
	require.NoError(t, err)

	assert.InDelta(t, posture.Pitch, cmd.Pitch, 1e-15)
}

func TestPitchApproachesTargetWithoutOvershoot(t *testing.T) {
	s := newTestSynthesizer(t, nil)
	limits := s.Settings().Limits
	target := filterTarget(1.0, limits)

	posture := RobotPosture{}
	for i := 0; i < 2000; i++ {
		cmd, err := s.Synthesize(SampleDelivery(neutralSample(50, map[string]float64{"T": 1})), posture)
		require.NoError(t, err)

		step := cmd.Pitch - posture.Pitch
		assert.LessOrEqual(t, math.Abs(step), 0.02*limits.MaxPitchRate+1e-12)
		assert.LessOrEqual(t, cmd.Pitch, target+1e-12)
		posture.Pitch = cmd.Pitch
	}
	assert.InDelta(t, target, posture.Pitch, 1e-3)
}

func filterTarget(raw float64, l Limits) float64 {
	return raw*l.MaxPitch - l.PitchDeadbandWidth
}

func TestToggleEdgeDetection(t *testing.T) {
	tests := []struct {
		name   string
		levels []float64 // -1 marks a timeout cycle
		events []bool
	}{
		{"held button fires once", []float64{1, 1, 1, 1}, []bool{true, false, false, false}},
		{"release and press fires twice", []float64{1, 0, 1}, []bool{true, false, true}},
		{"never pressed", []float64{0, 0, 0}, []bool{false, false, false}},
		{"timeout does not re-arm", []float64{1, -1, 1}, []bool{true, false, false}},
		{"timeout does not fire", []float64{0, -1, -1, 1}, []bool{false, false, false, true}},
		{"press after first cycle", []float64{0, 1, 1, 0, 0, 1}, []bool{false, true, false, false, false, true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSynthesizer(t, nil)
			for i, level := range tt.levels {
				delivery := TimeoutDelivery()
				if level >= 0 {
					delivery = SampleDelivery(neutralSample(50, map[string]float64{"X": level}))
				}
				cmd, err := s.Synthesize(delivery, RobotPosture{})
				require.NoError(t, err)
				assert.Equal(t, tt.events[i], cmd.HopEvent, "cycle %d", i)
				assert.False(t, cmd.GaitEvent, "cycle %d", i)
				assert.False(t, cmd.ActivateEvent, "cycle %d", i)
			}
		})
	}
}

func TestSimultaneousEdges(t *testing.T) {
	s := newTestSynthesizer(t, nil)

	cmd, err := s.Synthesize(SampleDelivery(neutralSample(50, map[string]float64{"B": 1, "X": 1, "V": 1})), RobotPosture{})
	require.NoError(t, err)
	assert.True(t, cmd.GaitEvent)
	assert.True(t, cmd.HopEvent)
	assert.True(t, cmd.ActivateEvent)
	assert.Equal(t, ToggleMemory{Gait: true, Hop: true, Activate: true}, s.Memory())

	cmd, err = s.Synthesize(SampleDelivery(neutralSample(50, map[string]float64{"B": 1, "X": 0, "V": 1})), RobotPosture{})
	require.NoError(t, err)
	assert.False(t, cmd.HasEvent())
	assert.Equal(t, ToggleMemory{Gait: true, Hop: false, Activate: true}, s.Memory())
}

func TestTimeoutIsNeutralAndPreservesMemory(t *testing.T) {
	s := newTestSynthesizer(t, nil)

	_, err := s.Synthesize(SampleDelivery(neutralSample(50, map[string]float64{"B": 1, "W": 1})), RobotPosture{})
	require.NoError(t, err)
	before := s.Memory()

	cmd, err := s.Synthesize(TimeoutDelivery(), RobotPosture{Pitch: 0.3, Roll: 0.1, Height: 0.2})
	require.NoError(t, err)
	assert.Equal(t, MotionCommand{}, cmd)
	assert.Equal(t, before, s.Memory())
}

func TestMalformedSamples(t *testing.T) {
	tests := []struct {
		name    string
		sample  RawInputSample
		channel string
		kind    error
	}{
		{
			name:    "missing toggle",
			sample:  RawInputSample{Channels: map[string]float64{"X": 0, "V": 0, "W": 0, "E": 0, "R": 0, "T": 0, "U": 0}, MessageRate: 50},
			channel: "B",
			kind:    ErrMissingChannel,
		},
		{
			name:    "missing axis",
			sample:  RawInputSample{Channels: map[string]float64{"B": 0, "X": 0, "V": 0, "W": 0, "E": 0, "R": 0, "T": 0}, MessageRate: 50},
			channel: "U",
			kind:    ErrMissingChannel,
		},
		{
			name:    "unexpected channel",
			sample:  neutralSample(50, map[string]float64{"Z": 0.1}),
			channel: "Z",
			kind:    ErrUnexpectedChannel,
		},
		{
			name:    "axis above range",
			sample:  neutralSample(50, map[string]float64{"W": 1.5}),
			channel: "W",
			kind:    ErrChannelOutOfRange,
		},
		{
			name:    "axis below range",
			sample:  neutralSample(50, map[string]float64{"T": -1.01}),
			channel: "T",
			kind:    ErrChannelOutOfRange,
		},
		{
			name:    "axis not a number",
			sample:  neutralSample(50, map[string]float64{"E": math.NaN()}),
			channel: "E",
			kind:    ErrChannelOutOfRange,
		},
		{
			name:    "toggle half pressed",
			sample:  neutralSample(50, map[string]float64{"V": 0.5}),
			channel: "V",
			kind:    ErrInvalidToggleLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSynthesizer(t, nil)
			_, err := s.Synthesize(SampleDelivery(neutralSample(50, map[string]float64{"B": 1})), RobotPosture{})
			require.NoError(t, err)
			before := s.Memory()

			cmd, err := s.Synthesize(SampleDelivery(tt.sample), RobotPosture{Pitch: 0.1})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedSample))
			assert.ErrorIs(t, err, tt.kind)

			var sampleErr *SampleError
			require.ErrorAs(t, err, &sampleErr)
			assert.Equal(t, tt.channel, sampleErr.Channel)
			assert.Contains(t, err.Error(), tt.channel)

			assert.Equal(t, MotionCommand{}, cmd)
			assert.Equal(t, before, s.Memory())
		})
	}
}

func TestLenientChannelsAcceptExtras(t *testing.T) {
	s := newTestSynthesizer(t, func(st *Settings) {
		st.StrictChannels = false
	})

	_, err := s.Synthesize(SampleDelivery(neutralSample(50, map[string]float64{"dpadx": 3})), RobotPosture{})
	assert.NoError(t, err)
}

func TestInvalidMessageRate(t *testing.T) {
	for _, rate := range []float64{0, -50, math.NaN(), math.Inf(1), 1e-310} {
		s := newTestSynthesizer(t, nil)

		_, err := s.Synthesize(SampleDelivery(neutralSample(rate, map[string]float64{"B": 1})), RobotPosture{})
		assert.ErrorIs(t, err, ErrInvalidMessageRate, "rate %v", rate)
		assert.False(t, errors.Is(err, ErrMalformedSample), "rate %v", rate)
		assert.Equal(t, ToggleMemory{}, s.Memory(), "rate %v", rate)
	}
}

func TestReconfigureKeepsMemory(t *testing.T) {
	s := newTestSynthesizer(t, nil)

	_, err := s.Synthesize(SampleDelivery(neutralSample(50, map[string]float64{"B": 1})), RobotPosture{})
	require.NoError(t, err)

	settings := DefaultSettings()
	settings.Limits.MaxYawRate = 1.0
	require.NoError(t, s.Reconfigure(settings))
	assert.Equal(t, 1.0, s.Settings().Limits.MaxYawRate)

	cmd, err := s.Synthesize(SampleDelivery(neutralSample(50, map[string]float64{"B": 1})), RobotPosture{})
	require.NoError(t, err)
	assert.False(t, cmd.GaitEvent)
}

func TestReconfigureRejectsInvalidSettings(t *testing.T) {
	s := newTestSynthesizer(t, nil)
	original := s.Settings()

	bad := DefaultSettings()
	bad.Limits.PitchTimeConstant = 0
	err := s.Reconfigure(bad)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, original, s.Settings())
}

func TestNewSynthesizerValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
		substr string
	}{
		{"zero time constant", func(s *Settings) { s.Limits.PitchTimeConstant = 0 }, "pitch_time_constant"},
		{"negative max pitch rate", func(s *Settings) { s.Limits.MaxPitchRate = -1 }, "max_pitch_rate"},
		{"negative deadband", func(s *Settings) { s.Limits.PitchDeadbandWidth = -0.01 }, "pitch_deadband_width"},
		{"unset toggle", func(s *Settings) { s.Channels.HopToggle = "" }, "hop_toggle"},
		{"unset axis", func(s *Settings) { s.Channels.Roll = AxisMapping{} }, "roll"},
		{"toggle reused", func(s *Settings) { s.Channels.HopToggle = "B" }, "toggle channel"},
		{"toggle used as axis", func(s *Settings) { s.Channels.Forward = AxisMapping{Channel: "V"} }, "bound to toggle"},
		{"reserved channel", func(s *Settings) { s.Channels.Pitch = AxisMapping{Channel: MessageRateChannel} }, "reserved"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := DefaultSettings()
			tt.mutate(&settings)
			_, err := NewSynthesizer(settings)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.substr)
		})
	}
}

func TestSampleFromValues(t *testing.T) {
	sample, err := SampleFromValues(map[string]float64{"B": 1, "W": 0.5, MessageRateChannel: 30})
	require.NoError(t, err)
	assert.Equal(t, 30.0, sample.MessageRate)
	assert.Equal(t, map[string]float64{"B": 1, "W": 0.5}, sample.Channels)

	_, err = SampleFromValues(map[string]float64{"B": 1})
	assert.ErrorIs(t, err, ErrMalformedSample)
	assert.ErrorIs(t, err, ErrMissingChannel)
}

func TestChannelTableChannels(t *testing.T) {
	assert.Equal(t, []string{"B", "E", "R", "T", "U", "V", "W", "X"}, DefaultChannelTable().Channels())
}
