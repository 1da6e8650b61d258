package processing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/open-teleop/legged-teleop/domain/teleop"
	customlog "github.com/open-teleop/legged-teleop/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type step struct {
	sample teleop.RawInputSample
	err    error
}

// scriptedSource replays steps, then blocks until ctx is done.
type scriptedSource struct {
	steps []step
}

func (s *scriptedSource) Next(ctx context.Context) (teleop.RawInputSample, error) {
	if len(s.steps) == 0 {
		<-ctx.Done()
		return teleop.RawInputSample{}, ctx.Err()
	}
	next := s.steps[0]
	s.steps = s.steps[1:]
	return next.sample, next.err
}

type postureStub struct {
	mu      sync.Mutex
	posture teleop.RobotPosture
	sets    int
}

func (p *postureStub) Current() teleop.RobotPosture {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.posture
}

func (p *postureStub) Set(posture teleop.RobotPosture) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posture = posture
	p.sets++
}

type recordingSink struct {
	results []*CycleResult
}

func (r *recordingSink) HandleCycle(result *CycleResult) {
	r.results = append(r.results, result)
}

func sample(overrides map[string]float64) step {
	channels := map[string]float64{
		"B": 0, "X": 0, "V": 0,
		"W": 0, "E": 0, "R": 0, "T": 0, "U": 0,
	}
	for k, v := range overrides {
		channels[k] = v
	}
	return step{sample: teleop.RawInputSample{Channels: channels, MessageRate: 50}}
}

func timeout() step {
	return step{err: ErrInputTimeout}
}

func newTestLoop(t *testing.T, steps ...step) (*CommandLoop, *recordingSink, *postureStub) {
	t.Helper()
	synth, err := teleop.NewSynthesizer(teleop.DefaultSettings())
	require.NoError(t, err)

	sink := &recordingSink{}
	posture := &postureStub{}
	loop := NewCommandLoop(synth, &scriptedSource{steps: steps}, posture, sink, customlog.NewNopLogger())
	return loop, sink, posture
}

func runCycles(t *testing.T, loop *CommandLoop, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := loop.RunOnce(context.Background())
		require.NoError(t, err)
	}
}

func TestLoopEdgesAcrossTimeout(t *testing.T) {
	loop, sink, _ := newTestLoop(t,
		sample(map[string]float64{"B": 1}),
		timeout(),
		sample(map[string]float64{"B": 1}),
		sample(map[string]float64{"B": 0}),
		sample(map[string]float64{"B": 1}),
	)
	runCycles(t, loop, 5)

	require.Len(t, sink.results, 5)
	var gait []bool
	for _, r := range sink.results {
		gait = append(gait, r.Command.GaitEvent)
	}
	assert.Equal(t, []bool{true, false, false, false, true}, gait)

	assert.True(t, sink.results[1].TimedOut)
	assert.Equal(t, teleop.MotionCommand{}, sink.results[1].Command)
	assert.Equal(t, int64(2), sink.results[1].Cycle)

	metrics := loop.GetMetrics()
	assert.Equal(t, int64(5), metrics.Cycles)
	assert.Equal(t, int64(1), metrics.Timeouts)
	assert.Equal(t, int64(2), metrics.Events)
	assert.Zero(t, metrics.SampleErrors)
}

func TestLoopMalformedSampleIsNeutral(t *testing.T) {
	loop, sink, _ := newTestLoop(t,
		sample(map[string]float64{"X": 1}),
		sample(map[string]float64{"X": 1, "W": 3}),
		step{err: &teleop.SampleError{Channel: teleop.MessageRateChannel, Err: teleop.ErrMissingChannel}},
		sample(map[string]float64{"X": 1}),
	)
	runCycles(t, loop, 4)

	assert.True(t, sink.results[0].Command.HopEvent)
	for _, r := range sink.results[1:3] {
		assert.ErrorIs(t, r.Error, teleop.ErrMalformedSample)
		assert.Equal(t, teleop.MotionCommand{}, r.Command)
		assert.False(t, r.TimedOut)
	}
	// Hop is still held from the first cycle, so no new edge.
	assert.False(t, sink.results[3].Command.HopEvent)

	snap := loop.Snapshot()
	assert.Equal(t, int64(2), snap.Metrics.SampleErrors)
	assert.True(t, snap.Memory.Hop)
	assert.Empty(t, snap.LastError)
}

func TestLoopInputFailureTreatedAsTimeout(t *testing.T) {
	loop, sink, _ := newTestLoop(t,
		step{err: errors.New("socket closed")},
	)
	runCycles(t, loop, 1)

	require.Len(t, sink.results, 1)
	assert.True(t, sink.results[0].TimedOut)
	assert.NoError(t, sink.results[0].Error)

	metrics := loop.GetMetrics()
	assert.Equal(t, int64(1), metrics.InputErrors)
	assert.Zero(t, metrics.Timeouts)
}

func TestLoopPostureEcho(t *testing.T) {
	loop, sink, posture := newTestLoop(t,
		sample(map[string]float64{"U": 1}),
		sample(map[string]float64{"U": 1}),
		timeout(),
	)
	loop.SetPostureEcho(posture)
	runCycles(t, loop, 3)

	limits := teleop.DefaultLimits()
	delta := 0.02 * limits.RollSpeed
	assert.InDelta(t, -delta, sink.results[0].Command.Roll, 1e-12)
	assert.InDelta(t, -2*delta, sink.results[1].Command.Roll, 1e-12)

	// Timeouts do not overwrite the echoed posture.
	assert.Equal(t, 2, posture.sets)
	assert.InDelta(t, -2*delta, posture.Current().Roll, 1e-12)
}

func TestLoopApplyConfig(t *testing.T) {
	loop, sink, _ := newTestLoop(t,
		sample(map[string]float64{"W": 1}),
		sample(map[string]float64{"W": 1}),
	)

	bad := teleop.DefaultSettings()
	bad.Limits.PitchTimeConstant = 0
	assert.ErrorIs(t, loop.ApplyConfig(bad), teleop.ErrInvalidConfig)

	runCycles(t, loop, 1)

	settings := teleop.DefaultSettings()
	settings.Limits.MaxForwardVelocity = 1.0
	settings.Channels.Forward = teleop.AxisMapping{Channel: "W", Invert: true}
	require.NoError(t, loop.ApplyConfig(settings))

	runCycles(t, loop, 1)

	assert.InDelta(t, 0.4, sink.results[0].Command.HorizontalVelocity.Forward, 1e-12)
	assert.InDelta(t, -1.0, sink.results[1].Command.HorizontalVelocity.Forward, 1e-12)
	assert.Equal(t, settings, loop.Snapshot().Settings)
}

func TestLoopApplyConfigLatestWins(t *testing.T) {
	loop, sink, _ := newTestLoop(t, sample(map[string]float64{"W": 1}))

	first := teleop.DefaultSettings()
	first.Limits.MaxForwardVelocity = 0.1
	second := teleop.DefaultSettings()
	second.Limits.MaxForwardVelocity = 0.2
	require.NoError(t, loop.ApplyConfig(first))
	require.NoError(t, loop.ApplyConfig(second))

	runCycles(t, loop, 1)
	assert.InDelta(t, 0.2, sink.results[0].Command.HorizontalVelocity.Forward, 1e-12)
}

func TestLoopRunStopsOnCancel(t *testing.T) {
	loop, sink, _ := newTestLoop(t,
		sample(map[string]float64{"V": 1}),
		timeout(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	require.Eventually(t, func() bool {
		return loop.GetMetrics().Cycles == 2
	}, time.Second, 5*time.Millisecond)
	assert.True(t, loop.Snapshot().Running)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}

	assert.False(t, loop.Snapshot().Running)
	assert.Len(t, sink.results, 2)
	assert.True(t, sink.results[0].Command.ActivateEvent)
	assert.NotEmpty(t, loop.RunID())
}
