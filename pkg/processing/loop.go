package processing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/open-teleop/legged-teleop/domain/teleop"
	customlog "github.com/open-teleop/legged-teleop/pkg/log"
)

// inputErrorBackoff is how long the loop waits after a transport failure
// before asking the source again.
const inputErrorBackoff = 100 * time.Millisecond

// LoopMetrics tracks metrics for the command loop
type LoopMetrics struct {
	Cycles        int64 `json:"cycles"`
	Timeouts      int64 `json:"timeouts"`
	SampleErrors  int64 `json:"sample_errors"`
	InputErrors   int64 `json:"input_errors"`
	Events        int64 `json:"events"`
	LastCycleTime int64 `json:"last_cycle_time"`
	SynthTimeAvg  int64 `json:"synth_time_avg_us"` // in microseconds
	SynthTimeMax  int64 `json:"synth_time_max_us"` // in microseconds
}

// LoopSnapshot is a point-in-time view of the loop for status reporting
type LoopSnapshot struct {
	RunID       string               `json:"run_id"`
	Running     bool                 `json:"running"`
	Metrics     LoopMetrics          `json:"metrics"`
	LastCommand teleop.MotionCommand `json:"last_command"`
	LastTimeout bool                 `json:"last_timed_out"`
	LastError   string               `json:"last_error,omitempty"`
	Memory      teleop.ToggleMemory  `json:"toggle_memory"`
	Settings    teleop.Settings      `json:"settings"`
}

// CommandLoop drives the synthesizer: one input sample (or timeout) in, one
// motion command out. The synthesizer is only touched from Run.
type CommandLoop struct {
	runID   string
	synth   *teleop.Synthesizer
	input   InputSource
	posture PostureSource
	echo    PostureEcho
	sink    CommandSink
	logger  customlog.Logger
	now     func() time.Time

	pending chan teleop.Settings

	mu          sync.Mutex
	running     bool
	metrics     LoopMetrics
	lastCommand teleop.MotionCommand
	lastTimeout bool
	lastErr     error
	memory      teleop.ToggleMemory
	settings    teleop.Settings
}

// NewCommandLoop creates a command loop
func NewCommandLoop(
	synth *teleop.Synthesizer,
	input InputSource,
	posture PostureSource,
	sink CommandSink,
	logger customlog.Logger,
) *CommandLoop {
	return &CommandLoop{
		runID:    uuid.NewString(),
		synth:    synth,
		input:    input,
		posture:  posture,
		sink:     sink,
		logger:   logger,
		now:      time.Now,
		pending:  make(chan teleop.Settings, 1),
		memory:   synth.Memory(),
		settings: synth.Settings(),
	}
}

// SetPostureEcho makes the loop write each synthesized posture setpoint back to
// echo. Used when the robot reports no posture feedback.
func (l *CommandLoop) SetPostureEcho(echo PostureEcho) {
	l.echo = echo
}

// RunID returns the id identifying this loop instance in logs and status
func (l *CommandLoop) RunID() string {
	return l.runID
}

// ApplyConfig validates settings and queues them for the next cycle. A newer
// call replaces settings that have not been applied yet.
func (l *CommandLoop) ApplyConfig(settings teleop.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	for {
		select {
		case l.pending <- settings:
			return nil
		default:
		}
		select {
		case <-l.pending:
		default:
		}
	}
}

// Run executes cycles until ctx is cancelled.
func (l *CommandLoop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return errors.New("command loop already running")
	}
	l.running = true
	l.mu.Unlock()

	l.logger.Infof("Starting command loop %s", l.runID)
	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
		l.logMetrics()
	}()

	for {
		if _, err := l.RunOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				l.logger.Infof("Command loop %s stopped", l.runID)
				return nil
			}
			return err
		}
	}
}

// RunOnce executes a single cycle. It returns an error only when ctx ends
// before the cycle completes.
func (l *CommandLoop) RunOnce(ctx context.Context) (*CycleResult, error) {
	l.applyPending()

	sample, err := l.input.Next(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	var (
		cmd         teleop.MotionCommand
		cycleErr    error
		timedOut    bool
		inputFailed bool
	)
	startTime := time.Now()
	switch {
	case err == nil:
		cmd, cycleErr = l.synth.Synthesize(teleop.SampleDelivery(sample), l.posture.Current())
	case errors.Is(err, ErrInputTimeout):
		timedOut = true
		cmd, cycleErr = l.synth.Synthesize(teleop.TimeoutDelivery(), teleop.RobotPosture{})
	case errors.Is(err, teleop.ErrMalformedSample):
		// Payload never reached the synthesizer; toggle memory is untouched.
		cycleErr = err
	default:
		l.logger.Errorf("Input source failed, treating cycle as timeout: %v", err)
		timedOut = true
		inputFailed = true
	}
	synthTime := time.Since(startTime).Microseconds()

	if cycleErr == nil && !timedOut && l.echo != nil {
		l.echo.Set(teleop.RobotPosture{Pitch: cmd.Pitch, Roll: cmd.Roll, Height: cmd.Height})
	}

	result := &CycleResult{
		Command:     cmd,
		TimestampNs: l.now().UnixNano(),
		TimedOut:    timedOut,
		Error:       cycleErr,
	}
	l.record(result, synthTime, inputFailed)

	if l.sink != nil {
		l.sink.HandleCycle(result)
	}

	if inputFailed {
		select {
		case <-ctx.Done():
		case <-time.After(inputErrorBackoff):
		}
	}
	return result, nil
}

func (l *CommandLoop) applyPending() {
	select {
	case settings := <-l.pending:
		if err := l.synth.Reconfigure(settings); err != nil {
			l.logger.Errorf("Rejected queued configuration: %v", err)
			return
		}
		for channel, roles := range settings.Channels.SharedChannels() {
			l.logger.Warnf("Channel %s drives more than one axis: %v", channel, roles)
		}
		l.mu.Lock()
		l.settings = settings
		l.mu.Unlock()
		l.logger.Infof("Applied new teleop configuration")
	default:
	}
}

func (l *CommandLoop) record(result *CycleResult, synthTime int64, inputFailed bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.metrics.Cycles++
	result.Cycle = l.metrics.Cycles
	l.metrics.LastCycleTime = result.TimestampNs

	if l.metrics.SynthTimeAvg == 0 {
		l.metrics.SynthTimeAvg = synthTime
	} else {
		// Simple moving average
		l.metrics.SynthTimeAvg = (l.metrics.SynthTimeAvg + synthTime) / 2
	}
	if synthTime > l.metrics.SynthTimeMax {
		l.metrics.SynthTimeMax = synthTime
	}

	switch {
	case inputFailed:
		l.metrics.InputErrors++
	case result.TimedOut:
		l.metrics.Timeouts++
	case result.Error != nil:
		l.metrics.SampleErrors++
	}
	if result.Command.HasEvent() {
		l.metrics.Events++
	}

	l.lastCommand = result.Command
	l.lastTimeout = result.TimedOut
	l.lastErr = result.Error
	l.memory = l.synth.Memory()
}

// GetMetrics returns a copy of the current metrics
func (l *CommandLoop) GetMetrics() LoopMetrics {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.metrics
}

// Snapshot returns the loop's current status
func (l *CommandLoop) Snapshot() LoopSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := LoopSnapshot{
		RunID:       l.runID,
		Running:     l.running,
		Metrics:     l.metrics,
		LastCommand: l.lastCommand,
		LastTimeout: l.lastTimeout,
		Memory:      l.memory,
		Settings:    l.settings,
	}
	if l.lastErr != nil {
		snap.LastError = l.lastErr.Error()
	}
	return snap
}

// logMetrics logs the current metrics
func (l *CommandLoop) logMetrics() {
	metrics := l.GetMetrics()

	l.logger.Infof("command loop metrics: cycles=%d, timeouts=%d, sample_errors=%d, input_errors=%d, events=%d, avg_time=%dµs, max_time=%dµs",
		metrics.Cycles, metrics.Timeouts, metrics.SampleErrors, metrics.InputErrors,
		metrics.Events, metrics.SynthTimeAvg, metrics.SynthTimeMax)
}
