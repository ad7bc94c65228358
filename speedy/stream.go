package speedy

import (
	"fmt"
	"sync/atomic"

	"github.com/speedytsm/engine/internal/frameslicer"
	"github.com/speedytsm/engine/internal/spectral"
	"github.com/speedytsm/engine/internal/speedctrl"
	"github.com/speedytsm/engine/internal/tension"
	"github.com/speedytsm/engine/internal/tsm"
)

// FrameRate returns the fixed Analyzer frame rate, 100 Hz.
func FrameRate() float64 { return 100.0 }

// FFTSize returns N = 2*round(1.5*SR/100), the frame slicer's window size
// (and the spectral front-end's analysis-frame length) for sampleRate.
func FFTSize(sampleRate float64) int { return frameslicer.FrameSize(sampleRate) }

// Stream is one logical conversation through the engine: an Analyzer
// pipeline (Frame Slicer → Spectral Front-End → Tension Estimator →
// Speed Controller) driving a TSM Engine. It owns every buffer it
// allocates; nothing aliases caller memory after a call returns.
type Stream struct {
	channels int

	slicer     *frameslicer.Slicer
	frontend   *spectral.Frontend
	estimator  *tension.Estimator
	controller *speedctrl.Controller
	engine     *tsm.Engine

	nextPendingFrame   int
	lastRecordedOutput float64

	observer SpeedObserver
	profile  []SpeedPoint

	closed bool
	inCall uint32
}

// NewStream creates a Stream for sampleRate and numChannels, applying opts
// over the documented defaults. Construction validates every bound spec.md
// §7 assigns to InvalidConfiguration.
func NewStream(sampleRate float64, numChannels int, opts ...Option) (*Stream, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be > 0, got %v", ErrInvalidConfiguration, sampleRate)
	}
	if numChannels <= 0 {
		return nil, fmt.Errorf("%w: channels must be > 0, got %d", ErrInvalidConfiguration, numChannels)
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Preemphasis < 0 || cfg.Preemphasis >= 1 {
		return nil, fmt.Errorf("%w: preemphasis must be in [0,1), got %v", ErrInvalidConfiguration, cfg.Preemphasis)
	}
	if cfg.HysteresisPast < 0 || cfg.HysteresisFuture < 0 {
		return nil, fmt.Errorf("%w: hysteresis window must be non-negative", ErrInvalidConfiguration)
	}

	slicer, err := frameslicer.New(sampleRate, numChannels, frameslicer.WithPreemphasis(cfg.Preemphasis))
	if err != nil {
		return nil, fmt.Errorf("speedy: %w", err)
	}

	frontend, err := spectral.New(sampleRate, slicer.FrameSize(), spectral.WithBinThresholdDivisor(cfg.BinThresholdDivisor))
	if err != nil {
		return nil, fmt.Errorf("speedy: %w", err)
	}

	estimator := tension.New(
		tension.WithHysteresis(cfg.HysteresisPast, cfg.HysteresisFuture),
		tension.WithLowEnergyThresholdScale(cfg.LowEnergyThresholdScale),
		tension.WithSpeechChangeCapMultiplier(cfg.SpeechChangeCapMultiplier),
		tension.WithTensionWeights(cfg.TensionWeightE, cfg.TensionWeightP),
		tension.WithTensionOffsets(cfg.TensionOffsetE, cfg.TensionOffsetP),
	)

	controller := speedctrl.New(speedctrl.DefaultConfig(float64(slicer.StepSize())))
	engine := tsm.New(sampleRate, numChannels)

	return &Stream{
		channels:   numChannels,
		slicer:     slicer,
		frontend:   frontend,
		estimator:  estimator,
		controller: controller,
		engine:     engine,
	}, nil
}

// Close destroys the stream. After Close, WriteFloat, WriteInt16,
// SetSpeed, SetRate, EnableNonlinear and SetDurationFeedback return
// ErrInvalidState and Flush does nothing. ReadFloat, ReadInt16,
// SamplesAvailable, Speed, EnableSpeedCallback and DrainSpeedProfile do
// not check for Close and keep working on the stream's buffered state.
func (s *Stream) Close() {
	s.closed = true
}

// enter is the reentrancy guard of spec.md §5: a Stream is not re-entrant,
// and concurrent or recursive invocation (e.g. from a SpeedObserver
// callback calling back into the stream that invoked it) is a contract
// violation, not a race to be locked away.
func (s *Stream) enter() func() {
	if !atomic.CompareAndSwapUint32(&s.inCall, 0, 1) {
		panic("speedy: reentrant call into Stream")
	}
	return func() { atomic.StoreUint32(&s.inCall, 0) }
}

// SetSpeed updates the target global speedup ratio Rg. Valid range is
// [0.5, 4.0] per spec.md §7.
func (s *Stream) SetSpeed(rg float64) error {
	defer s.enter()()
	if s.closed {
		return ErrInvalidState
	}
	if rg < 0.5 || rg > 4.0 {
		return fmt.Errorf("%w: Rg must be in [0.5, 4.0], got %v", ErrInvalidConfiguration, rg)
	}
	s.controller.SetRg(rg)
	return nil
}

// Speed returns the current target global speedup ratio Rg.
func (s *Stream) Speed() float64 {
	return s.controller.Rg()
}

// SetRate updates the incidental pitch-rate knob of spec.md §4.6/§6.
func (s *Stream) SetRate(pitchRate float64) error {
	defer s.enter()()
	if s.closed {
		return ErrInvalidState
	}
	if pitchRate <= 0 {
		return fmt.Errorf("%w: pitch rate must be > 0, got %v", ErrInvalidConfiguration, pitchRate)
	}
	s.engine.SetRate(pitchRate)
	return nil
}

// EnableNonlinear sets λ, the blend between tension-driven speed (λ=1)
// and uniform scaling at Rg (λ=0).
func (s *Stream) EnableNonlinear(lambda float64) error {
	defer s.enter()()
	if s.closed {
		return ErrInvalidState
	}
	if lambda < 0 || lambda > 1 {
		return fmt.Errorf("%w: lambda must be in [0,1], got %v", ErrInvalidConfiguration, lambda)
	}
	s.controller.SetLambda(lambda)
	return nil
}

// SetDurationFeedback sets the drift-feedback strength.
func (s *Stream) SetDurationFeedback(feedback float64) error {
	defer s.enter()()
	if s.closed {
		return ErrInvalidState
	}
	if feedback < 0 || feedback > 0.5 {
		return fmt.Errorf("%w: feedback must be in [0, 0.5], got %v", ErrInvalidConfiguration, feedback)
	}
	s.controller.SetFeedback(feedback)
	return nil
}

// EnableSpeedCallback registers observer to receive every speed profile
// point inline, in addition to it being retained for DrainSpeedProfile.
func (s *Stream) EnableSpeedCallback(observer SpeedObserver) {
	defer s.enter()()
	s.observer = observer
}

// SamplesAvailable returns the number of interleaved output frames ready
// to read without blocking.
func (s *Stream) SamplesAvailable() int {
	defer s.enter()()
	return s.engine.SamplesAvailable()
}
