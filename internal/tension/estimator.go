// Package tension implements spec.md §4.3: a ±K-frame hysteresis window
// that smooths per-frame spectral features into a tension score t in
// [0,1]. Higher tension means more vowel-like, lower-information content
// that the speed controller is free to compress harder.
package tension

import (
	"errors"
	"math"

	"github.com/speedytsm/engine/dsp/core"
	timestats "github.com/speedytsm/engine/stats/time"

	"github.com/speedytsm/engine/internal/spectral"
)

// ErrNotYetAvailable marks a tension query for a frame whose hysteresis
// window (f-K_past..f+K_future) hasn't fully arrived yet. Internal only —
// speedy never surfaces it, it just reads TryTension's bool.
var ErrNotYetAvailable = errors.New("tension: frame not yet finalizable")

// Value is one finalized tension score, per spec.md §3.
type Value struct {
	FrameIndex int
	Tension    float64
}

// Config holds the tunables of spec.md §4.3/§6.
type Config struct {
	KPast, KFuture            int
	LowEnergyScale            float64
	Epsilon                   float64
	SpeechChangeCapMultiplier float64
	WeightE, WeightP          float64
	OffsetE, OffsetP          float64
}

// DefaultConfig returns the lookahead-dominant defaults of spec.md §4.3/§6.
func DefaultConfig() Config {
	return Config{
		KPast:                     8,
		KFuture:                   12,
		LowEnergyScale:            0.04,
		Epsilon:                   1e-9,
		SpeechChangeCapMultiplier: 4.0,
		WeightE:                   0.5,
		WeightP:                   0.25,
		OffsetE:                   0.7,
		OffsetP:                   1.0,
	}
}

// Option configures an Estimator at construction.
type Option func(*Config)

// WithHysteresis overrides K_past/K_future. The legacy (12, 8) swap exists
// as a compatibility toggle, not a second code path — it's just a
// different Config value through the same formula.
func WithHysteresis(past, future int) Option {
	return func(c *Config) {
		if past >= 0 && future >= 0 {
			c.KPast, c.KFuture = past, future
		}
	}
}

// WithLowEnergyThresholdScale overrides the ΔE normalization scale.
func WithLowEnergyThresholdScale(scale float64) Option {
	return func(c *Config) {
		if scale > 0 {
			c.LowEnergyScale = scale
		}
	}
}

// WithSpeechChangeCapMultiplier overrides the ΔP clip multiplier.
func WithSpeechChangeCapMultiplier(mult float64) Option {
	return func(c *Config) {
		if mult > 0 {
			c.SpeechChangeCapMultiplier = mult
		}
	}
}

// WithTensionWeights overrides w_E and w_P.
func WithTensionWeights(weightE, weightP float64) Option {
	return func(c *Config) {
		c.WeightE, c.WeightP = weightE, weightP
	}
}

// WithTensionOffsets overrides o_E and o_P.
func WithTensionOffsets(offsetE, offsetP float64) Option {
	return func(c *Config) {
		c.OffsetE, c.OffsetP = offsetE, offsetP
	}
}

// Estimator is the stateful hysteresis-window tension computation of
// spec.md §4.3. It holds a fixed-capacity ring of the last K_past+K_future+1
// spectra, indexed by frame number modulo capacity — the same cyclic slot
// arithmetic internal/ringbuf uses for samples, specialized here to whole
// Spectrum values instead of float64s.
type Estimator struct {
	cfg Config
	cap int

	buf         []spectral.Spectrum
	have        []bool
	latestFrame int
	count       int
}

// New creates an Estimator with the given options applied over defaults.
func New(opts ...Option) *Estimator {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	capacity := cfg.KPast + cfg.KFuture + 1
	return &Estimator{
		cfg:         cfg,
		cap:         capacity,
		buf:         make([]spectral.Spectrum, capacity),
		have:        make([]bool, capacity),
		latestFrame: -1,
	}
}

// Update records the spectrum for frame f. f must be the next frame after
// the last one passed to Update (monotonically increasing from 0).
func (e *Estimator) Update(s spectral.Spectrum, f int) {
	slot := f % e.cap
	e.buf[slot] = s
	e.have[slot] = true
	e.latestFrame = f
	if e.count < e.cap {
		e.count++
	}
}

// TryTension returns the finalized tension for frame f once frame
// f+K_future has arrived. It returns false if the window for f isn't
// finalizable yet, or if later updates have already evicted part of it
// from the ring; shortened trailing windows are handled by TryFinalTension.
func (e *Estimator) TryTension(f int) (float64, bool) {
	t, err := e.compute(f)
	if err != nil {
		return 0, false
	}
	return t, true
}

// TryFinalTension finalizes frame f using whatever frames up to the last
// Update'd frame are available, even fewer than K_future of them. Callers
// use this only once no further frames will ever arrive (after a
// stream-level flush), per spec.md §4.3's "flushed out with K_future
// shortened to what is actually available".
func (e *Estimator) TryFinalTension(f int) (float64, bool) {
	if e.latestFrame < 0 || f > e.latestFrame {
		return 0, false
	}
	t, err := e.windowTension(f, e.latestFrame)
	if err != nil {
		return 0, false
	}
	return t, true
}

func (e *Estimator) compute(f int) (float64, error) {
	if e.latestFrame < 0 || f > e.latestFrame-e.cfg.KFuture {
		return 0, ErrNotYetAvailable
	}
	return e.windowTension(f, f+e.cfg.KFuture)
}

func (e *Estimator) windowTension(f, hiRequested int) (float64, error) {
	lo := f - e.cfg.KPast
	if lo < 0 {
		lo = 0
	}
	hi := hiRequested
	if hi > e.latestFrame {
		hi = e.latestFrame
	}

	// Window entries older than (latestFrame - cap) have been overwritten
	// by newer updates; a caller that polls promptly after each Update
	// never hits this.
	oldestLive := e.latestFrame - e.cap + 1
	if lo < oldestLive {
		return 0, ErrNotYetAvailable
	}

	var energies, speechScores []float64
	var target spectral.Spectrum
	foundTarget := false
	for idx := lo; idx <= hi; idx++ {
		slot := idx % e.cap
		if !e.have[slot] {
			return 0, ErrNotYetAvailable
		}
		s := e.buf[slot]
		energies = append(energies, s.Energy)
		speechScores = append(speechScores, s.SpeechScore)
		if idx == f {
			target = s
			foundTarget = true
		}
	}
	if !foundTarget {
		return 0, ErrNotYetAvailable
	}

	energyStats := timestats.Calculate(energies)
	speechStats := timestats.Calculate(speechScores)

	deltaE := (target.Energy - energyStats.DC) / (e.cfg.LowEnergyScale*energyStats.Max + e.cfg.Epsilon)
	deltaE = core.Clamp(deltaE, -1, 1)

	sigmaP := math.Sqrt(speechStats.Variance)
	deltaP := target.SpeechScore - speechStats.DC
	deltaPCap := e.cfg.SpeechChangeCapMultiplier * sigmaP
	deltaP = core.Clamp(deltaP, -deltaPCap, deltaPCap)

	t := e.cfg.WeightE*(deltaE-e.cfg.OffsetE) + e.cfg.WeightP*(deltaP-e.cfg.OffsetP) + 0.5
	return core.Clamp(t, 0, 1), nil
}
