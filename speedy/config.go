package speedy

// Config groups the Analyzer tunables of spec.md §6 into a single
// immutable record applied at NewStream time, per the DESIGN NOTES
// recommendation against scattering setters for things that aren't live
// controls. The live controls (Rg, λ, feedback, pitch rate) are plain
// Stream setter methods instead.
type Config struct {
	Preemphasis               float64
	LowEnergyThresholdScale   float64
	BinThresholdDivisor       float64
	TensionWeightE            float64
	TensionWeightP            float64
	TensionOffsetE            float64
	TensionOffsetP            float64
	SpeechChangeCapMultiplier float64
	HysteresisPast            int
	HysteresisFuture          int
}

// Option mutates a Config at NewStream time.
type Option func(*Config)

// defaultConfig mirrors the defaults of internal/frameslicer, internal/spectral,
// and internal/tension so that omitting every Option reproduces their own
// zero-configuration behavior exactly.
func defaultConfig() Config {
	return Config{
		Preemphasis:               0.97,
		LowEnergyThresholdScale:   0.04,
		BinThresholdDivisor:       100.0,
		TensionWeightE:            0.5,
		TensionWeightP:            0.25,
		TensionOffsetE:            0.7,
		TensionOffsetP:            1.0,
		SpeechChangeCapMultiplier: 4.0,
		HysteresisPast:            8,
		HysteresisFuture:          12,
	}
}

// WithPreemphasis overrides the frame slicer's pre-emphasis coefficient α.
func WithPreemphasis(alpha float64) Option {
	return func(c *Config) { c.Preemphasis = alpha }
}

// WithLowEnergyThresholdScale overrides the tension estimator's ΔE
// normalization scale.
func WithLowEnergyThresholdScale(scale float64) Option {
	return func(c *Config) { c.LowEnergyThresholdScale = scale }
}

// WithBinThresholdDivisor overrides D, the spectral front-end's per-frame
// active-bin threshold divisor.
func WithBinThresholdDivisor(divisor float64) Option {
	return func(c *Config) { c.BinThresholdDivisor = divisor }
}

// WithTensionWeights overrides w_E and w_P.
func WithTensionWeights(weightE, weightP float64) Option {
	return func(c *Config) { c.TensionWeightE, c.TensionWeightP = weightE, weightP }
}

// WithTensionOffsets overrides o_E and o_P.
func WithTensionOffsets(offsetE, offsetP float64) Option {
	return func(c *Config) { c.TensionOffsetE, c.TensionOffsetP = offsetE, offsetP }
}

// WithSpeechChangeCapMultiplier overrides the ΔP clip multiplier.
func WithSpeechChangeCapMultiplier(mult float64) Option {
	return func(c *Config) { c.SpeechChangeCapMultiplier = mult }
}

// WithHysteresis overrides K_past/K_future. The legacy (12, 8) swap is
// reachable through this same option, not a second code path.
func WithHysteresis(past, future int) Option {
	return func(c *Config) { c.HysteresisPast, c.HysteresisFuture = past, future }
}
