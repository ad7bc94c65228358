// Package speedctrl implements spec.md §4.4: the mapping from a per-frame
// tension score to an instantaneous TSM speed, including the nonlinear
// blend against uniform speedup and a duration-feedback drift correction.
package speedctrl

import (
	"math"

	"github.com/speedytsm/engine/dsp/core"
)

// Config holds the tunables reachable through speedy's live setters
// (Rg, λ, feedback) plus the frame stride used by the drift accumulator.
// The speed clamps of spec.md §4.4 are computed in SpeedFor, not stored here.
type Config struct {
	Rg       float64
	Lambda   float64
	Feedback float64

	// FrameStepSamples is S, the frame slicer's input stride (spec.md
	// §4.1: SR/100). Each SpeedFor call represents one frame's worth of
	// input, so the expected-output side of the drift accumulator
	// integrates FrameStepSamples/s_eff rather than bare 1/s_eff.
	FrameStepSamples float64
}

// DefaultConfig returns the "linear mode" starting point: Rg=1, λ=0
// (uniform scaling), feedback at its documented default of 0.1.
func DefaultConfig(frameStepSamples float64) Config {
	return Config{Rg: 1.0, Lambda: 0.0, Feedback: 0.1, FrameStepSamples: frameStepSamples}
}

// Controller tracks Rg/λ/feedback plus the drift accumulator described in
// spec.md §4.4 ("the expected output is maintained by integrating 1/s
// over the input frames processed so far").
type Controller struct {
	cfg Config

	expectedOutputSamples float64
	actualOutputSamples   float64
}

// New creates a Controller with the given starting configuration.
func New(cfg Config) *Controller {
	return &Controller{cfg: cfg}
}

// SetRg updates the target global speedup ratio.
func (c *Controller) SetRg(rg float64) { c.cfg.Rg = rg }

// Rg returns the current target global speedup ratio.
func (c *Controller) Rg() float64 { return c.cfg.Rg }

// SetLambda updates the nonlinear blend factor λ.
func (c *Controller) SetLambda(lambda float64) { c.cfg.Lambda = lambda }

// SetFeedback updates the duration-feedback strength.
func (c *Controller) SetFeedback(feedback float64) { c.cfg.Feedback = feedback }

// SpeedFor computes s_eff for tension t per spec.md §4.4:
//
//	s_linear = Rg * (0.5 + t)
//	s        = clamp(s_linear, 0.5, max(Rg*4, 4.0))
//	s       *= (1 + feedback * drift_normalized)
//	s_eff    = λ*s + (1-λ)*Rg
//
// It also advances the drift accumulator's expected side by integrating
// 1/s_eff over this frame, so the next call's drift_normalized reflects
// this frame's contribution.
func (c *Controller) SpeedFor(t float64) float64 {
	rg := c.cfg.Rg

	sLinear := rg * (0.5 + t)
	upperBound := math.Max(rg*4, 4.0)
	s := core.Clamp(sLinear, 0.5, upperBound)

	driftNormalized := c.driftNormalized()
	s *= 1 + c.cfg.Feedback*driftNormalized

	sEff := c.cfg.Lambda*s + (1-c.cfg.Lambda)*rg

	if sEff > 0 {
		c.expectedOutputSamples += c.cfg.FrameStepSamples / sEff
	}

	return sEff
}

// RecordOutputSamples tells the controller how many output samples the
// TSM engine actually produced for the most recent frame, closing the
// feedback loop that SpeedFor's drift term reads next call.
func (c *Controller) RecordOutputSamples(n float64) {
	c.actualOutputSamples += n
}

func (c *Controller) driftNormalized() float64 {
	if c.expectedOutputSamples == 0 {
		return 0
	}
	drift := (c.expectedOutputSamples - c.actualOutputSamples) / c.expectedOutputSamples
	return core.Clamp(drift, -1, 1)
}
