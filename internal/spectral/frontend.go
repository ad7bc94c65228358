// Package spectral implements spec.md §4.2: a real-FFT front end that
// turns each frame slicer window into a magnitude spectrum plus the
// derived scalars the tension estimator consumes.
package spectral

import (
	"fmt"
	"math"

	"github.com/speedytsm/engine/dsp/spectrum"
	"github.com/speedytsm/engine/internal/fft"
	"github.com/speedytsm/engine/internal/frameslicer"
)

const (
	// speechBandLowHz/speechBandHighHz bound the band the speech score is
	// computed over — the classic telephone-band approximation of where
	// voiced speech energy concentrates.
	speechBandLowHz  = 300.0
	speechBandHighHz = 3400.0

	// lowBandCutoffHz is B_lo from spec.md §4.2 ("~1 kHz").
	lowBandCutoffHz = 1000.0

	defaultBinThresholdDivisor = 100.0
)

// Spectrum holds one frame's derived spectral scalars, per spec.md §3.
type Spectrum struct {
	Magnitudes  []float64
	Energy      float64
	LowEnergy   float64
	SpeechScore float64
	FrameIndex  int
}

// Frontend wraps a fixed-size real FFT and the bin-band geometry derived
// from the sample rate.
type Frontend struct {
	sampleRate          float64
	fft                 *fft.RealFFT
	binThresholdDivisor float64

	loBandEnd     int // exclusive bin index for ~1kHz cutoff
	speechBandLo  int
	speechBandHi  int // exclusive

	scratch []complex128
}

// Option configures a Frontend at construction.
type Option func(*Frontend)

// WithBinThresholdDivisor overrides D, the per-frame active-bin threshold
// divisor (spec.md §6, default 100).
func WithBinThresholdDivisor(d float64) Option {
	return func(f *Frontend) {
		if d > 0 {
			f.binThresholdDivisor = d
		}
	}
}

// New creates a Frontend for frames of length n at the given sample rate.
func New(sampleRate float64, n int, opts ...Option) (*Frontend, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("spectral: sample rate must be > 0: %f", sampleRate)
	}

	transform, err := fft.New(n)
	if err != nil {
		return nil, fmt.Errorf("spectral: %w", err)
	}

	f := &Frontend{
		sampleRate:          sampleRate,
		fft:                 transform,
		binThresholdDivisor: defaultBinThresholdDivisor,
		scratch:             make([]complex128, transform.Bins()),
	}
	for _, opt := range opts {
		opt(f)
	}

	binHz := sampleRate / float64(transform.Size())
	f.loBandEnd = clampBin(int(lowBandCutoffHz/binHz+0.5), transform.Bins())
	f.speechBandLo = clampBin(int(speechBandLowHz/binHz+0.5), transform.Bins())
	f.speechBandHi = clampBin(int(speechBandHighHz/binHz+0.5), transform.Bins())
	if f.speechBandHi <= f.speechBandLo {
		f.speechBandHi = transform.Bins()
	}

	return f, nil
}

func clampBin(k, bins int) int {
	if k < 0 {
		return 0
	}
	if k > bins {
		return bins
	}
	return k
}

// Bins returns the number of one-sided magnitude bins produced per frame.
func (f *Frontend) Bins() int { return f.fft.Bins() }

// Analyze computes the Spectrum for a single frame.
func (f *Frontend) Analyze(frame frameslicer.Frame) (Spectrum, error) {
	if err := f.fft.Forward(f.scratch, frame.Samples); err != nil {
		return Spectrum{}, fmt.Errorf("spectral: %w", err)
	}

	mags := spectrum.Magnitude(f.scratch)
	power := spectrum.Power(f.scratch)

	var energy, lowEnergy float64
	for k, p := range power {
		energy += p
		if k < f.loBandEnd {
			lowEnergy += p
		}
	}

	threshold := energy / f.binThresholdDivisor

	// Speech score: the energy-weighted fraction of active bins within
	// the speech band (sum over active in-band bins of their share of
	// total frame energy), discounted by how flat that band's spectrum
	// is. Voiced speech concentrates energy in a few harmonics — low
	// flatness; broadband noise in the same band spreads it evenly —
	// high flatness. spectralFlatness (Wiener entropy, 0..1) supplies that
	// discount directly rather than a hand-rolled measure.
	var activeMass float64
	if energy > 0 {
		for k := f.speechBandLo; k < f.speechBandHi; k++ {
			if power[k] > threshold {
				activeMass += power[k] / energy
			}
		}
	}
	bandFlatness := spectralFlatness(mags[f.speechBandLo:f.speechBandHi])
	speechScore := activeMass * (1 - bandFlatness)

	return Spectrum{
		Magnitudes:  mags,
		Energy:      energy,
		LowEnergy:   lowEnergy,
		SpeechScore: speechScore,
		FrameIndex:  frame.Index,
	}, nil
}

// spectralFlatness returns the Wiener entropy of a magnitude band: the ratio
// of the geometric mean to the arithmetic mean, in 0..1. A tonal band with a
// few dominant harmonics scores low; broadband noise spread evenly across
// the band scores close to 1. The lowest bin in the slice is excluded (the
// convention that skips the DC bin when a slice starts at bin 0).
func spectralFlatness(magnitude []float64) float64 {
	n := len(magnitude)
	if n < 2 {
		return 0
	}

	nBins := n - 1
	var sumLin, sumLog float64
	hasZero := false

	for _, v := range magnitude[1:] {
		sumLin += v
		if v > 0 {
			sumLog += math.Log(v)
		} else {
			hasZero = true
		}
	}

	meanLin := sumLin / float64(nBins)
	if meanLin == 0 || hasZero {
		return 0
	}

	geoMean := math.Exp(sumLog / float64(nBins))
	return geoMean / meanLin
}
