// Package fft adapts a general-purpose complex FFT backend to the
// minimal real-FFT interface the spectral front-end needs: a forward
// transform of a size-N real frame that yields one-sided complex bins.
// This is the one extension point spec.md calls out explicitly — any
// library capable of "forward_real(input[N]) -> complex[N/2+1]" can sit
// behind it; the concrete choice here is algo-fft, grounded on how the
// teacher's dsp/conv streaming convolvers drive algofft.Plan. algofft
// plans are power-of-two only, so frames are zero-padded up to the next
// power of two before transforming, the same way dsp/conv/overlap_add.go
// pads its kernel and input blocks.
package fft

import (
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// RealFFT computes one-sided real FFTs of frames of a fixed length,
// internally zero-padded to the next power of two.
type RealFFT struct {
	frameLen int
	fftSize  int
	plan     *algofft.Plan[complex128]
	scratch  []complex128
}

// New creates a RealFFT for input frames of length n. The transform is
// carried out at nextPowerOf2(n); Size/Bins report that padded length.
func New(n int) (*RealFFT, error) {
	if n <= 0 {
		return nil, fmt.Errorf("fft: size must be > 0: %d", n)
	}
	fftSize := nextPowerOf2(n)
	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("fft: failed to create plan: %w", err)
	}
	return &RealFFT{
		frameLen: n,
		fftSize:  fftSize,
		plan:     plan,
		scratch:  make([]complex128, fftSize),
	}, nil
}

// FrameLen returns the expected input length n passed to New.
func (f *RealFFT) FrameLen() int { return f.frameLen }

// Size returns the zero-padded transform length actually used.
func (f *RealFFT) Size() int { return f.fftSize }

// Bins returns the number of one-sided bins this transform produces
// (Size()/2).
func (f *RealFFT) Bins() int { return f.fftSize / 2 }

// Forward computes the one-sided spectrum of a real, length-FrameLen()
// input into dst, which must have length Bins(). The input is
// zero-padded to Size() before transforming. Only the first Size()/2
// bins are written; the Nyquist bin and the redundant conjugate half are
// dropped, per spec.md §4.2 ("magnitude spectrum of N/2 bins").
func (f *RealFFT) Forward(dst []complex128, input []float64) error {
	if len(input) != f.frameLen {
		return fmt.Errorf("fft: expected %d input samples, got %d", f.frameLen, len(input))
	}
	if len(dst) != f.Bins() {
		return fmt.Errorf("fft: expected %d output bins, got %d", f.Bins(), len(dst))
	}

	for i, v := range input {
		f.scratch[i] = complex(v, 0)
	}
	for i := len(input); i < f.fftSize; i++ {
		f.scratch[i] = 0
	}

	if err := f.plan.Forward(f.scratch, f.scratch); err != nil {
		return fmt.Errorf("fft: forward transform failed: %w", err)
	}

	copy(dst, f.scratch[:f.Bins()])
	return nil
}

func nextPowerOf2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p *= 2
	}
	return p
}
