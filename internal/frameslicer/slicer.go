// Package frameslicer implements spec.md §4.1: a sliding-window framer
// that turns a continuous mono PCM stream into fixed-size, pre-emphasized,
// Hann-windowed frames at a fixed analysis rate.
package frameslicer

import (
	"fmt"
	"math"

	"github.com/speedytsm/engine/internal/ringbuf"
)

const analysisRateHz = 100

// FrameSize returns N = 2*round(1.5*SR/100) for the given sample rate.
func FrameSize(sampleRate float64) int {
	step := sampleRate / analysisRateHz
	return 2 * int(round(1.5*step))
}

// Step returns S = SR/100, the frame advance in samples.
func Step(sampleRate float64) int {
	return int(round(sampleRate / analysisRateHz))
}

func round(v float64) float64 {
	if v < 0 {
		return float64(int(v - 0.5))
	}
	return float64(int(v + 0.5))
}

// Frame is an immutable pre-emphasized, windowed window of N samples.
type Frame struct {
	Samples []float64
	Index   int
}

// Slicer maintains the sliding window described in spec.md §4.1.
type Slicer struct {
	channels int
	n        int
	step     int
	alpha    float64

	preState float64 // pre-emphasis x[n-1], persists across Push calls
	coeffs   []float64
	ring     *ringbuf.Ring

	nextIndex int
	flushed   bool
}

// Option configures a Slicer at construction.
type Option func(*Slicer)

// WithPreemphasis overrides the default pre-emphasis coefficient alpha.
func WithPreemphasis(alpha float64) Option {
	return func(s *Slicer) {
		if alpha >= 0 && alpha < 1 {
			s.alpha = alpha
		}
	}
}

// New creates a Slicer for a stream of the given sample rate and channel
// count. N and S are derived per spec.md §4.1.
func New(sampleRate float64, channels int, opts ...Option) (*Slicer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("frameslicer: sample rate must be > 0: %f", sampleRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("frameslicer: channels must be > 0: %d", channels)
	}

	n := FrameSize(sampleRate)
	step := Step(sampleRate)
	if n <= 0 || step <= 0 {
		return nil, fmt.Errorf("frameslicer: degenerate frame geometry for sample rate %f", sampleRate)
	}

	s := &Slicer{
		channels: channels,
		n:        n,
		step:     step,
		alpha:    0.97,
		ring:     ringbuf.New(n * 2),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.coeffs = periodicHann(n)
	return s, nil
}

// periodicHann returns n periodic-form Hann coefficients: w[i] = 0.5 -
// 0.5*cos(2*pi*i/n). Periodic (as opposed to symmetric) form divides by n
// rather than n-1, which is the convention FFT analysis windows use.
func periodicHann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// FrameSize returns N for this slicer.
func (s *Slicer) FrameSize() int { return s.n }

// StepSize returns S for this slicer.
func (s *Slicer) StepSize() int { return s.step }

// Push accepts interleaved multi-channel samples, mixes down to mono by
// per-sample averaging, applies the persistent first-order pre-emphasis
// filter y[n] = x[n] - alpha*x[n-1], and buffers the result for framing.
func (s *Slicer) Push(interleaved []float64) {
	if len(interleaved) == 0 {
		return
	}

	frames := len(interleaved) / s.channels
	mono := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		base := i * s.channels
		for c := 0; c < s.channels; c++ {
			sum += interleaved[base+c]
		}
		x := sum / float64(s.channels)
		mono[i] = x - s.alpha*s.preState
		s.preState = x
	}
	s.ring.Push(mono)
}

// TryFrame produces the next frame if at least N samples are buffered
// past the current read cursor, advancing the cursor by S (not N).
func (s *Slicer) TryFrame() (Frame, bool) {
	if s.ring.Len() < s.n {
		return Frame{}, false
	}
	return s.emit(), true
}

// Flush zero-pads any remaining tail shorter than N and emits one final
// frame, ensuring the analyzer sees the last step's worth of real data.
// It returns false once the tail has already been flushed.
func (s *Slicer) Flush() (Frame, bool) {
	if s.flushed {
		return Frame{}, false
	}
	s.flushed = true
	if s.ring.Len() == 0 {
		return Frame{}, false
	}
	if s.ring.Len() < s.n {
		s.ring.PushZeros(s.n - s.ring.Len())
	}
	return s.emit(), true
}

func (s *Slicer) emit() Frame {
	raw := make([]float64, s.n)
	s.ring.Peek(raw)

	windowed := make([]float64, s.n)
	for i := range raw {
		windowed[i] = raw[i] * s.coeffs[i]
	}

	f := Frame{Samples: windowed, Index: s.nextIndex}
	s.nextIndex++
	s.ring.Drop(s.step)
	return f
}
