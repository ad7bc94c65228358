// Package tsm implements spec.md §4.5: a streaming, pitch-synchronous
// overlap-add time-scale modifier. It consumes raw per-channel PCM at one
// rate and emits resynthesized PCM at another, driven by an instantaneous
// speed that can change between every synthesis step.
package tsm

import (
	"math"

	"github.com/speedytsm/engine/dsp/core"
	"github.com/speedytsm/engine/dsp/interp"
	"github.com/speedytsm/engine/internal/ringbuf"
)

// State is the TSM engine's lifecycle stage, per spec.md §4.5.
type State int

const (
	Open State = iota
	Flushing
	Drained
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Flushing:
		return "flushing"
	case Drained:
		return "drained"
	default:
		return "unknown"
	}
}

const (
	defaultPitchWindowMs = 25.0
	identitySpeedEpsilon = 1e-3
	ringMargin           = 4
	defaultMinSpeed      = 0.1
	defaultMaxSpeed      = 8.0
)

// channel holds one channel's raw input and synthesized output buffers.
type channel struct {
	in     *ringbuf.Ring
	inBase int // absolute index of in's oldest buffered sample

	out *ringbuf.Ring
}

// Engine is the per-stream TSM state described in spec.md §4.5: input/output
// rings per channel, a shared pitch-period estimate, and the cursor driving
// pitch-synchronous synthesis steps.
type Engine struct {
	sampleRate float64
	channels   []channel

	pitch       *pitchDetector
	period      int
	pitchWinLen int

	cursor float64 // absolute fractional read position, shared across channels

	speed     float64
	pitchRate float64

	fadeIn, fadeOut []float64 // cached for the current period length

	state State

	totalInputSamples  float64
	totalOutputSamples float64
}

// New creates an Engine for the given sample rate and channel count.
func New(sampleRate float64, channels int) *Engine {
	if channels < 1 {
		channels = 1
	}
	pd := newPitchDetector(sampleRate)
	e := &Engine{
		sampleRate:  sampleRate,
		channels:    make([]channel, channels),
		pitch:       pd,
		period:      pd.fallback,
		pitchWinLen: int(math.Round(defaultPitchWindowMs * 0.001 * sampleRate)),
		speed:       1.0,
		pitchRate:   1.0,
	}
	for i := range e.channels {
		e.channels[i] = channel{
			in:  ringbuf.New(pd.maxLag * 4),
			out: ringbuf.New(pd.maxLag * 4),
		}
	}
	e.rebuildFadeTables()
	return e
}

// SetSpeed updates the instantaneous speed used by the next synthesis
// steps. It takes effect immediately, not on the next Write.
func (e *Engine) SetSpeed(s float64) {
	e.speed = core.Clamp(s, defaultMinSpeed, defaultMaxSpeed)
}

// SetRate updates the incidental pitch-rate knob of spec.md §6/SPEC_FULL §4.6.
func (e *Engine) SetRate(rate float64) {
	if rate > 0 {
		e.pitchRate = rate
	}
}

// State returns the engine's current lifecycle stage.
func (e *Engine) State() State { return e.state }

// TotalInputSamples returns the cumulative number of input samples the
// synthesis cursor has advanced over, per channel.
func (e *Engine) TotalInputSamples() float64 { return e.totalInputSamples }

// TotalOutputSamples returns the cumulative number of output samples
// produced, per channel.
func (e *Engine) TotalOutputSamples() float64 { return e.totalOutputSamples }

// WriteFloat appends interleaved multi-channel samples and opportunistically
// runs as many synthesis steps as the buffered input permits. It returns the
// number of input frames accepted (always len(interleaved)/channels while
// Open; 0 once Flushing or Drained).
func (e *Engine) WriteFloat(interleaved []float64) int {
	if e.state != Open {
		return 0
	}
	n := len(e.channels)
	frames := len(interleaved) / n
	if frames == 0 {
		return 0
	}
	for c := range e.channels {
		buf := make([]float64, frames)
		for i := 0; i < frames; i++ {
			buf[i] = interleaved[i*n+c]
		}
		e.channels[c].in.Push(buf)
	}

	for e.step() {
	}
	return frames
}

// Flush transitions the engine to Flushing and synthesizes periods until
// less than one pitch period of input remains, reading zeros past the end
// of the buffered input. That final tail is discarded rather than
// force-emitted, per spec.md §4.5. The engine becomes Drained once its
// output has also been read.
func (e *Engine) Flush() {
	if e.state == Open {
		e.state = Flushing
	}
	for e.step() {
	}
	e.maybeDrain()
}

// ReadFloat drains up to len(out)/channels interleaved frames from the
// per-channel output rings and returns the number of frames produced.
func (e *Engine) ReadFloat(out []float64) int {
	n := len(e.channels)
	maxFrames := len(out) / n
	if maxFrames == 0 {
		return 0
	}
	avail := e.SamplesAvailable()
	if avail < maxFrames {
		maxFrames = avail
	}
	for c := range e.channels {
		chunk := make([]float64, maxFrames)
		e.channels[c].out.Pop(chunk)
		for i := 0; i < maxFrames; i++ {
			out[i*n+c] = chunk[i]
		}
	}
	e.maybeDrain()
	return maxFrames
}

// SamplesAvailable returns the number of interleaved frames ready to read.
func (e *Engine) SamplesAvailable() int {
	if len(e.channels) == 0 {
		return 0
	}
	avail := e.channels[0].out.Len()
	for _, c := range e.channels[1:] {
		if c.out.Len() < avail {
			avail = c.out.Len()
		}
	}
	return avail
}

func (e *Engine) maybeDrain() {
	if e.state != Flushing {
		return
	}
	if e.SamplesAvailable() > 0 {
		return
	}
	for _, c := range e.channels {
		if float64(c.in.Len()+c.inBase)-e.cursor >= float64(e.period) {
			return
		}
	}
	e.state = Drained
}

// step attempts one pitch-synchronous synthesis step. It returns true if a
// step was taken, false if buffered input is insufficient to proceed.
func (e *Engine) step() bool {
	e.refreshPitch()

	p := e.period
	if p < 1 {
		p = 1
	}
	speed := e.speed
	rawAdvance := float64(p) * speed

	maxIntraOffset := float64(p-1) * e.pitchRate
	lookaheadNeeded := e.cursor + float64(p) + maxIntraOffset + 2
	if e.state == Flushing {
		// No more input will arrive: synthesize while at least one period
		// remains, reading zeros past the buffered end.
		lookaheadNeeded = e.cursor + float64(p)
	}
	for i := range e.channels {
		bufferedEnd := float64(e.channels[i].inBase + e.channels[i].in.Len())
		if bufferedEnd < lookaheadNeeded {
			return false
		}
	}

	if len(e.fadeIn) != p {
		e.rebuildFadeTables()
	}

	identity := math.Abs(speed-1) < identitySpeedEpsilon
	for i := range e.channels {
		ch := &e.channels[i]
		emitted := make([]float64, p)
		if identity {
			for k := 0; k < p; k++ {
				emitted[k] = e.sampleAt(ch, e.cursor+float64(k)*e.pitchRate)
			}
		} else {
			for k := 0; k < p; k++ {
				off := float64(k) * e.pitchRate
				a := e.sampleAt(ch, e.cursor+off)
				b := e.sampleAt(ch, e.cursor+float64(p)+off)
				emitted[k] = a*e.fadeOut[k] + b*e.fadeIn[k]
			}
		}
		ch.out.Push(emitted)
	}

	e.cursor += rawAdvance
	e.totalInputSamples += rawAdvance
	e.totalOutputSamples += float64(p)

	for i := range e.channels {
		e.dropConsumed(&e.channels[i])
	}
	return true
}

func (e *Engine) sampleAt(ch *channel, pos float64) float64 {
	idx := math.Floor(pos)
	frac := pos - idx
	base := int(idx) - ch.inBase
	xm1 := ch.in.At(base - 1)
	x0 := ch.in.At(base)
	x1 := ch.in.At(base + 1)
	x2 := ch.in.At(base + 2)
	return interp.Hermite4(frac, xm1, x0, x1, x2)
}

func (e *Engine) dropConsumed(ch *channel) {
	safe := int(math.Floor(e.cursor)) - ringMargin
	drop := safe - ch.inBase
	if drop > 0 {
		if drop > ch.in.Len() {
			drop = ch.in.Len()
		}
		ch.in.Drop(drop)
		ch.inBase += drop
	}
}

func (e *Engine) refreshPitch() {
	if len(e.channels) == 0 {
		return
	}
	primary := &e.channels[0]
	start := int(math.Floor(e.cursor)) - primary.inBase
	window := make([]float64, e.pitchWinLen)
	for i := range window {
		window[i] = primary.in.At(start + i)
	}
	e.period = e.pitch.estimate(window)
}

func (e *Engine) rebuildFadeTables() {
	n := e.period
	if n < 1 {
		n = 1
	}
	e.fadeIn = make([]float64, n)
	e.fadeOut = make([]float64, n)
	if n == 1 {
		e.fadeIn[0] = 1
		e.fadeOut[0] = 0
		return
	}
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n-1)
		in := 0.5 - 0.5*math.Cos(math.Pi*t)
		e.fadeIn[i] = in
		e.fadeOut[i] = 1 - in
	}
}
