// Package ringbuf provides a growable circular float64 sample buffer.
//
// Ring is the shared building block behind the frame slicer's input window
// and the TSM engine's per-channel input/output buffers. It grows its
// backing array geometrically on overflow rather than failing outright,
// mirroring the teacher library's delay line (index arithmetic) and its
// streaming convolvers (tail/overlap bookkeeping across Push calls).
package ringbuf

import "github.com/speedytsm/engine/dsp/core"

// Ring is a circular buffer of float64 samples with separate logical
// read and write cursors. Unlike a fixed-size delay line, Ring tracks how
// many samples are currently buffered so callers can drain exactly what
// was written.
type Ring struct {
	buf   []float64
	head  int // index of the oldest buffered sample
	count int // number of valid samples currently buffered

	zeroScratch []float64 // reused by PushZeros across calls
}

// New returns an empty Ring with at least the given initial capacity.
func New(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{buf: make([]float64, capacity)}
}

// Len returns the number of samples currently buffered.
func (r *Ring) Len() int { return r.count }

// Cap returns the current backing capacity.
func (r *Ring) Cap() int { return len(r.buf) }

// Free returns how many samples can be pushed before growth is needed.
func (r *Ring) Free() int { return len(r.buf) - r.count }

// Push appends samples to the tail of the ring, growing the backing array
// if necessary. Growth means Push never short-writes; callers that want
// bounded memory should check Free/Cap themselves before calling Push.
func (r *Ring) Push(samples []float64) {
	if len(samples) == 0 {
		return
	}
	if len(samples) > r.Free() {
		r.grow(r.count + len(samples))
	}
	tail := (r.head + r.count) % len(r.buf)
	n := core.CopyInto(r.buf[tail:], samples)
	if n < len(samples) {
		core.CopyInto(r.buf, samples[n:])
	}
	r.count += len(samples)
}

// PushZeros appends n zero samples to the tail.
func (r *Ring) PushZeros(n int) {
	if n <= 0 {
		return
	}
	r.zeroScratch = core.EnsureLen(r.zeroScratch, n)
	core.Zero(r.zeroScratch)
	r.Push(r.zeroScratch)
}

// At returns the sample at logical offset i from the head (0 = oldest
// buffered sample). Out-of-range offsets return 0, matching the teacher's
// delay line convention of saturating rather than panicking on bad reads.
func (r *Ring) At(i int) float64 {
	if i < 0 || i >= r.count {
		return 0
	}
	return r.buf[(r.head+i)%len(r.buf)]
}

// Peek copies up to len(dst) samples starting at logical offset 0 into dst
// without consuming them. It returns the number of samples copied.
func (r *Ring) Peek(dst []float64) int {
	n := len(dst)
	if n > r.count {
		n = r.count
	}
	if n == 0 {
		return 0
	}
	firstLen := len(r.buf) - r.head
	if firstLen > n {
		firstLen = n
	}
	copied := core.CopyInto(dst, r.buf[r.head:r.head+firstLen])
	if copied < n {
		copied += core.CopyInto(dst[copied:], r.buf[:n-copied])
	}
	return copied
}

// Drop discards the first n buffered samples (advances the read cursor).
// n is clamped to Len().
func (r *Ring) Drop(n int) {
	if n <= 0 {
		return
	}
	if n > r.count {
		n = r.count
	}
	r.head = (r.head + n) % len(r.buf)
	r.count -= n
}

// Pop copies up to len(dst) samples from the head into dst and discards
// them from the ring. It returns the number of samples copied.
func (r *Ring) Pop(dst []float64) int {
	n := r.Peek(dst)
	r.Drop(n)
	return n
}

// Reset discards all buffered samples without releasing capacity.
func (r *Ring) Reset() {
	r.head = 0
	r.count = 0
}

func (r *Ring) grow(minCapacity int) {
	newCap := len(r.buf) * 2
	if newCap < minCapacity {
		newCap = minCapacity
	}
	grown := make([]float64, newCap)
	for i := 0; i < r.count; i++ {
		grown[i] = r.At(i)
	}
	r.buf = grown
	r.head = 0
}
