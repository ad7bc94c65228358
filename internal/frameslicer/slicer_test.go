package frameslicer

import (
	"math"
	"testing"

	"github.com/speedytsm/engine/internal/testutil"
)

func TestPeriodicHannShapeAndEdges(t *testing.T) {
	w := periodicHann(8)
	if len(w) != 8 {
		t.Fatalf("length: got %d want 8", len(w))
	}
	if math.Abs(w[0]) > 1e-12 {
		t.Fatalf("w[0]: got %v want ~0", w[0])
	}
	for i, v := range w {
		if v < -1e-9 || v > 1+1e-9 {
			t.Fatalf("w[%d]=%v out of [0,1]", i, v)
		}
	}
	// Periodic form starts at 0 and peaks at 1 at w[n/2]; unlike the
	// symmetric form, w[n-1] is not 0, so the window tiles cleanly for FFT framing.
	if w[4] <= w[1] {
		t.Fatalf("expected the window to rise toward its center: w=%v", w)
	}
}

func TestFrameGeometry(t *testing.T) {
	if got := FrameSize(22050); got != 662 {
		t.Fatalf("FrameSize(22050): got %d want 662", got)
	}
	if got := Step(22050); got != 221 {
		t.Fatalf("Step(22050): got %d want 221", got)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(0, 1); err == nil {
		t.Fatal("expected error for sample rate 0")
	}
	if _, err := New(22050, 0); err == nil {
		t.Fatal("expected error for channels 0")
	}
}

func TestPushProducesFrames(t *testing.T) {
	s, err := New(22050, 1)
	if err != nil {
		t.Fatal(err)
	}

	signal := testutil.DeterministicSine(440, 22050, 0.5, 22050)
	s.Push(signal)

	count := 0
	for {
		f, ok := s.TryFrame()
		if !ok {
			break
		}
		if len(f.Samples) != s.FrameSize() {
			t.Fatalf("frame %d: got %d samples want %d", f.Index, len(f.Samples), s.FrameSize())
		}
		if f.Index != count {
			t.Fatalf("frame index: got %d want %d", f.Index, count)
		}
		count++
	}
	if count == 0 {
		t.Fatal("expected at least one frame")
	}
}

func TestFlushPadsTail(t *testing.T) {
	s, err := New(22050, 1)
	if err != nil {
		t.Fatal(err)
	}
	s.Push(make([]float64, 100))
	for {
		if _, ok := s.TryFrame(); !ok {
			break
		}
	}

	f, ok := s.Flush()
	if !ok {
		t.Fatal("expected a final frame from flush")
	}
	if len(f.Samples) != s.FrameSize() {
		t.Fatalf("flushed frame length: got %d want %d", len(f.Samples), s.FrameSize())
	}

	if _, ok := s.Flush(); ok {
		t.Fatal("second flush should return false")
	}
}

func TestFlushEmptyRingNoFrame(t *testing.T) {
	s, err := New(22050, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Flush(); ok {
		t.Fatal("flush with no buffered samples should return false")
	}
}

func TestMultiChannelMixdown(t *testing.T) {
	s, err := New(22050, 2)
	if err != nil {
		t.Fatal(err)
	}
	// Left channel all 1s, right channel all -1s; average should be ~0,
	// so pre-emphasis output should also stay near 0.
	interleaved := make([]float64, 2000)
	for i := 0; i < len(interleaved); i += 2 {
		interleaved[i] = 1
		interleaved[i+1] = -1
	}
	s.Push(interleaved)
	f, ok := s.TryFrame()
	if !ok {
		t.Fatal("expected a frame")
	}
	for i, v := range f.Samples {
		if v < -1e-9 || v > 1e-9 {
			t.Fatalf("mixdown sample %d: got %v want ~0", i, v)
		}
	}
}
