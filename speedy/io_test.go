package speedy

import (
	"math"
	"sync"
	"testing"

	"github.com/speedytsm/engine/internal/testutil"
)

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}

func drainStream(s *Stream) []float32 {
	var out []float32
	tmp := make([]float32, 1024)
	for s.SamplesAvailable() > 0 {
		n := s.ReadFloat(tmp)
		if n == 0 {
			break
		}
		out = append(out, tmp[:n]...)
	}
	return out
}

func TestStreamSilenceAtSpeedupYieldsRoughlyHalvedSilence(t *testing.T) {
	const sr = 22050.0
	s, err := NewStream(sr, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.SetSpeed(2.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	silence := make([]float64, int(2*sr)) // 2 s silence
	if _, err := s.WriteFloat(toFloat32(silence)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Flush()

	out := drainStream(s)
	want := len(silence) / 2
	// Wide tolerance: input that reaches the TSM before the analyzer's
	// lookahead window finalizes its first tension value is synthesized at
	// the startup speed (1.0), and output is produced in whole pitch
	// periods. Here the whole clip is analyzed before it is synthesized,
	// so the requested speed of 2.0 is already in effect.
	tolerance := int(0.25 * float64(want))
	if diff := abs(len(out) - want); diff > tolerance {
		t.Fatalf("expected roughly %d samples of output, got %d (diff %d, tolerance %d)", want, len(out), diff, tolerance)
	}
	for i, v := range out {
		if v != 0 {
			t.Fatalf("expected silence in, silence out; got nonzero sample at %d: %v", i, v)
		}
	}
}

func TestStreamIdentityAtUnitSpeedRoughlyPreservesDuration(t *testing.T) {
	const sr = 22050.0
	s, err := NewStream(sr, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sine := testutil.DeterministicSine(440, sr, 0.5, int(2*sr))
	if _, err := s.WriteFloat(toFloat32(sine)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Flush()

	out := drainStream(s)
	ratio := float64(len(out)) / float64(len(sine))
	if ratio < 0.9 || ratio > 1.1 {
		t.Fatalf("identity speed should roughly preserve duration, got ratio %v", ratio)
	}
}

func TestStreamDrainSpeedProfileIsMonotonicAndClears(t *testing.T) {
	const sr = 22050.0
	s, err := NewStream(sr, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.EnableNonlinear(1.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sine := testutil.DeterministicSine(220, sr, 0.5, int(3*sr))
	if _, err := s.WriteFloat(toFloat32(sine)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Flush()
	drainStream(s)

	points := s.DrainSpeedProfile()
	if len(points) == 0 {
		t.Fatal("expected at least one finalized speed point")
	}
	for i := 1; i < len(points); i++ {
		if points[i].FrameIndex <= points[i-1].FrameIndex {
			t.Fatalf("expected strictly increasing frame indices, got %d then %d", points[i-1].FrameIndex, points[i].FrameIndex)
		}
	}

	if again := s.DrainSpeedProfile(); len(again) != 0 {
		t.Fatalf("expected a second drain to be empty, got %d points", len(again))
	}
}

func TestStreamSpeedCallbackFiresForEveryDrainedPoint(t *testing.T) {
	const sr = 22050.0
	s, err := NewStream(sr, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var received []SpeedPoint
	s.EnableSpeedCallback(observerFunc(func(p SpeedPoint) {
		received = append(received, p)
	}))

	sine := testutil.DeterministicSine(300, sr, 0.5, int(2*sr))
	if _, err := s.WriteFloat(toFloat32(sine)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Flush()

	if len(received) == 0 {
		t.Fatal("expected the observer to receive at least one speed point")
	}
}

func TestStreamReadFloatNeverOverfillsRequestedFrames(t *testing.T) {
	const sr = 22050.0
	s, err := NewStream(sr, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	frames := int(2 * sr)
	interleaved := make([]float64, frames*2)
	for i := 0; i < frames; i++ {
		v := math.Sin(2 * math.Pi * 200 * float64(i) / sr)
		interleaved[2*i] = v
		interleaved[2*i+1] = -v
	}
	if _, err := s.WriteFloat(toFloat32(interleaved)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Flush()

	small := make([]float32, 6) // 3 frames, 2 channels
	n := s.ReadFloat(small)
	if n > 3 {
		t.Fatalf("expected at most 3 frames for a 6-sample buffer with 2 channels, got %d", n)
	}
}

func TestStreamInt16RoundTripStaysInRange(t *testing.T) {
	const sr = 22050.0
	s, err := NewStream(sr, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pcm := make([]int16, int(sr))
	for i := range pcm {
		pcm[i] = int16(16000 * math.Sin(2*math.Pi*440*float64(i)/sr))
	}
	if _, err := s.WriteInt16(pcm); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Flush()

	out := make([]int16, len(pcm)*2)
	n := s.ReadInt16(out)
	for i := 0; i < n; i++ {
		if out[i] < -32768 || out[i] > 32767 {
			t.Fatalf("int16 sample out of range at %d: %v", i, out[i])
		}
	}
}

// TestConcurrentStreamsOnIdenticalInputProduceBitwiseIdenticalOutput covers
// spec.md §8 scenario S6: two Streams running the same settings over the
// same clip concurrently must not leak state into each other through any
// shared global (the frontend's scratch pools, for instance).
func TestConcurrentStreamsOnIdenticalInputProduceBitwiseIdenticalOutput(t *testing.T) {
	const sr = 22050.0
	clip := toFloat32(testutil.DeterministicNoise(1, 0.5, int(3*sr)))

	run := func() []float32 {
		s, err := NewStream(sr, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := s.SetSpeed(2.5); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := s.EnableNonlinear(1.0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := s.WriteFloat(clip); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		s.Flush()
		return drainStream(s)
	}

	var wg sync.WaitGroup
	outs := make([][]float32, 2)
	for i := range outs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outs[i] = run()
		}(i)
	}
	wg.Wait()

	if len(outs[0]) == 0 {
		t.Fatal("expected non-empty output")
	}
	if len(outs[0]) != len(outs[1]) {
		t.Fatalf("length mismatch: %d vs %d", len(outs[0]), len(outs[1]))
	}
	for i := range outs[0] {
		if outs[0][i] != outs[1][i] {
			t.Fatalf("sample %d differs: %v vs %v", i, outs[0][i], outs[1][i])
		}
	}
}

type observerFunc func(SpeedPoint)

func (f observerFunc) OnSpeed(p SpeedPoint) { f(p) }

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
