package speedy

import (
	"github.com/speedytsm/engine/internal/frameslicer"
	"github.com/speedytsm/engine/internal/tsm"
)

// WriteFloat appends interleaved, per-channel float32 samples and
// opportunistically drives the whole pipeline: framing, spectral
// analysis, tension finalization, speed mapping, and TSM synthesis. It
// returns the number of frames (not raw samples) accepted.
func (s *Stream) WriteFloat(interleaved []float32) (int, error) {
	defer s.enter()()
	if s.closed {
		return 0, ErrInvalidState
	}
	if s.engine.State() != tsm.Open {
		return 0, ErrInvalidState
	}
	if len(interleaved) == 0 {
		return 0, nil
	}

	buf := make([]float64, len(interleaved))
	for i, v := range interleaved {
		buf[i] = float64(v)
	}

	frames := len(interleaved) / s.channels
	if frames == 0 {
		return 0, nil
	}

	// Analyze first so the speed finalized from this input is already set
	// when the engine synthesizes it.
	s.slicer.Push(buf[:frames*s.channels])
	s.processReadyFrames()
	return s.engine.WriteFloat(buf), nil
}

// WriteInt16 is WriteFloat's int16 variant, affine-scaled by 2^15 per
// spec.md §6.
func (s *Stream) WriteInt16(interleaved []int16) (int, error) {
	converted := make([]float32, len(interleaved))
	for i, v := range interleaved {
		converted[i] = float32(v) / 32768.0
	}
	return s.WriteFloat(converted)
}

// ReadFloat drains up to len(out)/channels interleaved frames from the
// TSM engine's output and returns the frame count produced (0 when dry).
func (s *Stream) ReadFloat(out []float32) int {
	defer s.enter()()
	if len(out) == 0 {
		return 0
	}
	buf := make([]float64, len(out))
	n := s.engine.ReadFloat(buf)
	for i := 0; i < n*s.channels; i++ {
		out[i] = float32(buf[i])
	}
	return n
}

// ReadInt16 is ReadFloat's int16 variant, affine-scaled by 2^15.
func (s *Stream) ReadInt16(out []int16) int {
	buf := make([]float32, len(out))
	n := s.ReadFloat(buf)
	for i := 0; i < n*s.channels; i++ {
		v := buf[i] * 32768.0
		switch {
		case v > 32767:
			v = 32767
		case v < -32768:
			v = -32768
		}
		out[i] = int16(v)
	}
	return n
}

// Flush transitions the stream to Flushing: any buffered tail shorter
// than a full frame is zero-padded and analyzed, every still-pending
// tension frame is finalized with a shortened K_future, and the TSM
// engine synthesizes its remaining input; it reaches Drained once that
// output has been read.
func (s *Stream) Flush() {
	defer s.enter()()
	if s.closed {
		return
	}

	if frame, ok := s.slicer.Flush(); ok {
		s.analyzeFrame(frame)
	}

	for {
		t, ok := s.estimator.TryFinalTension(s.nextPendingFrame)
		if !ok {
			break
		}
		s.finalizeTension(s.nextPendingFrame, t)
		s.nextPendingFrame++
	}

	s.engine.Flush()
}

// processReadyFrames drains every frame the slicer can currently emit,
// analyzes it, and finalizes every tension frame that has become
// available as a result. Tension is polled after each frame, before the
// estimator's bounded ring can evict the pending frame's window.
func (s *Stream) processReadyFrames() {
	for {
		frame, ok := s.slicer.TryFrame()
		if !ok {
			break
		}
		s.analyzeFrame(frame)

		for {
			t, ok := s.estimator.TryTension(s.nextPendingFrame)
			if !ok {
				break
			}
			s.finalizeTension(s.nextPendingFrame, t)
			s.nextPendingFrame++
		}
	}
}

// analyzeFrame runs the spectral front-end over one frame and hands the
// result to the tension estimator. Analyze only errors on a frame-length
// mismatch, which frameslicer guarantees never happens here.
func (s *Stream) analyzeFrame(frame frameslicer.Frame) {
	spectrum, err := s.frontend.Analyze(frame)
	if err != nil {
		return
	}
	s.estimator.Update(spectrum, frame.Index)
}

// finalizeTension maps a newly finalized tension value to an instantaneous
// speed, feeds it to the TSM engine, closes the drift-feedback loop with
// the engine's actual output progress since the last finalization, and
// records the resulting speed profile point.
func (s *Stream) finalizeTension(frameIndex int, t float64) {
	current := s.engine.TotalOutputSamples()
	s.controller.RecordOutputSamples(current - s.lastRecordedOutput)
	s.lastRecordedOutput = current

	speed := s.controller.SpeedFor(t)
	s.engine.SetSpeed(speed)
	s.appendProfile(SpeedPoint{FrameIndex: frameIndex, Speed: speed})
}
