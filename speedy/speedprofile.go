package speedy

// SpeedPoint is one finalized (frame_index, speed) pair from the speed
// profile of spec.md §3/§6.
type SpeedPoint struct {
	FrameIndex int
	Speed      float64
}

// SpeedObserver receives speed profile points inline as they finalize,
// invoked from WriteFloat/Flush. Per spec.md §5, an observer must not
// re-enter the stream that invoked it.
type SpeedObserver interface {
	OnSpeed(point SpeedPoint)
}

// appendProfile records a point for later draining and, if a callback
// observer is registered, notifies it inline — the per-stream direct
// ownership the DESIGN NOTES call for, in place of a global handle map.
func (s *Stream) appendProfile(point SpeedPoint) {
	s.profile = append(s.profile, point)
	if s.observer != nil {
		s.observer.OnSpeed(point)
	}
}

// DrainSpeedProfile returns every speed point finalized since the
// previous call and clears the internal accumulation.
func (s *Stream) DrainSpeedProfile() []SpeedPoint {
	out := s.profile
	s.profile = nil
	return out
}
