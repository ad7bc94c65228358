package tsm

import "math"

// pitchDetector tracks the TSM engine's running pitch-period estimate via
// a normalized Average Magnitude Difference Function search, the same
// lag-candidate-search shape as the teacher's pitch shifter's
// findBestOverlap (there a normalized cross-correlation maximum; here a
// normalized AMDF minimum, per spec.md §4.5.2).
type pitchDetector struct {
	minLag, maxLag int
	fallback       int
	voicedRatio    float64
}

// newPitchDetector sizes the search range for a ~60-400 Hz pitch range and
// a ~100 Hz unvoiced fallback, per spec.md §4.5.2.
func newPitchDetector(sampleRate float64) *pitchDetector {
	minLag := int(math.Round(sampleRate / 400.0))
	if minLag < 2 {
		minLag = 2
	}
	maxLag := int(math.Round(sampleRate / 60.0))
	if maxLag <= minLag {
		maxLag = minLag + 1
	}
	return &pitchDetector{
		minLag:      minLag,
		maxLag:      maxLag,
		fallback:    int(math.Round(sampleRate / 100.0)),
		voicedRatio: 0.5,
	}
}

// estimate searches window for the lag minimizing the normalized AMDF. It
// returns the fallback period if no candidate shows a clear minimum
// (unvoiced signal).
func (d *pitchDetector) estimate(window []float64) int {
	if len(window) < d.maxLag+8 {
		return d.fallback
	}

	bestLag := d.fallback
	bestAMDF := math.Inf(1)
	var sumAMDF float64
	var candidates int

	for lag := d.minLag; lag <= d.maxLag; lag++ {
		n := len(window) - lag
		if n <= 0 {
			break
		}
		var sumAbsDiff, sumAbs float64
		for i := 0; i < n; i++ {
			sumAbsDiff += math.Abs(window[i] - window[i+lag])
			sumAbs += math.Abs(window[i])
		}
		norm := sumAbs/float64(n) + 1e-9
		amdf := (sumAbsDiff / float64(n)) / norm

		sumAMDF += amdf
		candidates++
		if amdf < bestAMDF {
			bestAMDF = amdf
			bestLag = lag
		}
	}

	if candidates == 0 {
		return d.fallback
	}

	meanAMDF := sumAMDF / float64(candidates)
	if meanAMDF <= 0 || bestAMDF/meanAMDF >= d.voicedRatio {
		return d.fallback
	}

	return bestLag
}
