// Package time computes time-domain signal statistics.
package time

// Stats holds the time-domain signal statistics the tension estimator needs:
// DC offset, maximum (signed) value, and variance.
type Stats struct {
	Length   int
	DC       float64 // mean
	Max      float64
	Variance float64
}

// Calculate computes DC, Max, and Variance in a single pass using Welford's
// online algorithm for numerically stable variance accumulation.
func Calculate(signal []float64) Stats {
	n := len(signal)
	if n == 0 {
		return Stats{}
	}

	var (
		mean   float64
		m2     float64
		maxVal = signal[0]
	)

	for i, x := range signal {
		ni := float64(i + 1)
		delta := x - mean
		mean += delta / ni
		m2 += delta * (x - mean)

		if x > maxVal {
			maxVal = x
		}
	}

	return Stats{
		Length:   n,
		DC:       mean,
		Max:      maxVal,
		Variance: m2 / float64(n),
	}
}
