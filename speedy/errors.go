package speedy

import "errors"

// Error kinds surfaced across the Stream API boundary, per spec.md §7.
// tension.ErrNotYetAvailable stays internal — Stream folds it into
// "no progress yet" rather than returning it to callers.
var (
	// ErrInvalidConfiguration marks a construction or setter argument
	// outside its documented range (sample rate, channels, λ, feedback, Rg).
	ErrInvalidConfiguration = errors.New("speedy: invalid configuration")

	// ErrAllocationFailed marks a buffer that could not grow to hold a
	// write. Reserved for future bounded-memory modes; the current ring
	// implementation grows unboundedly and never returns this today.
	ErrAllocationFailed = errors.New("speedy: allocation failed")

	// ErrInvalidState marks an operation invalid for the stream's current
	// lifecycle stage — a write after Flush, or any call after Close.
	ErrInvalidState = errors.New("speedy: invalid stream state")
)
