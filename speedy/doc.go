// Package speedy is the public surface of the nonlinear speech time-scale
// modification engine: it wires the frame slicer, spectral front-end,
// tension estimator, and speed controller into a single Stream that feeds
// a pitch-synchronous TSM engine.
package speedy
