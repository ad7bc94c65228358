// Package spectrum provides FFT-adjacent spectrum-domain utilities.
//
// The package intentionally does not implement FFT itself. It operates on
// complex spectrum bins produced by external FFT backends and extracts
// magnitude and power.
package spectrum
