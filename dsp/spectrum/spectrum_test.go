package spectrum

import (
	"math"
	"testing"
)

func TestMagnitudeAndPower(t *testing.T) {
	bins := []complex128{3 + 4i, -1 - 1i, 0}

	mag := Magnitude(bins)
	if len(mag) != len(bins) {
		t.Fatalf("Magnitude length mismatch: got=%d want=%d", len(mag), len(bins))
	}
	if math.Abs(mag[0]-5) > 1e-12 {
		t.Fatalf("Magnitude[0]=%f want=5", mag[0])
	}

	pow := Power(bins)
	if math.Abs(pow[0]-25) > 1e-12 {
		t.Fatalf("Power[0]=%f want=25", pow[0])
	}
}

func TestMagnitudeAndPowerEmpty(t *testing.T) {
	if Magnitude(nil) != nil {
		t.Fatalf("expected nil Magnitude for empty input")
	}
	if Power(nil) != nil {
		t.Fatalf("expected nil Power for empty input")
	}
}
