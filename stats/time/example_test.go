package time_test

import (
	"fmt"

	timestats "github.com/speedytsm/engine/stats/time"
)

func ExampleCalculate() {
	s := timestats.Calculate([]float64{1, -1, 1, -1})
	fmt.Printf("len=%d dc=%.1f max=%.1f\n", s.Length, s.DC, s.Max)

	// Output:
	// len=4 dc=0.0 max=1.0
}
