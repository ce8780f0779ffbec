package edfsim

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

// whole simulation ticks (clock, deadlines, periods)
type Ttick int

// fractional ticks of work (remaining execution scaled by frequency)
type Tftick float64

func (t Ttick) String() string {
	return fmt.Sprintf("%dT", int(t))
}

func (f Tftick) String() string {
	return fmt.Sprintf("%.3fT", f)
}

func gcd[T constraints.Integer](a, b T) T {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm[T constraints.Integer](a, b T) T {
	if a == 0 || b == 0 {
		return 0
	}
	return a / gcd(a, b) * b
}

// converts seconds to whole ticks, rounding half to even
func secondsToTicks(sec float64, ticksPerSecond int) Ttick {
	return Ttick(math.RoundToEven(sec * float64(ticksPerSecond)))
}

func ticksToSeconds(t Ttick, ticksPerSecond int) float64 {
	return float64(t) / float64(ticksPerSecond)
}
