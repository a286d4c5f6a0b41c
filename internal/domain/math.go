package domain

import (
	"math"
	"math/bits"
)

// BpsDenom is the basis-point denominator: 100 bps = 1%.
const BpsDenom uint64 = 10_000

// MulDiv returns floor(a * b / den) using a 128-bit intermediate so the
// product cannot wrap. A zero denominator yields 0; a quotient past the
// uint64 range saturates to MaxUint64.
func MulDiv(a, b, den uint64) uint64 {
	if den == 0 {
		return 0
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= den {
		return math.MaxUint64
	}
	quo, _ := bits.Div64(hi, lo, den)
	return quo
}
