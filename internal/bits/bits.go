// Package bits provides low-level helpers for mapping scalar keys onto
// integer ranges.
package bits

import (
	"math"
	"math/bits"
)

// FastRange32 maps a 64-bit value to [0, n) by taking the high word of
// the 128-bit product. The mapping is monotone in h.
func FastRange32(h uint64, n uint32) uint32 {
	if n == 0 {
		return 0
	}
	hi, _ := bits.Mul64(h, uint64(n))
	return uint32(hi)
}

// UnitToUint64 scales a value in [0, 1] to the full uint64 range.
// Values at or below 0 (and NaN) map to 0; values at or above 1 saturate.
func UnitToUint64(f float64) uint64 {
	if !(f > 0) {
		return 0
	}
	if f >= 1 {
		return math.MaxUint64
	}
	scaled := math.Ldexp(f, 64)
	// Ldexp can round up to exactly 2^64 for f just below 1.
	if scaled >= 0x1p64 {
		return math.MaxUint64
	}
	return uint64(scaled)
}

// UnitRange32 maps a key in [0, 1] onto [0, n).
func UnitRange32(f float64, n uint32) uint32 {
	return FastRange32(UnitToUint64(f), n)
}
