// Package bfloat16 implements the "brain floating point" 16 bits type: the upper 16 bits of a float32.
//
// See https://en.wikipedia.org/wiki/Bfloat16_floating-point_format
package bfloat16

import (
	"math"
	"strconv"
)

// BFloat16 holds the bits of a bfloat16 value.
type BFloat16 uint16

// SmallestNonzero is the smallest positive (denormal) value representable.
const SmallestNonzero = BFloat16(0x0001)

// FromBits converts the raw bits to a BFloat16.
func FromBits(bits uint16) BFloat16 {
	return BFloat16(bits)
}

// FromFloat32 converts a float32 to a BFloat16, rounding to nearest even.
func FromFloat32(x float32) BFloat16 {
	bits := math.Float32bits(x)
	if math.IsNaN(float64(x)) { // Keep it a quiet NaN: rounding could turn it into Inf.
		return BFloat16((bits >> 16) | 0x0040)
	}
	roundingBias := uint32(0x7fff) + ((bits >> 16) & 1)
	return BFloat16((bits + roundingBias) >> 16)
}

// FromFloat64 converts a float64 to a BFloat16.
func FromFloat64(x float64) BFloat16 {
	return FromFloat32(float32(x))
}

// Bits returns the raw bits.
func (f BFloat16) Bits() uint16 {
	return uint16(f)
}

// Float32 converts the value to float32, exactly.
func (f BFloat16) Float32() float32 {
	return math.Float32frombits(uint32(f) << 16)
}

// Float64 converts the value to float64, exactly.
func (f BFloat16) Float64() float64 {
	return float64(f.Float32())
}

// String implements fmt.Stringer.
func (f BFloat16) String() string {
	return strconv.FormatFloat(f.Float64(), 'g', -1, 32)
}
