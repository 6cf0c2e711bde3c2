package gudablas

import (
	"math"
)

// BFloat16 represents a 16-bit brain floating point number
// Format: 1 sign bit, 8 exponent bits, 7 mantissa bits
type BFloat16 uint16

const (
	bfloat16ExponentMask = 0x7F80
	bfloat16MantissaMask = 0x007F
	bfloat16SignMask     = 0x8000
)

// ToBFloat16 converts float32 to BFloat16, rounding to nearest even.
// NaNs stay NaNs.
func ToBFloat16(f float32) BFloat16 {
	bits := math.Float32bits(f)

	if bits&0x7F800000 == 0x7F800000 && bits&0x7FFFFF != 0 {
		// Keep a mantissa bit so truncation cannot turn a NaN into Inf.
		return BFloat16(bits>>16 | 0x40)
	}

	bits += 0x7FFF + (bits>>16)&1
	return BFloat16(bits >> 16)
}

// BFloat16FromFloat64 converts float64 to BFloat16 through float32.
func BFloat16FromFloat64(f float64) BFloat16 {
	return ToBFloat16(float32(f))
}

// ToFloat32 converts BFloat16 to float32. The conversion is exact.
func (b BFloat16) ToFloat32() float32 {
	return math.Float32frombits(uint32(b) << 16)
}

// Float64 converts BFloat16 to float64.
func (b BFloat16) Float64() float64 {
	return float64(b.ToFloat32())
}

// IsNaN reports whether b is a NaN.
func (b BFloat16) IsNaN() bool {
	return b&bfloat16ExponentMask == bfloat16ExponentMask && b&bfloat16MantissaMask != 0
}

// IsInf reports whether b is an infinity of either sign.
func (b BFloat16) IsInf() bool {
	return b&^bfloat16SignMask == bfloat16ExponentMask
}

// IsZero reports whether b is a zero of either sign.
func (b BFloat16) IsZero() bool {
	return b&^bfloat16SignMask == 0
}
