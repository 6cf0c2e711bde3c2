package gudablas

import (
	"math"
)

// Float16 represents an IEEE 754 binary16 value.
// Format: 1 sign bit, 5 exponent bits, 10 mantissa bits.
type Float16 uint16

// Float16 conversion constants
const (
	float16SignMask     = 0x8000
	float16ExponentMask = 0x7C00
	float16MantissaMask = 0x03FF
	float16ExponentBias = 15
	float16MantissaBits = 10
)

// ToFloat32 converts Float16 to float32. The conversion is exact.
func (f Float16) ToFloat32() float32 {
	sign := uint32(f&float16SignMask) << 16
	exponent := uint32(f&float16ExponentMask) >> float16MantissaBits
	mantissa := uint32(f & float16MantissaMask)

	switch exponent {
	case 0:
		if mantissa == 0 {
			return math.Float32frombits(sign)
		}
		// Subnormal: mantissa * 2^-24.
		v := float32(math.Ldexp(float64(mantissa), -24))
		if sign != 0 {
			return -v
		}
		return v
	case 0x1F:
		if mantissa == 0 {
			return math.Float32frombits(sign | 0x7F800000)
		}
		return math.Float32frombits(sign | 0x7FC00000 | mantissa<<13)
	}

	return math.Float32frombits(sign | (exponent+127-float16ExponentBias)<<23 | mantissa<<13)
}

// Float64 converts Float16 to float64.
func (f Float16) Float64() float64 {
	return float64(f.ToFloat32())
}

// IsNaN reports whether f is a NaN.
func (f Float16) IsNaN() bool {
	return f&float16ExponentMask == float16ExponentMask && f&float16MantissaMask != 0
}

// IsInf reports whether f is an infinity of either sign.
func (f Float16) IsInf() bool {
	return f&^float16SignMask == float16ExponentMask
}

// IsZero reports whether f is a zero of either sign.
func (f Float16) IsZero() bool {
	return f&^float16SignMask == 0
}

// FromFloat32 converts float32 to Float16, rounding to nearest even.
// Values beyond the Float16 range become infinities and values below
// half the smallest subnormal become signed zeros.
func FromFloat32(f float32) Float16 {
	bits := math.Float32bits(f)
	sign := uint16((bits >> 16) & float16SignMask)
	exponent := int((bits >> 23) & 0xFF)
	mantissa := bits & 0x7FFFFF

	if exponent == 0xFF {
		if mantissa == 0 {
			return Float16(sign | float16ExponentMask)
		}
		return Float16(sign | float16ExponentMask | 0x200 | uint16(mantissa>>13))
	}

	e := exponent - 127 + float16ExponentBias
	if e >= 0x1F {
		return Float16(sign | float16ExponentMask)
	}

	if e <= 0 {
		if e < -float16MantissaBits {
			return Float16(sign)
		}
		m := mantissa | 0x800000
		shift := uint(14 - e)
		half := uint32(1) << (shift - 1)
		rem := m & (1<<shift - 1)
		h := uint16(m >> shift)
		if rem > half || (rem == half && h&1 == 1) {
			h++
		}
		return Float16(sign | h)
	}

	h := sign | uint16(e)<<float16MantissaBits | uint16(mantissa>>13)
	rem := mantissa & 0x1FFF
	if rem > 0x1000 || (rem == 0x1000 && h&1 == 1) {
		// A carry out of the mantissa bumps the exponent, possibly to Inf.
		h++
	}
	return Float16(h)
}

// Float16FromFloat64 converts float64 to Float16 through float32.
func Float16FromFloat64(f float64) Float16 {
	return FromFloat32(float32(f))
}
