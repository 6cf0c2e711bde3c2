package gudablas

import (
	"fmt"
	"math"
	"strings"
)

// Element is the closed set of element types device operands may hold.
type Element interface {
	Float16 | BFloat16 | float32 | float64 | complex64 | complex128
}

// Datatype tags the element type of a device operand.
type Datatype int

const (
	TypeF16 Datatype = iota
	TypeBF16
	TypeF32
	TypeF64
	TypeC64
	TypeC128
)

var datatypeNames = [...]string{
	TypeF16:  "f16_r",
	TypeBF16: "bf16_r",
	TypeF32:  "f32_r",
	TypeF64:  "f64_r",
	TypeC64:  "f32_c",
	TypeC128: "f64_c",
}

func (d Datatype) String() string {
	if d.Valid() {
		return datatypeNames[d]
	}
	return fmt.Sprintf("Datatype(%d)", int(d))
}

// Valid reports whether d is one of the known tags.
func (d Datatype) Valid() bool {
	return d >= TypeF16 && d <= TypeC128
}

// Size returns the size of one element in bytes.
func (d Datatype) Size() int {
	switch d {
	case TypeF16, TypeBF16:
		return 2
	case TypeF32:
		return 4
	case TypeF64, TypeC64:
		return 8
	case TypeC128:
		return 16
	}
	return 0
}

// IsComplex reports whether d holds complex values.
func (d Datatype) IsComplex() bool {
	return d == TypeC64 || d == TypeC128
}

// ParseDatatype parses the short names used by the CLI ("f32", "f64_c",
// "half", "bf16", "c64" ...).
func ParseDatatype(s string) (Datatype, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "f16", "f16_r", "h", "half":
		return TypeF16, nil
	case "bf16", "bf16_r", "bfloat16":
		return TypeBF16, nil
	case "f32", "f32_r", "s", "float32", "float":
		return TypeF32, nil
	case "f64", "f64_r", "d", "float64", "double":
		return TypeF64, nil
	case "c64", "f32_c", "c", "complex64":
		return TypeC64, nil
	case "c128", "f64_c", "z", "complex128":
		return TypeC128, nil
	}
	return 0, NewInvalidArgError("ParseDatatype", fmt.Sprintf("unknown datatype %q", s))
}

// DatatypeOf returns the tag of an element type.
func DatatypeOf[T Element]() Datatype {
	var zero T
	switch any(zero).(type) {
	case Float16:
		return TypeF16
	case BFloat16:
		return TypeBF16
	case float32:
		return TypeF32
	case float64:
		return TypeF64
	case complex64:
		return TypeC64
	default:
		return TypeC128
	}
}

// Class is a bit set describing the special values present in a set of
// elements.
type Class uint8

const (
	ClassNaN Class = 1 << iota
	ClassInf
	ClassZero
)

// NonFinite reports whether the class contains NaN or Inf.
func (c Class) NonFinite() bool {
	return c&(ClassNaN|ClassInf) != 0
}

// Classifier returns the classification function of T. Callers resolve it
// once per call and apply it per element.
func Classifier[T Element]() func(T) Class {
	var fn any
	switch DatatypeOf[T]() {
	case TypeF16:
		fn = classifyHalf[Float16]
	case TypeBF16:
		fn = classifyHalf[BFloat16]
	case TypeF32:
		fn = classifyReal[float32]
	case TypeF64:
		fn = classifyReal[float64]
	case TypeC64:
		fn = classifyComplex[complex64]
	default:
		fn = classifyComplex[complex128]
	}
	return fn.(func(T) Class)
}

// Widener returns the function mapping T onto complex128 without loss.
// Real types get a zero imaginary part.
func Widener[T Element]() func(T) complex128 {
	var fn any
	switch DatatypeOf[T]() {
	case TypeF16:
		fn = func(v Float16) complex128 { return complex(v.Float64(), 0) }
	case TypeBF16:
		fn = func(v BFloat16) complex128 { return complex(v.Float64(), 0) }
	case TypeF32:
		fn = func(v float32) complex128 { return complex(float64(v), 0) }
	case TypeF64:
		fn = func(v float64) complex128 { return complex(v, 0) }
	case TypeC64:
		fn = func(v complex64) complex128 { return complex128(v) }
	default:
		fn = func(v complex128) complex128 { return v }
	}
	return fn.(func(T) complex128)
}

type halfLike interface {
	Float16 | BFloat16
	IsNaN() bool
	IsInf() bool
	IsZero() bool
}

func classifyHalf[T halfLike](v T) Class {
	switch {
	case v.IsNaN():
		return ClassNaN
	case v.IsInf():
		return ClassInf
	case v.IsZero():
		return ClassZero
	}
	return 0
}

func classifyReal[T float32 | float64](v T) Class {
	return classifyFloat(float64(v))
}

// classifyComplex classifies both parts; the value is zero only when both
// parts are.
func classifyComplex[T complex64 | complex128](v T) Class {
	w := complex128(v)
	re := classifyFloat(real(w))
	im := classifyFloat(imag(w))
	c := (re | im) &^ ClassZero
	if re&im&ClassZero != 0 {
		c |= ClassZero
	}
	return c
}

func classifyFloat(f float64) Class {
	switch {
	case math.IsNaN(f):
		return ClassNaN
	case math.IsInf(f, 0):
		return ClassInf
	case f == 0:
		return ClassZero
	}
	return 0
}
