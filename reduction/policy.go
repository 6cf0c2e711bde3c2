package reduction

import (
	"math"
	"math/cmplx"
)

// Accum is the set of accumulator types a reduction may combine in.
type Accum interface {
	float64 | complex128
}

// Policy selects the reduction computed by the engine. For each batch
// instance the engine produces Finalize(Combine(Fetch(x0), Fetch(x1), ...)),
// combining in a fixed pairwise tree.
//
// Fetch maps one element, widened to complex128, to an accumulator value.
// FetchPair does the same for the elements of two operands and is used by
// ReducePair. FetchRealPair, when set, replaces FetchPair for real operands
// so that no imaginary arithmetic touches them. Identity must be the
// neutral element of Combine.
type Policy[A Accum, R any] struct {
	Name      string
	BlockSize int // power of two; zero selects the context default
	Identity  A
	Fetch     func(x complex128) A
	FetchPair func(x, y complex128) A

	FetchRealPair func(x, y float64) A
	Combine   func(a, b A) A
	Finalize  func(a A) R
}

// WithBlockSize returns a copy of p using nb threads per block.
func (p Policy[A, R]) WithBlockSize(nb int) Policy[A, R] {
	p.BlockSize = nb
	return p
}

func add[A Accum](a, b A) A { return a + b }

func identity[A Accum](a A) A { return a }

// Sum adds elements.
var Sum = Policy[complex128, complex128]{
	Name:     "sum",
	Fetch:    func(x complex128) complex128 { return x },
	Combine:  add[complex128],
	Finalize: identity[complex128],
}

// RealSum adds the real parts of elements.
var RealSum = Policy[float64, float64]{
	Name:     "real_sum",
	Fetch:    func(x complex128) float64 { return real(x) },
	Combine:  add[float64],
	Finalize: identity[float64],
}

// Asum adds |re(x)| + |im(x)|, the BLAS definition of asum for complex data.
var Asum = Policy[float64, float64]{
	Name:     "asum",
	Fetch:    func(x complex128) float64 { return math.Abs(real(x)) + math.Abs(imag(x)) },
	Combine:  add[float64],
	Finalize: identity[float64],
}

// SumSquares adds |x|².
var SumSquares = Policy[float64, float64]{
	Name:     "sum_squares",
	Fetch:    abs2,
	Combine:  add[float64],
	Finalize: identity[float64],
}

// Nrm2 is the Euclidean norm: the square root of SumSquares.
var Nrm2 = Policy[float64, float64]{
	Name:     "nrm2",
	Fetch:    abs2,
	Combine:  add[float64],
	Finalize: math.Sqrt,
}

// Dot adds x*y.
var Dot = Policy[complex128, complex128]{
	Name:          "dot",
	FetchPair:     func(x, y complex128) complex128 { return x * y },
	FetchRealPair: realProduct,
	Combine:       add[complex128],
	Finalize:      identity[complex128],
}

// Dotc adds conj(x)*y.
var Dotc = Policy[complex128, complex128]{
	Name:          "dotc",
	FetchPair:     func(x, y complex128) complex128 { return cmplx.Conj(x) * y },
	FetchRealPair: realProduct,
	Combine:       add[complex128],
	Finalize:      identity[complex128],
}

// realProduct keeps the imaginary part zero even for Inf or NaN factors,
// which a complex multiplication would turn into NaN.
func realProduct(x, y float64) complex128 {
	return complex(x*y, 0)
}

func abs2(x complex128) float64 {
	re, im := real(x), imag(x)
	return re*re + im*im
}
