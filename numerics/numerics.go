// Package numerics scans device operands for NaN, Inf and zero values.
//
// A scan is one parallel pass over every element of every batch instance
// an operand descriptor addresses. The outcome is a predicate over the set
// of elements, so it does not depend on traversal order. Check functions
// apply a gudablas.CheckNumericsMode policy to the outcome: info and warn
// only log, fail turns NaN or Inf into gudablas.ErrCheckNumericsFail.
package numerics

import (
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/blas"

	"github.com/LynnColeArt/gudablas"
)

// Report summarises the special values found by a scan.
type Report struct {
	HasNaN  bool
	HasInf  bool
	HasZero bool
}

// NonFinite reports whether a NaN or Inf was found.
func (r Report) NonFinite() bool {
	return r.HasNaN || r.HasInf
}

// Finding is attached as context to check failures.
type Finding struct {
	Function string
	Operand  string
	IsInput  bool
	Report   Report
}

// flag slots in the device-side result block
const (
	flagNaN = iota
	flagInf
	flagZero
	numFlags
)

// CheckVector scans n elements of x in each of batchCount instances and
// applies mode to the result. name identifies the calling routine in log
// records; isInput only annotates them.
func CheckVector(ctx *gudablas.Context, name string, n int, x gudablas.Vector, batchCount int,
	mode gudablas.CheckNumericsMode, isInput bool) error {
	if !mode.Enabled() {
		return nil
	}
	r, err := ScanVector(ctx, n, x, batchCount)
	if err != nil {
		return err
	}
	return Apply(ctx, Finding{Function: name, Operand: "vector", IsInput: isInput, Report: r}, mode)
}

// CheckMatrix scans the rows x cols matrix op(a) in each of batchCount
// instances and applies mode to the result.
func CheckMatrix(ctx *gudablas.Context, name string, trans blas.Transpose, rows, cols int, a gudablas.Matrix,
	batchCount int, mode gudablas.CheckNumericsMode, isInput bool) error {
	if !mode.Enabled() {
		return nil
	}
	r, err := ScanMatrix(ctx, trans, rows, cols, a, batchCount)
	if err != nil {
		return err
	}
	return Apply(ctx, Finding{Function: name, Operand: "matrix", IsInput: isInput, Report: r}, mode)
}

// Apply logs f and decides the outcome of a check under mode, as
// CheckVector and CheckMatrix do after their scan.
func Apply(ctx *gudablas.Context, f Finding, mode gudablas.CheckNumericsMode) error {
	entry := ctx.Logger().WithFields(logrus.Fields{
		"function": f.Function,
		"operand":  f.Operand,
		"is_input": f.IsInput,
		"has_nan":  f.Report.HasNaN,
		"has_inf":  f.Report.HasInf,
		"has_zero": f.Report.HasZero,
	})

	if mode.Has(gudablas.CheckNumericsInfo) {
		entry.Info("check numerics")
	}
	if !f.Report.NonFinite() {
		return nil
	}
	if mode.Has(gudablas.CheckNumericsWarn) {
		entry.Warn("check numerics: NaN or Inf found")
	}
	if mode.Has(gudablas.CheckNumericsFail) {
		return &gudablas.GUDAError{
			Type:    gudablas.ErrTypeNumerical,
			Op:      "CheckNumerics",
			Message: "NaN or Inf detected",
			Context: f,
		}
	}
	return nil
}

// ScanVector reports the special values among n elements of x in each of
// batchCount instances. Zero-sized scans do no device work.
func ScanVector(ctx *gudablas.Context, n int, x gudablas.Vector, batchCount int) (Report, error) {
	if n < 0 || batchCount < 0 {
		return Report{}, gudablas.NewInvalidArgError("ScanVector",
			fmt.Sprintf("negative size: n=%d batch_count=%d", n, batchCount))
	}
	if n == 0 || batchCount == 0 {
		return Report{}, nil
	}

	switch x.Type {
	case gudablas.TypeF16:
		return scanVector[gudablas.Float16](ctx, n, x, batchCount)
	case gudablas.TypeBF16:
		return scanVector[gudablas.BFloat16](ctx, n, x, batchCount)
	case gudablas.TypeF32:
		return scanVector[float32](ctx, n, x, batchCount)
	case gudablas.TypeF64:
		return scanVector[float64](ctx, n, x, batchCount)
	case gudablas.TypeC64:
		return scanVector[complex64](ctx, n, x, batchCount)
	case gudablas.TypeC128:
		return scanVector[complex128](ctx, n, x, batchCount)
	}
	return Report{}, fmt.Errorf("ScanVector %v: %w", x.Type, gudablas.ErrNotSupported)
}

// ScanMatrix reports the special values of op(a), a rows x cols matrix, in
// each of batchCount instances. For blas.Trans and blas.ConjTrans the
// stored matrix is cols x rows.
func ScanMatrix(ctx *gudablas.Context, trans blas.Transpose, rows, cols int, a gudablas.Matrix, batchCount int) (Report, error) {
	if rows < 0 || cols < 0 || batchCount < 0 {
		return Report{}, gudablas.NewInvalidArgError("ScanMatrix",
			fmt.Sprintf("negative size: rows=%d cols=%d batch_count=%d", rows, cols, batchCount))
	}

	storedRows, storedCols := rows, cols
	switch trans {
	case blas.NoTrans:
	case blas.Trans, blas.ConjTrans:
		storedRows, storedCols = cols, rows
	default:
		return Report{}, fmt.Errorf("ScanMatrix: transpose %q: %w", byte(trans), gudablas.ErrInvalidValue)
	}
	if rows == 0 || cols == 0 || batchCount == 0 {
		return Report{}, nil
	}

	switch a.Type {
	case gudablas.TypeF16:
		return scanMatrix[gudablas.Float16](ctx, storedRows, storedCols, a, batchCount)
	case gudablas.TypeBF16:
		return scanMatrix[gudablas.BFloat16](ctx, storedRows, storedCols, a, batchCount)
	case gudablas.TypeF32:
		return scanMatrix[float32](ctx, storedRows, storedCols, a, batchCount)
	case gudablas.TypeF64:
		return scanMatrix[float64](ctx, storedRows, storedCols, a, batchCount)
	case gudablas.TypeC64:
		return scanMatrix[complex64](ctx, storedRows, storedCols, a, batchCount)
	case gudablas.TypeC128:
		return scanMatrix[complex128](ctx, storedRows, storedCols, a, batchCount)
	}
	return Report{}, fmt.Errorf("ScanMatrix %v: %w", a.Type, gudablas.ErrNotSupported)
}

func scanVector[T gudablas.Element](ctx *gudablas.Context, n int, x gudablas.Vector, batchCount int) (Report, error) {
	view, err := gudablas.ResolveVector[T]("check_numerics_vector", x, n, batchCount)
	if err != nil {
		return Report{}, err
	}

	nb := ctx.BlockSize()
	grid := gudablas.Dim3{X: (n-1)/nb + 1, Y: 1, Z: batchCount}
	block := gudablas.Dim3{X: nb, Y: 1, Z: 1}

	return runScan(ctx, func(flags []int32) error {
		classify := gudablas.Classifier[T]()
		return ctx.LaunchFunc(func(tid gudablas.ThreadID, _ ...interface{}) {
			i := tid.GlobalX()
			if i >= n {
				return
			}
			mark(flags, classify(view.At(tid.BlockIdx.Z, i)))
		}, grid, block)
	})
}

func scanMatrix[T gudablas.Element](ctx *gudablas.Context, rows, cols int, a gudablas.Matrix, batchCount int) (Report, error) {
	view, err := gudablas.ResolveMatrix[T]("check_numerics_matrix", a, rows, cols, batchCount)
	if err != nil {
		return Report{}, err
	}

	const dim = gudablas.CheckNumericsDim
	grid := gudablas.Dim3{X: (rows-1)/dim + 1, Y: (cols-1)/dim + 1, Z: batchCount}
	block := gudablas.Dim3{X: dim, Y: dim, Z: 1}

	return runScan(ctx, func(flags []int32) error {
		classify := gudablas.Classifier[T]()
		return ctx.LaunchFunc(func(tid gudablas.ThreadID, _ ...interface{}) {
			i, j := tid.GlobalX(), tid.GlobalY()
			if i >= rows || j >= cols {
				return
			}
			mark(flags, classify(view.At(tid.BlockIdx.Z, i, j)))
		}, grid, block)
	})
}

// runScan owns the device flag block: it allocates and clears it, lets
// launch enqueue the scan kernel, waits for the stream, and reads it back.
func runScan(ctx *gudablas.Context, launch func(flags []int32) error) (Report, error) {
	mem, err := ctx.Malloc(numFlags * 4)
	if err != nil {
		return Report{}, err
	}
	defer ctx.Free(mem)

	if err := ctx.Memset(mem, 0, numFlags*4); err != nil {
		return Report{}, err
	}
	flags := mem.Int32()

	if err := launch(flags); err != nil {
		return Report{}, err
	}
	if err := ctx.Stream().Synchronize(); err != nil {
		return Report{}, err
	}

	return Report{
		HasNaN:  atomic.LoadInt32(&flags[flagNaN]) != 0,
		HasInf:  atomic.LoadInt32(&flags[flagInf]) != 0,
		HasZero: atomic.LoadInt32(&flags[flagZero]) != 0,
	}, nil
}

func mark(flags []int32, c gudablas.Class) {
	if c == 0 {
		return
	}
	if c&gudablas.ClassNaN != 0 {
		atomic.StoreInt32(&flags[flagNaN], 1)
	}
	if c&gudablas.ClassInf != 0 {
		atomic.StoreInt32(&flags[flagInf], 1)
	}
	if c&gudablas.ClassZero != 0 {
		atomic.StoreInt32(&flags[flagZero], 1)
	}
}
