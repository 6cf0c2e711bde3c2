// Package level1 provides the BLAS level 1 reductions asum, nrm2, dot,
// dotc and sum in single, batched and strided-batched form.
//
// Every routine validates its arguments, runs the input check-numerics
// pass selected by the context, reduces on the device and waits for the
// result. Batched variants take one device pointer per instance,
// strided-batched variants one allocation with a fixed element stride
// between instances.
package level1

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/LynnColeArt/gudablas"
	"github.com/LynnColeArt/gudablas/numerics"
	"github.com/LynnColeArt/gudablas/reduction"
)

// checkArgs returns gudablas.StatusContinue when the routine has work to
// do and gudablas.StatusSuccess when it can return early. Routines with
// positiveInc set return early for a non-positive increment, as BLAS
// asum and nrm2 do.
func checkArgs(n, inc, batchCount int, results int, positiveInc bool) gudablas.Status {
	if batchCount < 0 {
		return gudablas.StatusInvalidSize
	}
	if results < batchCount {
		return gudablas.StatusInvalidPointer
	}
	if n <= 0 || batchCount == 0 || (positiveInc && inc <= 0) {
		return gudablas.StatusSuccess
	}
	return gudablas.StatusContinue
}

func statusError(op string, st gudablas.Status, n, batchCount, results int) error {
	switch st {
	case gudablas.StatusInvalidPointer:
		return &gudablas.GUDAError{
			Type:    gudablas.ErrTypeInvalidArg,
			Op:      op,
			Message: fmt.Sprintf("%d result slots for batch count %d", results, batchCount),
			Err:     gudablas.ErrNullPointer,
		}
	default:
		return gudablas.NewInvalidArgError(op, fmt.Sprintf("invalid size: n=%d batch_count=%d", n, batchCount))
	}
}

func trace(ctx *gudablas.Context, name string, n int, x gudablas.Vector, batchCount int) {
	ctx.Logger().WithFields(logrus.Fields{
		"function":    name,
		"type":        x.Type.String(),
		"n":           n,
		"inc":         x.Inc,
		"batch_count": batchCount,
	}).Debug("level1")
}

// reduceVector is the shared body of the single-operand routines.
func reduceVector[A reduction.Accum, R any](ctx *gudablas.Context, name string, p reduction.Policy[A, R],
	n int, x gudablas.Vector, batchCount int, results []R, positiveInc bool) error {
	trace(ctx, name, n, x, batchCount)

	switch st := checkArgs(n, x.Inc, batchCount, len(results), positiveInc); st {
	case gudablas.StatusContinue:
	case gudablas.StatusSuccess:
		clear(results[:batchCount])
		return nil
	default:
		return statusError(name, st, n, batchCount, len(results))
	}

	if err := numerics.CheckVector(ctx, name, n, x, batchCount, ctx.CheckNumerics(), true); err != nil {
		return err
	}
	return reduction.Reduce(ctx, p, n, x, batchCount, gudablas.DevicePtr{}, results)
}

// reducePair is the shared body of the dot routines.
func reducePair(ctx *gudablas.Context, name string, p reduction.Policy[complex128, complex128],
	n int, x, y gudablas.Vector, batchCount int, results []complex128) error {
	trace(ctx, name, n, x, batchCount)

	switch st := checkArgs(n, x.Inc, batchCount, len(results), false); st {
	case gudablas.StatusContinue:
	case gudablas.StatusSuccess:
		clear(results[:batchCount])
		return nil
	default:
		return statusError(name, st, n, batchCount, len(results))
	}

	if x.Type != y.Type {
		return &gudablas.GUDAError{
			Type:    gudablas.ErrTypeInvalidArg,
			Op:      name,
			Message: fmt.Sprintf("operands are %v and %v", x.Type, y.Type),
			Err:     gudablas.ErrTypeMismatch,
		}
	}

	mode := ctx.CheckNumerics()
	if err := numerics.CheckVector(ctx, name, n, x, batchCount, mode, true); err != nil {
		return err
	}
	if err := numerics.CheckVector(ctx, name, n, y, batchCount, mode, true); err != nil {
		return err
	}
	return reduction.ReducePair(ctx, p, n, x, y, batchCount, gudablas.DevicePtr{}, results)
}

func single[R any](fn func(results []R) error) (R, error) {
	var r [1]R
	err := fn(r[:])
	return r[0], err
}
