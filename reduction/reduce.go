package reduction

import (
	"fmt"

	"github.com/LynnColeArt/gudablas"
)

// Reduce computes p over n elements of x in each of batchCount instances.
// The element type of x is resolved once per call. See Run for workspace
// and synchronization semantics.
func Reduce[A Accum, R any](ctx *gudablas.Context, p Policy[A, R], n int, x gudablas.Vector, batchCount int,
	workspace gudablas.DevicePtr, results []R) error {
	if p.Fetch == nil {
		return gudablas.NewInvalidArgError("Reduce", fmt.Sprintf("policy %q has no element fetch", p.Name))
	}

	switch x.Type {
	case gudablas.TypeF16:
		return reduce[gudablas.Float16](ctx, p, n, x, batchCount, workspace, results)
	case gudablas.TypeBF16:
		return reduce[gudablas.BFloat16](ctx, p, n, x, batchCount, workspace, results)
	case gudablas.TypeF32:
		return reduce[float32](ctx, p, n, x, batchCount, workspace, results)
	case gudablas.TypeF64:
		return reduce[float64](ctx, p, n, x, batchCount, workspace, results)
	case gudablas.TypeC64:
		return reduce[complex64](ctx, p, n, x, batchCount, workspace, results)
	case gudablas.TypeC128:
		return reduce[complex128](ctx, p, n, x, batchCount, workspace, results)
	}
	return fmt.Errorf("Reduce %v: %w", x.Type, gudablas.ErrNotSupported)
}

// ReducePair computes p over n element pairs of x and y in each of
// batchCount instances. x and y must hold the same element type.
func ReducePair[A Accum, R any](ctx *gudablas.Context, p Policy[A, R], n int, x, y gudablas.Vector, batchCount int,
	workspace gudablas.DevicePtr, results []R) error {
	if p.FetchPair == nil {
		return gudablas.NewInvalidArgError("ReducePair", fmt.Sprintf("policy %q has no pair fetch", p.Name))
	}
	if x.Type != y.Type {
		return &gudablas.GUDAError{
			Type:    gudablas.ErrTypeInvalidArg,
			Op:      "ReducePair",
			Message: fmt.Sprintf("operands are %v and %v", x.Type, y.Type),
			Err:     gudablas.ErrTypeMismatch,
		}
	}

	switch x.Type {
	case gudablas.TypeF16:
		return reducePair[gudablas.Float16](ctx, p, n, x, y, batchCount, workspace, results)
	case gudablas.TypeBF16:
		return reducePair[gudablas.BFloat16](ctx, p, n, x, y, batchCount, workspace, results)
	case gudablas.TypeF32:
		return reducePair[float32](ctx, p, n, x, y, batchCount, workspace, results)
	case gudablas.TypeF64:
		return reducePair[float64](ctx, p, n, x, y, batchCount, workspace, results)
	case gudablas.TypeC64:
		return reducePair[complex64](ctx, p, n, x, y, batchCount, workspace, results)
	case gudablas.TypeC128:
		return reducePair[complex128](ctx, p, n, x, y, batchCount, workspace, results)
	}
	return fmt.Errorf("ReducePair %v: %w", x.Type, gudablas.ErrNotSupported)
}

func reduce[T gudablas.Element, A Accum, R any](ctx *gudablas.Context, p Policy[A, R], n int, x gudablas.Vector,
	batchCount int, workspace gudablas.DevicePtr, results []R) error {
	view, err := gudablas.ResolveVector[T]("Reduce", x, n, batchCount)
	if err != nil {
		return err
	}
	widen, fetch := gudablas.Widener[T](), p.Fetch
	return Run(ctx, p, n, batchCount, func(b, i int) A {
		return fetch(widen(view.At(b, i)))
	}, workspace, results)
}

func reducePair[T gudablas.Element, A Accum, R any](ctx *gudablas.Context, p Policy[A, R], n int, x, y gudablas.Vector,
	batchCount int, workspace gudablas.DevicePtr, results []R) error {
	xv, err := gudablas.ResolveVector[T]("ReducePair", x, n, batchCount)
	if err != nil {
		return err
	}
	yv, err := gudablas.ResolveVector[T]("ReducePair", y, n, batchCount)
	if err != nil {
		return err
	}
	widen := gudablas.Widener[T]()
	if fetch := p.FetchRealPair; fetch != nil && !x.Type.IsComplex() {
		return Run(ctx, p, n, batchCount, func(b, i int) A {
			return fetch(real(widen(xv.At(b, i))), real(widen(yv.At(b, i))))
		}, workspace, results)
	}
	fetch := p.FetchPair
	return Run(ctx, p, n, batchCount, func(b, i int) A {
		return fetch(widen(xv.At(b, i)), widen(yv.At(b, i)))
	}, workspace, results)
}
