package level1

import (
	"github.com/LynnColeArt/gudablas"
	"github.com/LynnColeArt/gudablas/reduction"
)

// Dot returns the sum of x[i]*y[i] over n elements. Real operands give a
// zero imaginary part.
func Dot(ctx *gudablas.Context, n int, x, y gudablas.Vector) (complex128, error) {
	return single(func(results []complex128) error {
		return reducePair(ctx, "dot", reduction.Dot, n, x, y, 1, results)
	})
}

// Dotc returns the sum of conj(x[i])*y[i] over n elements.
func Dotc(ctx *gudablas.Context, n int, x, y gudablas.Vector) (complex128, error) {
	return single(func(results []complex128) error {
		return reducePair(ctx, "dotc", reduction.Dotc, n, x, y, 1, results)
	})
}

// DotBatched computes Dot for each of batchCount vector pairs.
func DotBatched(ctx *gudablas.Context, dt gudablas.Datatype, n int, x []gudablas.DevicePtr, incx int,
	y []gudablas.DevicePtr, incy, batchCount int, results []complex128) error {
	return reducePair(ctx, "dot_batched", reduction.Dot, n,
		gudablas.NewBatchedVector(dt, x, incx), gudablas.NewBatchedVector(dt, y, incy), batchCount, results)
}

// DotcBatched computes Dotc for each of batchCount vector pairs.
func DotcBatched(ctx *gudablas.Context, dt gudablas.Datatype, n int, x []gudablas.DevicePtr, incx int,
	y []gudablas.DevicePtr, incy, batchCount int, results []complex128) error {
	return reducePair(ctx, "dotc_batched", reduction.Dotc, n,
		gudablas.NewBatchedVector(dt, x, incx), gudablas.NewBatchedVector(dt, y, incy), batchCount, results)
}

// DotStridedBatched computes Dot for batchCount vector pairs held stridex
// and stridey elements apart.
func DotStridedBatched(ctx *gudablas.Context, dt gudablas.Datatype, n int, x gudablas.DevicePtr, incx, stridex int,
	y gudablas.DevicePtr, incy, stridey, batchCount int, results []complex128) error {
	return reducePair(ctx, "dot_strided_batched", reduction.Dot, n,
		gudablas.NewStridedVector(dt, x, incx, stridex), gudablas.NewStridedVector(dt, y, incy, stridey),
		batchCount, results)
}

// DotcStridedBatched computes Dotc for batchCount vector pairs held
// stridex and stridey elements apart.
func DotcStridedBatched(ctx *gudablas.Context, dt gudablas.Datatype, n int, x gudablas.DevicePtr, incx, stridex int,
	y gudablas.DevicePtr, incy, stridey, batchCount int, results []complex128) error {
	return reducePair(ctx, "dotc_strided_batched", reduction.Dotc, n,
		gudablas.NewStridedVector(dt, x, incx, stridex), gudablas.NewStridedVector(dt, y, incy, stridey),
		batchCount, results)
}
