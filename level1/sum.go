package level1

import (
	"github.com/LynnColeArt/gudablas"
	"github.com/LynnColeArt/gudablas/reduction"
)

// Sum returns the sum of n elements of x. Negative increments traverse x
// backwards.
func Sum(ctx *gudablas.Context, n int, x gudablas.Vector) (complex128, error) {
	return single(func(results []complex128) error {
		return reduceVector(ctx, "sum", reduction.Sum, n, x, 1, results, false)
	})
}

// SumBatched computes Sum for each of batchCount vectors in x.
func SumBatched(ctx *gudablas.Context, dt gudablas.Datatype, n int, x []gudablas.DevicePtr, incx, batchCount int, results []complex128) error {
	return reduceVector(ctx, "sum_batched", reduction.Sum, n,
		gudablas.NewBatchedVector(dt, x, incx), batchCount, results, false)
}

// SumStridedBatched computes Sum for batchCount vectors stridex elements
// apart in x.
func SumStridedBatched(ctx *gudablas.Context, dt gudablas.Datatype, n int, x gudablas.DevicePtr, incx, stridex, batchCount int, results []complex128) error {
	return reduceVector(ctx, "sum_strided_batched", reduction.Sum, n,
		gudablas.NewStridedVector(dt, x, incx, stridex), batchCount, results, false)
}
