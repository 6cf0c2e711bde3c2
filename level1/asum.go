package level1

import (
	"github.com/LynnColeArt/gudablas"
	"github.com/LynnColeArt/gudablas/reduction"
)

// Asum returns the sum of |re(x[i])| + |im(x[i])| over n elements of x.
// It is zero for n <= 0 or a non-positive increment.
func Asum(ctx *gudablas.Context, n int, x gudablas.Vector) (float64, error) {
	return single(func(results []float64) error {
		return reduceVector(ctx, "asum", reduction.Asum, n, x, 1, results, true)
	})
}

// AsumBatched computes Asum for each of batchCount vectors in x.
func AsumBatched(ctx *gudablas.Context, dt gudablas.Datatype, n int, x []gudablas.DevicePtr, incx, batchCount int, results []float64) error {
	return reduceVector(ctx, "asum_batched", reduction.Asum, n,
		gudablas.NewBatchedVector(dt, x, incx), batchCount, results, true)
}

// AsumStridedBatched computes Asum for batchCount vectors stridex elements
// apart in x.
func AsumStridedBatched(ctx *gudablas.Context, dt gudablas.Datatype, n int, x gudablas.DevicePtr, incx, stridex, batchCount int, results []float64) error {
	return reduceVector(ctx, "asum_strided_batched", reduction.Asum, n,
		gudablas.NewStridedVector(dt, x, incx, stridex), batchCount, results, true)
}
