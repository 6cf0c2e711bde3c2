package level1

import (
	"github.com/LynnColeArt/gudablas"
	"github.com/LynnColeArt/gudablas/reduction"
)

// Nrm2 returns the Euclidean norm of n elements of x.
// It is zero for n <= 0 or a non-positive increment.
func Nrm2(ctx *gudablas.Context, n int, x gudablas.Vector) (float64, error) {
	return single(func(results []float64) error {
		return reduceVector(ctx, "nrm2", reduction.Nrm2, n, x, 1, results, true)
	})
}

// Nrm2Batched computes Nrm2 for each of batchCount vectors in x.
func Nrm2Batched(ctx *gudablas.Context, dt gudablas.Datatype, n int, x []gudablas.DevicePtr, incx, batchCount int, results []float64) error {
	return reduceVector(ctx, "nrm2_batched", reduction.Nrm2, n,
		gudablas.NewBatchedVector(dt, x, incx), batchCount, results, true)
}

// Nrm2StridedBatched computes Nrm2 for batchCount vectors stridex elements
// apart in x.
func Nrm2StridedBatched(ctx *gudablas.Context, dt gudablas.Datatype, n int, x gudablas.DevicePtr, incx, stridex, batchCount int, results []float64) error {
	return reduceVector(ctx, "nrm2_strided_batched", reduction.Nrm2, n,
		gudablas.NewStridedVector(dt, x, incx, stridex), batchCount, results, true)
}
