// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gudablas is the runtime of a BLAS library executing on a
// CUDA-style device emulated by the CPU.
//
// A Context owns the default stream, a device memory pool and the
// check-numerics policy, and is passed explicitly to every routine:
//
//	ctx, err := gudablas.NewContext(gudablas.WithCheckNumerics(gudablas.CheckNumericsFail))
//	if err != nil {
//		return err
//	}
//	defer ctx.Destroy()
//
// Device operands are described by Vector and Matrix values. Their storage
// is either one allocation sliced by a fixed batch stride (Strided) or an
// array of per-instance allocations (Batched); ResolveVector and
// ResolveMatrix validate a descriptor once per call and return a typed
// view for kernels to read.
//
// The numerics package scans operands for NaN, Inf and zero values, the
// reduction package implements the batched tree reductions, and level1
// builds the BLAS asum, nrm2, dot and sum routines on both.
//
// Errors are *GUDAError values; StatusOf maps them onto the Status
// enumeration returned by the C-style interface.
package gudablas
