// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package reduction implements batched parallel reductions over device
// operands.
//
// Every reduction runs the same two-stage tree. Stage 1 launches
// ceil(n/NB) blocks per batch instance; each block fetches NB elements,
// combines them pairwise and writes one partial into the workspace.
// Stage 2 launches one block per instance that folds the partials, combines
// them pairwise, finalizes and writes the result. The combination order
// depends on n and NB only, so results are reproducible bit for bit.
package reduction

import (
	"fmt"

	"github.com/LynnColeArt/gudablas"
)

// Blocks returns the number of stage 1 blocks for n elements.
func Blocks(n, nb int) int {
	if n <= 0 {
		return 0
	}
	return (n-1)/nb + 1
}

// WorkspaceSize returns the bytes of workspace Run needs for n elements in
// batchCount instances under p.
func WorkspaceSize[A Accum, R any](ctx *gudablas.Context, p Policy[A, R], n, batchCount int) int {
	if batchCount <= 0 {
		return 0
	}
	var a A
	return Blocks(n, blockSize(ctx, p)) * batchCount * accumSize(a)
}

// Run reduces n values per batch instance, obtained from src, into
// results[0:batchCount].
//
// If workspace is nil Run allocates it from the context pool, waits for the
// reduction and releases it before returning. Otherwise both stages are only
// enqueued on the context stream: the caller synchronizes the stream before
// reading results or reusing the workspace.
//
// For n <= 0 every result is set to Finalize(Identity) and src is never
// called.
func Run[A Accum, R any](ctx *gudablas.Context, p Policy[A, R], n, batchCount int,
	src func(b, i int) A, workspace gudablas.DevicePtr, results []R) error {
	const op = "Reduce"

	if p.Combine == nil || p.Finalize == nil {
		return gudablas.NewInvalidArgError(op, fmt.Sprintf("policy %q is incomplete", p.Name))
	}
	nb := blockSize(ctx, p)
	if !gudablas.IsPowerOfTwo(nb) || nb > gudablas.MaxThreadsPerBlock {
		return gudablas.NewInvalidArgError(op, fmt.Sprintf("block size %d is not a power of two in [1, %d]",
			nb, gudablas.MaxThreadsPerBlock))
	}
	if batchCount < 0 {
		return gudablas.NewInvalidArgError(op, fmt.Sprintf("negative batch count %d", batchCount))
	}
	if len(results) < batchCount {
		return gudablas.NewInvalidArgError(op, fmt.Sprintf("%d result slots for batch count %d", len(results), batchCount))
	}
	if batchCount == 0 {
		return nil
	}
	if n <= 0 {
		v := p.Finalize(p.Identity)
		for b := range results[:batchCount] {
			results[b] = v
		}
		return nil
	}

	blocks := Blocks(n, nb)
	slots := blocks * batchCount

	owned := workspace.IsNil()
	if owned {
		var err error
		var a A
		if workspace, err = ctx.Malloc(slots * accumSize(a)); err != nil {
			return err
		}
	}
	ws := gudablas.Elements[A](workspace)
	if len(ws) < slots {
		return &gudablas.GUDAError{
			Type:    gudablas.ErrTypeInvalidArg,
			Op:      op,
			Message: fmt.Sprintf("workspace holds %d partials, %d needed", len(ws), slots),
			Err:     gudablas.ErrInvalidSize,
		}
	}
	ws = ws[:slots]

	err := enqueue(ctx, p, n, nb, blocks, batchCount, src, ws, results)
	if !owned {
		return err
	}

	// The stages may have been enqueued before a launch error; drain them
	// before the workspace goes back to the pool.
	if syncErr := ctx.Stream().Synchronize(); err == nil {
		err = syncErr
	}
	if freeErr := ctx.Free(workspace); err == nil {
		err = freeErr
	}
	return err
}

func enqueue[A Accum, R any](ctx *gudablas.Context, p Policy[A, R], n, nb, blocks, batchCount int,
	src func(b, i int) A, ws []A, results []R) error {
	stream := ctx.Stream()
	block := gudablas.Dim3{X: nb, Y: 1, Z: 1}

	partials := func(blockIdx, _, _ gudablas.Dim3) {
		shared := make([]A, nb)
		b, first := blockIdx.Z, blockIdx.X*nb
		for t := range shared {
			if i := first + t; i < n {
				shared[t] = src(b, i)
			} else {
				shared[t] = p.Identity
			}
		}
		ws[b*blocks+blockIdx.X] = treeCombine(shared, p.Combine)
	}
	if err := ctx.LaunchBlocksStream(partials, gudablas.Dim3{X: blocks, Y: 1, Z: batchCount}, block, stream); err != nil {
		return err
	}

	final := func(blockIdx, _, _ gudablas.Dim3) {
		shared := make([]A, nb)
		b := blockIdx.Z
		part := ws[b*blocks : (b+1)*blocks]
		for t := range shared {
			acc := p.Identity
			for k := t; k < blocks; k += nb {
				acc = p.Combine(acc, part[k])
			}
			shared[t] = acc
		}
		results[b] = p.Finalize(treeCombine(shared, p.Combine))
	}
	return ctx.LaunchBlocksStream(final, gudablas.Dim3{X: 1, Y: 1, Z: batchCount}, block, stream)
}

// treeCombine folds v pairwise in place: v[t] = combine(v[t], v[t+s]) for
// s = len(v)/2 down to 1. len(v) must be a power of two.
func treeCombine[A Accum](v []A, combine func(a, b A) A) A {
	for s := len(v) / 2; s > 0; s >>= 1 {
		for t := 0; t < s; t++ {
			v[t] = combine(v[t], v[t+s])
		}
	}
	return v[0]
}

func blockSize[A Accum, R any](ctx *gudablas.Context, p Policy[A, R]) int {
	if p.BlockSize != 0 {
		return p.BlockSize
	}
	return ctx.BlockSize()
}

func accumSize[A Accum](a A) int {
	switch any(a).(type) {
	case float64:
		return 8
	default:
		return 16
	}
}
