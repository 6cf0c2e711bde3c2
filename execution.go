package gudablas

import (
	"fmt"
	"sync"
)

// BlockFunc is executed once per thread block. The body emulates the
// block's threads itself and owns the block's shared memory, so code that
// needs a barrier between phases (tree reductions) can be written as
// consecutive loops.
type BlockFunc func(blockIdx, gridDim, blockDim Dim3)

// Launch executes a kernel on the default stream.
func (ctx *Context) Launch(kernel Kernel, grid, block Dim3, args ...interface{}) error {
	return ctx.LaunchStream(kernel, grid, block, ctx.defaultStream, args...)
}

// LaunchFunc executes a kernel function on the default stream.
func (ctx *Context) LaunchFunc(fn KernelFunc, grid, block Dim3, args ...interface{}) error {
	return ctx.LaunchStream(fn, grid, block, ctx.defaultStream, args...)
}

// LaunchStream executes a kernel on a specific stream. Threads of one block
// run sequentially on the worker that owns the block.
func (ctx *Context) LaunchStream(kernel Kernel, grid, block Dim3, stream *Stream, args ...interface{}) error {
	if err := checkLaunch("Launch", grid, block); err != nil {
		return err
	}
	blockSize := block.Size()
	return ctx.launchInternal(func(blockIdx Dim3) {
		for threadID := 0; threadID < blockSize; threadID++ {
			kernel.Execute(ThreadID{
				BlockIdx:  blockIdx,
				ThreadIdx: linearTo3D(threadID, block),
				BlockDim:  block,
				GridDim:   grid,
			}, args...)
		}
	}, grid, stream)
}

// LaunchBlocks executes fn once for every block of grid on the default stream.
func (ctx *Context) LaunchBlocks(fn BlockFunc, grid, block Dim3) error {
	return ctx.LaunchBlocksStream(fn, grid, block, ctx.defaultStream)
}

// LaunchBlocksStream executes fn once for every block of grid on stream.
func (ctx *Context) LaunchBlocksStream(fn BlockFunc, grid, block Dim3, stream *Stream) error {
	if err := checkLaunch("LaunchBlocks", grid, block); err != nil {
		return err
	}
	return ctx.launchInternal(func(blockIdx Dim3) {
		fn(blockIdx, grid, block)
	}, grid, stream)
}

func checkLaunch(op string, grid, block Dim3) error {
	if grid.X < 0 || grid.Y < 0 || grid.Z < 0 {
		return NewInvalidArgError(op, fmt.Sprintf("invalid grid %+v", grid))
	}
	if block.X <= 0 || block.Y <= 0 || block.Z <= 0 || block.Size() > MaxThreadsPerBlock {
		return NewInvalidArgError(op, fmt.Sprintf("invalid block %+v", block))
	}
	return nil
}

// launchInternal spreads the blocks of grid over the context workers and
// enqueues the whole grid as a single stream task.
func (ctx *Context) launchInternal(runBlock func(blockIdx Dim3), grid Dim3, stream *Stream) error {
	if stream == nil {
		stream = ctx.defaultStream
	}
	gridSize := grid.Size()

	if gridSize == 0 {
		// Keep stream ordering even for empty grids.
		stream.Submit(func() error { return nil })
		return nil
	}

	numWorkers := ctx.workers
	if gridSize < numWorkers {
		numWorkers = gridSize
	}

	// Each worker processes a contiguous run of blocks for cache reuse.
	blocksPerWorker := (gridSize + numWorkers - 1) / numWorkers

	stream.Submit(func() error {
		var (
			wg       sync.WaitGroup
			errOnce  sync.Once
			firstErr error
		)

		for workerID := 0; workerID < numWorkers; workerID++ {
			startBlock := workerID * blocksPerWorker
			endBlock := min(startBlock+blocksPerWorker, gridSize)
			if startBlock >= endBlock {
				break
			}

			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						errOnce.Do(func() {
							firstErr = NewExecutionError("Kernel", fmt.Sprintf("kernel fault: %v", r), nil)
						})
					}
				}()

				for blockID := startBlock; blockID < endBlock; blockID++ {
					runBlock(linearTo3D(blockID, grid))
				}
			}()
		}

		wg.Wait()
		return firstErr
	})

	return nil
}

// linearTo3D converts a linear index to 3D coordinates
func linearTo3D(linear int, dim Dim3) Dim3 {
	z := linear / (dim.X * dim.Y)
	y := (linear % (dim.X * dim.Y)) / dim.X
	x := linear % dim.X
	return Dim3{X: x, Y: y, Z: z}
}
