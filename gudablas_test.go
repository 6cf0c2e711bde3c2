package gudablas

import (
	"errors"
	"math/rand"
	"sync/atomic"
	"testing"
)

// Test basic memory allocation and deallocation
func TestMemoryAllocation(t *testing.T) {
	ctx := NewContextOrFail(t)
	sizes := []int{100, 1000, 10000, 1000000}

	for _, size := range sizes {
		ptr := MallocOrFail(t, ctx, size*4)

		slice := ptr.Float32()
		if len(slice) != size {
			t.Errorf("Expected slice length %d, got %d", size, len(slice))
		}

		for i := 0; i < min(100, size); i++ {
			slice[i] = float32(i)
		}
		for i := 0; i < min(100, size); i++ {
			if slice[i] != float32(i) {
				t.Errorf("Memory corruption at index %d", i)
			}
		}

		if err := ctx.Free(ptr); err != nil {
			t.Fatalf("Failed to free memory: %v", err)
		}
	}
}

func TestMemcpy(t *testing.T) {
	ctx := NewContextOrFail(t)
	const N = 1000

	hSrc := make([]float64, N)
	hDst := make([]float64, N)
	for i := range hSrc {
		hSrc[i] = rand.Float64()
	}

	dSrc := MallocOrFail(t, ctx, N*8)
	dDst := MallocOrFail(t, ctx, N*8)
	defer ctx.Free(dSrc)
	defer ctx.Free(dDst)

	if err := ctx.Memcpy(dSrc, hSrc, N*8, MemcpyHostToDevice); err != nil {
		t.Fatalf("H2D copy failed: %v", err)
	}
	if err := ctx.Memcpy(dDst, dSrc, N*8, MemcpyDeviceToDevice); err != nil {
		t.Fatalf("D2D copy failed: %v", err)
	}
	if err := ctx.Memcpy(hDst, dDst, N*8, MemcpyDeviceToHost); err != nil {
		t.Fatalf("D2H copy failed: %v", err)
	}
	for i := range hSrc {
		if hSrc[i] != hDst[i] {
			t.Fatalf("Data mismatch at index %d: %v vs %v", i, hSrc[i], hDst[i])
		}
	}

	if err := ctx.Memcpy(dDst, hSrc, N*8+1, MemcpyHostToDevice); !IsInvalidArgError(err) {
		t.Errorf("oversized copy: got %v", err)
	}
	if err := ctx.Memcpy(dDst, "text", 4, MemcpyHostToDevice); err == nil {
		t.Error("copy from an unsupported type should fail")
	}
}

func TestUploadDownload(t *testing.T) {
	ctx := NewContextOrFail(t)

	src := []complex64{1 + 2i, 3 - 4i, -5i}
	ptr := UploadOrFail(t, ctx, src)
	dst := make([]complex64, len(src))
	if err := Download(ctx, dst, ptr); err != nil {
		t.Fatal(err)
	}
	for i := range src {
		if src[i] != dst[i] {
			t.Errorf("element %d: got %v, want %v", i, dst[i], src[i])
		}
	}

	half := []Float16{FromFloat32(1), FromFloat32(-0.5)}
	hp := UploadOrFail(t, ctx, half)
	if got := Elements[Float16](hp); len(got) != 2 || got[1].ToFloat32() != -0.5 {
		t.Errorf("Elements[Float16] = %v", got)
	}
}

func TestMemset(t *testing.T) {
	ctx := NewContextOrFail(t)
	ptr := MallocOrFail(t, ctx, 16)

	if err := ctx.Memset(ptr, 0xFF, 8); err != nil {
		t.Fatal(err)
	}
	b := ptr.Byte()
	for i := range b {
		want := byte(0)
		if i < 8 {
			want = 0xFF
		}
		if b[i] != want {
			t.Fatalf("byte %d = %#x, want %#x", i, b[i], want)
		}
	}
	if err := ctx.Memset(ptr, 0, 17); !IsInvalidArgError(err) {
		t.Errorf("Memset past the allocation: got %v", err)
	}
}

// Test basic kernel launch
func TestKernelLaunch(t *testing.T) {
	ctx := NewContextOrFail(t)
	const N = 10000

	d := MallocOrFail(t, ctx, N*4)
	defer ctx.Free(d)
	slice := d.Float32()

	kernel := KernelFunc(func(tid ThreadID, args ...interface{}) {
		idx := tid.Global()
		if idx < N {
			slice[idx] = float32(idx)
		}
	})
	LaunchOrFail(t, ctx, kernel, Dim3{X: (N + 255) / 256, Y: 1, Z: 1}, Dim3{X: 256, Y: 1, Z: 1})
	SynchronizeOrFail(t, ctx)

	for i := 0; i < N; i++ {
		if slice[i] != float32(i) {
			t.Fatalf("Incorrect value at index %d: expected %f, got %f", i, float32(i), slice[i])
		}
	}
}

func TestLaunch3D(t *testing.T) {
	ctx := NewContextOrFail(t, WithWorkers(4))

	grid := Dim3{X: 3, Y: 2, Z: 5}
	block := Dim3{X: 4, Y: 4, Z: 1}
	var count int64
	seen := make([]int32, grid.Size())

	LaunchOrFail(t, ctx, func(tid ThreadID, args ...interface{}) {
		atomic.AddInt64(&count, 1)
		b := tid.BlockIdx.X + tid.BlockIdx.Y*grid.X + tid.BlockIdx.Z*grid.X*grid.Y
		atomic.StoreInt32(&seen[b], 1)
		if tid.GridDim != grid || tid.BlockDim != block {
			panic("wrong dimensions")
		}
	}, grid, block)
	SynchronizeOrFail(t, ctx)

	if want := int64(grid.Size() * block.Size()); count != want {
		t.Errorf("ran %d threads, want %d", count, want)
	}
	for b, s := range seen {
		if s == 0 {
			t.Errorf("block %d never ran", b)
		}
	}
}

func TestLaunchBlocks(t *testing.T) {
	ctx := NewContextOrFail(t)

	const blocks = 37
	sums := make([]int, blocks)
	err := ctx.LaunchBlocks(func(blockIdx, gridDim, blockDim Dim3) {
		// Emulated shared memory and a two-phase body.
		shared := make([]int, blockDim.X)
		for i := range shared {
			shared[i] = blockIdx.X*blockDim.X + i
		}
		for _, v := range shared {
			sums[blockIdx.X] += v
		}
	}, Dim3{X: blocks, Y: 1, Z: 1}, Dim3{X: 8, Y: 1, Z: 1})
	if err != nil {
		t.Fatal(err)
	}
	SynchronizeOrFail(t, ctx)

	for b, s := range sums {
		want := 64*b + 28
		if s != want {
			t.Errorf("block %d: sum %d, want %d", b, s, want)
		}
	}
}

func TestLaunchInvalid(t *testing.T) {
	ctx := NewContextOrFail(t)
	noop := KernelFunc(func(ThreadID, ...interface{}) {})

	for _, tc := range []struct {
		name        string
		grid, block Dim3
	}{
		{"negative grid", Dim3{X: -1, Y: 1, Z: 1}, Dim3{X: 1, Y: 1, Z: 1}},
		{"empty block", Dim3{X: 1, Y: 1, Z: 1}, Dim3{X: 0, Y: 1, Z: 1}},
		{"block too large", Dim3{X: 1, Y: 1, Z: 1}, Dim3{X: 64, Y: 32, Z: 1}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if err := ctx.LaunchFunc(noop, tc.grid, tc.block); !IsInvalidArgError(err) {
				t.Errorf("got %v, want an invalid argument error", err)
			}
		})
	}

	// An empty grid is valid and does nothing.
	if err := ctx.LaunchFunc(noop, Dim3{X: 0, Y: 1, Z: 1}, Dim3{X: 1, Y: 1, Z: 1}); err != nil {
		t.Error(err)
	}
	SynchronizeOrFail(t, ctx)
}

func TestKernelPanic(t *testing.T) {
	ctx := NewContextOrFail(t)

	LaunchOrFail(t, ctx, func(tid ThreadID, args ...interface{}) {
		if tid.Global() == 77 {
			panic("index out of range")
		}
	}, Dim3{X: 4, Y: 1, Z: 1}, Dim3{X: 64, Y: 1, Z: 1})

	err := ctx.Stream().Synchronize()
	if !IsExecutionError(err) {
		t.Fatalf("got %v, want an execution error", err)
	}
	if err := ctx.Stream().Synchronize(); err != nil {
		t.Errorf("error should be cleared by the first synchronization: %v", err)
	}
}

func TestStreamOrdering(t *testing.T) {
	ctx := NewContextOrFail(t)
	s := ctx.CreateStream()

	var order []int
	for i := 0; i < 100; i++ {
		i := i
		s.Submit(func() error {
			order = append(order, i)
			return nil
		})
	}
	s.Submit(func() error { return errors.New("late failure") })
	if err := s.Synchronize(); err == nil || err.Error() != "late failure" {
		t.Errorf("Synchronize() = %v", err)
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("task %d ran at position %d", v, i)
		}
	}
	if s.ID() == ctx.Stream().ID() {
		t.Error("new stream reuses the default stream ID")
	}

	if err := ctx.Destroy(); err != nil {
		t.Errorf("Destroy() = %v", err)
	}
}

func TestStreamConcurrentUse(t *testing.T) {
	ctx := NewContextOrFail(t)
	s := ctx.Stream()

	const goroutines, tasks = 8, 200
	var ran int64
	done := make(chan error, goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			for i := 0; i < tasks; i++ {
				s.Submit(func() error {
					atomic.AddInt64(&ran, 1)
					return nil
				})
				if i%16 == 0 {
					if err := s.Synchronize(); err != nil {
						done <- err
						return
					}
				}
			}
			done <- s.Synchronize()
		}()
	}
	for g := 0; g < goroutines; g++ {
		if err := <-done; err != nil {
			t.Fatal(err)
		}
	}
	if ran != goroutines*tasks {
		t.Errorf("ran %d tasks, want %d", ran, goroutines*tasks)
	}
}

func TestWithStream(t *testing.T) {
	ctx := NewContextOrFail(t, WithBlockSize(64))
	s := ctx.CreateStream()
	view := ctx.WithStream(s)

	if view.Stream() != s || ctx.Stream() == s {
		t.Fatal("WithStream must only change the view's stream")
	}
	if view.Memory() != ctx.Memory() || view.BlockSize() != 64 {
		t.Error("view does not share the context settings")
	}
	if ctx.WithStream(nil).Stream() != ctx.Stream() {
		t.Error("a nil stream should keep the default stream")
	}

	// A fault on the view's stream is reported there only.
	err := view.LaunchFunc(func(ThreadID, ...interface{}) { panic("fault") },
		Dim3{X: 1, Y: 1, Z: 1}, Dim3{X: 1, Y: 1, Z: 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := ctx.Stream().Synchronize(); err != nil {
		t.Errorf("default stream picked up a foreign fault: %v", err)
	}
	if err := s.Synchronize(); !IsExecutionError(err) {
		t.Errorf("view stream: got %v, want an execution error", err)
	}

	// Allocations through the view come from the shared pool and are
	// visible to the context.
	ptr := MallocOrFail(t, view, 64)
	if err := view.Memset(ptr, 7, 64); err != nil {
		t.Fatal(err)
	}
	if err := ctx.Free(ptr); err != nil {
		t.Errorf("freeing a view allocation through the context: %v", err)
	}

	// Destroying the context stops the view's stream as well.
	if err := ctx.Destroy(); err != nil {
		t.Fatal(err)
	}
	if n := len(ctx.streams.byID); n != 0 {
		t.Errorf("%d streams left after Destroy", n)
	}
}

// Test error conditions
func TestErrorHandling(t *testing.T) {
	ctx := NewContextOrFail(t)

	ptr := MallocOrFail(t, ctx, 100)
	if err := ctx.Free(ptr); err != nil {
		t.Fatalf("First free failed: %v", err)
	}
	if err := ctx.Free(ptr); !errors.Is(err, ErrDoubleFree) {
		t.Errorf("Double free: got %v", err)
	}
	if err := ctx.Free(DevicePtr{}); err != nil {
		t.Errorf("Freeing a nil pointer: %v", err)
	}
	if _, err := ctx.Malloc(0); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("Malloc(0): got %v", err)
	}
}

func TestMemoryLimit(t *testing.T) {
	ctx := NewContextOrFail(t, WithMemoryLimit(4096))

	a := MallocOrFail(t, ctx, 4000)
	if _, err := ctx.Malloc(100); !errors.Is(err, ErrOutOfMemory) || StatusOf(err) != StatusMemoryError {
		t.Fatalf("allocation past the limit: got %v", err)
	}
	if err := ctx.Free(a); err != nil {
		t.Fatal(err)
	}
	// The freed block is reused.
	b := MallocOrFail(t, ctx, 2048)
	if b.ptr != a.ptr {
		t.Error("free list block was not reused")
	}
	if got := ctx.Memory().Limit(); got != 4096 {
		t.Errorf("Limit() = %d", got)
	}
}

// Test memory pool statistics
func TestMemoryPoolStats(t *testing.T) {
	ctx := NewContextOrFail(t)
	allocated1, _ := ctx.Memory().GetStats()

	ptrs := make([]DevicePtr, 10)
	for i := range ptrs {
		ptrs[i] = MallocOrFail(t, ctx, 1024*1024)
	}

	allocated2, peak2 := ctx.Memory().GetStats()
	if allocated2 <= allocated1 {
		t.Error("Allocated memory should have increased")
	}
	if peak2 < allocated2 {
		t.Error("Peak should be at least current allocation")
	}

	for i := 0; i < 5; i++ {
		ctx.Free(ptrs[i])
	}
	allocated3, peak3 := ctx.Memory().GetStats()
	if allocated3 >= allocated2 {
		t.Error("Allocated memory should have decreased")
	}
	if peak3 != peak2 {
		t.Error("Peak should not have changed")
	}

	for i := 5; i < 10; i++ {
		ctx.Free(ptrs[i])
	}
}

func TestDevicePtrOffset(t *testing.T) {
	ctx := NewContextOrFail(t)
	ptr := UploadOrFail(t, ctx, []float64{0, 1, 2, 3})

	sub := ptr.Offset(16)
	if sub.Size() != 16 || sub.Float64()[0] != 2 {
		t.Errorf("Offset(16) = %v (size %d)", sub.Float64(), sub.Size())
	}
	if !ptr.Offset(32).IsNil() || !ptr.Offset(-1).IsNil() {
		t.Error("offsets outside the allocation must be nil")
	}
}

func TestNewContextOptions(t *testing.T) {
	ctx := NewContextOrFail(t, WithWorkers(3), WithBlockSize(128), WithCheckNumerics(CheckNumericsWarn))
	if ctx.Workers() != 3 || ctx.BlockSize() != 128 || ctx.CheckNumerics() != CheckNumericsWarn {
		t.Errorf("options not applied: workers=%d block=%d mode=%v", ctx.Workers(), ctx.BlockSize(), ctx.CheckNumerics())
	}
	if ctx.Device().Name != "CPU" || ctx.Device().NumCores <= 0 {
		t.Errorf("unexpected device %+v", ctx.Device())
	}

	ctx.SetCheckNumerics(CheckNumericsFail)
	if ctx.CheckNumerics() != CheckNumericsFail {
		t.Error("SetCheckNumerics had no effect")
	}

	for _, opt := range []Option{WithBlockSize(100), WithBlockSize(2048), WithMemoryLimit(-1)} {
		if _, err := NewContext(opt); !IsInvalidArgError(err) {
			t.Errorf("NewContext accepted an invalid option: %v", err)
		}
	}
}
