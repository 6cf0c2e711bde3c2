package gudablas

import (
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
)

// NewContextOrFail creates a context with a discarding logger and destroys
// it when the test ends.
func NewContextOrFail(t testing.TB, opts ...Option) *Context {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	ctx, err := NewContext(append([]Option{WithLogger(logger)}, opts...)...)
	if err != nil {
		t.Fatalf("NewContext failed: %v", err)
	}
	t.Cleanup(func() { ctx.Destroy() })
	return ctx
}

// MallocOrFail allocates device memory and fails the test if unsuccessful
func MallocOrFail(t testing.TB, ctx *Context, size int) DevicePtr {
	t.Helper()
	ptr, err := ctx.Malloc(size)
	if err != nil {
		t.Fatalf("Failed to allocate %d bytes: %v", size, err)
	}
	return ptr
}

// UploadOrFail allocates device memory holding src.
func UploadOrFail[T Element](t testing.TB, ctx *Context, src []T) DevicePtr {
	t.Helper()
	ptr := MallocOrFail(t, ctx, len(src)*sizeOf[T]())
	if err := Upload(ctx, ptr, src); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	return ptr
}

// LaunchOrFail launches a kernel and fails the test if unsuccessful
func LaunchOrFail(t testing.TB, ctx *Context, kernel KernelFunc, grid, block Dim3, args ...interface{}) {
	t.Helper()
	if err := ctx.LaunchFunc(kernel, grid, block, args...); err != nil {
		t.Fatalf("Kernel launch failed: %v", err)
	}
}

// SynchronizeOrFail synchronizes and fails the test if unsuccessful
func SynchronizeOrFail(t testing.TB, ctx *Context) {
	t.Helper()
	if err := ctx.Synchronize(); err != nil {
		t.Fatalf("Synchronize failed: %v", err)
	}
}
