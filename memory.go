package gudablas

import (
	"fmt"
	"sync"
	"unsafe"
)

// MemcpyKind specifies the direction of memory transfer.
// All memory is CPU-accessible, so the kinds only document intent.
type MemcpyKind int

const (
	MemcpyHostToHost     MemcpyKind = iota // Host to host transfer
	MemcpyHostToDevice                     // Host to device transfer
	MemcpyDeviceToHost                     // Device to host transfer
	MemcpyDeviceToDevice                   // Device to device transfer
	MemcpyDefault                          // Default transfer (infer direction)
)

// DevicePtr represents a pointer to device memory. Use Offset for pointer
// arithmetic and the typed view methods to access the data.
type DevicePtr struct {
	ptr    unsafe.Pointer
	size   int
	offset int
}

// MemoryPool manages device memory allocation with efficient reuse.
// It maintains a free list of previously allocated blocks to reduce
// allocation overhead and memory fragmentation.
type MemoryPool struct {
	mu         sync.Mutex
	allocated  map[uintptr]*allocation
	freeList   []*allocation
	totalAlloc int64
	peakAlloc  int64
	limit      int64
}

type allocation struct {
	ptr  unsafe.Pointer
	buf  []byte
	size int
	used bool
}

// NewMemoryPool creates a new memory pool for efficient memory management.
func NewMemoryPool() *MemoryPool {
	return &MemoryPool{
		allocated: make(map[uintptr]*allocation),
	}
}

// Malloc allocates device memory of the specified size in bytes.
//
// Example:
//
//	ptr, err := ctx.Malloc(1024 * 4) // 1024 float32s
//	if err != nil {
//		return err
//	}
//	defer ctx.Free(ptr)
func (ctx *Context) Malloc(size int) (DevicePtr, error) {
	return ctx.memory.Allocate(size)
}

// Free releases device memory allocated by Malloc.
// Freeing a zero DevicePtr is a no-op.
func (ctx *Context) Free(ptr DevicePtr) error {
	if ptr.IsNil() {
		return nil
	}
	return ctx.memory.Free(ptr)
}

// Memset fills size bytes of ptr with value once prior work on the default
// stream has completed.
func (ctx *Context) Memset(ptr DevicePtr, value byte, size int) error {
	if err := ctx.defaultStream.Synchronize(); err != nil {
		return err
	}
	if size < 0 || size > ptr.size {
		return NewInvalidArgError("Memset", fmt.Sprintf("size %d outside allocation of %d bytes", size, ptr.size))
	}
	b := ptr.Byte()[:size]
	for i := range b {
		b[i] = value
	}
	return nil
}

// Memcpy copies size bytes between host and device. Like its CUDA
// counterpart it waits for prior work on the default stream first.
// dst and src may be DevicePtr values or slices of any element type.
//
// Example:
//
//	h := make([]float32, 1024)
//	d, _ := ctx.Malloc(1024 * 4)
//	ctx.Memcpy(d, h, 1024*4, gudablas.MemcpyHostToDevice)
func (ctx *Context) Memcpy(dst, src interface{}, size int, kind MemcpyKind) error {
	if err := ctx.defaultStream.Synchronize(); err != nil {
		return err
	}

	dstBytes, err := bytesOf("Memcpy", dst)
	if err != nil {
		return err
	}
	srcBytes, err := bytesOf("Memcpy", src)
	if err != nil {
		return err
	}
	if size < 0 || size > len(dstBytes) || size > len(srcBytes) {
		return NewInvalidArgError("Memcpy",
			fmt.Sprintf("size %d exceeds dst (%d) or src (%d)", size, len(dstBytes), len(srcBytes)))
	}
	copy(dstBytes[:size], srcBytes[:size])
	return nil
}

// Upload copies src into ptr.
func Upload[T Element](ctx *Context, ptr DevicePtr, src []T) error {
	return ctx.Memcpy(ptr, src, len(src)*sizeOf[T](), MemcpyHostToDevice)
}

// Download copies the first len(dst) elements of ptr into dst.
func Download[T Element](ctx *Context, dst []T, ptr DevicePtr) error {
	return ctx.Memcpy(dst, ptr, len(dst)*sizeOf[T](), MemcpyDeviceToHost)
}

func bytesOf(op string, v interface{}) ([]byte, error) {
	switch s := v.(type) {
	case DevicePtr:
		return s.Byte(), nil
	case []byte:
		return s, nil
	case []int32:
		return sliceBytes(s), nil
	case []float32:
		return sliceBytes(s), nil
	case []float64:
		return sliceBytes(s), nil
	case []complex64:
		return sliceBytes(s), nil
	case []complex128:
		return sliceBytes(s), nil
	case []Float16:
		return sliceBytes(s), nil
	case []BFloat16:
		return sliceBytes(s), nil
	default:
		return nil, NewInvalidArgError(op, fmt.Sprintf("unsupported operand type: %T", v))
	}
}

func sliceBytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(s[0])))
}

// MemoryPool methods

// Allocate allocates memory from the pool.
func (mp *MemoryPool) Allocate(size int) (DevicePtr, error) {
	if size <= 0 {
		return DevicePtr{}, ErrInvalidSize
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	alignedSize := (size + MemoryAlignment - 1) &^ (MemoryAlignment - 1)

	// Reuse from the free list first.
	for i, alloc := range mp.freeList {
		if alloc.size >= alignedSize {
			if mp.limit > 0 && mp.totalAlloc+int64(alloc.size) > mp.limit {
				break
			}
			mp.freeList = append(mp.freeList[:i], mp.freeList[i+1:]...)
			alloc.used = true
			mp.track(alloc.size)
			return DevicePtr{ptr: alloc.ptr, size: size}, nil
		}
	}

	if mp.limit > 0 && mp.totalAlloc+int64(alignedSize) > mp.limit {
		return DevicePtr{}, NewMemoryError("Malloc",
			fmt.Sprintf("out of memory: %d bytes requested, %d of %d in use", alignedSize, mp.totalAlloc, mp.limit),
			ErrOutOfMemory)
	}

	buf := make([]byte, alignedSize)
	ptr := unsafe.Pointer(&buf[0])

	alloc := &allocation{
		ptr:  ptr,
		buf:  buf,
		size: alignedSize,
		used: true,
	}
	mp.allocated[uintptr(ptr)] = alloc
	mp.track(alignedSize)

	return DevicePtr{ptr: ptr, size: size}, nil
}

func (mp *MemoryPool) track(size int) {
	mp.totalAlloc += int64(size)
	if mp.totalAlloc > mp.peakAlloc {
		mp.peakAlloc = mp.totalAlloc
	}
}

// Free returns memory to the pool.
func (mp *MemoryPool) Free(ptr DevicePtr) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	alloc, ok := mp.allocated[uintptr(ptr.ptr)]
	if !ok {
		return NewMemoryError("Free", "pointer not found in allocation pool", nil)
	}
	if !alloc.used {
		return ErrDoubleFree
	}

	alloc.used = false
	mp.freeList = append(mp.freeList, alloc)
	mp.totalAlloc -= int64(alloc.size)
	return nil
}

// GetStats returns memory pool statistics
func (mp *MemoryPool) GetStats() (allocated, peak int64) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.totalAlloc, mp.peakAlloc
}

// Limit returns the byte cap of the pool, zero when unlimited.
func (mp *MemoryPool) Limit() int64 {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.limit
}

// DevicePtr methods

// IsNil reports whether the pointer addresses no memory.
func (d DevicePtr) IsNil() bool {
	return d.ptr == nil
}

// Size returns the size in bytes of the memory region
func (d DevicePtr) Size() int {
	return d.size
}

// Offset returns a new DevicePtr offset by the given number of bytes.
// The returned DevicePtr shares the same underlying memory; offsets at or
// past the end yield a nil pointer.
func (d DevicePtr) Offset(bytes int) DevicePtr {
	if d.ptr == nil || bytes < 0 || bytes >= d.size {
		return DevicePtr{}
	}
	return DevicePtr{
		ptr:    unsafe.Add(d.ptr, bytes),
		size:   d.size - bytes,
		offset: d.offset + bytes,
	}
}

// Byte returns a byte slice view of the device memory.
func (d DevicePtr) Byte() []byte {
	return viewAs[byte](d)
}

// Int32 returns an int32 slice view of the device memory.
func (d DevicePtr) Int32() []int32 {
	return viewAs[int32](d)
}

// Float32 returns a float32 slice view of the device memory.
//
// Example:
//
//	d, _ := ctx.Malloc(1024 * 4)
//	data := d.Float32()
//	data[0] = 3.14
func (d DevicePtr) Float32() []float32 {
	return viewAs[float32](d)
}

// Float64 returns a float64 slice view of the device memory.
func (d DevicePtr) Float64() []float64 {
	return viewAs[float64](d)
}

// Complex64 returns a complex64 slice view of the device memory.
func (d DevicePtr) Complex64() []complex64 {
	return viewAs[complex64](d)
}

// Complex128 returns a complex128 slice view of the device memory.
func (d DevicePtr) Complex128() []complex128 {
	return viewAs[complex128](d)
}

// Float16 returns a Float16 slice view of the device memory.
func (d DevicePtr) Float16() []Float16 {
	return viewAs[Float16](d)
}

// BFloat16 returns a BFloat16 slice view of the device memory.
func (d DevicePtr) BFloat16() []BFloat16 {
	return viewAs[BFloat16](d)
}

// Elements returns a typed view of the device memory.
func Elements[T Element](d DevicePtr) []T {
	return viewAs[T](d)
}

func viewAs[T any](d DevicePtr) []T {
	if d.ptr == nil {
		return nil
	}
	n := d.size / sizeOf[T]()
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*T)(d.ptr), n)
}

func sizeOf[T any]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// getSystemMemory returns the nominal memory of the CPU device.
func getSystemMemory() uint64 {
	return 16 * 1024 * 1024 * 1024
}
