package gudablas

import "fmt"

// Buffer is the storage behind a possibly batched operand. It is either a
// single allocation sliced by a fixed per-batch stride (Strided) or an
// array of independently allocated instances (Batched).
type Buffer interface {
	// instance returns the allocation holding batch instance b and the
	// element offset of the instance inside it.
	instance(b int) (DevicePtr, int)
	// count returns how many instances the buffer can address, -1 if unbounded.
	count() int
}

// Strided is one allocation holding every batch instance Stride elements
// apart. A zero Stride makes all instances alias the same data.
type Strided struct {
	Ptr    DevicePtr
	Stride int
}

func (s Strided) instance(b int) (DevicePtr, int) { return s.Ptr, b * s.Stride }
func (s Strided) count() int                      { return -1 }

// Batched is an array of device pointers, one per batch instance.
type Batched []DevicePtr

func (p Batched) instance(b int) (DevicePtr, int) { return p[b], 0 }
func (p Batched) count() int                      { return len(p) }

// Vector describes a strided vector operand. Element i of batch instance b
// lives at Offset + i*Inc inside the instance; for a negative Inc the
// traversal starts -(Inc)*(n-1) elements in and walks backwards.
//
// Type selects how the bytes of Data are read. Device memory is untyped, so
// it is not checked against the type the data was uploaded as.
type Vector struct {
	Type   Datatype
	Data   Buffer
	Offset int
	Inc    int
}

// NewVector describes a single vector.
func NewVector(dt Datatype, ptr DevicePtr, inc int) Vector {
	return Vector{Type: dt, Data: Strided{Ptr: ptr}, Inc: inc}
}

// NewStridedVector describes batch instances stride elements apart in ptr.
func NewStridedVector(dt Datatype, ptr DevicePtr, inc, stride int) Vector {
	return Vector{Type: dt, Data: Strided{Ptr: ptr, Stride: stride}, Inc: inc}
}

// NewBatchedVector describes batch instances held in separate allocations.
func NewBatchedVector(dt Datatype, ptrs []DevicePtr, inc int) Vector {
	return Vector{Type: dt, Data: Batched(ptrs), Inc: inc}
}

// Matrix describes a column-major matrix operand: element (i, j) of batch
// instance b lives at Offset + i + j*Ld inside the instance.
type Matrix struct {
	Type   Datatype
	Data   Buffer
	Offset int
	Ld     int
}

// NewMatrix describes a single matrix.
func NewMatrix(dt Datatype, ptr DevicePtr, ld int) Matrix {
	return Matrix{Type: dt, Data: Strided{Ptr: ptr}, Ld: ld}
}

// NewStridedMatrix describes batch instances stride elements apart in ptr.
func NewStridedMatrix(dt Datatype, ptr DevicePtr, ld, stride int) Matrix {
	return Matrix{Type: dt, Data: Strided{Ptr: ptr, Stride: stride}, Ld: ld}
}

// NewBatchedMatrix describes batch instances held in separate allocations.
func NewBatchedMatrix(dt Datatype, ptrs []DevicePtr, ld int) Matrix {
	return Matrix{Type: dt, Data: Batched(ptrs), Ld: ld}
}

// VectorView is a Vector resolved for one element type: every batch
// instance is reduced to the exact slice its traversal touches.
type VectorView[T Element] struct {
	bases [][]T
	shift int
	inc   int
	n     int
}

// At returns element i of batch instance b.
func (v VectorView[T]) At(b, i int) T {
	return v.bases[b][v.shift+i*v.inc]
}

// Len returns the number of logical elements per instance.
func (v VectorView[T]) Len() int { return v.n }

// BatchCount returns the number of resolved instances.
func (v VectorView[T]) BatchCount() int { return len(v.bases) }

// ResolveVector validates x for n elements and batchCount instances and
// returns a typed view of it. It never reads element data.
func ResolveVector[T Element](op string, x Vector, n, batchCount int) (VectorView[T], error) {
	if n <= 0 || batchCount <= 0 {
		return VectorView[T]{}, nil
	}
	if err := checkOperand(op, x.Type, DatatypeOf[T](), x.Data, batchCount); err != nil {
		return VectorView[T]{}, err
	}

	extent := (n-1)*abs(x.Inc) + 1
	v := VectorView[T]{
		bases: make([][]T, batchCount),
		inc:   x.Inc,
		n:     n,
	}
	if x.Inc < 0 {
		v.shift = -x.Inc * (n - 1)
	}

	for b := 0; b < batchCount; b++ {
		base, err := instanceSlice[T](op, x.Data, b, x.Offset, extent)
		if err != nil {
			return VectorView[T]{}, err
		}
		v.bases[b] = base
	}
	return v, nil
}

// MatrixView is a Matrix resolved for one element type.
type MatrixView[T Element] struct {
	bases [][]T
	ld    int
}

// At returns element (i, j) of batch instance b.
func (m MatrixView[T]) At(b, i, j int) T {
	return m.bases[b][i+j*m.ld]
}

// ResolveMatrix validates a stored rows x cols matrix for batchCount
// instances and returns a typed view of it.
func ResolveMatrix[T Element](op string, a Matrix, rows, cols, batchCount int) (MatrixView[T], error) {
	if rows <= 0 || cols <= 0 || batchCount <= 0 {
		return MatrixView[T]{}, nil
	}
	if a.Ld < max(1, rows) {
		return MatrixView[T]{}, &GUDAError{
			Type:    ErrTypeInvalidArg,
			Op:      op,
			Message: fmt.Sprintf("leading dimension %d smaller than %d rows", a.Ld, rows),
			Err:     ErrOutOfBounds,
		}
	}
	if err := checkOperand(op, a.Type, DatatypeOf[T](), a.Data, batchCount); err != nil {
		return MatrixView[T]{}, err
	}

	extent := (cols-1)*a.Ld + rows
	m := MatrixView[T]{bases: make([][]T, batchCount), ld: a.Ld}
	for b := 0; b < batchCount; b++ {
		base, err := instanceSlice[T](op, a.Data, b, a.Offset, extent)
		if err != nil {
			return MatrixView[T]{}, err
		}
		m.bases[b] = base
	}
	return m, nil
}

func checkOperand(op string, have, want Datatype, data Buffer, batchCount int) error {
	if have != want {
		return &GUDAError{
			Type:    ErrTypeInvalidArg,
			Op:      op,
			Message: fmt.Sprintf("operand is %v, call resolved %v", have, want),
			Err:     ErrTypeMismatch,
		}
	}
	if data == nil {
		return &GUDAError{Type: ErrTypeInvalidArg, Op: op, Message: "operand has no buffer", Err: ErrNullPointer}
	}
	if s, ok := data.(Strided); ok && s.Stride < 0 {
		return NewInvalidArgError(op, fmt.Sprintf("negative batch stride %d", s.Stride))
	}
	if c := data.count(); c >= 0 && c < batchCount {
		return NewInvalidArgError(op, fmt.Sprintf("%d batch pointers for batch count %d", c, batchCount))
	}
	return nil
}

func instanceSlice[T Element](op string, data Buffer, b, offset, extent int) ([]T, error) {
	ptr, off := data.instance(b)
	if ptr.IsNil() {
		return nil, &GUDAError{
			Type:    ErrTypeInvalidArg,
			Op:      op,
			Message: fmt.Sprintf("batch instance %d has a null pointer", b),
			Err:     ErrNullPointer,
		}
	}
	elems := Elements[T](ptr)
	start := offset + off
	if start < 0 || start+extent > len(elems) {
		return nil, &GUDAError{
			Type:    ErrTypeInvalidArg,
			Op:      op,
			Message: fmt.Sprintf("batch instance %d needs elements [%d, %d) of %d", b, start, start+extent, len(elems)),
			Err:     ErrOutOfBounds,
		}
	}
	return elems[start : start+extent], nil
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
