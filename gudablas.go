package gudablas

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/LynnColeArt/gudablas/internal/logging"
)

// Device represents a compute device. In GUDA, this is the CPU with its
// cores and available memory. Each device has a unique ID and capabilities.
type Device struct {
	ID         int         // Unique device identifier
	Name       string      // Human-readable device name
	TotalMem   uint64      // Total available memory in bytes
	NumCores   int         // Number of CPU cores
	MaxThreads int         // Maximum concurrent threads
	Features   CPUFeatures // SIMD extensions reported by the CPU
}

// Context is the execution handle threaded through every library call.
// It owns the default stream, the device memory pool used for transient
// workspaces, the check-numerics policy, and the logger.
//
// A Context may be used by several goroutines. Calls made through the same
// Context share its default stream; goroutines that want independent
// queues and errors derive a view with WithStream. SetCheckNumerics is not
// synchronized with calls in flight.
//
// A Context must be destroyed when no longer needed.
type Context struct {
	device        *Device
	memory        *MemoryPool
	defaultStream *Stream
	logger        logrus.FieldLogger

	checkNumerics CheckNumericsMode
	blockSize     int
	workers       int

	streams *streamSet
}

// streamSet is shared by a Context and the views WithStream derives from it.
type streamSet struct {
	mu     sync.Mutex
	byID   map[int]*Stream
	nextID int32
}

// Stream represents an ordered sequence of operations that execute
// asynchronously. Operations within a stream execute in order, but
// operations in different streams may execute concurrently.
//
// Submit and Synchronize may be called from any goroutine. A stream keeps
// one error slot: callers sharing a stream share its errors, so concurrent
// callers that need their own failures should use their own stream.
type Stream struct {
	id    int
	tasks chan func() error
	done  chan struct{}

	mu      sync.Mutex
	idle    *sync.Cond
	pending int
	err     error

	closeOnce sync.Once
}

// Dim3 represents 3D dimensions for grid and block configurations.
type Dim3 struct {
	X, Y, Z int
}

// ThreadID identifies a thread's position within the execution hierarchy,
// with the same meaning as blockIdx, threadIdx, blockDim and gridDim.
type ThreadID struct {
	BlockIdx  Dim3 // Block index within the grid
	ThreadIdx Dim3 // Thread index within the block
	BlockDim  Dim3 // Dimensions of the block
	GridDim   Dim3 // Dimensions of the grid
}

// Kernel represents a compute kernel that can be executed in parallel.
// Implementations must be safe for concurrent use: Execute is called
// from multiple goroutines.
type Kernel interface {
	Execute(tid ThreadID, args ...interface{})
}

// KernelFunc is a function that can be launched as a kernel.
type KernelFunc func(tid ThreadID, args ...interface{})

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger used for check-numerics and trace records.
func WithLogger(l logrus.FieldLogger) Option {
	return func(ctx *Context) {
		if l != nil {
			ctx.logger = l
		}
	}
}

// WithCheckNumerics sets the default check-numerics policy.
func WithCheckNumerics(mode CheckNumericsMode) Option {
	return func(ctx *Context) { ctx.checkNumerics = mode }
}

// WithMemoryLimit caps the bytes the context's pool may hold at once.
// Zero means unlimited.
func WithMemoryLimit(bytes int64) Option {
	return func(ctx *Context) { ctx.memory.limit = bytes }
}

// WithWorkers sets how many goroutines execute the blocks of a grid.
func WithWorkers(n int) Option {
	return func(ctx *Context) {
		if n > 0 {
			ctx.workers = n
		}
	}
}

// WithBlockSize sets the block size used by reductions that do not pick
// their own. It must be a power of two no larger than MaxThreadsPerBlock.
func WithBlockSize(n int) Option {
	return func(ctx *Context) { ctx.blockSize = n }
}

// NewContext creates an execution context on the CPU device.
//
// Example:
//
//	ctx, err := gudablas.NewContext(gudablas.WithCheckNumerics(gudablas.CheckNumericsFail))
//	if err != nil {
//		return err
//	}
//	defer ctx.Destroy()
func NewContext(opts ...Option) (*Context, error) {
	features := DetectCPUFeatures()
	device := &Device{
		ID:         0,
		Name:       "CPU",
		TotalMem:   getSystemMemory(),
		NumCores:   runtime.NumCPU(),
		MaxThreads: runtime.NumCPU() * 2,
		Features:   features,
	}

	ctx := &Context{
		device:    device,
		memory:    NewMemoryPool(),
		logger:    logging.Get(),
		blockSize: DefaultBlockSize,
		workers:   runtime.NumCPU(),
		streams:   &streamSet{byID: make(map[int]*Stream)},
	}
	for _, opt := range opts {
		opt(ctx)
	}

	if !IsPowerOfTwo(ctx.blockSize) || ctx.blockSize > MaxThreadsPerBlock {
		return nil, NewInvalidArgError("NewContext",
			fmt.Sprintf("block size %d is not a power of two in [1, %d]", ctx.blockSize, MaxThreadsPerBlock))
	}
	if ctx.memory.limit < 0 {
		return nil, NewInvalidArgError("NewContext", "memory limit must not be negative")
	}

	ctx.defaultStream = ctx.CreateStream()
	return ctx, nil
}

// Device returns the device the context executes on.
func (ctx *Context) Device() *Device {
	return ctx.device
}

// Stream returns the default stream of the context.
func (ctx *Context) Stream() *Stream {
	return ctx.defaultStream
}

// Memory returns the context's device memory pool.
func (ctx *Context) Memory() *MemoryPool {
	return ctx.memory
}

// Logger returns the logger carried by the context.
func (ctx *Context) Logger() logrus.FieldLogger {
	return ctx.logger
}

// CheckNumerics returns the default check-numerics policy.
func (ctx *Context) CheckNumerics() CheckNumericsMode {
	return ctx.checkNumerics
}

// SetCheckNumerics changes the default check-numerics policy.
func (ctx *Context) SetCheckNumerics(mode CheckNumericsMode) {
	ctx.checkNumerics = mode
}

// BlockSize returns the default reduction block size.
func (ctx *Context) BlockSize() int {
	return ctx.blockSize
}

// Workers returns the number of goroutines a launch is spread over.
func (ctx *Context) Workers() int {
	return ctx.workers
}

// CreateStream creates a new execution stream.
func (ctx *Context) CreateStream() *Stream {
	id := int(atomic.AddInt32(&ctx.streams.nextID, 1))
	stream := &Stream{
		id:    id,
		tasks: make(chan func() error, 1000),
		done:  make(chan struct{}),
	}
	stream.idle = sync.NewCond(&stream.mu)

	go stream.worker()

	ctx.streams.mu.Lock()
	ctx.streams.byID[id] = stream
	ctx.streams.mu.Unlock()
	return stream
}

// WithStream returns a view of ctx whose library calls, launches and
// memory transfers use s instead of the default stream. The view shares
// the device, memory pool, logger and streams of ctx; its settings start
// as a copy of those of ctx.
//
// Example:
//
//	s := ctx.CreateStream()
//	go level1.Asum(ctx.WithStream(s), n, x)
func (ctx *Context) WithStream(s *Stream) *Context {
	view := *ctx
	if s != nil {
		view.defaultStream = s
	}
	return &view
}

// Synchronize waits for all streams to complete and returns the first
// execution error any of them recorded.
func (ctx *Context) Synchronize() error {
	ctx.streams.mu.Lock()
	streams := make([]*Stream, 0, len(ctx.streams.byID))
	for _, s := range ctx.streams.byID {
		streams = append(streams, s)
	}
	ctx.streams.mu.Unlock()

	var first error
	for _, s := range streams {
		if err := s.Synchronize(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Destroy drains and stops every stream of the context.
func (ctx *Context) Destroy() error {
	err := ctx.Synchronize()

	ctx.streams.mu.Lock()
	defer ctx.streams.mu.Unlock()
	for id, s := range ctx.streams.byID {
		s.close()
		delete(ctx.streams.byID, id)
	}
	return err
}

// Stream methods

// ID returns the stream identifier.
func (s *Stream) ID() int {
	return s.id
}

func (s *Stream) worker() {
	for task := range s.tasks {
		s.run(task)

		s.mu.Lock()
		s.pending--
		if s.pending == 0 {
			s.idle.Broadcast()
		}
		s.mu.Unlock()
	}
	close(s.done)
}

// run executes one task, turning a panic into a recorded execution error.
func (s *Stream) run(task func() error) {
	defer func() {
		if r := recover(); r != nil {
			s.record(NewExecutionError("Stream", fmt.Sprintf("kernel fault: %v", r), nil))
		}
	}()
	if err := task(); err != nil {
		s.record(err)
	}
}

func (s *Stream) record(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}

// Synchronize waits for all tasks in the stream to complete. It returns
// and clears the first error recorded since the previous synchronization.
func (s *Stream) Synchronize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.pending > 0 {
		s.idle.Wait()
	}
	err := s.err
	s.err = nil
	return err
}

// Submit adds a task to the stream.
func (s *Stream) Submit(task func() error) {
	s.mu.Lock()
	s.pending++
	s.mu.Unlock()
	s.tasks <- task
}

func (s *Stream) close() {
	s.closeOnce.Do(func() {
		close(s.tasks)
		<-s.done
	})
}

// Helper functions

// Global returns the global thread index along X.
func (tid ThreadID) Global() int {
	return tid.BlockIdx.X*tid.BlockDim.X + tid.ThreadIdx.X
}

// GlobalX returns the global X index
func (tid ThreadID) GlobalX() int {
	return tid.BlockIdx.X*tid.BlockDim.X + tid.ThreadIdx.X
}

// GlobalY returns the global Y index
func (tid ThreadID) GlobalY() int {
	return tid.BlockIdx.Y*tid.BlockDim.Y + tid.ThreadIdx.Y
}

// Size returns the total number of elements
func (d Dim3) Size() int {
	return d.X * d.Y * d.Z
}

// Execute implements Kernel.
func (fn KernelFunc) Execute(tid ThreadID, args ...interface{}) {
	fn(tid, args...)
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
