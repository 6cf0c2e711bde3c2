package gudablas

// SIMD vector sizes
const (
	// AVX2 vector width in float32 elements
	AVX2VectorSize = 8

	// AVX512 vector width in float32 elements
	AVX512VectorSize = 16
)

// Thread and block dimensions
const (
	// Default block size for reduction kernels
	DefaultBlockSize = 512

	// Maximum threads per block
	MaxThreadsPerBlock = 1024

	// Block edge of the two-dimensional check-numerics kernels
	CheckNumericsDim = 16
)

// Memory pool parameters
const (
	// Memory alignment for allocations
	MemoryAlignment = 64
)
