package gudablas

import (
	"strings"

	"golang.org/x/sys/cpu"
)

// CPUFeatures tracks the instruction set extensions of the CPU device.
type CPUFeatures struct {
	HasSSE4     bool
	HasAVX      bool
	HasAVX2     bool
	HasFMA      bool
	HasAVX512F  bool // Foundation
	HasAVX512DQ bool // Double/Quad precision
	HasAVX512BW bool // Byte/Word
	HasAVX512VL bool // Vector Length
	HasNEON     bool // ARM64 Advanced SIMD
	HasFP16     bool // ARM64 half precision arithmetic
}

// DetectCPUFeatures queries golang.org/x/sys/cpu. Fields of other
// architectures stay false.
func DetectCPUFeatures() CPUFeatures {
	return CPUFeatures{
		HasSSE4:     cpu.X86.HasSSE41 || cpu.X86.HasSSE42,
		HasAVX:      cpu.X86.HasAVX,
		HasAVX2:     cpu.X86.HasAVX2,
		HasFMA:      cpu.X86.HasFMA,
		HasAVX512F:  cpu.X86.HasAVX512F,
		HasAVX512DQ: cpu.X86.HasAVX512DQ,
		HasAVX512BW: cpu.X86.HasAVX512BW,
		HasAVX512VL: cpu.X86.HasAVX512VL,
		HasNEON:     cpu.ARM64.HasASIMD,
		HasFP16:     cpu.ARM64.HasFPHP && cpu.ARM64.HasASIMDHP,
	}
}

// VectorWidth returns how many float32 lanes the widest supported SIMD
// unit holds.
func (f CPUFeatures) VectorWidth() int {
	switch {
	case f.HasAVX512F:
		return AVX512VectorSize
	case f.HasAVX2, f.HasAVX:
		return AVX2VectorSize
	case f.HasNEON, f.HasSSE4:
		return 4
	}
	return 1
}

// String lists the detected extensions.
func (f CPUFeatures) String() string {
	var features []string
	add := func(ok bool, name string) {
		if ok {
			features = append(features, name)
		}
	}
	add(f.HasSSE4, "SSE4")
	add(f.HasAVX, "AVX")
	add(f.HasAVX2, "AVX2")
	add(f.HasFMA, "FMA")
	add(f.HasAVX512F, "AVX512F")
	add(f.HasAVX512DQ, "AVX512DQ")
	add(f.HasAVX512BW, "AVX512BW")
	add(f.HasAVX512VL, "AVX512VL")
	add(f.HasNEON, "NEON")
	add(f.HasFP16, "FP16")

	if len(features) == 0 {
		return "No SIMD extensions detected"
	}
	return "CPU features: " + strings.Join(features, ", ")
}
