package commands

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	lz4 "github.com/pierrec/lz4/v4"
	"github.com/spf13/cobra"
	"github.com/zeebo/xxh3"

	"github.com/LynnColeArt/gudablas"
)

// compression codes of operand files, chosen by extension
const (
	compNone = "none"
	compZstd = "zst"
	compLZ4  = "lz4"
)

func compressionOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		return compZstd
	case ".lz4":
		return compLZ4
	}
	return compNone
}

// readOperand reads the raw element bytes of an operand file.
func readOperand(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch compressionOf(path) {
	case compZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(data, nil)
	case compLZ4:
		r := lz4.NewReader(bytes.NewReader(data))
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, r); err != nil {
			return nil, fmt.Errorf("lz4 %s: %w", path, err)
		}
		return buf.Bytes(), nil
	}
	return data, nil
}

// writeOperand writes raw element bytes, compressed according to comp.
func writeOperand(path string, data []byte, comp string) error {
	switch comp {
	case compNone, "":
	case compZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return err
		}
		data = enc.EncodeAll(data, make([]byte, 0, len(data)))
		if err := enc.Close(); err != nil {
			return err
		}
	case compLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
		data = buf.Bytes()
	default:
		return fmt.Errorf("unknown compression %q (want none, zst or lz4)", comp)
	}
	return os.WriteFile(path, data, 0644)
}

// encodeElements converts values to little-endian elements of type dt.
// Real types keep the real part only.
func encodeElements(dt gudablas.Datatype, vals []complex128) ([]byte, error) {
	size := dt.Size()
	if size == 0 {
		return nil, fmt.Errorf("unsupported datatype %v", dt)
	}
	le := binary.LittleEndian
	buf := make([]byte, len(vals)*size)
	for i, v := range vals {
		o := buf[i*size:]
		switch dt {
		case gudablas.TypeF16:
			le.PutUint16(o, uint16(gudablas.Float16FromFloat64(real(v))))
		case gudablas.TypeBF16:
			le.PutUint16(o, uint16(gudablas.BFloat16FromFloat64(real(v))))
		case gudablas.TypeF32:
			le.PutUint32(o, math.Float32bits(float32(real(v))))
		case gudablas.TypeF64:
			le.PutUint64(o, math.Float64bits(real(v)))
		case gudablas.TypeC64:
			le.PutUint32(o, math.Float32bits(float32(real(v))))
			le.PutUint32(o[4:], math.Float32bits(float32(imag(v))))
		case gudablas.TypeC128:
			le.PutUint64(o, math.Float64bits(real(v)))
			le.PutUint64(o[8:], math.Float64bits(imag(v)))
		}
	}
	return buf, nil
}

// deviceOperand is an operand file loaded into device memory.
type deviceOperand struct {
	path  string
	dt    gudablas.Datatype
	ptr   gudablas.DevicePtr
	count int
	hash  uint64
}

// loadOperand reads path and copies its elements into a new device
// allocation. Element bytes are copied as stored, so the host must be
// little-endian.
func loadOperand(ctx *gudablas.Context, path string, dt gudablas.Datatype) (*deviceOperand, error) {
	data, err := readOperand(path)
	if err != nil {
		return nil, err
	}
	size := dt.Size()
	if size == 0 || len(data) == 0 || len(data)%size != 0 {
		return nil, fmt.Errorf("%s: %d bytes is not a whole number of %v elements", path, len(data), dt)
	}

	ptr, err := ctx.Malloc(len(data))
	if err != nil {
		return nil, err
	}
	if err := ctx.Memcpy(ptr, data, len(data), gudablas.MemcpyHostToDevice); err != nil {
		ctx.Free(ptr)
		return nil, err
	}
	return &deviceOperand{
		path:  path,
		dt:    dt,
		ptr:   ptr,
		count: len(data) / size,
		hash:  xxh3.Hash(data),
	}, nil
}

func (o *deviceOperand) free(ctx *gudablas.Context) {
	ctx.Free(o.ptr)
}

// values returns every element of the operand widened to complex128.
func (o *deviceOperand) values() []complex128 {
	switch o.dt {
	case gudablas.TypeF16:
		return widenAll[gudablas.Float16](o.ptr)
	case gudablas.TypeBF16:
		return widenAll[gudablas.BFloat16](o.ptr)
	case gudablas.TypeF32:
		return widenAll[float32](o.ptr)
	case gudablas.TypeF64:
		return widenAll[float64](o.ptr)
	case gudablas.TypeC64:
		return widenAll[complex64](o.ptr)
	default:
		return widenAll[complex128](o.ptr)
	}
}

func widenAll[T gudablas.Element](ptr gudablas.DevicePtr) []complex128 {
	src := gudablas.Elements[T](ptr)
	widen := gudablas.Widener[T]()
	out := make([]complex128, len(src))
	for i, v := range src {
		out[i] = widen(v)
	}
	return out
}

// layout is the vector shape shared by the check and reduce commands.
type layout struct {
	dtype  string
	n      int
	inc    int
	batch  int
	stride int
	offset int
}

func (l *layout) addFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&l.dtype, "type", "t", "f32", "element type: f16, bf16, f32, f64, c64, c128")
	f.IntVarP(&l.n, "n", "n", 0, "elements per instance (0 = derive from the file for unit increments)")
	f.IntVar(&l.inc, "inc", 1, "increment between elements, may be negative")
	f.IntVar(&l.batch, "batch", 1, "batch count")
	f.IntVar(&l.stride, "stride", 0, "elements between batch instances (default: instances are packed)")
	f.IntVar(&l.offset, "offset", 0, "element offset of the first instance")
}

// resolve fills in derived values once the element count of the operand
// file is known.
func (l *layout) resolve(cmd *cobra.Command, count int) error {
	if l.batch < 0 {
		return fmt.Errorf("negative batch count %d", l.batch)
	}
	if l.n == 0 && l.batch > 0 {
		if l.inc != 1 {
			return fmt.Errorf("--n is required with --inc %d", l.inc)
		}
		l.n = (count - l.offset) / l.batch
	}
	if !cmd.Flags().Changed("stride") {
		l.stride = extent(l.n, l.inc)
	}
	return nil
}

func (l *layout) vector(dt gudablas.Datatype, ptr gudablas.DevicePtr) gudablas.Vector {
	v := gudablas.NewStridedVector(dt, ptr, l.inc, l.stride)
	v.Offset = l.offset
	return v
}

// instance gathers the n logical elements of batch instance b from the
// host copy of an operand.
func (l *layout) instance(vals []complex128, b int) []complex128 {
	start := l.offset + b*l.stride
	if l.inc < 0 {
		start += -l.inc * (l.n - 1)
	}
	out := make([]complex128, l.n)
	for i := range out {
		out[i] = vals[start+i*l.inc]
	}
	return out
}

func extent(n, inc int) int {
	if n <= 0 {
		return 0
	}
	if inc < 0 {
		inc = -inc
	}
	return (n-1)*inc + 1
}
