package commands

import (
	"encoding/binary"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LynnColeArt/gudablas"
)

func TestOperandCompression(t *testing.T) {
	data, err := encodeElements(gudablas.TypeF64, []complex128{1, 2, 3, complex(math.Inf(1), 0)})
	require.NoError(t, err)

	for _, tt := range []struct {
		name, comp string
	}{
		{"x.bin", compNone},
		{"x.zst", compZstd},
		{"x.lz4", compLZ4},
		{"x.zstd", compZstd},
	} {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.name)
			assert.Equal(t, tt.comp, compressionOf(path))
			require.NoError(t, writeOperand(path, data, compressionOf(path)))

			got, err := readOperand(path)
			require.NoError(t, err)
			assert.Equal(t, data, got)
		})
	}

	assert.Error(t, writeOperand(filepath.Join(t.TempDir(), "x"), data, "gzip"))
}

func TestEncodeElements(t *testing.T) {
	le := binary.LittleEndian

	b, err := encodeElements(gudablas.TypeF16, []complex128{1, -2})
	require.NoError(t, err)
	assert.Equal(t, uint16(0x3C00), le.Uint16(b))
	assert.Equal(t, uint16(0xC000), le.Uint16(b[2:]))

	b, err = encodeElements(gudablas.TypeBF16, []complex128{1})
	require.NoError(t, err)
	assert.Equal(t, uint16(0x3F80), le.Uint16(b))

	b, err = encodeElements(gudablas.TypeC64, []complex128{complex(1.5, -2)})
	require.NoError(t, err)
	require.Len(t, b, 8)
	assert.Equal(t, float32(1.5), math.Float32frombits(le.Uint32(b)))
	assert.Equal(t, float32(-2), math.Float32frombits(le.Uint32(b[4:])))
}

func TestLoadOperand(t *testing.T) {
	ctx, err := gudablas.NewContext()
	require.NoError(t, err)
	defer ctx.Destroy()

	vals := []complex128{complex(1, 2), complex(3, 4), complex(5, 6)}
	data, err := encodeElements(gudablas.TypeC64, vals)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "z.lz4")
	require.NoError(t, writeOperand(path, data, compLZ4))

	op, err := loadOperand(ctx, path, gudablas.TypeC64)
	require.NoError(t, err)
	defer op.free(ctx)
	assert.Equal(t, 3, op.count)
	assert.Equal(t, vals, op.values())

	_, err = loadOperand(ctx, path, gudablas.TypeC128)
	assert.Error(t, err, "24 bytes are not whole c128 elements")
}

func TestLayoutInstance(t *testing.T) {
	vals := make([]complex128, 20)
	for i := range vals {
		vals[i] = complex(float64(i), 0)
	}

	l := layout{n: 3, inc: -2, stride: 10, offset: 1}
	assert.Equal(t, []complex128{5, 3, 1}, l.instance(vals, 0))
	assert.Equal(t, []complex128{15, 13, 11}, l.instance(vals, 1))

	l = layout{n: 4, inc: 3, stride: 0}
	assert.Equal(t, []complex128{0, 3, 6, 9}, l.instance(vals, 5))

	assert.Equal(t, 7, extent(3, -3))
	assert.Equal(t, 0, extent(0, 1))
}
