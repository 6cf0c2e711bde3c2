package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LynnColeArt/gudablas"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "none", cfg.Numerics.Mode)
	assert.Equal(t, gudablas.DefaultBlockSize, cfg.Reduction.BlockSize)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("GUDABLAS_CHECK_NUMERICS", "info|fail")
	t.Setenv("GUDABLAS_REDUCTION_BLOCK_SIZE", "128")
	t.Setenv("GUDABLAS_WORKERS", "3")
	t.Setenv("GUDABLAS_MEMORY_LIMIT", "4096")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info|fail", cfg.Numerics.Mode)
	assert.Equal(t, 128, cfg.Reduction.BlockSize)
	assert.Equal(t, 3, cfg.Runtime.Workers)
	assert.Equal(t, int64(4096), cfg.Runtime.MemoryLimit)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gudablas.yaml")
	content := "numerics:\n  mode: \"4\"\nreduction:\n  block_size: 64\nlogging:\n  level: debug\n  console: false\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "4", cfg.Numerics.Mode)
	assert.Equal(t, 64, cfg.Reduction.BlockSize)
	assert.False(t, cfg.Logging.Console)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"block size not power of two", func(c *Config) { c.Reduction.BlockSize = 100 }},
		{"block size too large", func(c *Config) { c.Reduction.BlockSize = 2048 }},
		{"unknown mode", func(c *Config) { c.Numerics.Mode = "loud" }},
		{"negative workers", func(c *Config) { c.Runtime.Workers = -1 }},
		{"negative memory limit", func(c *Config) { c.Runtime.MemoryLimit = -5 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, DefaultConfig().Validate())
}

func TestContextOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Numerics.Mode = "warn|fail"
	cfg.Reduction.BlockSize = 256
	cfg.Runtime.MemoryLimit = 1 << 20
	cfg.Logging.Console = false

	opts, err := cfg.ContextOptions()
	require.NoError(t, err)

	ctx, err := gudablas.NewContext(opts...)
	require.NoError(t, err)
	defer ctx.Destroy()

	assert.Equal(t, gudablas.CheckNumericsWarn|gudablas.CheckNumericsFail, ctx.CheckNumerics())
	assert.Equal(t, 256, ctx.BlockSize())
	assert.Equal(t, int64(1<<20), ctx.Memory().Limit())
}
