// Package config loads runtime settings from defaults, an optional YAML
// file, and GUDABLAS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/LynnColeArt/gudablas"
	"github.com/LynnColeArt/gudablas/internal/logging"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "GUDABLAS"

// Config represents the library configuration
type Config struct {
	Numerics  NumericsConfig  `mapstructure:"numerics"`
	Reduction ReductionConfig `mapstructure:"reduction"`
	Runtime   RuntimeConfig   `mapstructure:"runtime"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type NumericsConfig struct {
	// Mode is the check-numerics bit set, numeric or named ("fail", "info|warn").
	Mode string `mapstructure:"mode"`
}

type ReductionConfig struct {
	BlockSize int `mapstructure:"block_size"`
}

type RuntimeConfig struct {
	Workers     int   `mapstructure:"workers"`
	MemoryLimit int64 `mapstructure:"memory_limit"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	File    string `mapstructure:"file"`
	Console bool   `mapstructure:"console"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Numerics:  NumericsConfig{Mode: "none"},
		Reduction: ReductionConfig{BlockSize: gudablas.DefaultBlockSize},
		Runtime:   RuntimeConfig{Workers: 0, MemoryLimit: 0},
		Logging:   LoggingConfig{Level: "info", Console: true},
	}
}

// Load reads configuration. path may be empty, in which case only defaults
// and the environment apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range map[string]string{
		"numerics.mode":        "CHECK_NUMERICS",
		"runtime.workers":      "WORKERS",
		"runtime.memory_limit": "MEMORY_LIMIT",
		"logging.level":        "LOG_LEVEL",
		"logging.file":         "LOG_FILE",
	} {
		if err := v.BindEnv(key, EnvPrefix+"_"+env); err != nil {
			return nil, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("numerics.mode", d.Numerics.Mode)
	v.SetDefault("reduction.block_size", d.Reduction.BlockSize)
	v.SetDefault("runtime.workers", d.Runtime.Workers)
	v.SetDefault("runtime.memory_limit", d.Runtime.MemoryLimit)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.console", d.Logging.Console)
}

// Validate rejects settings the runtime cannot honour.
func (c *Config) Validate() error {
	var errs []error
	if _, err := gudablas.ParseCheckNumericsMode(c.Numerics.Mode); err != nil {
		errs = append(errs, fmt.Errorf("numerics.mode: %w", err))
	}
	if bs := c.Reduction.BlockSize; !gudablas.IsPowerOfTwo(bs) || bs > gudablas.MaxThreadsPerBlock {
		errs = append(errs, fmt.Errorf("reduction.block_size: %d is not a power of two in [1, %d]", bs, gudablas.MaxThreadsPerBlock))
	}
	if c.Runtime.Workers < 0 {
		errs = append(errs, fmt.Errorf("runtime.workers: %d is negative", c.Runtime.Workers))
	}
	if c.Runtime.MemoryLimit < 0 {
		errs = append(errs, fmt.Errorf("runtime.memory_limit: %d is negative", c.Runtime.MemoryLimit))
	}
	return errors.Join(errs...)
}

// ContextOptions translates the configuration into context options. The
// shared logger is initialised from the logging section.
func (c *Config) ContextOptions() ([]gudablas.Option, error) {
	mode, err := gudablas.ParseCheckNumericsMode(c.Numerics.Mode)
	if err != nil {
		return nil, err
	}
	if err := logging.Init(c.Logging.Level, c.Logging.File, c.Logging.Console); err != nil {
		return nil, err
	}
	return []gudablas.Option{
		gudablas.WithCheckNumerics(mode),
		gudablas.WithBlockSize(c.Reduction.BlockSize),
		gudablas.WithWorkers(c.Runtime.Workers),
		gudablas.WithMemoryLimit(c.Runtime.MemoryLimit),
		gudablas.WithLogger(logging.Get()),
	}, nil
}
