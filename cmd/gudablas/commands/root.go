package commands

import (
	"github.com/spf13/cobra"

	"github.com/LynnColeArt/gudablas"
	"github.com/LynnColeArt/gudablas/internal/config"
)

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	cfgFile       string
	checkNumerics string
	logLevel      string
	workers       int
	blockSize     int
}

// Execute runs the root command
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "gudablas",
		Short: "Check and reduce BLAS operands on the GUDA CPU device",
		Long: `gudablas loads vectors and matrices from raw little-endian files
(optionally zstd or lz4 compressed) into device memory, scans them for
NaN, Inf and zero values, and runs the level 1 reductions on them.

Settings come from an optional YAML config file and GUDABLAS_* environment
variables; flags override both.`,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (YAML)")
	flags.StringVar(&opts.checkNumerics, "check-numerics", "", "check-numerics mode: none, info, warn, fail, combinations like info|fail, or the bit set")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	flags.IntVar(&opts.workers, "workers", 0, "worker goroutines per launch (0 = one per CPU)")
	flags.IntVar(&opts.blockSize, "block-size", 0, "reduction block size, a power of two")

	rootCmd.AddCommand(
		newGenCmd(),
		newCheckCmd(opts),
		newReduceCmd(opts),
		newDeviceCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

// newContext loads the configuration, applies flag overrides and creates
// the device context for a command.
func (o *globalOptions) newContext(cmd *cobra.Command) (*gudablas.Context, *config.Config, error) {
	cfg, err := config.Load(o.cfgFile)
	if err != nil {
		return nil, nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("check-numerics") {
		cfg.Numerics.Mode = o.checkNumerics
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = o.logLevel
	}
	if flags.Changed("workers") {
		cfg.Runtime.Workers = o.workers
	}
	if flags.Changed("block-size") {
		cfg.Reduction.BlockSize = o.blockSize
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	ctxOpts, err := cfg.ContextOptions()
	if err != nil {
		return nil, nil, err
	}
	ctx, err := gudablas.NewContext(ctxOpts...)
	if err != nil {
		return nil, nil, err
	}
	return ctx, cfg, nil
}
