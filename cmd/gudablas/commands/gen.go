package commands

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/LynnColeArt/gudablas"
)

type genOptions struct {
	dtype    string
	count    int
	pattern  string
	seed     int64
	compress string
	nanAt    []int
	infAt    []int
	zeroAt   []int
}

func newGenCmd() *cobra.Command {
	opts := &genOptions{}

	cmd := &cobra.Command{
		Use:   "gen FILE",
		Short: "Write an operand file",
		Long: `Write count elements of the given type to FILE as raw little-endian
values. Special values can be planted at element indices; for complex
types NaN and Inf go into the imaginary part.

The file is compressed when --compress is set or FILE ends in .zst or .lz4.`,
		Example: `  gudablas gen --type f64 --count 1025 --pattern seq x.bin
  gudablas gen --type c64 --count 4096 --pattern random --inf-at 4095 x.zst`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGen(cmd, opts, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.dtype, "type", "t", "f32", "element type: f16, bf16, f32, f64, c64, c128")
	f.IntVarP(&opts.count, "count", "c", 1024, "number of elements")
	f.StringVarP(&opts.pattern, "pattern", "p", "ones", "values: ones, seq (1, 2, ...), random")
	f.Int64Var(&opts.seed, "seed", 1, "seed of the random pattern")
	f.StringVar(&opts.compress, "compress", "", "compression: none, zst, lz4 (default: from the file extension)")
	f.IntSliceVar(&opts.nanAt, "nan-at", nil, "element indices set to NaN")
	f.IntSliceVar(&opts.infAt, "inf-at", nil, "element indices set to +Inf")
	f.IntSliceVar(&opts.zeroAt, "zero-at", nil, "element indices set to zero")
	return cmd
}

func runGen(cmd *cobra.Command, opts *genOptions, path string) error {
	dt, err := gudablas.ParseDatatype(opts.dtype)
	if err != nil {
		return err
	}
	if opts.count <= 0 {
		return fmt.Errorf("--count must be positive, got %d", opts.count)
	}

	vals, err := generate(opts.pattern, opts.count, opts.seed, dt.IsComplex())
	if err != nil {
		return err
	}
	for _, set := range []struct {
		at []int
		v  float64
	}{
		{opts.zeroAt, 0},
		{opts.nanAt, math.NaN()},
		{opts.infAt, math.Inf(1)},
	} {
		for _, i := range set.at {
			if i < 0 || i >= opts.count {
				return fmt.Errorf("index %d outside [0, %d)", i, opts.count)
			}
			switch {
			case set.v == 0:
				vals[i] = 0
			case dt.IsComplex():
				vals[i] = complex(real(vals[i]), set.v)
			default:
				vals[i] = complex(set.v, 0)
			}
		}
	}

	data, err := encodeElements(dt, vals)
	if err != nil {
		return err
	}
	comp := opts.compress
	if comp == "" {
		comp = compressionOf(path)
	}
	if err := writeOperand(path, data, comp); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d %v elements to %s (%s)\n", opts.count, dt, path, comp)
	return nil
}

func generate(pattern string, count int, seed int64, isComplex bool) ([]complex128, error) {
	vals := make([]complex128, count)
	switch pattern {
	case "ones":
		for i := range vals {
			vals[i] = 1
		}
	case "seq":
		for i := range vals {
			vals[i] = complex(float64(i+1), 0)
		}
	case "random":
		rnd := rand.New(rand.NewSource(seed))
		for i := range vals {
			re := rnd.NormFloat64()
			if isComplex {
				vals[i] = complex(re, rnd.NormFloat64())
			} else {
				vals[i] = complex(re, 0)
			}
		}
	default:
		return nil, fmt.Errorf("unknown pattern %q (want ones, seq or random)", pattern)
	}
	return vals, nil
}
