package commands

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/spf13/cobra"
	"github.com/zeebo/xxh3"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/blas/cblas128"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/LynnColeArt/gudablas"
	"github.com/LynnColeArt/gudablas/level1"
)

type reduceOptions struct {
	layout
	op     string
	verify bool
	tol    float64
	repeat int
}

func newReduceCmd(global *globalOptions) *cobra.Command {
	opts := &reduceOptions{}

	cmd := &cobra.Command{
		Use:   "reduce FILE [YFILE]",
		Short: "Run a level 1 reduction over an operand",
		Long: `Run asum, nrm2, sum, dot or dotc over every batch instance of FILE
(and YFILE for the dot products, which shares the layout of FILE).

--verify compares each result with a host reference computed by gonum.
--repeat runs the reduction several times and fails unless every run
produces bit-identical results.`,
		Example: `  gudablas reduce --op asum --type f32 --batch 4 x.bin
  gudablas reduce --op dotc --type c128 --n 513 --verify x.zst y.zst`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReduce(cmd, global, opts, args)
		},
	}

	opts.addFlags(cmd)
	f := cmd.Flags()
	f.StringVarP(&opts.op, "op", "o", "asum", "reduction: asum, nrm2, sum, dot, dotc")
	f.BoolVar(&opts.verify, "verify", false, "compare results with a host reference")
	f.Float64Var(&opts.tol, "tol", 1e-9, "absolute and relative tolerance of --verify")
	f.IntVar(&opts.repeat, "repeat", 1, "number of runs that must agree bit for bit")
	return cmd
}

func runReduce(cmd *cobra.Command, global *globalOptions, opts *reduceOptions, args []string) error {
	pair := opts.op == "dot" || opts.op == "dotc"
	switch {
	case opts.op != "asum" && opts.op != "nrm2" && opts.op != "sum" && !pair:
		return fmt.Errorf("unknown reduction %q", opts.op)
	case pair && len(args) != 2:
		return fmt.Errorf("%s needs two operand files", opts.op)
	case !pair && len(args) != 1:
		return fmt.Errorf("%s takes one operand file", opts.op)
	}
	if opts.repeat < 1 {
		return fmt.Errorf("--repeat must be at least 1")
	}

	dt, err := gudablas.ParseDatatype(opts.dtype)
	if err != nil {
		return err
	}
	ctx, _, err := global.newContext(cmd)
	if err != nil {
		return err
	}
	defer ctx.Destroy()

	x, err := loadOperand(ctx, args[0], dt)
	if err != nil {
		return err
	}
	defer x.free(ctx)
	var y *deviceOperand
	if pair {
		if y, err = loadOperand(ctx, args[1], dt); err != nil {
			return err
		}
		defer y.free(ctx)
	}
	if err := opts.resolve(cmd, x.count); err != nil {
		return err
	}

	var (
		results []complex128
		hash    uint64
	)
	for run := 0; run < opts.repeat; run++ {
		got, err := opts.run(ctx, x, y)
		if err != nil {
			return err
		}
		h := fingerprint(got)
		if run > 0 && h != hash {
			return fmt.Errorf("run %d differs from run 0: xxh3 %016x != %016x", run, h, hash)
		}
		results, hash = got, h
	}

	out := cmd.OutOrStdout()
	for b, r := range results {
		printResult(out, opts.op, b, r)
	}
	fmt.Fprintf(out, "xxh3: %016x (%d runs)\n", hash, opts.repeat)

	if opts.verify {
		return opts.check(out, x, y, results)
	}
	return nil
}

// run performs one reduction and returns the results as complex values.
func (o *reduceOptions) run(ctx *gudablas.Context, x, y *deviceOperand) ([]complex128, error) {
	dt := x.dt
	xp := x.ptr.Offset(o.offset * dt.Size())
	out := make([]complex128, o.batch)

	switch o.op {
	case "asum", "nrm2":
		norms := make([]float64, o.batch)
		fn := level1.AsumStridedBatched
		if o.op == "nrm2" {
			fn = level1.Nrm2StridedBatched
		}
		if err := fn(ctx, dt, o.n, xp, o.inc, o.stride, o.batch, norms); err != nil {
			return nil, err
		}
		for i, v := range norms {
			out[i] = complex(v, 0)
		}
		return out, nil
	case "sum":
		return out, level1.SumStridedBatched(ctx, dt, o.n, xp, o.inc, o.stride, o.batch, out)
	}

	yp := y.ptr.Offset(o.offset * dt.Size())
	fn := level1.DotStridedBatched
	if o.op == "dotc" {
		fn = level1.DotcStridedBatched
	}
	return out, fn(ctx, dt, o.n, xp, o.inc, o.stride, yp, o.inc, o.stride, o.batch, out)
}

// check compares results with gonum references computed on the host copy
// of the operands.
func (o *reduceOptions) check(out io.Writer, x, y *deviceOperand, results []complex128) error {
	xs := x.values()
	var ys []complex128
	if y != nil {
		ys = y.values()
	}

	failed := 0
	for b, got := range results {
		want := o.reference(xs, ys, b)
		ok := scalar.EqualWithinAbsOrRel(real(want), real(got), o.tol, o.tol) &&
			scalar.EqualWithinAbsOrRel(imag(want), imag(got), o.tol, o.tol)
		if !ok {
			failed++
			fmt.Fprintf(out, "batch %d: got %v, reference %v\n", b, got, want)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d results differ from the reference", failed, len(results))
	}
	fmt.Fprintf(out, "verified %d results (tol %g)\n", len(results), o.tol)
	return nil
}

func (o *reduceOptions) reference(xs, ys []complex128, b int) complex128 {
	if o.n <= 0 {
		return 0
	}
	if (o.op == "asum" || o.op == "nrm2") && o.inc <= 0 {
		return 0
	}

	xb := o.instance(xs, b)
	switch o.op {
	case "asum":
		return complex(blas64.Asum(interleave(xb)), 0)
	case "nrm2":
		return complex(blas64.Nrm2(interleave(xb)), 0)
	case "sum":
		re := make([]float64, len(xb))
		im := make([]float64, len(xb))
		for i, v := range xb {
			re[i], im[i] = real(v), imag(v)
		}
		return complex(floats.Sum(re), floats.Sum(im))
	}

	yb := o.instance(ys, b)
	cx := cblas128.Vector{N: len(xb), Inc: 1, Data: xb}
	cy := cblas128.Vector{N: len(yb), Inc: 1, Data: yb}
	if o.op == "dotc" {
		return cblas128.Dotc(cx, cy)
	}
	return cblas128.Dotu(cx, cy)
}

// interleave lays out real and imaginary parts as a real vector, whose
// asum and nrm2 equal those of the complex one.
func interleave(v []complex128) blas64.Vector {
	data := make([]float64, 2*len(v))
	for i, c := range v {
		data[2*i], data[2*i+1] = real(c), imag(c)
	}
	return blas64.Vector{N: len(data), Inc: 1, Data: data}
}

// fingerprint hashes the bit patterns of results.
func fingerprint(results []complex128) uint64 {
	buf := make([]byte, 16*len(results))
	for i, r := range results {
		binary.LittleEndian.PutUint64(buf[16*i:], math.Float64bits(real(r)))
		binary.LittleEndian.PutUint64(buf[16*i+8:], math.Float64bits(imag(r)))
	}
	return xxh3.Hash(buf)
}

func printResult(out io.Writer, op string, b int, r complex128) {
	switch op {
	case "asum", "nrm2":
		fmt.Fprintf(out, "batch %d: %.17g\n", b, real(r))
	default:
		fmt.Fprintf(out, "batch %d: (%.17g%+.17gi)\n", b, real(r), imag(r))
	}
}
