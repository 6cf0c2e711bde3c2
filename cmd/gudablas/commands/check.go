package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/blas"

	"github.com/LynnColeArt/gudablas"
	"github.com/LynnColeArt/gudablas/numerics"
)

type checkOptions struct {
	layout
	rows   int
	cols   int
	ld     int
	trans  string
	output bool
}

func newCheckCmd(global *globalOptions) *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check FILE",
		Short: "Scan an operand for NaN, Inf and zero values",
		Long: `Load FILE as a vector (default) or, when --rows and --cols are given,
as a column-major matrix, scan every addressed element of every batch
instance and report what was found.

The configured check-numerics mode decides the outcome; when it is none
the check runs in fail mode. A failed check exits with a non-zero status.`,
		Example: `  gudablas check --type f32 --n 1000 --inc -2 x.bin
  gudablas check --type c128 --rows 64 --cols 32 --ld 64 --trans T --batch 8 a.zst`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, global, opts, args[0])
		},
	}

	opts.addFlags(cmd)
	f := cmd.Flags()
	f.IntVar(&opts.rows, "rows", 0, "rows of op(A); enables matrix mode")
	f.IntVar(&opts.cols, "cols", 0, "columns of op(A)")
	f.IntVar(&opts.ld, "ld", 0, "leading dimension (default: stored rows)")
	f.StringVar(&opts.trans, "trans", "N", "transpose of the operand: N, T or C")
	f.BoolVar(&opts.output, "output", false, "label the operand as a routine output in log records")
	return cmd
}

func parseTranspose(s string) (blas.Transpose, error) {
	switch strings.ToUpper(s) {
	case "N":
		return blas.NoTrans, nil
	case "T":
		return blas.Trans, nil
	case "C":
		return blas.ConjTrans, nil
	}
	return 0, fmt.Errorf("unknown transpose %q (want N, T or C)", s)
}

func runCheck(cmd *cobra.Command, global *globalOptions, opts *checkOptions, path string) error {
	dt, err := gudablas.ParseDatatype(opts.dtype)
	if err != nil {
		return err
	}
	ctx, _, err := global.newContext(cmd)
	if err != nil {
		return err
	}
	defer ctx.Destroy()

	op, err := loadOperand(ctx, path, dt)
	if err != nil {
		return err
	}
	defer op.free(ctx)

	mode := ctx.CheckNumerics()
	if !mode.Enabled() {
		mode = gudablas.CheckNumericsFail
	}

	var (
		report  numerics.Report
		finding numerics.Finding
		shape   string
	)
	if opts.rows > 0 || opts.cols > 0 {
		report, shape, err = scanMatrix(cmd, ctx, opts, op)
		finding.Operand = "matrix"
	} else {
		report, shape, err = scanVector(cmd, ctx, opts, op)
		finding.Operand = "vector"
	}
	if err != nil {
		return err
	}
	finding.Function = "check"
	finding.IsInput = !opts.output
	finding.Report = report
	checkErr := numerics.Apply(ctx, finding, mode)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "file:    %s (%v, %d elements, xxh3 %016x)\n", op.path, dt, op.count, op.hash)
	fmt.Fprintf(out, "operand: %s\n", shape)
	fmt.Fprintf(out, "mode:    %s\n", mode)
	fmt.Fprintf(out, "nan:     %t\n", report.HasNaN)
	fmt.Fprintf(out, "inf:     %t\n", report.HasInf)
	fmt.Fprintf(out, "zero:    %t\n", report.HasZero)
	fmt.Fprintf(out, "status:  %s\n", gudablas.StatusOf(checkErr))
	return checkErr
}

func scanVector(cmd *cobra.Command, ctx *gudablas.Context, opts *checkOptions, op *deviceOperand) (numerics.Report, string, error) {
	if err := opts.resolve(cmd, op.count); err != nil {
		return numerics.Report{}, "", err
	}
	r, err := numerics.ScanVector(ctx, opts.n, opts.vector(op.dt, op.ptr), opts.batch)
	shape := fmt.Sprintf("vector n=%d inc=%d batch=%d stride=%d", opts.n, opts.inc, opts.batch, opts.stride)
	return r, shape, err
}

func scanMatrix(cmd *cobra.Command, ctx *gudablas.Context, opts *checkOptions, op *deviceOperand) (numerics.Report, string, error) {
	trans, err := parseTranspose(opts.trans)
	if err != nil {
		return numerics.Report{}, "", err
	}
	storedRows, storedCols := opts.rows, opts.cols
	if trans != blas.NoTrans {
		storedRows, storedCols = opts.cols, opts.rows
	}
	ld := opts.ld
	if ld == 0 {
		ld = max(1, storedRows)
	}
	stride := opts.stride
	if !cmd.Flags().Changed("stride") {
		stride = ld * storedCols
	}

	a := gudablas.NewStridedMatrix(op.dt, op.ptr, ld, stride)
	a.Offset = opts.offset
	r, err := numerics.ScanMatrix(ctx, trans, opts.rows, opts.cols, a, opts.batch)
	shape := fmt.Sprintf("matrix %dx%d trans=%s ld=%d batch=%d stride=%d",
		opts.rows, opts.cols, strings.ToUpper(opts.trans), ld, opts.batch, stride)
	return r, shape, err
}
