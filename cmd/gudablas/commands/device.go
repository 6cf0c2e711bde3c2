package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func newDeviceCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "device",
		Short: "Show device information",
		Long: `Display the emulated device, its CPU features, and the runtime
settings resolved from config, environment and flags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cfg, err := opts.newContext(cmd)
			if err != nil {
				return err
			}
			defer ctx.Destroy()

			dev := ctx.Device()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Device %d: %s\n", dev.ID, dev.Name)
			fmt.Fprintf(out, "   Platform:      %s/%s\n", runtime.GOOS, runtime.GOARCH)
			fmt.Fprintf(out, "   Cores:         %d\n", dev.NumCores)
			fmt.Fprintf(out, "   Memory:        %.2f GB\n", float64(dev.TotalMem)/(1<<30))
			fmt.Fprintf(out, "   Features:      %s\n", dev.Features)
			fmt.Fprintf(out, "   Vector width:  %d float32\n", dev.Features.VectorWidth())
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Runtime:")
			fmt.Fprintf(out, "   Workers:        %d\n", ctx.Workers())
			fmt.Fprintf(out, "   Block size:     %d\n", ctx.BlockSize())
			fmt.Fprintf(out, "   Check numerics: %s\n", ctx.CheckNumerics())
			if limit := ctx.Memory().Limit(); limit > 0 {
				fmt.Fprintf(out, "   Memory limit:   %d bytes\n", limit)
			} else {
				fmt.Fprintln(out, "   Memory limit:   none")
			}
			fmt.Fprintf(out, "   Log level:      %s\n", cfg.Logging.Level)
			return nil
		},
	}
}
