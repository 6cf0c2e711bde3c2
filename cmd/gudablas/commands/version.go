package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/LynnColeArt/gudablas"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			version, sum := gudablas.Version()
			if version == "" {
				version = "(devel)"
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "gudablas %s\n", version)
			if sum != "" {
				fmt.Fprintf(out, "Checksum: %s\n", sum)
			}
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
		},
	}
}
