// Command gudablas checks and reduces BLAS operands stored in files on the
// GUDA CPU device.
package main

import (
	"os"

	"github.com/LynnColeArt/gudablas/cmd/gudablas/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
