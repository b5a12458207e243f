// Command simk runs simulation models, summarizes recorded runs and checks
// scenario files.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/simkernel/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
