// Command bingen generates Go decoders from binary format descriptions.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/bingen/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// Scenario and validation failures are already reported on stdout.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) || exitErr.Code != cli.ExitFailure {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
