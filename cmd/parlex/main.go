// Command parlex compiles lexer definitions into state-function machines,
// scans input with them and inspects the recorded runs.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/parlex/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Commands print their own output; only report errors they left unsaid.
		if _, ok := err.(*cli.ExitError); !ok {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
