// Command irflow lists, dumps and runs the sample procedures.
package main

import (
	"fmt"
	"os"

	"github.com/wippyai/irflow/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
