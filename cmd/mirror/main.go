// Command mirror runs and inspects member-level sync groups.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/mirror/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
