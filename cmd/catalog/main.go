// Command catalog serves and queries a hierarchical-name catalog.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/catalog/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
