// Command sparsedex is a thin CLI wrapper around the sparsedex library
// packages: all routing and scoring logic lives in pkg/sparsedex and
// its collaborators, so it can be exercised without a terminal.
package main

import (
	"fmt"
	"os"

	"github.com/ologbonowiwi/sparsedex/cmd/sparsedex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
