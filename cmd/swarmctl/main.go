// Command swarmctl is a thin CLI client for the swarmd Workflow Service
// (spec §6's CLI/demo surface): it issues the same create/execute/status/
// list/control requests an operator would script against the HTTP API.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
