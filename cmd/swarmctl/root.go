package main

import (
	"github.com/spf13/cobra"

	"github.com/brindle-systems/swarm/pkg/version"
)

var serverAddr string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "swarmctl",
		Short:   "Command-line client for the swarm agent orchestration runtime",
		Long:    "swarmctl talks to a running swarmd instance over HTTP to create, execute, and inspect workflows.",
		Version: version.Full(),
	}
	root.PersistentFlags().StringVar(&serverAddr, "addr", "http://localhost:8080", "swarmd base URL")

	root.AddCommand(newHealthCmd())
	root.AddCommand(newWorkflowCmd())

	return root
}
