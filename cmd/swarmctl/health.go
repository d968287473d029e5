package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check swarmd's health and active workflow/agent counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newAPIClient(serverAddr).health()
			if err != nil {
				return err
			}
			fmt.Printf("status:           %v\n", out["status"])
			fmt.Printf("active_workflows: %v\n", out["active_workflows"])
			fmt.Printf("active_agents:    %v\n", out["active_agents"])
			return nil
		},
	}
}
