package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brindle-systems/swarm/pkg/service"
)

var (
	sessionID string
	userID    string
)

func newWorkflowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Create, execute, and inspect workflows",
	}
	cmd.PersistentFlags().StringVar(&sessionID, "session", "cli-session", "session id to attach the workflow to")
	cmd.PersistentFlags().StringVar(&userID, "user", "cli-user", "user id that owns the workflow")

	cmd.AddCommand(newWorkflowRunCmd())
	cmd.AddCommand(newWorkflowStatusCmd())
	cmd.AddCommand(newWorkflowListCmd())
	cmd.AddCommand(newWorkflowControlCmd("pause"))
	cmd.AddCommand(newWorkflowControlCmd("resume"))
	cmd.AddCommand(newWorkflowControlCmd("cancel"))

	return cmd
}

// newWorkflowRunCmd creates a workflow from free-text requirements and
// immediately executes it, printing the terminal step results.
func newWorkflowRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <description>",
		Short: "Create and execute a workflow from a natural-language description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(serverAddr)
			text := strings.Join(args, " ")

			created, err := client.createWorkflow(service.CreateWorkflowRequest{
				UserText:  text,
				SessionID: sessionID,
				UserID:    userID,
			})
			if err != nil {
				return fmt.Errorf("create workflow: %w", err)
			}
			fmt.Printf("created workflow %s (%s, %s) with %d step(s)\n",
				created.WorkflowID, created.Name, created.ProjectType, len(created.Steps))

			executed, err := client.executeWorkflow(created.WorkflowID)
			if err != nil {
				return fmt.Errorf("execute workflow: %w", err)
			}
			fmt.Printf("status: %s (%d/%d steps completed)\n",
				executed.Status, executed.StepsCompleted, len(created.Steps))
			for _, r := range executed.Results {
				if r.Error != "" {
					fmt.Printf("  - %s (%s): %s (%s)\n", r.StepID, r.AgentID, r.Status, r.Error)
				} else {
					fmt.Printf("  - %s (%s): %s\n", r.StepID, r.AgentID, r.Status)
				}
			}
			return nil
		},
	}
}

func newWorkflowStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <workflow-id>",
		Short: "Show a workflow's progress and agent states",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := newAPIClient(serverAddr).workflowStatus(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("status:   %s\n", st.Status)
			fmt.Printf("progress: %s (%.0f%%)\n", st.Progress, st.Percentage)
			fmt.Printf("phase:    %s\n", st.CurrentPhase)
			for id, a := range st.Agents {
				fmt.Printf("  agent %s: %s (%s / %s)\n", id, a.Name, a.State, a.Status)
			}
			return nil
		},
	}
}

func newWorkflowListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := newAPIClient(serverAddr).listActiveWorkflows(userID)
			if err != nil {
				return err
			}
			if len(list.Workflows) == 0 {
				fmt.Println("no active workflows")
				return nil
			}
			for _, w := range list.Workflows {
				fmt.Printf("%s  %-20s %-12s %-8s %s\n", w.ID, w.Name, w.ProjectType, w.Progress, w.CurrentPhase)
			}
			return nil
		},
	}
}

func newWorkflowControlCmd(action string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <workflow-id>",
		Short: "Send a " + action + " control request to a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := newAPIClient(serverAddr).control(action, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s -> %s\n", resp.WorkflowID, resp.Status)
			return nil
		},
	}
}
