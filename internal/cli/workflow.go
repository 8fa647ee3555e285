package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/farmer1st/farmer-code/internal/workflow"
)

var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Create, inspect, and advance feature workflows",
}

var workflowCreateCmd = &cobra.Command{
	Use:   "create <type> <description>",
	Short: "Create and start a workflow (types: specify, plan, tasks, implement)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		service, err := buildService(cmd.Context())
		if err != nil {
			return err
		}

		w, err := service.CreateWorkflow(workflow.Type(args[0]), args[1], nil)
		if err != nil {
			return err
		}
		return printJSON(w)
	},
}

var workflowGetCmd = &cobra.Command{
	Use:   "get <workflow-id>",
	Short: "Show a workflow's state and history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		service, err := buildService(cmd.Context())
		if err != nil {
			return err
		}

		w, err := service.GetWorkflow(args[0])
		if err != nil {
			return err
		}
		return printJSON(w)
	},
}

var advancePayload string

var workflowAdvanceCmd = &cobra.Command{
	Use:   "advance <workflow-id> <trigger>",
	Short: "Apply a trigger (agent_complete, human_approved, human_rejected, error)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		service, err := buildService(cmd.Context())
		if err != nil {
			return err
		}

		var payload map[string]interface{}
		if advancePayload != "" {
			if err := json.Unmarshal([]byte(advancePayload), &payload); err != nil {
				return fmt.Errorf("invalid --payload JSON: %w", err)
			}
		}

		w, err := service.AdvanceWorkflow(cmd.Context(), args[0], workflow.Trigger(args[1]), payload)
		if err != nil {
			return err
		}
		return printJSON(w)
	},
}

var workflowRunCmd = &cobra.Command{
	Use:   "run <workflow-id>",
	Short: "Execute the workflow's current phase, resuming persisted progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		service, err := buildService(cmd.Context())
		if err != nil {
			return err
		}

		w, err := service.RunPhase(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(w)
	},
}

func init() {
	workflowAdvanceCmd.Flags().StringVar(&advancePayload, "payload", "", "JSON payload recorded with the transition")

	workflowCmd.AddCommand(workflowCreateCmd, workflowGetCmd, workflowAdvanceCmd, workflowRunCmd)
	rootCmd.AddCommand(workflowCmd)
}

// printJSON renders a value as indented JSON on stdout.
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
