package cli

import (
	"github.com/spf13/cobra"

	"github.com/farmer1st/farmer-code/internal/hub"
)

var escalationCmd = &cobra.Command{
	Use:   "escalation",
	Short: "Inspect and resolve human escalations",
}

var escalationCheckCmd = &cobra.Command{
	Use:   "check <escalation-id>",
	Short: "Show an escalation's question, tentative answer, and status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		service, err := buildService(cmd.Context())
		if err != nil {
			return err
		}

		escalation, err := service.Hub().CheckEscalation(args[0])
		if err != nil {
			return err
		}
		return printJSON(escalation)
	},
}

var (
	resolveResponder string
	resolvePayload   string
)

var escalationResolveCmd = &cobra.Command{
	Use:   "resolve <escalation-id> <action>",
	Short: "Resolve an escalation (actions: confirm, correct, add_context)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		service, err := buildService(cmd.Context())
		if err != nil {
			return err
		}

		resolution, err := service.Hub().ResolveEscalation(
			args[0], hub.HumanAction(args[1]), resolveResponder, resolvePayload)
		if err != nil {
			return err
		}
		return printJSON(resolution)
	},
}

func init() {
	escalationResolveCmd.Flags().StringVar(&resolveResponder, "responder", "", "handle of the resolving human")
	escalationResolveCmd.Flags().StringVar(&resolvePayload, "payload", "", "corrected answer or additional context")
	_ = escalationResolveCmd.MarkFlagRequired("responder")

	escalationCmd.AddCommand(escalationCheckCmd, escalationResolveCmd)
	rootCmd.AddCommand(escalationCmd)
}
