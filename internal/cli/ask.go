package cli

import (
	"github.com/spf13/cobra"

	"github.com/farmer1st/farmer-code/internal/hub"
)

var (
	askContext   string
	askFeature   string
	askSessionID string
)

var askCmd = &cobra.Command{
	Use:   "ask <topic> <question>",
	Short: "Route a question to the topic's expert agent",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		service, err := buildService(cmd.Context())
		if err != nil {
			return err
		}

		resp, err := service.Hub().AskExpert(cmd.Context(), hub.AskRequest{
			Topic:     args[0],
			Question:  args[1],
			Context:   askContext,
			FeatureID: askFeature,
			SessionID: askSessionID,
		})
		if err != nil {
			return err
		}
		return printJSON(resp)
	},
}

func init() {
	askCmd.Flags().StringVar(&askContext, "context", "", "additional context for the question")
	askCmd.Flags().StringVar(&askFeature, "feature", "", "feature id the question belongs to")
	askCmd.Flags().StringVar(&askSessionID, "session", "", "session id to continue a conversation")

	rootCmd.AddCommand(askCmd)
}
