package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/farmer1st/farmer-code/internal/poller"
)

var (
	pollTimeout  time.Duration
	pollInterval time.Duration
	pollRaise    bool
)

var pollCmd = &cobra.Command{
	Use:   "poll <workflow-id> <signal>",
	Short: "Watch a workflow's ticket for a signal (AGENT_COMPLETE, HUMAN_APPROVAL)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		service, err := buildService(cmd.Context())
		if err != nil {
			return err
		}

		result, err := service.Poll(cmd.Context(), args[0], poller.SignalType(args[1]), poller.Request{
			Timeout:        pollTimeout,
			Interval:       pollInterval,
			RaiseOnTimeout: pollRaise,
		})
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

func init() {
	pollCmd.Flags().DurationVar(&pollTimeout, "timeout", time.Hour, "maximum time to poll")
	pollCmd.Flags().DurationVar(&pollInterval, "interval", 30*time.Second, "time between polls")
	pollCmd.Flags().BoolVar(&pollRaise, "raise-on-timeout", false, "exit non-zero when the signal never appears")

	rootCmd.AddCommand(pollCmd)
}
