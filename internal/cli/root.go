// Package cli implements the farmer-code command tree.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "farmer-code",
	Short: "farmer-code - multi-phase AI development workflow orchestrator",
	Long: `farmer-code drives feature workflows through specification, planning,
task generation, and implementation phases. Each phase dispatches an AI agent,
watches the feature's ticket for completion and approval signals, and records
every decision in an append-only audit log.

Example:
  farmer-code workflow create specify "Add user authentication"`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command under a cancellable context, so
// interrupts propagate into long-lived polls.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is farmer-code.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable verbose output")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error getting working directory:", err)
			os.Exit(1)
		}

		viper.AddConfigPath(cwd)
		viper.SetConfigType("yaml")
		viper.SetConfigName("farmer-code")
	}

	viper.SetEnvPrefix("FARMERCODE")
	viper.AutomaticEnv()

	// Missing config files are fine: flags and env can carry everything.
	_ = viper.ReadInConfig()
}
