package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rxbus-cli",
	Short: "rxbus CLI tool",
	Long: `rxbus-cli exercises the in-process event bus from the command line.

Available commands:
  demo      Subscribe sample observers and send one event with routing options
  topics    Show the topics created by the demo subscriptions
  version   Print the CLI version

Use "rxbus-cli [command] --help" for more information about a specific command.`,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "Processor backend (memory, watermill); overrides BUS_BACKEND")
}
