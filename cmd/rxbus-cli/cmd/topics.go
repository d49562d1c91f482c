package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nfrund/rxbus/cmd/rxbus-cli/internal/demo"
	"github.com/nfrund/rxbus/cmd/rxbus-cli/internal/topics"
)

var (
	topicsOutputFormat string
	topicsKey          string
)

// topicsCmd represents the topics command
var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Show the topics created by the demo observers",
	Long: `Attach the demo observers to a fresh bus and print the resulting
registry contents and statistics.

Examples:
  rxbus-cli topics                    # table output
  rxbus-cli topics --skey lobby       # include keyed topics
  rxbus-cli topics --format json      # machine-readable output`,
	Run: topicsHandler,
}

func topicsHandler(cmd *cobra.Command, args []string) {
	a, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	opts := demo.Options{}
	if topicsKey != "" {
		opts.StringKey = &topicsKey
	}
	observers, err := demo.Attach(a.Bus, opts, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer observers.Close()

	out := cmd.OutOrStdout()
	switch topicsOutputFormat {
	case "json":
		if err := topics.DisplayTopicsJSON(out, a.Bus.Registry()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to encode JSON: %v\n", err)
			os.Exit(1)
		}
	case "table":
		topics.DisplayTopicsTable(out, a.Bus.Registry())
	default:
		fmt.Fprintf(os.Stderr, "Error: Unsupported output format '%s'. Use 'table' or 'json'\n", topicsOutputFormat)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(topicsCmd)

	topicsCmd.Flags().StringVarP(&topicsOutputFormat, "format", "f", "table", "Output format (table, json)")
	topicsCmd.Flags().StringVarP(&topicsKey, "skey", "s", "", "Also attach keyed observers for this string key")
}
