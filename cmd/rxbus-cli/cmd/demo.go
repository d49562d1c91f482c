package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nfrund/rxbus/cmd/rxbus-cli/internal/demo"
	"github.com/nfrund/rxbus/cmd/rxbus-cli/internal/topics"
)

var (
	demoIntKey        int64
	demoStringKey     string
	demoSendToDefault bool
	demoCast          bool
	demoRoom          string
	demoName          string
)

// demoCmd represents the demo command
var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Send one sample event and show who received it",
	Long: `Subscribe a set of sample observers, send a UserJoined event with the
requested routing options, and print the result.

Observers:
  joined              UserJoined, bare topic
  joined#<key>        UserJoined, keyed topic (only when a key is given)
  announcements       Announcement interface, bare topic
  announcements#<key> Announcement interface, keyed topic (only when a key is given)

Examples:
  rxbus-cli demo                          # bare UserJoined topic only
  rxbus-cli demo --cast                   # delivered as Announcement
  rxbus-cli demo --key 7                  # keyed topic only
  rxbus-cli demo --skey lobby --default   # keyed and bare topics
  rxbus-cli demo --backend watermill      # same, over watermill's GoChannel`,
	Run: demoHandler,
}

func demoHandler(cmd *cobra.Command, args []string) {
	opts, err := demoOptions(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	a, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	result, err := demo.Run(context.Background(), a.Bus, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Sent %s (backend %s)\n", result.Event, a.Config.Backend)
	fmt.Fprintf(out, "Delivered: %t\n\n", result.Delivered)
	topics.DisplayReceived(out, result.Received)
	fmt.Fprintln(out)
	topics.DisplayTopicsTable(out, a.Bus.Registry())
}

// demoOptions converts the command flags into demo options.
func demoOptions(cmd *cobra.Command) (demo.Options, error) {
	opts := demo.Options{
		Room:          demoRoom,
		Name:          demoName,
		Cast:          demoCast,
		SendToDefault: demoSendToDefault,
	}

	intSet := cmd.Flags().Changed("key")
	strSet := cmd.Flags().Changed("skey")
	switch {
	case intSet && strSet:
		return opts, fmt.Errorf("--key and --skey are mutually exclusive")
	case intSet:
		opts.IntKey = &demoIntKey
	case strSet:
		opts.StringKey = &demoStringKey
	}
	return opts, nil
}

func init() {
	rootCmd.AddCommand(demoCmd)

	demoCmd.Flags().Int64VarP(&demoIntKey, "key", "k", 0, "Integer routing key")
	demoCmd.Flags().StringVarP(&demoStringKey, "skey", "s", "", "String routing key")
	demoCmd.Flags().BoolVarP(&demoSendToDefault, "default", "d", false, "Also send keyed events to the bare topic")
	demoCmd.Flags().BoolVarP(&demoCast, "cast", "c", false, "Cast the event to the Announcement interface")
	demoCmd.Flags().StringVar(&demoRoom, "room", "lobby", "Room of the sample event")
	demoCmd.Flags().StringVar(&demoName, "name", "ann", "User name of the sample event")
}
