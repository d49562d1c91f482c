package topics

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/nfrund/rxbus/cmd/rxbus-cli/internal/demo"
	"github.com/nfrund/rxbus/internal/topicmgr"
)

// TopicDisplay represents a topic for display purposes
type TopicDisplay struct {
	Topic     string    `json:"topic"`
	Type      string    `json:"type"`
	Key       string    `json:"key,omitempty"`
	Observers int       `json:"observers"`
	CreatedAt time.Time `json:"created_at"`
}

func collect(registry *topicmgr.Registry) []TopicDisplay {
	ids := registry.List()
	displays := make([]TopicDisplay, 0, len(ids))
	for _, id := range ids {
		entry, ok := registry.GetEntry(id)
		if !ok {
			continue
		}
		d := TopicDisplay{
			Topic:     entry.Topic,
			Type:      id.Type().String(),
			Observers: entry.Processor.ObserverCount(),
			CreatedAt: entry.CreatedAt,
		}
		if id.IsKeyed() {
			d.Key = id.Key().String()
		}
		displays = append(displays, d)
	}
	return displays
}

// DisplayTopicsTable displays the registry topics in a formatted table
func DisplayTopicsTable(w io.Writer, registry *topicmgr.Registry) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "TOPIC\tTYPE\tKEY\tOBSERVERS")
	fmt.Fprintln(tw, "-----\t----\t---\t---------")

	displays := collect(registry)
	if len(displays) == 0 {
		fmt.Fprintln(tw, "No topics found")
		return
	}
	for _, d := range displays {
		key := d.Key
		if key == "" {
			key = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", truncateString(d.Topic, 60), d.Type, key, d.Observers)
	}
}

// DisplayTopicsJSON displays the registry topics and stats in JSON format
func DisplayTopicsJSON(w io.Writer, registry *topicmgr.Registry) error {
	displays := collect(registry)
	output := struct {
		Topics []TopicDisplay         `json:"topics"`
		Count  int                    `json:"count"`
		Stats  topicmgr.RegistryStats `json:"stats"`
	}{
		Topics: displays,
		Count:  len(displays),
		Stats:  registry.GetStats(),
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// DisplayReceived lists what each observer received, sorted by observer name.
func DisplayReceived(w io.Writer, received map[string][]string) {
	if len(received) == 0 {
		fmt.Fprintln(w, "No observer received the event")
		return
	}
	fmt.Fprintln(w, "Received:")
	for _, name := range demo.SortedNames(received) {
		fmt.Fprintf(w, "  %s: %s\n", name, strings.Join(received[name], ", "))
	}
}

// truncateString truncates a string to maxLen characters, adding "..." if truncated
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return s[:maxLen-3] + "..."
}
