package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recent events",
	Long: `Show recent events from the daemon's event log.

With --follow, stream live change events until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runEventsCmd,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().IntP("limit", "n", 20, "Number of events to show")
	eventsCmd.Flags().Int64("since", 0, "Only events after this event ID")
	eventsCmd.Flags().BoolP("follow", "f", false, "Stream live events")
	eventsCmd.Flags().String("entity", "", "Only events about one entity, as type/id (e.g. library/alice)")
}

func runEventsCmd(cmd *cobra.Command, args []string) error {
	var q EventsQuery
	if entity, _ := cmd.Flags().GetString("entity"); entity != "" {
		typ, id, ok := strings.Cut(entity, "/")
		if !ok || typ == "" || id == "" {
			return fmt.Errorf("invalid --entity %q: want type/id", entity)
		}
		q.EntityType, q.EntityID = typ, id
	}

	client := NewClient(serverURL)
	if follow, _ := cmd.Flags().GetBool("follow"); follow {
		return followEvents(cmd, client, q)
	}

	q.Limit, _ = cmd.Flags().GetInt("limit")
	q.Since, _ = cmd.Flags().GetInt64("since")

	events, err := client.Events(q)
	if err != nil {
		return fmt.Errorf("failed to fetch events: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, events)
	}

	if len(events.Items) == 0 {
		fmt.Fprintln(out, "No events")
		return nil
	}

	fmt.Fprintf(out, "Recent Events (%d):\n\n", events.Total)
	fmt.Fprintf(out, "  %-6s %-12s %-24s %-20s %s\n", "ID", "TIME", "TYPE", "ENTITY", "SUMMARY")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 80))

	for _, e := range events.Items {
		t, _ := time.Parse(time.RFC3339, e.OccurredAt)
		fmt.Fprintf(out, "  %-6d %-12s %-24s %-20s %s\n", e.ID, formatTimeAgo(t), e.EventType, entityRef(e.EntityType, e.EntityID), e.Summary)
	}

	return nil
}

func followEvents(cmd *cobra.Command, client *Client, q EventsQuery) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)
	return client.Follow(ctx, q, func(e StreamEvent) error {
		if jsonOutput {
			return enc.Encode(e)
		}
		printStreamEvent(out, e)
		return nil
	})
}

func printStreamEvent(w io.Writer, e StreamEvent) {
	fmt.Fprintf(w, "%s  %-24s %-20s %s\n", e.OccurredAt.Local().Format("15:04:05"), e.EventType, entityRef(e.EntityType, e.EntityID), e.Summary)
}

func entityRef(entityType, entityID string) string {
	if entityID == "" {
		return entityType
	}
	return entityType + "/" + entityID
}
