package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vmunix/cinesync/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse saved chat sessions",
}

var historyListCmd = &cobra.Command{
	Use:   "list [query]",
	Short: "List chat sessions, newest first",
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a chat session",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historySaveCmd = &cobra.Command{
	Use:   "save <file>",
	Short: "Save a chat session from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistorySave,
}

var historyDeleteCmd = &cobra.Command{
	Use:     "delete <session-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a chat session",
	Args:    cobra.ExactArgs(1),
	RunE:    runHistoryDelete,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every chat session",
	Args:  cobra.NoArgs,
	RunE:  runHistoryClear,
}

var historyLikeCmd = &cobra.Command{
	Use:   "like <message-id>",
	Short: "Toggle the liked state of a message",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryLike,
}

var historyLikedCmd = &cobra.Command{
	Use:   "liked",
	Short: "List liked messages",
	Args:  cobra.NoArgs,
	RunE:  runHistoryLiked,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historySaveCmd, historyDeleteCmd,
		historyClearCmd, historyLikeCmd, historyLikedCmd)
	historyClearCmd.Flags().Bool("yes", false, "Confirm clearing history")
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	res, err := client.History(strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("failed to fetch history: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, res)
	}
	if len(res.Sessions) == 0 {
		fmt.Fprintln(out, "No chat sessions")
		return nil
	}

	fmt.Fprintf(out, "Chat sessions (%d):\n\n", res.Total)
	for _, s := range res.Sessions {
		fmt.Fprintf(out, "  %-36s %-12s %3d msgs  %s\n",
			s.ID, formatTimeAgo(s.UpdatedAt), len(s.Messages), truncate(s.PreviewText, 48))
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	sess, err := client.Session(args[0])
	if err != nil {
		return fmt.Errorf("failed to fetch session: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, sess)
	}
	printSession(out, sess)
	return nil
}

func printSession(w io.Writer, s *history.Session) {
	fmt.Fprintf(w, "Session %s (updated %s)\n\n", s.ID, formatTimeAgo(s.UpdatedAt))
	for _, m := range s.Messages {
		fmt.Fprintf(w, "[%s] %s\n", m.Sender, m.Text)
	}
}

func runHistorySave(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	var sess history.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}

	client := NewClient(serverURL)
	res, err := client.SaveSession(sess)
	if err != nil {
		return fmt.Errorf("save failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, res)
	}
	switch res.Status {
	case history.SaveStored:
		fmt.Fprintf(out, "Saved session %s\n", res.Session.ID)
	default:
		fmt.Fprintf(out, "Not saved (%s)\n", res.Status)
	}
	return nil
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	if err := client.DeleteSession(args[0]); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", args[0])
	return nil
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	if !confirm(cmd, "Delete every chat session?") {
		return fmt.Errorf("refusing to clear history without confirmation (use --yes)")
	}
	client := NewClient(serverURL)
	if err := client.ClearHistory(); err != nil {
		return fmt.Errorf("clear failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
	return nil
}

func runHistoryLike(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	res, err := client.ToggleLike(args[0])
	if err != nil {
		return fmt.Errorf("like failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, res)
	}
	if res.Liked {
		fmt.Fprintf(out, "Liked %s\n", res.MessageID)
	} else {
		fmt.Fprintf(out, "Unliked %s\n", res.MessageID)
	}
	return nil
}

func runHistoryLiked(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	res, err := client.Liked()
	if err != nil {
		return fmt.Errorf("failed to fetch liked messages: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, res)
	}
	if len(res.Messages) == 0 {
		fmt.Fprintln(out, "No liked messages")
		return nil
	}
	for _, m := range res.Messages {
		fmt.Fprintf(out, "  %-12s %s\n    from: %s\n", m.ID, truncate(m.Text, 64), truncate(m.SessionPreview, 48))
	}
	return nil
}
