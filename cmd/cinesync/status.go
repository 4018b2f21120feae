package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Daemon and sync status",
	Long: `Show daemon and sync status.

Examples:
  cinesync status            # Identity, item counts, sync health
  cinesync status --verify   # Also compare the local library with the remote`,
	Args: cobra.NoArgs,
	RunE: runStatusCmd,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().Bool("verify", false, "Compare the local library with the remote copy")
}

func runStatusCmd(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	runVerify, _ := cmd.Flags().GetBool("verify")

	status, err := client.Status()
	if err != nil {
		return fmt.Errorf("status check failed: %w", err)
	}

	var verify *VerifyResponse
	if runVerify {
		verify, err = client.Verify()
		if err != nil {
			return fmt.Errorf("verify failed: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		if verify != nil {
			return printJSON(out, map[string]any{"status": status, "verify": verify})
		}
		return printJSON(out, status)
	}

	printStatus(out, serverURL, status)
	if verify != nil {
		fmt.Fprintln(out)
		printVerify(out, verify)
	}
	return nil
}

func printStatus(w io.Writer, server string, s *StatusResponse) {
	fmt.Fprintf(w, "cinesync v%s | Server: %s (%s)\n\n", s.Version, server, s.Status)

	kind := "guest"
	if s.Sync.Authenticated {
		kind = "signed in"
	}
	fmt.Fprintf(w, "Identity:   %s (%s)\n", s.Sync.Identity, kind)
	fmt.Fprintf(w, "Library:    %d items, %d bookmarks\n", s.Items, s.Bookmarks)
	fmt.Fprintf(w, "History:    %d sessions\n", s.Sessions)

	switch {
	case !s.Sync.Remote:
		fmt.Fprintln(w, "Sync:       local only")
	case !s.Sync.Authenticated:
		fmt.Fprintln(w, "Sync:       off (guest)")
	case s.Sync.Degraded:
		fmt.Fprintf(w, "Sync:       DEGRADED (%d failures since %s)\n", s.Sync.Failures, formatTimeAgo(s.Sync.FailingSince))
	case s.Sync.Failures > 0:
		fmt.Fprintf(w, "Sync:       retrying (%d failures)\n", s.Sync.Failures)
	default:
		fmt.Fprintln(w, "Sync:       ok")
	}
}

func printVerify(w io.Writer, r *VerifyResponse) {
	fmt.Fprintf(w, "Verification for %s:\n\n", r.Identity)

	remote := "not configured"
	switch {
	case r.Remote.Configured && r.Remote.Reachable:
		remote = fmt.Sprintf("ok (%d items)", r.Remote.Items)
	case r.Remote.Configured:
		remote = "FAIL " + r.Remote.Error
	}
	fmt.Fprintf(w, "  Remote:  %s\n", remote)
	fmt.Fprintf(w, "  Local:   %d items\n", r.LocalItems)
	fmt.Fprintf(w, "  In sync: %s\n", yesNo(r.InSync))

	if len(r.Problems) == 0 {
		return
	}
	fmt.Fprintf(w, "\nProblems (%d):\n", len(r.Problems))
	for _, p := range r.Problems {
		fmt.Fprintf(w, "  - %s\n", p)
	}
}
