package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	serverURL  string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "cinesync",
	Short: "CLI client for the cinesync daemon",
	Long: `cinesync - CLI client for the cinesync daemon

Manage your watch library, bookmarks and chat history. Changes are
saved on this device immediately and synced to the remote store in
the background when you are logged in.

Run 'cinesyncd' to start the daemon.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8585", "Server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("cinesync {{.Version}}\n")
}
