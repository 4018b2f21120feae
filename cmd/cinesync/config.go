package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/vmunix/cinesync/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configTestCmd = &cobra.Command{
	Use:   "test [path]",
	Short: "Validate configuration file",
	Long:  "Validates config.toml syntax, required fields, and environment variable substitution without starting the daemon.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigTest,
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigInit,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configTestCmd, configInitCmd)
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing file")
	configInitCmd.Flags().Int("port", 0, "Daemon port (writes a generated config instead of the example)")
	configInitCmd.Flags().String("remote-url", "", "Remote document store to sync with")
	configInitCmd.Flags().Bool("serve", false, "Serve this daemon's database as the remote document store")
}

func runConfigTest(cmd *cobra.Command, args []string) error {
	path := "config.toml"
	if len(args) > 0 {
		path = args[0]
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Validating %s...\n\n", path)

	cfg, err := config.Load(path)
	if err != nil {
		var configErr *config.ConfigError
		if errors.As(err, &configErr) {
			printConfigErrors(out, configErr)
			return fmt.Errorf("configuration invalid")
		}
		return fmt.Errorf("failed to load config: %w", err)
	}

	printConfigSummary(out, cfg)
	fmt.Fprintln(out, "\nConfiguration valid!")
	return nil
}

func printConfigErrors(w io.Writer, e *config.ConfigError) {
	if vars := e.MissingVars(); len(vars) > 0 {
		fmt.Fprintln(w, "Missing environment variables:")
		for _, m := range vars {
			fmt.Fprintf(w, "  - %s\n", m)
		}
		fmt.Fprintln(w)
	}

	if len(e.Errors) > 0 {
		fmt.Fprintln(w, "Validation errors:")
		for _, s := range e.Sections() {
			fmt.Fprintf(w, "  [%s]\n", s.Table)
			for _, p := range s.Problems {
				fmt.Fprintf(w, "    - %s\n", p)
			}
		}
		fmt.Fprintln(w)
	}
}

func printConfigSummary(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "Configuration Summary:")
	fmt.Fprintf(w, "  Server:    %s:%d (log: %s)\n", cfg.Server.Host, cfg.Server.Port, cfg.Server.LogLevel)
	fmt.Fprintf(w, "  Database:  %s\n", cfg.Database.Path)

	switch {
	case cfg.Remote.Serve:
		fmt.Fprintln(w, "  Remote:    serving from this daemon")
	case cfg.Remote.URL != "":
		fmt.Fprintf(w, "  Remote:    %s (timeout %s)\n", cfg.Remote.URL, cfg.Remote.Timeout.Duration)
	default:
		fmt.Fprintln(w, "  Remote:    none (local only)")
	}

	fmt.Fprintf(w, "  Sync:      degrade after %d failures, write timeout %s\n",
		cfg.Sync.EscalateAfter, cfg.Sync.WriteTimeout.Duration)
	if cfg.Events.Persist {
		fmt.Fprintf(w, "  Events:    persisted for %s\n", cfg.Events.Retention.Duration)
	} else {
		fmt.Fprintln(w, "  Events:    in-memory only")
	}
	if cfg.Log.File != "" {
		fmt.Fprintf(w, "  Log file:  %s (rotate at %d MB, keep %d)\n", cfg.Log.File, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups)
	}
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.DefaultPath()
	if len(args) > 0 {
		path = args[0]
	}

	force, _ := cmd.Flags().GetBool("force")
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	flags := cmd.Flags()
	if !flags.Changed("port") && !flags.Changed("remote-url") && !flags.Changed("serve") {
		if err := config.WriteDefault(path); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	}

	cfg := config.Default()
	if port, _ := flags.GetInt("port"); port != 0 {
		cfg.Server.Port = port
	}
	cfg.Remote.URL, _ = flags.GetString("remote-url")
	cfg.Remote.Serve, _ = flags.GetBool("serve")
	if cfg.Remote.URL != "" || cfg.Remote.Serve {
		cfg.Remote.Token = config.TokenRef
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		printConfigErrors(cmd.OutOrStdout(), &config.ConfigError{Path: path, Errors: errs})
		return fmt.Errorf("configuration invalid")
	}

	if err := cfg.Write(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %s\n", path)
	if cfg.Remote.Token != "" {
		fmt.Fprintln(out, "Set CINESYNC_REMOTE_TOKEN before starting cinesyncd.")
	}
	return nil
}
