package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login <uid>",
	Short: "Switch the daemon to a signed-in identity",
	Long: `Switch the daemon to a signed-in identity.

The library and chat history of that identity are loaded from this device
and the library is reconciled with the remote store.`,
	Args: cobra.ExactArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Switch the daemon back to the guest identity",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current identity",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	res, err := client.Login(args[0])
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	return printIdentity(cmd, res)
}

func runLogout(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	res, err := client.Logout()
	if err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	return printIdentity(cmd, res)
}

func runWhoami(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	res, err := client.Identity()
	if err != nil {
		return fmt.Errorf("failed to fetch identity: %w", err)
	}
	return printIdentity(cmd, res)
}

func printIdentity(cmd *cobra.Command, res *IdentityResponse) error {
	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, res)
	}

	kind := "guest"
	if res.Authenticated {
		kind = "signed in"
	}
	fmt.Fprintf(out, "%s (%s)", res.Identity, kind)
	if cmd.Name() != "whoami" && !res.Changed {
		fmt.Fprint(out, ", unchanged")
	}
	fmt.Fprintln(out)
	return nil
}
