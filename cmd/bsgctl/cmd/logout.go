package cmd

import (
	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Destroy the session and stored credential",
	RunE:  runLogout,
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) error {
	sessions, _, err := buildSession()
	if err != nil {
		return err
	}
	if err := sessions.Logout(cmd.Context()); err != nil {
		return err
	}
	newPrinter().Success("logged out")
	return nil
}
