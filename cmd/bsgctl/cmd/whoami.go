package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the active session",
	RunE:  runWhoami,
}

func init() {
	rootCmd.AddCommand(whoamiCmd)

	whoamiCmd.Flags().Bool("json", false, "output as JSON")
}

func runWhoami(cmd *cobra.Command, args []string) error {
	printer := newPrinter()

	sessions, _, err := buildSession()
	if err != nil {
		return err
	}

	s, ok := sessions.Current()
	if !ok {
		printer.Warning("not logged in")
		return nil
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	printer.Print("user:       %s", s.User.Username)
	if s.User.DisplayName != "" {
		printer.Print("name:       %s", s.User.DisplayName)
	}
	if s.User.Email != "" {
		printer.Print("email:      %s", s.User.Email)
	}
	printer.Print("created at: %s", s.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	return nil
}
