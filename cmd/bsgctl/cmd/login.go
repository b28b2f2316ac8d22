package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bsglabs/bankclient"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate and persist a session",
	Long: `Obtain a fresh credential from the deployment's token endpoint and
persist the session for subsequent commands.

Examples:
  bsgctl login -u demo                      # Password auth, prompts for password
  bsgctl login --auth apikey                # API-key auth (reads BSG_API_KEY)
  BSG_PASSWORD=... bsgctl login -u demo     # Non-interactive`,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().StringP("username", "u", "", "username for password auth")
	loginCmd.Flags().StringP("password", "p", "", "password (prefer BSG_PASSWORD)")
	loginCmd.Flags().String("email", "", "email shown in session info")
}

func runLogin(cmd *cobra.Command, args []string) error {
	printer := newPrinter()

	username, _ := cmd.Flags().GetString("username")
	if username != "" {
		viper.Set("username", username)
	}
	password, _ := cmd.Flags().GetString("password")
	if password != "" {
		viper.Set("password", password)
	}

	if viper.GetString("auth") != "apikey" {
		if viper.GetString("username") == "" {
			return fmt.Errorf("password auth requires --username")
		}
		if viper.GetString("password") == "" {
			pw, err := promptPassword()
			if err != nil {
				return err
			}
			viper.Set("password", pw)
		}
	}

	sessions, _, err := buildSession()
	if err != nil {
		return err
	}

	email, _ := cmd.Flags().GetString("email")
	user := bankclient.UserInfo{
		Username: viper.GetString("username"),
		Email:    email,
	}
	if user.Username == "" {
		user.Username = "api-key"
	}

	s, err := sessions.Login(cmd.Context(), user)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	printer.Success("logged in as %s", s.User.Username)
	return nil
}

func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
