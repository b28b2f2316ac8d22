// Package cmd contains all CLI commands for bsgctl
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bsglabs/bankclient"
	"github.com/bsglabs/bankclient/banking"
	"github.com/bsglabs/bankclient/cmd/bsgctl/internal/output"
	"github.com/bsglabs/bankclient/stores/fs"
	"github.com/bsglabs/bankclient/stores/keyring"
)

const serviceName = "bsgctl"

var (
	apiURL    string
	configURL string
	authMode  string
	storeKind string
	dataDir   string
	verbose   bool
	noColor   bool
	logger    *slog.Logger
	version   = "dev"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bsgctl",
	Short: "BSG demo platform CLI",
	Long: `bsgctl drives the BSG demo banking backends from the terminal.

It authenticates against the deployment's token endpoint, keeps the
credential fresh across calls, and exposes the CRM, accounts, loans
and cards operations.

Example usage:
  bsgctl login -u demo            # Authenticate and persist the session
  bsgctl customers search smith   # Search CRM customers
  bsgctl accounts c-1             # List a customer's accounts
  bsgctl cards freeze card-7      # Freeze a debit card`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string for the CLI
func SetVersion(v string) {
	version = v
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "API base URL (skips runtime config resolution)")
	rootCmd.PersistentFlags().StringVar(&configURL, "config-url", "", "runtime config document URL")
	rootCmd.PersistentFlags().StringVar(&authMode, "auth", "password", "auth mode: password or apikey")
	rootCmd.PersistentFlags().StringVar(&storeKind, "store", "file", "credential store backend: file or keyring")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "storage directory (default: user config dir)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	_ = viper.BindPFlag("api_url", rootCmd.PersistentFlags().Lookup("api-url"))
	_ = viper.BindPFlag("config_url", rootCmd.PersistentFlags().Lookup("config-url"))
	_ = viper.BindPFlag("auth", rootCmd.PersistentFlags().Lookup("auth"))
	_ = viper.BindPFlag("store", rootCmd.PersistentFlags().Lookup("store"))
	_ = viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))

	viper.SetEnvPrefix("BSG")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// initConfig sets up logging from flags and environment.
func initConfig() error {
	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	return nil
}

func newPrinter() *output.Printer {
	return output.NewPrinter(!noColor)
}

// sessionStore is the combined persistence surface the CLI needs.
type sessionStore interface {
	bankclient.CredentialStore
	bankclient.SessionStore
}

func openStore() (sessionStore, error) {
	switch viper.GetString("store") {
	case "keyring":
		return keyring.NewStore(serviceName, viper.GetString("data_dir"))
	case "file", "":
		return fs.NewStore(viper.GetString("data_dir"), serviceName)
	default:
		return nil, fmt.Errorf("unknown store backend %q: must be file or keyring", viper.GetString("store"))
	}
}

func newResolver() *bankclient.ConfigResolver {
	if u := viper.GetString("api_url"); u != "" {
		return bankclient.NewStaticResolver(u)
	}
	if u := viper.GetString("config_url"); u != "" {
		return bankclient.NewConfigResolver(bankclient.ResolverOptions{
			ConfigURL: u,
			Logger:    logger,
		})
	}
	// Local demo backend default.
	return bankclient.NewStaticResolver("http://localhost:8480")
}

func newAdapter() (bankclient.TokenAdapter, error) {
	switch viper.GetString("auth") {
	case "apikey":
		key := viper.GetString("api_key")
		if key == "" {
			return nil, fmt.Errorf("apikey auth requires BSG_API_KEY")
		}
		return &bankclient.APIKeyAdapter{APIKey: key}, nil
	case "password", "":
		return &bankclient.OAuthAdapter{
			Username: viper.GetString("username"),
			Password: viper.GetString("password"),
		}, nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q: must be password or apikey", viper.GetString("auth"))
	}
}

// requireSession warns when no persisted session exists. The command
// still runs: the token manager reports the authoritative auth failure.
func requireSession(sessions *bankclient.SessionManager) {
	if _, ok := sessions.Current(); !ok {
		newPrinter().Warning("no active session, run `bsgctl login` first")
	}
}

// buildSession wires the full client stack from flags and environment.
func buildSession() (*bankclient.SessionManager, *banking.Service, error) {
	store, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	adapter, err := newAdapter()
	if err != nil {
		return nil, nil, err
	}

	resolver := newResolver()
	tokens := bankclient.NewTokenManager(store, adapter, resolver,
		bankclient.WithTokenLogger(logger))
	client := bankclient.New(resolver, tokens, bankclient.WithLogger(logger))

	sessions := bankclient.NewSessionManager(client, store, logger)
	sessions.OnExpired(func() {
		newPrinter().Warning("session expired, run `bsgctl login` again")
	})

	return sessions, banking.NewService(client), nil
}
