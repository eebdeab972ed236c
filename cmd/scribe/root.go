package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"mind-scribe/internal/apiclient"
	"mind-scribe/internal/config"
	"mind-scribe/internal/logger"
	"mind-scribe/internal/session"

	"github.com/spf13/cobra"
)

var (
	verbose     bool
	apiURL      string
	sessionFile string

	clientCfg config.ClientConfig
	store     *session.Store
	api       *apiclient.Client
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scribe",
	Short: "Command-line client for the MindScribe notes API",
	Long: `Scribe manages your MindScribe account and notes from the terminal.
It keeps the session token in a local file, streams live note events,
and can track a location feed to tell you when you are near a note.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "info"
		if verbose {
			level = "debug"
		}
		slog.SetDefault(logger.New(cmd.ErrOrStderr(), level, "text"))

		v := config.NewClientViper()
		flags := cmd.Root().PersistentFlags()
		if err := v.BindPFlag("API_URL", flags.Lookup("api-url")); err != nil {
			return err
		}
		if err := v.BindPFlag("SESSION_FILE", flags.Lookup("session-file")); err != nil {
			return err
		}

		cfg, err := config.LoadClient(v)
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		clientCfg = cfg
		store = session.NewStore(cfg.SessionFile)
		api = apiclient.New(cfg.APIURL)
		slog.Debug("client configured", "api_url", cfg.APIURL, "session_file", cfg.SessionFile)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "API base URL (env SCRIBE_API_URL)")
	rootCmd.PersistentFlags().StringVar(&sessionFile, "session-file", "", "Session file path (env SCRIBE_SESSION_FILE)")
}

var errNotLoggedIn = errors.New("not logged in, run `scribe login` first")

// requireSession loads the stored session or explains how to get one.
func requireSession() (*session.Session, error) {
	sess, err := store.Load()
	if errors.Is(err, session.ErrNoSession) {
		return nil, errNotLoggedIn
	}
	return sess, err
}
