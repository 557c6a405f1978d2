package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"geoform/internal/config"
	"geoform/internal/logging"
)

type app struct {
	logLevel string
	logFile  string
	database string

	logs *logging.Manager
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:          "geoform-server",
		Short:        "Development backend for the geoform client",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Seed the masters and serve on the default address
  geoform-server seed --masters ./masters
  geoform-server serve

  # Serve with a persistent key pair
  geoform-server keygen --out ./keys
  geoform-server serve --private-key ./keys/private.pem
`),
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		overrides := map[string]any{}
		flags := cmd.Flags()
		if flags.Changed("log-level") {
			overrides[config.KeyBackendLogLevel] = a.logLevel
		}
		if flags.Changed("log-file") {
			overrides[config.KeyBackendLogFile] = a.logFile
		}
		if flags.Changed("db") {
			overrides[config.KeyBackendDatabase] = a.database
		}
		if err := config.ApplyOverrides(overrides); err != nil {
			return fmt.Errorf("apply flag overrides: %w", err)
		}

		a.logs = logging.NewManager(cmd.ErrOrStderr())
		return a.logs.Configure(config.GetString(config.KeyBackendLogLevel), config.GetString(config.KeyBackendLogFile))
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if a.logs != nil {
			return a.logs.Close()
		}
		return nil
	}

	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&a.logFile, "log-file", "", "Also append logs to this file")
	cmd.PersistentFlags().StringVar(&a.database, "db", "geoform.db", "Path to the masters SQLite database")

	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newSeedCmd(a))
	cmd.AddCommand(newKeygenCmd(a))
	return cmd
}
