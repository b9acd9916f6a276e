// Package cli implements the scanner commands.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tarancss/adpscan/lib/config"
)

const (
	defaultConfigFileName = "settings.json"
	defaultMetricsAddr    = ":9100"
)

var (
	cfgPath  string
	logLevel string
	rootCmd  = &cobra.Command{
		Use:   "scanner",
		Short: "Scan random addresses for balances on several EVM networks",
		Long: "scanner generates fresh key pairs, queries the native balance of their address on every configured\n" +
			"network and appends funded addresses with their private key to the results file.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Setup registers the commands and flags and executes the command line.
func Setup() error {
	ScanFlags(rootCmd)
	rootCmd.RunE = scan

	rootCmd.AddCommand(DeriveCmd())
	rootCmd.AddCommand(ListCmd())
	rootCmd.AddCommand(WatchCmd())
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultConfigFileName,
		"configuration file, empty to read OS ENV variables only")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level, overrides the configuration")

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Scanner stopped")

		return err
	}

	return nil
}

// GetConfigPath returns the configuration file given on the command line.
func GetConfigPath() string {
	return cfgPath
}

// loadConfig extracts the configuration, sets up logging with its level and checks it with validate when not nil.
// Commands that only read the discovery index or the broker need no networks and pass nil.
func loadConfig(validate func(*config.ScanConfig) error) (config.ScanConfig, error) {
	conf, err := config.ExtractConfiguration(GetConfigPath())
	if err != nil {
		return conf, err
	}

	if err = setupLogger(conf.LogLevel); err != nil {
		return conf, err
	}

	if validate != nil {
		if err = validate(&conf); err != nil {
			return conf, fmt.Errorf("config: %w", err)
		}
	}

	return conf, nil
}

// setupLogger writes human readable logs to stderr, stdout being reserved for results.
func setupLogger(level string) error {
	if logLevel != "" {
		level = logLevel
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}

	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	return nil
}
