package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/arshiaxbt/Aura/internal/config"
	"github.com/arshiaxbt/Aura/internal/logging"
)

var (
	cfg      config.Config
	logLevel string
	jsonOut  bool
	noColor  bool
)

var rootCmd = &cobra.Command{
	Use:   "aura",
	Short: "Reputation for on-chain identifiers found in web pages",
	Long: `aura finds Ethereum addresses, ENS names and Base names in HTML,
resolves names, fetches reputation scores and prints what it found.

Configuration comes from AURA_* environment variables; see internal/config.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		logging.SetLevel(os.Stderr, cfg.LogLevel)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides AURA_LOG_LEVEL")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print JSON instead of tables")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored status output")
}
