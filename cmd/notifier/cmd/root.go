package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/DanHalford/HIBP-Breach-Notifier/internal/config"
	"github.com/DanHalford/HIBP-Breach-Notifier/internal/logger"
)

var (
	cfg   *config.Config
	log   *slog.Logger
	debug bool
)

var rootCmd = &cobra.Command{
	Use:   "notifier",
	Short: "Cross-references the user directory against Have I Been Pwned",
	Long: `notifier checks every directory user with a mail address against the
Have I Been Pwned breach database, records never-seen breaches in a local
store and emails affected users about the new ones.

Previously seen breaches are remembered across runs, so each breach is
reported to a user at most once.`,
	PersistentPreRunE: setup,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setup(_ *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	env := cfg.Env
	if debug {
		env = config.EnvLocal
	}
	log = logger.New(env)

	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}
