package main

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// ctlConfig is the subset of the server environment the operator tool needs.
type ctlConfig struct {
	DatabaseURL string `env:"DATABASE_URL"`
	Timezone    string `env:"TIMEZONE" envDefault:"Asia/Tokyo"`
}

var (
	cfg         ctlConfig
	databaseURL string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "timeclockctl",
	Short: "timeclockctl is the operator tool for the timeclock server",
	Long: `timeclockctl manages the timeclock database schema and exports work
session reports straight from Postgres, without going through the bot.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := zerolog.InfoLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		zerolog.SetGlobalLevel(level)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

		if err := env.Parse(&cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
		if databaseURL != "" {
			cfg.DatabaseURL = databaseURL
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Postgres URL (defaults to DATABASE_URL)")
}

func location() (*time.Location, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	return loc, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
