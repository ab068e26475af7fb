package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/luejerry/autoclocker/internal/config"
	"github.com/luejerry/autoclocker/internal/credstore"
	"github.com/luejerry/autoclocker/internal/portal"
	"github.com/luejerry/autoclocker/internal/storage"
)

var (
	cfg    *config.Config
	db     *storage.Database
	store  *credstore.Store
	client *portal.Client
	logger zerolog.Logger

	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "autoclocker",
	Short: "Optimal clock-out calculator for the ADP time portal",
	Long: `Autoclocker computes the optimal clock-out time for today from the shifts
already recorded on the ADP WorkforceNow portal, lets you clock in or out
without the web application, and can schedule an automatic clock-out at the
computed time.

Run with no arguments for interactive mode.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := zerolog.WarnLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(level).With().Timestamp().Logger()

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		db, err = storage.New(cfg.DatabasePath)
		if err != nil {
			return err
		}
		store = credstore.New(cfg.CredentialsPath)
		client, err = portal.New(cfg.PortalURL, logger)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if db != nil {
			return db.Close()
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.AddCommand(inCmd)
	rootCmd.AddCommand(outCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(savecredsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
