package main

import (
	"fmt"
	"log"
	"os"

	"github.com/milosgajdos/go-rtls/config"
	"github.com/spf13/cobra"
)

var (
	configPath string
	dbPath     string
	logger     = log.New(os.Stderr, "[rtls] ", log.LstdFlags)
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rtls",
		Short: "RTLS - tag localization from beacon signal strength",
		Long: `A CLI tool for localizing tags from beacon signal strength records.
Records are parsed, classified, trilaterated and smoothed with a Kalman
filter and smoother. Results are written as CSV, PNG and HTML and can be
stored in SQLite.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to JSON config file (defaults are used if empty)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "rtls.db", "Path to SQLite database")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(simulateCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(runsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads the config file or returns the defaults
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	return cfg, nil
}
