package main

import (
	"fmt"
	"os"

	"github.com/aretw0/guiche"
	"github.com/aretw0/guiche/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "guiche",
	Short: "Guiche is a bank customer-service assistant",
	Long: `Guiche authenticates clients by CPF and birth date, answers limit queries,
decides credit-limit increases and records every decision in an append-only ledger.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (YAML or TOML)")
	rootCmd.PersistentFlags().String("log-level", "", "Override log.level (debug, info, warn, error)")
}

// loadConfig reads the --config file and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		if _, err := os.Stat("guiche.yaml"); err == nil {
			path = "guiche.yaml"
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	return cfg, nil
}

// loadApp builds the App for commands that talk to the configured stores.
func loadApp(cmd *cobra.Command, opts ...guiche.Option) (*guiche.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return guiche.New(cmd.Context(), cfg, opts...)
}
