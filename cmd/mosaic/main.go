// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the mosaic CLI, a terminal client for
// the Mosaic narrative search and research backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/mosaic/internal/logging"
	"github.com/pdiddy/mosaic/internal/metrics"
	"github.com/pdiddy/mosaic/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// loadedSecrets holds credentials loaded from .secrets/ at startup.
	loadedSecrets secrets.Secrets

	logger   = slog.Default()
	registry = prometheus.NewRegistry()
)

// rootCmd is the base command for the mosaic CLI.
var rootCmd = &cobra.Command{
	Use:   "mosaic",
	Short: "Search and research social narratives from the terminal",
	Long: `mosaic queries the Mosaic backend for social-media narratives that match a
question, shows them as evidence cards, and streams the iterative research
protocol that samples, audits and synthesises them into a report.

Configuration is read from mosaic.yaml (./ or ~/.config/mosaic/), MOSAIC_*
environment variables and a .env file. The API token may live in
.secrets/mosaic-api-token.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)
		logger = logging.NewLogger(cfg.Log.Level, cfg.Log.Format, os.Stderr)
		slog.SetDefault(logger)

		s, err := secrets.Load(".secrets/", logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := s.Keys()
			sort.Strings(keys)
			logger.Debug("loaded secrets", "keys", keys)
		}

		return metrics.Register(registry)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		path := viper.GetString("metrics_file")
		if path == "" {
			return nil
		}
		if err := metrics.WriteTextfile(path, registry); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
		logger.Debug("metrics written", "path", path)
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./mosaic.yaml or ~/.config/mosaic/mosaic.yaml)")
	pf.String("base-url", "", "backend origin (default http://localhost:8001)")
	pf.Duration("timeout", 0, "timeout for non-streaming requests (default 30s)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: text or json")
	pf.String("store-dir", "", "directory of the session journal (default .mosaic)")
	pf.String("metrics-file", "", "write Prometheus metrics to this file on exit")

	for key, flag := range map[string]string{
		"base_url":     "base-url",
		"timeout":      "timeout",
		"log.level":    "log-level",
		"log.format":   "log-format",
		"store.dir":    "store-dir",
		"metrics_file": "metrics-file",
	} {
		_ = viper.BindPFlag(key, pf.Lookup(flag))
	}
}

func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Ignoring .env:", err)
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("mosaic")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "mosaic"))
		}
	}

	viper.SetEnvPrefix("MOSAIC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
