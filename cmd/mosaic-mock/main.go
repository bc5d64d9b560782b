// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main runs a local mock of the Mosaic backend for development and
// demos. It serves canned stats, trends, search results, a scripted research
// stream and a follow-up answer.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pdiddy/mosaic/internal/logging"
	"github.com/pdiddy/mosaic/internal/mockapi"
)

var rootCmd = &cobra.Command{
	Use:          "mosaic-mock",
	Short:        "Serve a mock Mosaic backend on a local port",
	SilenceUsage: true,
	RunE:         runMock,
}

func init() {
	rootCmd.Flags().String("addr", envOr("MOSAIC_MOCK_ADDR", "127.0.0.1:8001"), "listen address")
	rootCmd.Flags().String("fixture", "", "YAML fixture overriding the built-in data")
	rootCmd.Flags().Duration("event-delay", 400*time.Millisecond, "pause between research stream events")
	rootCmd.Flags().String("log-level", envOr("MOSAIC_LOG_LEVEL", "info"), "log level: debug, info, warn, error")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func runMock(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	fixturePath, _ := cmd.Flags().GetString("fixture")
	delay, _ := cmd.Flags().GetDuration("event-delay")
	level, _ := cmd.Flags().GetString("log-level")

	logger := logging.NewLogger(level, "text", os.Stderr)

	fx := mockapi.DefaultFixture()
	if fixturePath != "" {
		loaded, err := mockapi.LoadFixture(fixturePath)
		if err != nil {
			return err
		}
		fx = loaded
	}
	if cmd.Flags().Changed("event-delay") || fx.EventDelay == 0 {
		fx.EventDelay = delay
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           mockapi.New(fx, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("mock backend listening", "addr", addr, "results", len(fx.Results), "events", len(fx.Stream))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	case <-cmd.Context().Done():
	}

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Ignoring .env:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
