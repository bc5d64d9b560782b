// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/mosaic/internal/api"
	"github.com/pdiddy/mosaic/internal/secrets"
	"github.com/pdiddy/mosaic/internal/session"
	"github.com/pdiddy/mosaic/pkg/types"
)

// loadConfig assembles the client configuration from viper, then applies
// the search flags cmd actually received.
func loadConfig(cmd *cobra.Command) types.ClientConfig {
	cfg := types.ClientConfig{
		HTTP: types.HTTPConfig{
			BaseURL:   viper.GetString("base_url"),
			Timeout:   viper.GetDuration("timeout"),
			UserAgent: viper.GetString("user_agent"),
			APIToken:  viper.GetString("api_token"),
		},
		Search: types.SearchConfig{
			Limit:     viper.GetInt("limit"),
			Threshold: viper.GetFloat64("threshold"),
			AIOnly:    viper.GetBool("ai_only"),
			SGOnly:    viper.GetBool("sg_only"),
		},
		Log: types.LogConfig{
			Level:  viper.GetString("log.level"),
			Format: viper.GetString("log.format"),
		},
		Store:          types.StoreConfig{Dir: viper.GetString("store.dir")},
		MetricsFile:    viper.GetString("metrics_file"),
		RenderMarkdown: viper.GetBool("render_markdown"),
	}

	flags := cmd.Flags()
	if flags.Changed("limit") {
		cfg.Search.Limit, _ = flags.GetInt("limit")
	}
	if flags.Changed("threshold") {
		cfg.Search.Threshold, _ = flags.GetFloat64("threshold")
	}
	if flags.Changed("ai-only") {
		cfg.Search.AIOnly, _ = flags.GetBool("ai-only")
	}
	if flags.Changed("sg-only") {
		cfg.Search.SGOnly, _ = flags.GetBool("sg-only")
	}
	if flags.Changed("markdown") {
		cfg.RenderMarkdown, _ = flags.GetBool("markdown")
	}
	return cfg.WithDefaults()
}

// addSearchFlags registers the filter flags shared by search and research.
func addSearchFlags(cmd *cobra.Command) {
	cmd.Flags().Int("limit", 0, "number of results to request (default 12)")
	cmd.Flags().Float64("threshold", 0, "minimum similarity of returned results (default 0.3)")
	cmd.Flags().Bool("ai-only", false, "only LLM-verified posts")
	cmd.Flags().Bool("sg-only", false, "only Singapore-based posts")
}

// newClient returns the backend client. The token comes from config or,
// failing that, from .secrets/mosaic-api-token.
func newClient(cfg types.ClientConfig) *api.Client {
	httpCfg := cfg.HTTP
	httpCfg.APIToken = loadedSecrets.Get(secrets.KeyAPIToken, httpCfg.APIToken)
	return api.New(&http.Client{}, httpCfg)
}

func openStore(cfg types.ClientConfig) (*session.Store, error) {
	return session.Open(cfg.Store)
}
