// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pdiddy/mosaic/internal/ui"
	"github.com/pdiddy/mosaic/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Find narratives matching a query without running research",
	Long: `Search sends the query to the backend and prints the matching narratives as
evidence cards, ranked by similarity. Use --show N to print the detail view of
one result, or --json for the raw response.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	addSearchFlags(searchCmd)
	searchCmd.Flags().Bool("json", false, "output the search response as JSON")
	searchCmd.Flags().Int("show", -1, "print the detail view of result N")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)
	asJSON, _ := cmd.Flags().GetBool("json")
	show, _ := cmd.Flags().GetInt("show")

	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return fmt.Errorf("provide a search query")
	}

	client := newClient(cfg)
	resp, err := client.Search(cmd.Context(), types.SearchRequest{
		Query:     query,
		Limit:     cfg.Search.Limit,
		Threshold: cfg.Search.Threshold,
		AIOnly:    cfg.Search.AIOnly,
		SGOnly:    cfg.Search.SGOnly,
	})
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	view := ui.NewTerminal(os.Stdout, ui.NewPage(), false)
	if stats, err := client.Stats(cmd.Context(), cfg.Search.AIOnly, cfg.Search.SGOnly); err == nil {
		view.ShowStatsBanner(humanize.Comma(stats.TotalPosts))
	} else {
		logger.Warn("stats unavailable", "error", err)
	}
	if resp.Suggestion != "" && len(resp.Results) < 5 {
		view.ShowSuggestion(resp.Suggestion)
	}
	if len(resp.Results) == 0 {
		view.ShowNoResults("No matching results in current database.")
		return nil
	}
	view.RenderCards(ui.BuildCards(resp.Results))

	if show >= 0 {
		if show >= len(resp.Results) {
			return fmt.Errorf("result %d out of range (0-%d)", show, len(resp.Results)-1)
		}
		fmt.Println()
		view.OpenModal(&resp.Results[show])
	}
	return nil
}
