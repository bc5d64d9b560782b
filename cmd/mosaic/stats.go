// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the number of posts the backend can search",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)
		stats, err := newClient(cfg).Stats(cmd.Context(), cfg.Search.AIOnly, cfg.Search.SGOnly)
		if err != nil {
			return err
		}
		fmt.Printf("%s datapoints\n", humanize.Comma(stats.TotalPosts))
		return nil
	},
}

func init() {
	statsCmd.Flags().Bool("ai-only", false, "only LLM-verified posts")
	statsCmd.Flags().Bool("sg-only", false, "only Singapore-based posts")

	rootCmd.AddCommand(statsCmd)
}
