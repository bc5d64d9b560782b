// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pdiddy/mosaic/internal/session"
	"github.com/pdiddy/mosaic/internal/ui"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List, show and export journaled research cycles",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent research cycles, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return withStore(cmd, func(store *session.Store) error {
			sums, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(sums) == 0 {
				fmt.Println("No sessions.")
				return nil
			}
			for _, s := range sums {
				fmt.Printf("%-8.8s  %-11s  %3d results  %-14s  %s\n",
					s.ID, s.State, s.Results, humanize.Time(s.StartedAt), s.Query)
			}
			return nil
		})
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session>",
	Short: "Print a research cycle's synthesis, evidence and protocol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		protocol, _ := cmd.Flags().GetBool("protocol")
		return withStore(cmd, func(store *session.Store) error {
			rec, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Printf("Session %s  %s  %s\n", rec.ID, rec.State, rec.StartedAt.Format("Jan 2, 2006 15:04"))
			fmt.Printf("Query: %s\n\n", rec.Query)

			view := ui.NewTerminal(os.Stdout, ui.NewPage(), protocol)
			view.RenderCards(ui.BuildCards(rec.Results))
			fmt.Println()
			switch {
			case rec.Synthesis != "":
				view.ShowSynthesis(ui.FormatSynthesis(rec.Synthesis))
			case rec.Error != "":
				view.ShowSynthesis(ui.ErrorHTML(rec.Error))
			}
			if rec.FollowUp != nil {
				fmt.Printf("\nQ: %s\n", rec.FollowUp.Question)
				view.AppendFollowUpAnswer(ui.FormatSynthesis(rec.FollowUp.Answer))
			}
			for _, entry := range rec.Protocol {
				view.AppendProtocol(entry)
			}
			return nil
		})
	},
}

var sessionsExportCmd = &cobra.Command{
	Use:   "export <session>",
	Short: "Export a research cycle as YAML or JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		out, _ := cmd.Flags().GetString("out")

		w := os.Stdout
		if out != "" {
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating %s: %w", out, err)
			}
			defer f.Close()
			w = f
		}

		return withStore(cmd, func(store *session.Store) error {
			switch format {
			case "yaml", "yml":
				return store.ExportYAML(cmd.Context(), args[0], w)
			case "json":
				return store.ExportJSON(cmd.Context(), args[0], w)
			default:
				return fmt.Errorf("unknown export format %q (use yaml or json)", format)
			}
		})
	},
}

func init() {
	sessionsListCmd.Flags().Int("limit", 20, "maximum number of sessions to list")
	sessionsShowCmd.Flags().Bool("protocol", false, "also print the protocol log")
	sessionsExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	sessionsExportCmd.Flags().String("out", "", "write to this file instead of stdout")

	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsExportCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func withStore(cmd *cobra.Command, fn func(*session.Store) error) error {
	store, err := openStore(loadConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}
