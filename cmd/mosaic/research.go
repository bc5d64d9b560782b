// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/mosaic/internal/api"
	"github.com/pdiddy/mosaic/internal/app"
	"github.com/pdiddy/mosaic/internal/charts"
	"github.com/pdiddy/mosaic/internal/research"
	"github.com/pdiddy/mosaic/internal/session"
	"github.com/pdiddy/mosaic/internal/ui"
	"github.com/pdiddy/mosaic/pkg/types"
)

var researchCmd = &cobra.Command{
	Use:   "research <query...>",
	Short: "Search, then stream the research protocol to a synthesis",
	Long: `Research runs one full cycle: it fetches matching narratives and the post
count, prints the evidence cards, then streams the research protocol (sampling,
audit, expansion) until the backend delivers its synthesis. The cycle is
journaled so it can be listed, exported or followed up later.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResearch,
}

func init() {
	addSearchFlags(researchCmd)
	researchCmd.Flags().Bool("protocol", false, "also print the detailed protocol log")
	researchCmd.Flags().Bool("markdown", false, "format the synthesis (bold, lists) instead of plain text")
	researchCmd.Flags().String("follow-up", "", "ask this follow-up question once the synthesis arrives")
	researchCmd.Flags().String("page-out", "", "write the final page as HTML to this file")
	researchCmd.Flags().Bool("no-journal", false, "do not record the cycle in the session journal")

	rootCmd.AddCommand(researchCmd)
}

// stack is the wired client for one command invocation.
type stack struct {
	client *api.Client
	page   *ui.Page
	view   *ui.Terminal
	ctrl   *app.Controller
	store  *session.Store
}

func (s *stack) Close() {
	s.ctrl.Close()
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			logger.Warn("closing session journal", "error", err)
		}
	}
}

func newStack(cfg types.ClientConfig, protocol, journal bool) (*stack, error) {
	s := &stack{client: newClient(cfg), page: ui.NewPage()}
	s.view = ui.NewTerminal(os.Stdout, s.page, protocol)

	var orchOpts []research.Option
	if cfg.RenderMarkdown {
		orchOpts = append(orchOpts, research.WithMarkdown(ui.FormatSynthesis))
	}

	widget := charts.NewSVGWidget(s.page, 960, 320)
	ctrlOpts := []app.Option{app.WithCharts(charts.NewRenderer(s.client, s.page, widget, logger))}

	if journal {
		store, err := openStore(cfg)
		if err != nil {
			return nil, err
		}
		s.store = store
		orchOpts = append(orchOpts, research.WithJournal(store))
		ctrlOpts = append(ctrlOpts, app.WithRecorder(store))
	}

	orch := research.New(s.client, logger, orchOpts...)
	s.ctrl = app.New(s.client, s.view, orch, cfg.Search, logger, ctrlOpts...)
	return s, nil
}

func runResearch(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)
	protocol, _ := cmd.Flags().GetBool("protocol")
	noJournal, _ := cmd.Flags().GetBool("no-journal")
	question, _ := cmd.Flags().GetString("follow-up")
	pageOut, _ := cmd.Flags().GetString("page-out")

	s, err := newStack(cfg, protocol, !noJournal)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	query := strings.Join(args, " ")
	if pageOut != "" {
		s.ctrl.Init(ctx)
	}

	if err := s.ctrl.Dispatch(ctx, app.Command{Action: app.ActionSearch, Text: query}); err != nil {
		return err
	}
	researchErr := s.ctrl.Wait()

	if sess := s.ctrl.Session(); sess != nil {
		fmt.Fprintf(os.Stderr, "Session %s (%s)\n", sess.ID(), sess.State())
	}

	if researchErr == nil && question != "" {
		if err := s.ctrl.Dispatch(ctx, app.Command{Action: app.ActionFollowUp, Text: question}); err != nil {
			return err
		}
	}

	if pageOut != "" {
		if err := os.WriteFile(pageOut, []byte(s.page.HTML()), 0o644); err != nil {
			return fmt.Errorf("writing page: %w", err)
		}
	}

	if errors.Is(researchErr, research.ErrNoTerminalEvent) {
		return fmt.Errorf("research stream ended without a synthesis")
	}
	return researchErr
}
