// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/mosaic/internal/app"
	"github.com/pdiddy/mosaic/internal/research"
)

var followupCmd = &cobra.Command{
	Use:   "followup <session> <question...>",
	Short: "Ask the one follow-up question of a completed research cycle",
	Long: `Followup resumes a journaled research cycle by id or id prefix and asks a
question against its synthesis and results. Each cycle accepts one follow-up.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runFollowUp,
}

func init() {
	rootCmd.AddCommand(followupCmd)
}

func runFollowUp(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)
	s, err := newStack(cfg, false, true)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	rec, err := s.store.Load(ctx, args[0])
	if err != nil {
		return err
	}

	sess := rec.Session()
	if !sess.FollowUpAvailable() {
		return fmt.Errorf("session %s is %s: %w", sess.ID(), sess.State(), research.ErrFollowUpUnavailable)
	}

	s.ctrl.Restore(sess)
	err = s.ctrl.Dispatch(ctx, app.Command{Action: app.ActionFollowUp, Text: strings.Join(args[1:], " ")})
	if errors.Is(err, research.ErrFollowUpUnavailable) {
		return fmt.Errorf("session %s: %w", sess.ID(), err)
	}
	return err
}
