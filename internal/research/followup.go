// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/mosaic/internal/ui"
	"github.com/pdiddy/mosaic/pkg/types"
)

// FollowUp asks the single follow-up question of a completed cycle. The
// request carries the stored synthesis, the cycle's results and its session
// id. While it is in flight the control is busy. Success appends the answer
// below the synthesis and hides the control for good; failure re-enables it
// so the user can retry.
func (o *Orchestrator) FollowUp(ctx context.Context, sess *Session, question string, view View) error {
	q := strings.TrimSpace(question)
	if q == "" {
		return nil
	}
	if !sess.beginFollowUp() {
		return ErrFollowUpUnavailable
	}

	view.SetFollowUp(ui.FollowUpBusy)

	resp, err := o.backend.FollowUp(ctx, types.FollowUpRequest{
		Query:     q,
		Context:   sess.Synthesis(),
		Results:   sess.Results(),
		SessionID: sess.ID(),
	})
	if err != nil {
		sess.endFollowUp(false)
		o.logger.Error("follow-up failed", "session", sess.ID(), "error", err)
		view.SetFollowUp(ui.FollowUpVisible)
		return fmt.Errorf("follow-up: %w", err)
	}

	sess.endFollowUp(true)
	view.AppendFollowUpAnswer(ui.FormatSynthesis(resp.Answer))
	view.SetFollowUp(ui.FollowUpHidden)

	if o.journal != nil {
		o.journalErr("follow_up", o.journal.RecordFollowUp(ctx, sess.ID(), q, resp.Answer))
	}
	return nil
}
