// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package app

import (
	"context"
	"fmt"

	"github.com/pdiddy/mosaic/internal/ui"
)

// Action names a user command.
type Action string

const (
	ActionSearch        Action = "search"
	ActionFollowUp      Action = "follow_up"
	ActionSwitchTab     Action = "switch_tab"
	ActionOpenModal     Action = "open_modal"
	ActionCloseModal    Action = "close_modal"
	ActionToggleAI      Action = "toggle_ai"
	ActionToggleSG      Action = "toggle_sg"
	ActionRefreshTrends Action = "refresh_trends"
)

// Command is one user interaction. Text carries the query, question or tab
// name; Index the result for open_modal; On the new toggle state.
type Command struct {
	Action Action
	Text   string
	Index  int
	On     bool
}

type handler func(ctx context.Context, cmd Command) error

func (c *Controller) commandTable() map[Action]handler {
	return map[Action]handler{
		ActionSearch:    c.search,
		ActionFollowUp:  c.followUp,
		ActionSwitchTab: c.switchTab,
		ActionOpenModal: c.openModal,
		ActionCloseModal: func(context.Context, Command) error {
			c.view.CloseModal()
			return nil
		},
		ActionToggleAI: c.toggleAI,
		ActionToggleSG: c.toggleSG,
		ActionRefreshTrends: func(ctx context.Context, _ Command) error {
			return c.refreshTrends(ctx)
		},
	}
}

// Dispatch runs the handler for cmd.Action. A search returns once results
// are rendered; its research stream keeps running until Wait, the next
// search, or ctx ends.
func (c *Controller) Dispatch(ctx context.Context, cmd Command) error {
	h, ok := c.handlers[cmd.Action]
	if !ok {
		return fmt.Errorf("unknown action %q", cmd.Action)
	}
	return h(ctx, cmd)
}

func (c *Controller) switchTab(_ context.Context, cmd Command) error {
	tab, err := ui.ParseTab(cmd.Text)
	if err != nil {
		return err
	}
	return c.view.SwitchTab(tab)
}
