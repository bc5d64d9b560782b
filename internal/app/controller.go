// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package app wires search, research, trends and the page together. The
// Controller owns the filters and the current research session and routes
// user commands to the components that handle them.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/pdiddy/mosaic/internal/api"
	"github.com/pdiddy/mosaic/internal/charts"
	"github.com/pdiddy/mosaic/internal/research"
	"github.com/pdiddy/mosaic/internal/ui"
	"github.com/pdiddy/mosaic/pkg/types"
)

// suggestionBelow is the result count under which the backend's suggestion
// is shown.
const suggestionBelow = 5

const (
	msgNoResults = "No matching narratives found to synthesize."

	labelAIOn  = "Verified posts only"
	labelAIOff = "Include all posts"
	labelSGOn  = "SG Posts only"
	labelSGOff = "Whole DB"
)

// Backend is the transport the controller drives.
type Backend interface {
	Stats(ctx context.Context, aiOnly, sgOnly bool) (types.Stats, error)
	Search(ctx context.Context, req types.SearchRequest) (types.SearchResponse, error)
}

// View is everything the controller draws on.
type View interface {
	research.View

	ResetForSearch()
	SetLoading(on bool)
	ShowResults()
	ShowStatsBanner(total string)
	ShowSuggestion(text string)
	HideSuggestion()
	RenderCards(cards []ui.CardView)
	ShowNoResults(message string)
	ShowError(message string)
	SwitchTab(tab ui.Tab) error
	OpenModal(item *types.Result) bool
	CloseModal()
	SetFilterLabels(ai, sg string)
}

// Recorder stores a cycle once its results are known.
type Recorder interface {
	Begin(ctx context.Context, snap research.Snapshot) error
}

// Option configures a Controller.
type Option func(*Controller)

// WithCharts redraws r whenever trends are refreshed.
func WithCharts(r *charts.Renderer) Option {
	return func(c *Controller) { c.charts = r }
}

// WithRecorder stores every completed search in rec.
func WithRecorder(rec Recorder) Option {
	return func(c *Controller) { c.recorder = rec }
}

// Controller handles user commands.
type Controller struct {
	backend  Backend
	view     View
	orch     *research.Orchestrator
	charts   *charts.Renderer
	recorder Recorder
	logger   *slog.Logger

	limit     int
	threshold float64
	handlers  map[Action]handler

	mu      sync.Mutex
	aiOnly  bool
	sgOnly  bool
	session *research.Session
	cancel  context.CancelFunc
	done    chan struct{}
	lastErr error
}

// New returns a Controller with the filters and limits of cfg.
func New(backend Backend, view View, orch *research.Orchestrator, cfg types.SearchConfig, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = types.DefaultLimit
	}
	c := &Controller{
		backend:   backend,
		view:      view,
		orch:      orch,
		logger:    logger,
		limit:     limit,
		threshold: cfg.Threshold,
		aiOnly:    cfg.AIOnly,
		sgOnly:    cfg.SGOnly,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.handlers = c.commandTable()
	return c
}

// Init sets the filter labels and draws the trend chart. A trends failure
// only hides the chart.
func (c *Controller) Init(ctx context.Context) {
	c.updateLabels()
	if err := c.refreshTrends(ctx); err != nil {
		c.logger.Warn("initial trends refresh failed", "error", err)
	}
}

// Session returns the current research session, or nil before the first
// search.
func (c *Controller) Session() *research.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Filters returns the AI-only and SG-only filter state.
func (c *Controller) Filters() (aiOnly, sgOnly bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aiOnly, c.sgOnly
}

// Wait blocks until the running research stream, if any, has ended and
// returns its error.
func (c *Controller) Wait() error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return nil
	}
	<-done

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Restore makes sess the current session, stopping any running stream, so
// its follow-up can be asked.
func (c *Controller) Restore(sess *research.Session) {
	c.mu.Lock()
	c.stopLocked()
	c.session = sess
	c.mu.Unlock()

	c.view.ShowSynthesis(c.orch.RenderSynthesis(sess.Synthesis()))
	if sess.FollowUpAvailable() {
		c.view.SetFollowUp(ui.FollowUpVisible)
	} else {
		c.view.SetFollowUp(ui.FollowUpHidden)
	}
}

// Close stops any running stream and waits for it.
func (c *Controller) Close() {
	c.mu.Lock()
	c.stopLocked()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (c *Controller) stopLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// search runs one search cycle. Stats and search are requested together;
// a stats failure counts as zero posts. Results are rendered before the
// research stream starts in the background.
func (c *Controller) search(ctx context.Context, cmd Command) error {
	query := strings.TrimSpace(cmd.Text)
	if query == "" {
		return nil
	}

	c.mu.Lock()
	c.stopLocked()
	aiOnly, sgOnly := c.aiOnly, c.sgOnly
	sess := research.NewSession(query, aiOnly, sgOnly)
	c.session = sess
	c.mu.Unlock()

	c.logger.Info("search", "session", sess.ID(), "query", query, "ai_only", aiOnly, "sg_only", sgOnly)

	c.view.ResetForSearch()
	if err := c.view.SwitchTab(ui.TabSynthesis); err != nil {
		return err
	}

	var (
		wg        sync.WaitGroup
		stats     types.Stats
		resp      types.SearchResponse
		searchErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		s, err := c.backend.Stats(ctx, aiOnly, sgOnly)
		if err != nil {
			c.logger.Warn("stats unavailable", "error", err)
			return
		}
		stats = s
	}()
	go func() {
		defer wg.Done()
		resp, searchErr = c.backend.Search(ctx, types.SearchRequest{
			Query:     query,
			Limit:     c.limit,
			Threshold: c.threshold,
			AIOnly:    aiOnly,
			SGOnly:    sgOnly,
		})
	}()
	wg.Wait()

	if !c.current(sess) {
		c.logger.Debug("search superseded", "session", sess.ID())
		return nil
	}

	if searchErr != nil {
		c.logger.Error("search failed", "session", sess.ID(), "error", searchErr)
		c.view.SetLoading(false)
		c.view.ShowError("Error: " + api.Message(searchErr))
		return fmt.Errorf("search: %w", searchErr)
	}

	results := resp.Results
	if resp.Suggestion != "" && len(results) < suggestionBelow {
		c.view.ShowSuggestion(resp.Suggestion)
	} else {
		c.view.HideSuggestion()
	}
	c.view.ShowStatsBanner(humanize.Comma(stats.TotalPosts))

	sess.SetResults(results)
	if c.recorder != nil {
		if err := c.recorder.Begin(ctx, sess.Snapshot()); err != nil {
			c.logger.Warn("recording session failed", "session", sess.ID(), "error", err)
		}
	}

	if len(results) == 0 {
		c.view.SetLoading(false)
		c.view.ShowResults()
		c.view.ShowNoResults(msgNoResults)
		return nil
	}

	c.view.RenderCards(ui.BuildCards(results))
	c.view.ShowResults()
	c.view.SetLoading(false)

	c.startResearch(ctx, sess)
	return nil
}

func (c *Controller) current(sess *research.Session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session == sess
}

// startResearch runs the research cycle for sess in its own goroutine. The
// stream is bound to ctx and to the next search, which cancels it.
func (c *Controller) startResearch(ctx context.Context, sess *research.Session) {
	rctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	c.mu.Lock()
	if c.session != sess {
		c.mu.Unlock()
		cancel()
		return
	}
	c.cancel = cancel
	c.done = done
	c.lastErr = nil
	c.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()

		err := c.orch.Conduct(rctx, sess, c.view)
		if err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Warn("research cycle ended with error", "session", sess.ID(), "error", err)
		}

		c.mu.Lock()
		if c.done == done {
			c.lastErr = err
		}
		c.mu.Unlock()
	}()
}

func (c *Controller) followUp(ctx context.Context, cmd Command) error {
	sess := c.Session()
	if sess == nil {
		return research.ErrFollowUpUnavailable
	}
	return c.orch.FollowUp(ctx, sess, cmd.Text, c.view)
}

func (c *Controller) openModal(_ context.Context, cmd Command) error {
	sess := c.Session()
	if sess == nil {
		return nil
	}
	item, ok := sess.Result(cmd.Index)
	if !ok {
		return nil
	}
	c.view.OpenModal(&item)
	return nil
}

func (c *Controller) toggleAI(_ context.Context, cmd Command) error {
	c.mu.Lock()
	c.aiOnly = cmd.On
	c.mu.Unlock()
	c.updateLabels()
	return nil
}

func (c *Controller) toggleSG(ctx context.Context, cmd Command) error {
	c.mu.Lock()
	c.sgOnly = cmd.On
	c.mu.Unlock()
	c.updateLabels()
	return c.refreshTrends(ctx)
}

func (c *Controller) refreshTrends(ctx context.Context) error {
	if c.charts == nil {
		return nil
	}
	_, sgOnly := c.Filters()
	_, err := c.charts.Update(ctx, sgOnly)
	return err
}

func (c *Controller) updateLabels() {
	aiOnly, sgOnly := c.Filters()
	c.view.SetFilterLabels(AILabel(aiOnly), SGLabel(sgOnly))
}

// AILabel is the AI-only toggle's caption.
func AILabel(on bool) string {
	if on {
		return labelAIOn
	}
	return labelAIOff
}

// SGLabel is the SG-only toggle's caption.
func SGLabel(on bool) string {
	if on {
		return labelSGOn
	}
	return labelSGOff
}
