// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/mosaic/internal/api"
	"github.com/pdiddy/mosaic/internal/charts"
	"github.com/pdiddy/mosaic/internal/logging"
	"github.com/pdiddy/mosaic/internal/mockapi"
	"github.com/pdiddy/mosaic/internal/research"
	"github.com/pdiddy/mosaic/internal/session"
	"github.com/pdiddy/mosaic/internal/ui"
	"github.com/pdiddy/mosaic/pkg/types"
)

type harness struct {
	srv    *mockapi.Server
	page   *ui.Page
	widget *charts.SVGWidget
	ctrl   *Controller
}

func newHarness(t *testing.T, fx mockapi.Fixture, cfg types.SearchConfig) *harness {
	t.Helper()
	return newJournaledHarness(t, fx, cfg, nil)
}

func newJournaledHarness(t *testing.T, fx mockapi.Fixture, cfg types.SearchConfig, store *session.Store) *harness {
	t.Helper()
	logger := logging.Discard()

	srv := mockapi.New(fx, logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	client := api.New(ts.Client(), types.HTTPConfig{BaseURL: ts.URL, UserAgent: "test"})
	page := ui.NewPage()
	widget := charts.NewSVGWidget(page, 640, 240)
	renderer := charts.NewRenderer(client, page, widget, logger)
	orchOpts := []research.Option{research.WithMarkdown(ui.FormatSynthesis)}
	ctrlOpts := []Option{WithCharts(renderer)}
	if store != nil {
		orchOpts = append(orchOpts, research.WithJournal(store))
		ctrlOpts = append(ctrlOpts, WithRecorder(store))
	}
	orch := research.New(client, logger, orchOpts...)

	if cfg.Limit == 0 {
		cfg.Limit = types.DefaultLimit
	}
	ctrl := New(client, page, orch, cfg, logger, ctrlOpts...)
	t.Cleanup(ctrl.Close)
	return &harness{srv: srv, page: page, widget: widget, ctrl: ctrl}
}

func (h *harness) search(t *testing.T, query string) error {
	t.Helper()
	return h.ctrl.Dispatch(context.Background(), Command{Action: ActionSearch, Text: query})
}

func TestInitDrawsTrendsAndLabels(t *testing.T) {
	h := newHarness(t, mockapi.DefaultFixture(), types.SearchConfig{SGOnly: true})

	h.ctrl.Init(context.Background())

	assert.Equal(t, labelAIOff, h.page.Text(ui.IDAIFilterLabel))
	assert.Equal(t, labelSGOn, h.page.Text(ui.IDSGFilterLabel))
	assert.True(t, h.page.Visible(ui.IDTrendsContainer))
	assert.Contains(t, h.page.InnerHTML(ui.IDTrendsChart), "<svg")
	assert.Equal(t, 1, h.widget.Live())
}

func TestInitHidesChartWhenTrendsFail(t *testing.T) {
	fx := mockapi.DefaultFixture()
	fx.Fail = map[string]int{"trends": http.StatusInternalServerError}
	h := newHarness(t, fx, types.SearchConfig{})

	h.ctrl.Init(context.Background())

	assert.False(t, h.page.Visible(ui.IDTrendsContainer))
	assert.Equal(t, 0, h.widget.Live())
}

func TestToggleSGRedrawsSingleChart(t *testing.T) {
	h := newHarness(t, mockapi.DefaultFixture(), types.SearchConfig{})
	ctx := context.Background()
	h.ctrl.Init(ctx)

	require.NoError(t, h.ctrl.Dispatch(ctx, Command{Action: ActionToggleSG, On: true}))
	require.NoError(t, h.ctrl.Dispatch(ctx, Command{Action: ActionToggleSG, On: false}))

	assert.Equal(t, 3, h.srv.Calls("trends"))
	assert.Equal(t, 1, h.widget.Live())
	assert.Equal(t, labelSGOff, h.page.Text(ui.IDSGFilterLabel))
}

func TestToggleAIUpdatesLabelOnly(t *testing.T) {
	h := newHarness(t, mockapi.DefaultFixture(), types.SearchConfig{})
	ctx := context.Background()

	require.NoError(t, h.ctrl.Dispatch(ctx, Command{Action: ActionToggleAI, On: true}))

	ai, sg := h.ctrl.Filters()
	assert.True(t, ai)
	assert.False(t, sg)
	assert.Equal(t, labelAIOn, h.page.Text(ui.IDAIFilterLabel))
	assert.Equal(t, 0, h.srv.Calls("trends"))
}

func TestSearchRendersResultsAndRunsResearch(t *testing.T) {
	fx := mockapi.DefaultFixture()
	h := newHarness(t, fx, types.SearchConfig{Threshold: 0.3})

	require.NoError(t, h.search(t, "  exam stress  "))

	assert.Equal(t, "exam stress", h.srv.LastSearch().Query)
	assert.Equal(t, types.DefaultLimit, h.srv.LastSearch().Limit)
	assert.Equal(t, 6, h.page.ChildCount(ui.IDResults))
	assert.Contains(t, h.page.Text(ui.IDStatsBanner), "1,284,503")
	assert.False(t, h.page.Visible(ui.IDSuggestion))
	assert.False(t, h.page.Visible(ui.IDLoader))
	assert.True(t, h.page.Visible(ui.IDResultsArea))
	assert.Equal(t, ui.TabSynthesis, h.page.ActiveTab())

	require.NoError(t, h.ctrl.Wait())

	sess := h.ctrl.Session()
	require.NotNil(t, sess)
	assert.Equal(t, research.StateCompleted, sess.State())
	assert.Equal(t, sess.ID(), h.srv.LastResearch().SessionID)
	assert.Contains(t, h.page.Text(ui.IDSynthesisText), "Key themes")
	assert.Equal(t, ui.FollowUpVisible, h.page.FollowUpState())
	assert.True(t, h.page.Dimmed())
	assert.Equal(t, len(fx.Stream), h.page.ChildCount(ui.IDProtocolLog))
}

func TestSearchEmptyQueryIsNoop(t *testing.T) {
	h := newHarness(t, mockapi.DefaultFixture(), types.SearchConfig{})

	require.NoError(t, h.search(t, "   "))

	assert.Nil(t, h.ctrl.Session())
	assert.Equal(t, 0, h.srv.Calls("search"))
	assert.Equal(t, 0, h.srv.Calls("stats"))
	assert.True(t, h.page.Visible(ui.IDInitialState))
}

func TestSearchShowsSuggestionForFewResults(t *testing.T) {
	h := newHarness(t, mockapi.DefaultFixture(), types.SearchConfig{AIOnly: true})

	require.NoError(t, h.search(t, "exam stress"))
	require.NoError(t, h.ctrl.Wait())

	assert.True(t, h.srv.LastSearch().AIOnly)
	assert.Equal(t, 2, h.page.ChildCount(ui.IDResults))
	assert.True(t, h.page.Visible(ui.IDSuggestion))
	assert.Contains(t, h.page.Text(ui.IDSuggestionText), "broader phrasing")
	assert.Contains(t, h.page.Text(ui.IDStatsBanner), "321,125")
}

func TestSearchFailureShowsError(t *testing.T) {
	fx := mockapi.DefaultFixture()
	fx.Fail = map[string]int{"search": http.StatusServiceUnavailable}
	fx.FailDetail = "Index unavailable"
	h := newHarness(t, fx, types.SearchConfig{})

	err := h.search(t, "exam stress")

	require.Error(t, err)
	assert.True(t, h.page.Visible(ui.IDInitialState))
	assert.Equal(t, "Error: Index unavailable", h.page.Text(ui.IDInitialState))
	assert.False(t, h.page.Visible(ui.IDLoader))
	assert.Equal(t, 0, h.srv.Calls("research"))
}

func TestSearchStatsFailureCountsZero(t *testing.T) {
	fx := mockapi.DefaultFixture()
	fx.Fail = map[string]int{"stats": http.StatusInternalServerError}
	h := newHarness(t, fx, types.SearchConfig{})

	require.NoError(t, h.search(t, "exam stress"))
	require.NoError(t, h.ctrl.Wait())

	assert.Contains(t, h.page.Text(ui.IDStatsBanner), "queried from 0 datapoints")
	assert.Equal(t, 6, h.page.ChildCount(ui.IDResults))
}

func TestSearchWithoutResultsSkipsResearch(t *testing.T) {
	h := newHarness(t, mockapi.DefaultFixture(), types.SearchConfig{Threshold: 0.95})

	require.NoError(t, h.search(t, "exam stress"))
	require.NoError(t, h.ctrl.Wait())

	assert.Equal(t, msgNoResults, h.page.Text(ui.IDSynthesisText))
	assert.Contains(t, h.page.Text(ui.IDResults), "No matching results")
	assert.True(t, h.page.Visible(ui.IDResultsArea))
	assert.False(t, h.page.Visible(ui.IDLoader))
	assert.Equal(t, 0, h.srv.Calls("research"))
	assert.Equal(t, research.StateIdle, h.ctrl.Session().State())
}

func TestResearchHandshakeFailure(t *testing.T) {
	fx := mockapi.DefaultFixture()
	fx.Fail = map[string]int{"research": http.StatusServiceUnavailable}
	fx.FailDetail = "Engine offline"
	h := newHarness(t, fx, types.SearchConfig{})

	require.NoError(t, h.search(t, "exam stress"))
	err := h.ctrl.Wait()

	require.Error(t, err)
	assert.Equal(t, research.StateFailed, h.ctrl.Session().State())
	assert.Equal(t, "Research Protocol Failed: Engine offline", h.page.Text(ui.IDSynthesisText))
	assert.Equal(t, ui.FollowUpHidden, h.page.FollowUpState())
	assert.Equal(t, 6, h.page.ChildCount(ui.IDResults))
}

func TestNewSearchCancelsPreviousStream(t *testing.T) {
	fx := mockapi.DefaultFixture()
	fx.EventDelay = 40 * time.Millisecond
	h := newHarness(t, fx, types.SearchConfig{})

	require.NoError(t, h.search(t, "first query"))
	first := h.ctrl.Session()
	require.Eventually(t, func() bool { return h.srv.Calls("research") == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, h.search(t, "second query"))
	second := h.ctrl.Session()
	require.NotSame(t, first, second)

	require.NoError(t, h.ctrl.Wait())

	assert.Equal(t, research.StateCompleted, second.State())
	assert.NotEqual(t, research.StateCompleted, first.State())
	assert.Equal(t, 2, h.srv.Calls("research"))
	assert.Equal(t, second.ID(), h.srv.LastResearch().SessionID)
	assert.Equal(t, "second query", h.srv.LastResearch().Query)
}

// blockingStart holds the first research handshake open until its context
// is cancelled and the test releases it.
type blockingStart struct {
	*api.Client
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStart) StartResearch(ctx context.Context, req types.ResearchRequest) (io.ReadCloser, error) {
	if b.calls.Add(1) > 1 {
		return b.Client.StartResearch(ctx, req)
	}
	close(b.entered)
	<-ctx.Done()
	<-b.release
	return nil, ctx.Err()
}

func TestSupersededHandshakeLeavesNewSynthesis(t *testing.T) {
	logger := logging.Discard()
	srv := mockapi.New(mockapi.DefaultFixture(), logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	client := api.New(ts.Client(), types.HTTPConfig{BaseURL: ts.URL, UserAgent: "test"})
	backend := &blockingStart{Client: client, entered: make(chan struct{}), release: make(chan struct{})}
	page := ui.NewPage()
	orch := research.New(backend, logger, research.WithMarkdown(ui.FormatSynthesis))
	ctrl := New(client, page, orch, types.SearchConfig{Limit: types.DefaultLimit}, logger)
	t.Cleanup(ctrl.Close)
	ctx := context.Background()

	require.NoError(t, ctrl.Dispatch(ctx, Command{Action: ActionSearch, Text: "first query"}))
	first := ctrl.Session()
	<-backend.entered

	require.NoError(t, ctrl.Dispatch(ctx, Command{Action: ActionSearch, Text: "second query"}))
	require.NoError(t, ctrl.Wait())
	want := page.Text(ui.IDSynthesisText)
	require.Contains(t, want, "Key themes")

	close(backend.release)
	require.Eventually(t, func() bool { return first.State() == research.StateFailed }, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, want, page.Text(ui.IDSynthesisText))
	assert.NotContains(t, page.Text(ui.IDSynthesisText), "Research Protocol Failed")
	assert.Equal(t, ui.FollowUpVisible, page.FollowUpState())
	assert.Equal(t, research.StateCompleted, ctrl.Session().State())
}

func TestFollowUpAfterResearch(t *testing.T) {
	fx := mockapi.DefaultFixture()
	h := newHarness(t, fx, types.SearchConfig{})
	ctx := context.Background()

	err := h.ctrl.Dispatch(ctx, Command{Action: ActionFollowUp, Text: "why?"})
	assert.ErrorIs(t, err, research.ErrFollowUpUnavailable)

	require.NoError(t, h.search(t, "exam stress"))
	require.NoError(t, h.ctrl.Wait())

	require.NoError(t, h.ctrl.Dispatch(ctx, Command{Action: ActionFollowUp, Text: "Is it seasonal?"}))

	sess := h.ctrl.Session()
	got := h.srv.LastFollowUp()
	assert.Equal(t, "Is it seasonal?", got.Query)
	assert.Equal(t, sess.ID(), got.SessionID)
	assert.Equal(t, sess.Synthesis(), got.Context)
	assert.Len(t, got.Results, 6)

	assert.Equal(t, research.StateFollowedUp, sess.State())
	assert.Equal(t, ui.FollowUpHidden, h.page.FollowUpState())
	assert.Contains(t, h.page.Text(ui.IDSynthesisText), "FOLLOW-UP RESPONSE")
	assert.Contains(t, h.page.Text(ui.IDSynthesisText), "Posts mentioning exams cluster in November.")

	err = h.ctrl.Dispatch(ctx, Command{Action: ActionFollowUp, Text: "again?"})
	assert.ErrorIs(t, err, research.ErrFollowUpUnavailable)
	assert.Equal(t, 1, h.srv.Calls("follow_up"))
}

func TestModalAndTabs(t *testing.T) {
	h := newHarness(t, mockapi.DefaultFixture(), types.SearchConfig{})
	ctx := context.Background()

	require.NoError(t, h.ctrl.Dispatch(ctx, Command{Action: ActionOpenModal, Index: 0}))
	open, _ := h.page.Modal()
	assert.False(t, open, "no session yet")

	require.NoError(t, h.search(t, "exam stress"))
	require.NoError(t, h.ctrl.Wait())

	require.NoError(t, h.ctrl.Dispatch(ctx, Command{Action: ActionOpenModal, Index: 99}))
	open, _ = h.page.Modal()
	assert.False(t, open)

	require.NoError(t, h.ctrl.Dispatch(ctx, Command{Action: ActionOpenModal, Index: 0}))
	open, view := h.page.Modal()
	require.True(t, open)
	assert.Equal(t, "reddit", view.Platform)
	assert.True(t, h.page.ScrollLocked())

	require.NoError(t, h.ctrl.Dispatch(ctx, Command{Action: ActionCloseModal}))
	open, _ = h.page.Modal()
	assert.False(t, open)
	assert.False(t, h.page.ScrollLocked())

	require.NoError(t, h.ctrl.Dispatch(ctx, Command{Action: ActionSwitchTab, Text: "evidence"}))
	assert.Equal(t, ui.TabEvidence, h.page.ActiveTab())
	assert.Error(t, h.ctrl.Dispatch(ctx, Command{Action: ActionSwitchTab, Text: "settings"}))
	assert.Equal(t, ui.TabEvidence, h.page.ActiveTab())
}

func TestDispatchUnknownAction(t *testing.T) {
	h := newHarness(t, mockapi.DefaultFixture(), types.SearchConfig{})
	err := h.ctrl.Dispatch(context.Background(), Command{Action: "launch"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "launch"))
}

func TestRestoreEnablesFollowUp(t *testing.T) {
	h := newHarness(t, mockapi.DefaultFixture(), types.SearchConfig{})
	sess := research.Restore(research.Snapshot{
		ID:        "restored-1",
		Query:     "exam stress",
		Synthesis: "Earlier findings",
		State:     research.StateCompleted,
		StartedAt: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
	})

	h.ctrl.Restore(sess)

	assert.Equal(t, "Earlier findings", h.page.Text(ui.IDSynthesisText))
	assert.Equal(t, ui.FollowUpVisible, h.page.FollowUpState())
	require.NoError(t, h.ctrl.Dispatch(context.Background(), Command{Action: ActionFollowUp, Text: "more?"}))
	assert.Equal(t, "restored-1", h.srv.LastFollowUp().SessionID)
	assert.Equal(t, "Earlier findings", h.srv.LastFollowUp().Context)
}

func TestRestoreRendersSynthesisLikeLiveCycle(t *testing.T) {
	h := newHarness(t, mockapi.DefaultFixture(), types.SearchConfig{})
	synthesis := "**Themes**\n- sleep loss\n- deadline pressure"
	sess := research.Restore(research.Snapshot{
		ID:        "restored-2",
		Query:     "exam stress",
		Synthesis: synthesis,
		State:     research.StateCompleted,
	})

	h.ctrl.Restore(sess)

	got := h.page.InnerHTML(ui.IDSynthesisText)
	assert.Equal(t, ui.FormatSynthesis(synthesis), got)
	assert.Contains(t, got, "<strong>Themes</strong>")
	assert.Contains(t, got, `<ul class="synthesis-list">`)
}

func TestSearchIsJournaled(t *testing.T) {
	store, err := session.Open(types.StoreConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	fx := mockapi.DefaultFixture()
	h := newJournaledHarness(t, fx, types.SearchConfig{}, store)
	ctx := context.Background()

	require.NoError(t, h.search(t, "exam stress"))
	require.NoError(t, h.ctrl.Wait())
	require.NoError(t, h.ctrl.Dispatch(ctx, Command{Action: ActionFollowUp, Text: "Is it seasonal?"}))

	rec, err := store.Load(ctx, h.ctrl.Session().ID())
	require.NoError(t, err)
	assert.Equal(t, "exam stress", rec.Query)
	assert.Equal(t, research.StateFollowedUp, rec.State)
	assert.Len(t, rec.Results, 6)
	assert.Len(t, rec.Protocol, len(fx.Stream))
	require.NotNil(t, rec.FollowUp)
	assert.Equal(t, "Is it seasonal?", rec.FollowUp.Question)
	assert.Equal(t, fx.Answer, rec.FollowUp.Answer)
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "Verified posts only", AILabel(true))
	assert.Equal(t, "Include all posts", AILabel(false))
	assert.Equal(t, "SG Posts only", SGLabel(true))
	assert.Equal(t, "Whole DB", SGLabel(false))
}
