// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/mosaic/internal/api"
	"github.com/pdiddy/mosaic/internal/logging"
	"github.com/pdiddy/mosaic/internal/ui"
	"github.com/pdiddy/mosaic/pkg/types"
)

// --- test helpers ---

type fakeBackend struct {
	stream      string
	startErr    error
	followErr   error
	answer      string
	gotResearch types.ResearchRequest
	gotFollowUp types.FollowUpRequest
	followCalls int
}

func (b *fakeBackend) StartResearch(_ context.Context, req types.ResearchRequest) (io.ReadCloser, error) {
	b.gotResearch = req
	if b.startErr != nil {
		return nil, b.startErr
	}
	return io.NopCloser(strings.NewReader(b.stream)), nil
}

func (b *fakeBackend) FollowUp(_ context.Context, req types.FollowUpRequest) (types.FollowUpResponse, error) {
	b.followCalls++
	b.gotFollowUp = req
	if b.followErr != nil {
		return types.FollowUpResponse{}, b.followErr
	}
	return types.FollowUpResponse{Answer: b.answer}, nil
}

type recordingView struct {
	mu        sync.Mutex
	began     int
	trace     []ui.TraceLine
	protocol  []ui.ProtocolEntry
	scrolls   []ui.Panel
	synthesis string
	answers   []string
	followUp  []ui.FollowUpState
	dimmed    bool
}

func (v *recordingView) BeginResearch() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.began++
	v.trace = nil
	v.dimmed = false
	v.synthesis = "Initiating research protocol..."
	v.followUp = append(v.followUp, ui.FollowUpHidden)
}

func (v *recordingView) AppendTrace(l ui.TraceLine) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.trace = append(v.trace, l)
}

func (v *recordingView) AppendProtocol(e ui.ProtocolEntry) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.protocol = append(v.protocol, e)
}

func (v *recordingView) ScrollToLatest(p ui.Panel) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scrolls = append(v.scrolls, p)
}

func (v *recordingView) ShowSynthesis(html string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.synthesis = html
}

func (v *recordingView) AppendFollowUpAnswer(html string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.answers = append(v.answers, html)
}

func (v *recordingView) SetFollowUp(s ui.FollowUpState) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.followUp = append(v.followUp, s)
}

func (v *recordingView) DimTrace() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dimmed = true
}

func (v *recordingView) lastFollowUp() ui.FollowUpState {
	if len(v.followUp) == 0 {
		return ui.FollowUpHidden
	}
	return v.followUp[len(v.followUp)-1]
}

type memJournal struct {
	protocol  int
	completed string
	failed    string
	question  string
}

func (j *memJournal) AppendProtocol(context.Context, string, ui.ProtocolEntry) error {
	j.protocol++
	return nil
}

func (j *memJournal) Complete(_ context.Context, _ string, synthesis string, _ *int) error {
	j.completed = synthesis
	return nil
}

func (j *memJournal) Fail(_ context.Context, _ string, msg string) error {
	j.failed = msg
	return nil
}

func (j *memJournal) RecordFollowUp(_ context.Context, _ string, q, _ string) error {
	j.question = q
	return nil
}

var fixedClock = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 15, 0, time.UTC) }

const happyStream = `data: {"phase":"sampling","status":"Sampling 50 posts","n":50}

data: {"phase":"audit","status":"Auditing sample","n":50}

data: {"phase":"audit_result","decision":"EXPAND","reason":"Too few distinct narratives","n":50}

data: {"phase":"log","message":"expanded sample","data":{"n":100}}

data: {"phase":"sampling","status":"Sampling 100 posts","n":100}

data: {"phase":"audit_result","decision":"SUFFICIENT","reason":"Coverage reached"}

data: {"phase":"synthesis","status":"Writing report"}

data: {"phase":"complete","content":"Final <b>report</b>\nline two","n":100}

`

func newOrchestrator(b Backend, opts ...Option) *Orchestrator {
	opts = append([]Option{WithClock(fixedClock)}, opts...)
	return New(b, logging.Discard(), opts...)
}

// --- tests ---

func TestConductHappyPath(t *testing.T) {
	backend := &fakeBackend{stream: happyStream}
	journal := &memJournal{}
	o := newOrchestrator(backend, WithJournal(journal))
	view := &recordingView{}
	sess := NewSession("vaccines", false, true)

	require.NoError(t, o.Conduct(context.Background(), sess, view))

	assert.Equal(t, "vaccines", backend.gotResearch.Query)
	assert.True(t, backend.gotResearch.SGOnly)
	assert.Equal(t, sess.ID(), backend.gotResearch.SessionID)

	require.Len(t, view.trace, 6)
	assert.Equal(t, "> Sampling 50 posts [N=50]", view.trace[0].Text())
	assert.Equal(t, "> AUDIT: EXPAND - Too few distinct narratives", view.trace[2].Text())
	assert.True(t, view.trace[2].Expand())
	assert.False(t, view.trace[4].Expand())
	assert.Equal(t, "> Writing report [N=?]", view.trace[5].Text())

	require.Len(t, view.protocol, 8)
	assert.Equal(t, ui.TagPhase, view.protocol[0].Tag)
	assert.Equal(t, "[09:30:15] [PHASE] Sampling 50 posts", view.protocol[0].Header())
	assert.Equal(t, ui.TagAuditTrace, view.protocol[2].Tag)
	assert.Equal(t, "Full Audit Model Output:", view.protocol[2].Message)
	assert.Contains(t, view.protocol[2].Payload, "\n  \"decision\": \"EXPAND\"")
	assert.Equal(t, ui.TagDebug, view.protocol[3].Tag)
	assert.Equal(t, "{\n  \"n\": 100\n}", view.protocol[3].Payload)
	assert.Equal(t, ui.TagSuccess, view.protocol[7].Tag)
	assert.Equal(t, "Protocol complete with N=100", view.protocol[7].Message)

	assert.Equal(t, "Final &lt;b&gt;report&lt;/b&gt;<br>line two", view.synthesis)
	assert.True(t, view.dimmed)
	assert.Equal(t, ui.FollowUpVisible, view.lastFollowUp())
	assert.Equal(t, ui.PanelProtocol, view.scrolls[len(view.scrolls)-1])

	assert.Equal(t, StateCompleted, sess.State())
	assert.Equal(t, "Final <b>report</b>\nline two", sess.Synthesis())
	assert.True(t, sess.FollowUpAvailable())
	assert.Equal(t, 8, journal.protocol)
	assert.Equal(t, sess.Synthesis(), journal.completed)
}

func TestConductUsesMarkdownRenderer(t *testing.T) {
	backend := &fakeBackend{stream: "data: {\"phase\":\"complete\",\"content\":\"# Title\"}\n"}
	o := newOrchestrator(backend, WithMarkdown(func(md string) string { return "<h1>" + strings.TrimPrefix(md, "# ") + "</h1>" }))
	view := &recordingView{}

	require.NoError(t, o.Conduct(context.Background(), NewSession("q", false, false), view))
	assert.Equal(t, "<h1>Title</h1>", view.synthesis)
	assert.Equal(t, "Protocol complete with N=?", view.protocol[0].Message)
}

func TestConductHandshakeFailure(t *testing.T) {
	backend := &fakeBackend{startErr: &api.RequestError{Op: "research", Status: 503, Message: "Research Protocol Handshake Failed"}}
	journal := &memJournal{}
	o := newOrchestrator(backend, WithJournal(journal))
	view := &recordingView{}
	sess := NewSession("q", false, false)

	err := o.Conduct(context.Background(), sess, view)
	require.Error(t, err)

	assert.Contains(t, view.synthesis, "Research Protocol Failed: Research Protocol Handshake Failed")
	assert.Empty(t, view.trace)
	assert.Equal(t, ui.FollowUpHidden, view.lastFollowUp())
	assert.Equal(t, StateFailed, sess.State())
	assert.False(t, sess.FollowUpAvailable())
	assert.NotEmpty(t, journal.failed)
}

func TestConductCancelledHandshakeLeavesView(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	backend := &fakeBackend{startErr: context.Canceled}
	journal := &memJournal{}
	o := newOrchestrator(backend, WithJournal(journal))
	view := &recordingView{}
	sess := NewSession("q", false, false)

	err := o.Conduct(ctx, sess, view)
	require.ErrorIs(t, err, context.Canceled)

	assert.NotContains(t, view.synthesis, "Research Protocol Failed")
	assert.Equal(t, StateFailed, sess.State())
	assert.Empty(t, journal.failed)
}

func TestConductInBandError(t *testing.T) {
	backend := &fakeBackend{stream: "data: {\"phase\":\"sampling\",\"status\":\"s\",\"n\":10}\n" +
		"data: {\"phase\":\"error\",\"content\":\"model unavailable\"}\n"}
	o := newOrchestrator(backend)
	view := &recordingView{}
	sess := NewSession("q", false, false)

	require.NoError(t, o.Conduct(context.Background(), sess, view))
	assert.Equal(t, `<span class="error">Error: model unavailable</span>`, view.synthesis)
	assert.False(t, view.dimmed)
	assert.Equal(t, ui.FollowUpHidden, view.lastFollowUp())
	assert.Equal(t, StateFailed, sess.State())
}

func TestConductSkipsMalformedAndUnknown(t *testing.T) {
	backend := &fakeBackend{stream: "data: {oops}\n" +
		"data: {\"phase\":\"telemetry\"}\n" +
		"data: {\"phase\":\"complete\",\"content\":\"ok\",\"n\":3}\n"}
	o := newOrchestrator(backend)
	view := &recordingView{}

	require.NoError(t, o.Conduct(context.Background(), NewSession("q", false, false), view))
	assert.Equal(t, "ok", view.synthesis)
	require.Len(t, view.protocol, 1)
	assert.Equal(t, "Protocol complete with N=3", view.protocol[0].Message)
}

func TestConductStreamWithoutTerminalEvent(t *testing.T) {
	backend := &fakeBackend{stream: "data: {\"phase\":\"sampling\",\"status\":\"s\"}\n"}
	o := newOrchestrator(backend)
	view := &recordingView{}
	sess := NewSession("q", false, false)

	err := o.Conduct(context.Background(), sess, view)
	assert.ErrorIs(t, err, ErrNoTerminalEvent)
	assert.Equal(t, "Initiating research protocol...", view.synthesis)
	assert.False(t, sess.FollowUpAvailable())
}

func TestFollowUpLifecycle(t *testing.T) {
	backend := &fakeBackend{stream: happyStream, answer: "**Yes**\n- a\n- b"}
	journal := &memJournal{}
	o := newOrchestrator(backend, WithJournal(journal))
	view := &recordingView{}
	sess := NewSession("q", false, false)
	sess.SetResults([]types.Result{{ID: "r1", Similarity: 0.8}})

	// Before completion nothing is sent.
	err := o.FollowUp(context.Background(), sess, "why?", view)
	assert.ErrorIs(t, err, ErrFollowUpUnavailable)
	assert.Zero(t, backend.followCalls)

	require.NoError(t, o.Conduct(context.Background(), sess, view))

	// Blank questions are ignored.
	require.NoError(t, o.FollowUp(context.Background(), sess, "   ", view))
	assert.Zero(t, backend.followCalls)

	require.NoError(t, o.FollowUp(context.Background(), sess, " why? ", view))
	assert.Equal(t, "why?", backend.gotFollowUp.Query)
	assert.Equal(t, sess.Synthesis(), backend.gotFollowUp.Context)
	assert.Equal(t, sess.ID(), backend.gotFollowUp.SessionID)
	require.Len(t, backend.gotFollowUp.Results, 1)

	require.Len(t, view.answers, 1)
	assert.Equal(t, `<p><strong>Yes</strong></p><ul class="synthesis-list"><li>a</li><li>b</li></ul>`, view.answers[0])
	n := len(view.followUp)
	assert.Equal(t, []ui.FollowUpState{ui.FollowUpBusy, ui.FollowUpHidden}, view.followUp[n-2:])
	assert.Equal(t, "why?", journal.question)

	// Only one follow-up per cycle.
	err = o.FollowUp(context.Background(), sess, "again", view)
	assert.ErrorIs(t, err, ErrFollowUpUnavailable)
	assert.Equal(t, 1, backend.followCalls)
	assert.Equal(t, StateFollowedUp, sess.State())
}

func TestFollowUpFailureReenables(t *testing.T) {
	backend := &fakeBackend{stream: happyStream, followErr: errors.New("connection reset")}
	o := newOrchestrator(backend)
	view := &recordingView{}
	sess := NewSession("q", false, false)
	require.NoError(t, o.Conduct(context.Background(), sess, view))

	err := o.FollowUp(context.Background(), sess, "why?", view)
	require.Error(t, err)
	assert.Empty(t, view.answers)
	assert.Equal(t, ui.FollowUpVisible, view.lastFollowUp())
	assert.True(t, sess.FollowUpAvailable())
}

func TestNewSessionIsFresh(t *testing.T) {
	a := NewSession("q", false, false)
	b := NewSession("q", false, false)
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Len(t, a.ID(), 36)
	assert.Empty(t, b.Synthesis())
	assert.Equal(t, StateIdle, b.State())
}

func TestRestoreSnapshot(t *testing.T) {
	n := 40
	sess := Restore(Snapshot{ID: "abc", Query: "q", Synthesis: "s", SampleN: &n, State: StateCompleted})
	assert.Equal(t, "abc", sess.ID())
	assert.True(t, sess.FollowUpAvailable())

	snap := sess.Snapshot()
	assert.Equal(t, "s", snap.Synthesis)
	assert.Equal(t, 40, *snap.SampleN)
}
