// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package research consumes the backend's research stream: a multi-round
// sample → audit → expand-or-stop → synthesize protocol. It renders a live
// trace and a protocol log, stores the final synthesis in the Session, and
// allows one follow-up question per completed cycle.
package research

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/pdiddy/mosaic/internal/api"
	"github.com/pdiddy/mosaic/internal/metrics"
	"github.com/pdiddy/mosaic/internal/ui"
	"github.com/pdiddy/mosaic/pkg/types"
)

// Backend is the part of the transport adapter the orchestrator uses.
type Backend interface {
	StartResearch(ctx context.Context, req types.ResearchRequest) (io.ReadCloser, error)
	FollowUp(ctx context.Context, req types.FollowUpRequest) (types.FollowUpResponse, error)
}

// View is the surface the research cycle draws on.
type View interface {
	// BeginResearch shows an undimmed, empty trace, a loading synthesis
	// panel, and hides the follow-up control.
	BeginResearch()
	AppendTrace(line ui.TraceLine)
	AppendProtocol(entry ui.ProtocolEntry)
	ScrollToLatest(panel ui.Panel)
	// ShowSynthesis replaces the synthesis panel with html.
	ShowSynthesis(html string)
	// AppendFollowUpAnswer adds html below the synthesis.
	AppendFollowUpAnswer(html string)
	SetFollowUp(state ui.FollowUpState)
	DimTrace()
}

// Journal persists the cycle as it unfolds. Failures are logged, never
// fatal to the stream.
type Journal interface {
	AppendProtocol(ctx context.Context, sessionID string, entry ui.ProtocolEntry) error
	Complete(ctx context.Context, sessionID, synthesis string, n *int) error
	Fail(ctx context.Context, sessionID, message string) error
	RecordFollowUp(ctx context.Context, sessionID, question, answer string) error
}

// MarkdownRenderer turns the final synthesis into HTML.
type MarkdownRenderer func(markdown string) string

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMarkdown renders the final synthesis through r instead of showing raw
// text.
func WithMarkdown(r MarkdownRenderer) Option {
	return func(o *Orchestrator) { o.render = r }
}

// WithJournal records every cycle in j.
func WithJournal(j Journal) Option {
	return func(o *Orchestrator) { o.journal = j }
}

// WithClock overrides the protocol log timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// ErrFollowUpUnavailable is returned when a follow-up is asked before the
// cycle completed, after it was already used, or while one is in flight.
var ErrFollowUpUnavailable = errors.New("follow-up unavailable: research has not completed or the follow-up was already used")

// ErrNoTerminalEvent is returned when the stream ends without complete or
// error.
var ErrNoTerminalEvent = errors.New("research stream ended without a terminal event")

// Orchestrator runs research cycles.
type Orchestrator struct {
	backend Backend
	logger  *slog.Logger
	render  MarkdownRenderer
	journal Journal
	now     func() time.Time
}

// New returns an Orchestrator.
func New(backend Backend, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{backend: backend, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Conduct opens the research stream for sess and processes its events in
// arrival order until the stream ends or ctx is cancelled. A rejected
// handshake is rendered into the synthesis panel and returned.
func (o *Orchestrator) Conduct(ctx context.Context, sess *Session, view View) error {
	view.BeginResearch()
	sess.setState(StateStreaming)

	started := time.Now()
	defer func() { metrics.ObserveResearch(time.Since(started)) }()

	body, err := o.backend.StartResearch(ctx, types.ResearchRequest{
		Query:     sess.Query(),
		SGOnly:    sess.SGOnly(),
		SessionID: sess.ID(),
	})
	if err != nil {
		if ctx.Err() != nil {
			sess.setState(StateFailed)
			o.logger.Debug("research superseded before handshake", "session", sess.ID())
			return ctx.Err()
		}
		msg := "Research Protocol Failed: " + api.Message(err)
		o.logger.Error("research handshake failed", "session", sess.ID(), "error", err)
		view.ShowSynthesis(ui.ErrorHTML(msg))
		sess.setState(StateFailed)
		o.journalErr("fail", o.journalFail(ctx, sess.ID(), msg))
		return fmt.Errorf("starting research: %w", err)
	}
	defer body.Close()

	o.logger.Info("research stream opened", "session", sess.ID(), "query", sess.Query())

	err = Consume(ctx, body, o.logger, func(ev Event) {
		o.handle(ctx, sess, view, ev)
	})
	if err != nil {
		o.logger.Warn("research stream stopped", "session", sess.ID(), "error", err)
		if sess.State() == StateStreaming {
			sess.setState(StateFailed)
		}
		return fmt.Errorf("reading research stream: %w", err)
	}

	if sess.State() == StateStreaming {
		sess.setState(StateFailed)
		o.logger.Warn("research stream ended early", "session", sess.ID())
		return ErrNoTerminalEvent
	}
	return nil
}

func (o *Orchestrator) handle(ctx context.Context, sess *Session, view View, ev Event) {
	if ctx.Err() != nil {
		return
	}
	metrics.ObserveEvent(string(ev.Phase()))

	switch e := ev.(type) {
	case Progress:
		view.AppendTrace(ui.TraceLine{Status: e.Status, N: formatN(e.N)})
		view.ScrollToLatest(ui.PanelTrace)
		msg := e.Status
		if msg == "" {
			msg = string(e.Kind)
		}
		o.protocol(ctx, sess, view, ui.TagPhase, msg, nil)

	case AuditResult:
		view.AppendTrace(ui.TraceLine{Audit: true, Decision: e.Decision, Reason: e.Reason})
		view.ScrollToLatest(ui.PanelTrace)
		o.protocol(ctx, sess, view, ui.TagAuditTrace, "Full Audit Model Output:", e.Raw)

	case LogEvent:
		o.protocol(ctx, sess, view, ui.TagDebug, e.Message, e.Data)

	case Complete:
		sess.complete(e.Content, e.N)
		view.ShowSynthesis(o.RenderSynthesis(e.Content))
		view.SetFollowUp(ui.FollowUpVisible)
		view.DimTrace()
		o.protocol(ctx, sess, view, ui.TagSuccess, "Protocol complete with N="+finalN(e.N), nil)
		if o.journal != nil {
			o.journalErr("complete", o.journal.Complete(ctx, sess.ID(), e.Content, e.N))
		}

	case Failure:
		sess.setState(StateFailed)
		view.ShowSynthesis(ui.ErrorHTML("Error: " + e.Content))
		o.journalErr("fail", o.journalFail(ctx, sess.ID(), e.Content))

	case Unknown:
		o.logger.Debug("ignoring unknown research phase", "phase", e.Name)
	}

	view.ScrollToLatest(ui.PanelProtocol)
}

func (o *Orchestrator) protocol(ctx context.Context, sess *Session, view View, tag ui.ProtocolTag, msg string, payload json.RawMessage) {
	entry := ui.ProtocolEntry{
		At:      o.now(),
		Tag:     tag,
		Message: msg,
		Payload: pretty(payload),
	}
	view.AppendProtocol(entry)
	if o.journal != nil {
		o.journalErr("protocol", o.journal.AppendProtocol(ctx, sess.ID(), entry))
	}
}

// RenderSynthesis returns the HTML the synthesis panel shows for content.
func (o *Orchestrator) RenderSynthesis(content string) string {
	if o.render != nil {
		return o.render(content)
	}
	return ui.PlainHTML(content)
}

func (o *Orchestrator) journalFail(ctx context.Context, id, msg string) error {
	if o.journal == nil {
		return nil
	}
	return o.journal.Fail(ctx, id, msg)
}

func (o *Orchestrator) journalErr(op string, err error) {
	if err != nil {
		o.logger.Warn("session journal write failed", "op", op, "error", err)
	}
}

// pretty indents a JSON payload with two spaces. Payloads that are not
// valid JSON are returned verbatim.
func pretty(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

// finalN renders the sample count cited in the success line; only a missing
// count prints "?".
func finalN(n *int) string {
	if n == nil {
		return "?"
	}
	return strconv.Itoa(*n)
}
