// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/mosaic/pkg/types"
)

// CycleState is where a research cycle stands.
type CycleState string

const (
	StateIdle       CycleState = "idle"
	StateStreaming  CycleState = "streaming"
	StateCompleted  CycleState = "completed"
	StateFailed     CycleState = "failed"
	StateFollowedUp CycleState = "followed_up"
)

// Session is the context of one research cycle: the search that started it,
// the results it showed, and the synthesis the follow-up refers to. A new
// search always gets a new Session; nothing carries over.
type Session struct {
	mu sync.Mutex

	id        string
	query     string
	aiOnly    bool
	sgOnly    bool
	startedAt time.Time

	results   []types.Result
	synthesis string
	sampleN   *int
	state     CycleState
	asking    bool
}

// NewSession starts a cycle with a fresh random identifier.
func NewSession(query string, aiOnly, sgOnly bool) *Session {
	return &Session{
		id:        uuid.NewString(),
		query:     query,
		aiOnly:    aiOnly,
		sgOnly:    sgOnly,
		startedAt: time.Now().UTC(),
		state:     StateIdle,
	}
}

// Snapshot is a copy of a session's state, used to persist and restore it.
type Snapshot struct {
	ID        string         `json:"id" yaml:"id"`
	Query     string         `json:"query" yaml:"query"`
	AIOnly    bool           `json:"ai_only" yaml:"ai_only"`
	SGOnly    bool           `json:"sg_only" yaml:"sg_only"`
	StartedAt time.Time      `json:"started_at" yaml:"started_at"`
	Results   []types.Result `json:"results" yaml:"results"`
	Synthesis string         `json:"synthesis,omitempty" yaml:"synthesis,omitempty"`
	SampleN   *int           `json:"sample_n,omitempty" yaml:"sample_n,omitempty"`
	State     CycleState     `json:"state" yaml:"state"`
}

// Restore rebuilds a session from a snapshot, e.g. to ask the follow-up of a
// cycle completed by an earlier process.
func Restore(s Snapshot) *Session {
	state := s.State
	if state == "" {
		state = StateIdle
	}
	return &Session{
		id:        s.ID,
		query:     s.Query,
		aiOnly:    s.AIOnly,
		sgOnly:    s.SGOnly,
		startedAt: s.StartedAt,
		results:   append([]types.Result(nil), s.Results...),
		synthesis: s.Synthesis,
		sampleN:   s.SampleN,
		state:     state,
	}
}

// Snapshot copies the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:        s.id,
		Query:     s.query,
		AIOnly:    s.aiOnly,
		SGOnly:    s.sgOnly,
		StartedAt: s.startedAt,
		Results:   append([]types.Result(nil), s.results...),
		Synthesis: s.synthesis,
		SampleN:   s.sampleN,
		State:     s.state,
	}
}

func (s *Session) ID() string    { return s.id }
func (s *Session) Query() string { return s.query }
func (s *Session) AIOnly() bool  { return s.aiOnly }
func (s *Session) SGOnly() bool  { return s.sgOnly }

// SetResults replaces the result set wholesale.
func (s *Session) SetResults(results []types.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append([]types.Result(nil), results...)
}

// Results returns a copy of the result set.
func (s *Session) Results() []types.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Result(nil), s.results...)
}

// Result returns the result at index i.
func (s *Session) Result(i int) (types.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.results) {
		return types.Result{}, false
	}
	return s.results[i], true
}

// Synthesis returns the stored final synthesis, empty until completion.
func (s *Session) Synthesis() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.synthesis
}

// State returns the cycle state.
func (s *Session) State() CycleState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// FollowUpAvailable reports whether the single follow-up may be asked now.
func (s *Session) FollowUpAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateCompleted && !s.asking
}

func (s *Session) setState(state CycleState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *Session) complete(content string, n *int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synthesis = content
	s.sampleN = n
	s.state = StateCompleted
}

// beginFollowUp claims the follow-up slot. It fails when the cycle has not
// completed, the follow-up was used, or another one is in flight.
func (s *Session) beginFollowUp() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateCompleted || s.asking {
		return false
	}
	s.asking = true
	return true
}

// endFollowUp releases the slot; success consumes it for good.
func (s *Session) endFollowUp(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.asking = false
	if ok {
		s.state = StateFollowedUp
	}
}
