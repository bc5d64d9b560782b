// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/mosaic/internal/research"
	"github.com/pdiddy/mosaic/internal/ui"
	"github.com/pdiddy/mosaic/pkg/types"
)

// Record is a stored cycle with everything journaled about it.
type Record struct {
	research.Snapshot `yaml:",inline"`

	UpdatedAt time.Time          `json:"updated_at" yaml:"updated_at"`
	Error     string             `json:"error,omitempty" yaml:"error,omitempty"`
	FollowUp  *FollowUp          `json:"follow_up,omitempty" yaml:"follow_up,omitempty"`
	Protocol  []ui.ProtocolEntry `json:"protocol" yaml:"protocol"`
}

// Session rebuilds the live research session of a stored cycle.
func (r Record) Session() *research.Session {
	return research.Restore(r.Snapshot)
}

// FollowUp is the single follow-up exchange of a cycle.
type FollowUp struct {
	Question string    `json:"question" yaml:"question"`
	Answer   string    `json:"answer" yaml:"answer"`
	AskedAt  time.Time `json:"asked_at" yaml:"asked_at"`
}

// Summary is one line of the cycle listing.
type Summary struct {
	ID        string              `json:"id" yaml:"id"`
	Query     string              `json:"query" yaml:"query"`
	State     research.CycleState `json:"state" yaml:"state"`
	StartedAt time.Time           `json:"started_at" yaml:"started_at"`
	Results   int                 `json:"results" yaml:"results"`
}

// Resolve expands an id or unique id prefix to a full id.
func (s *Store) Resolve(ctx context.Context, prefix string) (string, error) {
	if prefix == "" {
		return "", ErrNotFound
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM cycles WHERE substr(id, 1, ?) = ? LIMIT 2`, len(prefix), prefix)
	if err != nil {
		return "", fmt.Errorf("resolving session %s: %w", prefix, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scanning session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterating session ids: %w", err)
	}

	switch len(ids) {
	case 0:
		return "", fmt.Errorf("session %s: %w", prefix, ErrNotFound)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("session prefix %s is ambiguous", prefix)
	}
}

// Load reads a stored cycle by id or unique id prefix.
func (s *Store) Load(ctx context.Context, idOrPrefix string) (Record, error) {
	id, err := s.Resolve(ctx, idOrPrefix)
	if err != nil {
		return Record{}, err
	}

	var (
		rec                       Record
		aiOnly, sgOnly            bool
		started, updated, state   string
		sampleN                   sql.NullInt64
		question, answer, askedAt string
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT id, query, ai_only, sg_only, started_at, updated_at, state, synthesis, sample_n,
		        error, follow_up_question, follow_up_answer, follow_up_at
		 FROM cycles WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.Query, &aiOnly, &sgOnly, &started, &updated, &state, &rec.Synthesis,
		&sampleN, &rec.Error, &question, &answer, &askedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("reading session %s: %w", id, err)
	}

	rec.AIOnly = aiOnly
	rec.SGOnly = sgOnly
	rec.StartedAt = parseStamp(started)
	rec.UpdatedAt = parseStamp(updated)
	rec.State = research.CycleState(state)
	if sampleN.Valid {
		n := int(sampleN.Int64)
		rec.SampleN = &n
	}
	if question != "" {
		rec.FollowUp = &FollowUp{Question: question, Answer: answer, AskedAt: parseStamp(askedAt)}
	}

	if rec.Results, err = s.results(ctx, id); err != nil {
		return Record{}, err
	}
	if rec.Protocol, err = s.protocol(ctx, id); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *Store) results(ctx context.Context, id string) ([]types.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, COALESCE(platform, ''), COALESCE(content, ''), COALESCE(content_scrubbed, ''),
		        COALESCE(similarity, 0), COALESCE(ai_explanation, ''), COALESCE(post_dt, '')
		 FROM results WHERE cycle_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("querying results of %s: %w", id, err)
	}
	defer rows.Close()

	var out []types.Result
	for rows.Next() {
		var r types.Result
		if err := rows.Scan(&r.ID, &r.Platform, &r.Content, &r.ContentScrubbed,
			&r.Similarity, &r.AIExplanation, &r.PostDT); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) protocol(ctx context.Context, id string) ([]ui.ProtocolEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT at, tag, message, payload FROM protocol WHERE cycle_id = ? ORDER BY rowid`, id)
	if err != nil {
		return nil, fmt.Errorf("querying protocol of %s: %w", id, err)
	}
	defer rows.Close()

	var out []ui.ProtocolEntry
	for rows.Next() {
		var (
			e   ui.ProtocolEntry
			at  string
			tag string
		)
		if err := rows.Scan(&at, &tag, &e.Message, &e.Payload); err != nil {
			return nil, fmt.Errorf("scanning protocol entry: %w", err)
		}
		e.At = parseStamp(at)
		e.Tag = ui.ProtocolTag(tag)
		out = append(out, e)
	}
	return out, rows.Err()
}

// List returns the most recent cycles, newest first. limit <= 0 lists all.
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.query, c.state, c.started_at,
		        (SELECT count(*) FROM results r WHERE r.cycle_id = c.id)
		 FROM cycles c ORDER BY c.started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum     Summary
			state   string
			started string
		)
		if err := rows.Scan(&sum.ID, &sum.Query, &state, &started, &sum.Results); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sum.State = research.CycleState(state)
		sum.StartedAt = parseStamp(started)
		out = append(out, sum)
	}
	return out, rows.Err()
}

func parseStamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
