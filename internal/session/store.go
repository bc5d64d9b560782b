// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session journals research cycles to a local SQLite database: the
// search that started each cycle, its results, the protocol log, the final
// synthesis and the follow-up. Stored cycles can be listed, exported, and
// restored to ask a follow-up later.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/mosaic/internal/research"
	"github.com/pdiddy/mosaic/internal/ui"
	"github.com/pdiddy/mosaic/pkg/types"
)

const dbFile = "sessions.db"

var _ research.Journal = (*Store)(nil)

// ErrNotFound is returned when no stored cycle matches an id.
var ErrNotFound = errors.New("session not found")

// Store manages the session database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at cfg.Dir/sessions.db.
func Open(cfg types.StoreConfig) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = types.DefaultStoreDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS cycles (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			ai_only INTEGER NOT NULL DEFAULT 0,
			sg_only INTEGER NOT NULL DEFAULT 0,
			started_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			state TEXT NOT NULL,
			synthesis TEXT NOT NULL DEFAULT '',
			sample_n INTEGER,
			error TEXT NOT NULL DEFAULT '',
			follow_up_question TEXT NOT NULL DEFAULT '',
			follow_up_answer TEXT NOT NULL DEFAULT '',
			follow_up_at TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS results (
			cycle_id TEXT NOT NULL REFERENCES cycles(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			id TEXT NOT NULL,
			platform TEXT,
			content TEXT,
			content_scrubbed TEXT,
			similarity REAL,
			ai_explanation TEXT,
			post_dt TEXT,
			PRIMARY KEY (cycle_id, position)
		)`,
		`CREATE TABLE IF NOT EXISTS protocol (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			cycle_id TEXT NOT NULL REFERENCES cycles(id) ON DELETE CASCADE,
			at TEXT NOT NULL,
			tag TEXT NOT NULL,
			message TEXT NOT NULL,
			payload TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_protocol_cycle ON protocol(cycle_id)`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_started ON cycles(started_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Begin records a new cycle with its results. Recording the same id again
// replaces it.
func (s *Store) Begin(ctx context.Context, snap research.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	started := snap.StartedAt
	if started.IsZero() {
		started = s.now()
	}
	state := snap.State
	if state == "" {
		state = research.StateIdle
	}

	for _, stmt := range []string{
		`DELETE FROM protocol WHERE cycle_id = ?`,
		`DELETE FROM results WHERE cycle_id = ?`,
		`DELETE FROM cycles WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, snap.ID); err != nil {
			return fmt.Errorf("clearing cycle %s: %w", snap.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO cycles (id, query, ai_only, sg_only, started_at, updated_at, state, synthesis, sample_n)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.Query, snap.AIOnly, snap.SGOnly,
		started.UTC().Format(time.RFC3339Nano), s.stamp(), string(state),
		snap.Synthesis, nullInt(snap.SampleN),
	); err != nil {
		return fmt.Errorf("inserting cycle %s: %w", snap.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO results (cycle_id, position, id, platform, content, content_scrubbed, similarity, ai_explanation, post_dt)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing result insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range snap.Results {
		if _, err := stmt.ExecContext(ctx, snap.ID, i, r.ID, r.Platform, r.Content,
			r.ContentScrubbed, r.Similarity, r.AIExplanation, r.PostDT); err != nil {
			return fmt.Errorf("inserting result %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// AppendProtocol adds one protocol log entry to a cycle.
func (s *Store) AppendProtocol(ctx context.Context, id string, entry ui.ProtocolEntry) error {
	at := entry.At
	if at.IsZero() {
		at = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO protocol (cycle_id, at, tag, message, payload) VALUES (?, ?, ?, ?, ?)`,
		id, at.UTC().Format(time.RFC3339Nano), string(entry.Tag), entry.Message, entry.Payload)
	if err != nil {
		return fmt.Errorf("appending protocol entry to %s: %w", id, err)
	}
	return nil
}

// Complete stores the final synthesis and marks the cycle completed.
func (s *Store) Complete(ctx context.Context, id, synthesis string, n *int) error {
	return s.update(ctx, id,
		`UPDATE cycles SET state = ?, synthesis = ?, sample_n = ?, updated_at = ? WHERE id = ?`,
		string(research.StateCompleted), synthesis, nullInt(n), s.stamp(), id)
}

// Fail marks the cycle failed with message.
func (s *Store) Fail(ctx context.Context, id, message string) error {
	return s.update(ctx, id,
		`UPDATE cycles SET state = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(research.StateFailed), message, s.stamp(), id)
}

// RecordFollowUp stores the follow-up exchange and marks the cycle used.
func (s *Store) RecordFollowUp(ctx context.Context, id, question, answer string) error {
	now := s.stamp()
	return s.update(ctx, id,
		`UPDATE cycles SET state = ?, follow_up_question = ?, follow_up_answer = ?, follow_up_at = ?, updated_at = ? WHERE id = ?`,
		string(research.StateFollowedUp), question, answer, now, now, id)
}

func (s *Store) update(ctx context.Context, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating cycle %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating cycle %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("updating cycle %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *Store) stamp() string {
	return s.now().Format(time.RFC3339Nano)
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}
