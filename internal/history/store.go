// Package history persists finished call transcriptions to Postgres.
//
// The output sink remains the durable contract; this log is advisory and
// only active when DATABASE_URL is configured. A failed insert is logged by
// the caller and never blocks the call pipeline.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

const schema = `
CREATE TABLE IF NOT EXISTS call_transcriptions (
    id              BIGSERIAL PRIMARY KEY,
    call_control_id TEXT NOT NULL,
    from_number     TEXT NOT NULL,
    to_number       TEXT NOT NULL,
    transcription   TEXT NOT NULL,
    duration_secs   DOUBLE PRECISION NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL
)`

// Entry is one stored call transcription.
type Entry struct {
	ID              int64
	CallControlID   string
	FromNumber      string
	ToNumber        string
	Transcription   string
	DurationSeconds float64
	CreatedAt       time.Time
}

// Record is the subset of the output row the store persists. Defined here so
// the store does not depend on the sink's encoding types.
type Record struct {
	CallControlID   string
	FromNumber      string
	ToNumber        string
	Transcription   string
	DurationSeconds float64
	CreatedAt       time.Time
}

type Store struct {
	db  *sql.DB
	log *slog.Logger
}

func NewStore(db *sql.DB, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{db: db, log: log}
}

// Init creates the table when absent. Called once at startup.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("history: init schema: %w", err)
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, rec Record) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	const q = `INSERT INTO call_transcriptions
        (call_control_id, from_number, to_number, transcription, duration_secs, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.db.ExecContext(ctx, q,
		rec.CallControlID, rec.FromNumber, rec.ToNumber,
		rec.Transcription, rec.DurationSeconds, createdAt)
	if err != nil {
		return fmt.Errorf("history: insert %s: %w", rec.CallControlID, err)
	}
	return nil
}

// Recent returns the latest entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT id, call_control_id, from_number, to_number, transcription, duration_secs, created_at
        FROM call_transcriptions ORDER BY created_at DESC LIMIT $1`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.CallControlID, &e.FromNumber, &e.ToNumber,
			&e.Transcription, &e.DurationSeconds, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
