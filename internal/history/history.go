// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/chatgpt-export/internal/pipeline"
)

var ErrNotFound = errors.New("run not found")

// schema is applied on open; CREATE IF NOT EXISTS keeps reopen idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id                     TEXT PRIMARY KEY,
	started_at             TEXT NOT NULL,
	finished_at            TEXT NOT NULL,
	conversations          INTEGER NOT NULL,
	errors                 INTEGER NOT NULL,
	attachments            INTEGER NOT NULL,
	attachments_downloaded INTEGER NOT NULL,
	attachments_failed     INTEGER NOT NULL,
	archive_bytes          INTEGER NOT NULL,
	archive_path           TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
`

// Store is the run history database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to configure history database: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts one completed run. Timestamps are stored as RFC 3339 UTC
// so lexical order is chronological order.
func (s *Store) Record(ctx context.Context, stats pipeline.RunStats) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (
			id, started_at, finished_at,
			conversations, errors, attachments,
			attachments_downloaded, attachments_failed,
			archive_bytes, archive_path
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stats.RunID,
		stats.StartedAt.UTC().Format(time.RFC3339),
		stats.FinishedAt.UTC().Format(time.RFC3339),
		stats.Conversations,
		stats.Errors,
		stats.Attachments,
		stats.AttachmentsDownloaded,
		stats.AttachmentsFailed,
		stats.ArchiveBytes,
		stats.ArchivePath,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// Get returns one run by id.
func (s *Store) Get(ctx context.Context, runID string) (pipeline.RunStats, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at,
		       conversations, errors, attachments,
		       attachments_downloaded, attachments_failed,
		       archive_bytes, archive_path
		FROM runs WHERE id = ?`, runID)

	stats, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return pipeline.RunStats{}, ErrNotFound
	}
	return stats, err
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]pipeline.RunStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at,
		       conversations, errors, attachments,
		       attachments_downloaded, attachments_failed,
		       archive_bytes, archive_path
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []pipeline.RunStats
	for rows.Next() {
		stats, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, stats)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (pipeline.RunStats, error) {
	var stats pipeline.RunStats
	var started, finished string
	err := row.Scan(
		&stats.RunID, &started, &finished,
		&stats.Conversations, &stats.Errors, &stats.Attachments,
		&stats.AttachmentsDownloaded, &stats.AttachmentsFailed,
		&stats.ArchiveBytes, &stats.ArchivePath,
	)
	if err != nil {
		return pipeline.RunStats{}, err
	}
	if stats.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
		return pipeline.RunStats{}, fmt.Errorf("corrupt started_at for run %s: %w", stats.RunID, err)
	}
	if stats.FinishedAt, err = time.Parse(time.RFC3339, finished); err != nil {
		return pipeline.RunStats{}, fmt.Errorf("corrupt finished_at for run %s: %w", stats.RunID, err)
	}
	return stats, nil
}
