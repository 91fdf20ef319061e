// Copyright 2024-2026 Aiku AI

// Package store persists the correlation records that let an operator reply
// find its way back to the originating user. The message map is append-only:
// rows are inserted at send time and only ever read afterwards.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no active record matches a reverse lookup.
var ErrNotFound = errors.New("correlation record not found")

// recentLimit is how many records Summary returns.
const recentLimit = 5

// Store is a SQLite-backed correlation store. Safe for concurrent use;
// every insert runs in its own write transaction.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open opens (creating if needed) the database at path and runs the
// additive schema migration. An empty path defaults to ./data/relay.db.
func Open(ctx context.Context, path string, log zerolog.Logger) (*Store, error) {
	if path == "" {
		path = "./data/relay.db"
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// The modernc driver applies pragmas via _pragma=name(value); WAL plus
	// a busy timeout lets concurrent insert transactions queue instead of
	// failing with SQLITE_BUSY.
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{
		db:  db,
		log: log.With().Str("component", "store").Logger(),
	}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Insert appends a record to the message map and returns its assigned ID.
// Duplicate content is legitimate (the same message fans out to many
// operators); only I/O failures are errors. If CreatedAt is zero it is set
// to the current time.
func (s *Store) Insert(ctx context.Context, rec *Record) (int64, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.Status == "" {
		rec.Status = StatusActive
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin insert transaction: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO message_map (
			user_id, operator_id, original_message_id, delivered_message_id,
			reply_message_id, content_type, content, attachment_ref,
			created_at, status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.UserID, rec.OperatorID, rec.OriginalMessageID, rec.DeliveredMessageID,
		rec.ReplyMessageID, rec.ContentType, rec.Content, rec.AttachmentRef,
		rec.CreatedAt.UnixMilli(), rec.Status)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("failed to insert record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("failed to read inserted record id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit insert: %w", err)
	}

	rec.ID = id
	return id, nil
}

const recordColumns = `
	id, user_id, operator_id, original_message_id, delivered_message_id,
	reply_message_id, content_type, content, attachment_ref, created_at, status
`

// FindActiveOrigin returns the most recent active record whose delivered
// message ID matches. Ties break newest-first so a reused delivered ID
// resolves to the latest send. Returns ErrNotFound if nothing matches.
func (s *Store) FindActiveOrigin(ctx context.Context, deliveredMessageID int) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM message_map
		WHERE delivered_message_id = ? AND status = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, deliveredMessageID, StatusActive)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up delivered message %d: %w", deliveredMessageID, err)
	}
	return rec, nil
}

// Summary returns the total record count and the newest records, newest
// first. Read-only.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	var sum Summary
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM message_map`).Scan(&sum.Total); err != nil {
		return Summary{}, fmt.Errorf("failed to count records: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM message_map
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, recentLimit)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to query recent records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return Summary{}, fmt.Errorf("failed to scan recent record: %w", err)
		}
		sum.Recent = append(sum.Recent, rec)
	}
	if err := rows.Err(); err != nil {
		return Summary{}, fmt.Errorf("failed to read recent records: %w", err)
	}
	return sum, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var createdAt int64
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.OperatorID,
		&rec.OriginalMessageID,
		&rec.DeliveredMessageID,
		&rec.ReplyMessageID,
		&rec.ContentType,
		&rec.Content,
		&rec.AttachmentRef,
		&createdAt,
		&rec.Status,
	)
	if err != nil {
		return nil, err
	}
	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &rec, nil
}
