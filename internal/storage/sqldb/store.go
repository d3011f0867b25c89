// Package sqldb stores invocation audit records in SQLite through sqlx.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/tjfontaine/actionpipe/internal/core/domain"
	"github.com/tjfontaine/actionpipe/internal/core/ports"
	"github.com/tjfontaine/actionpipe/internal/storage"
)

// Store is a SQLite implementation of ports.InvocationStore.
type Store struct {
	db *sqlx.DB
}

var _ ports.InvocationStore = (*Store)(nil)

// pragmas run on every new store.
var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
}

// NewSQLite opens (or creates) the database at dsn and initializes the
// schema. dsn is a file path or a modernc.org/sqlite URI.
func NewSQLite(dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute pragma: %w", err)
		}
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// DB returns the underlying sqlx.DB for advanced operations
func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS invocations (
id TEXT PRIMARY KEY,
request_id TEXT,
action TEXT NOT NULL,
method TEXT,
path TEXT,
status INTEGER NOT NULL,
valid INTEGER NOT NULL DEFAULT 1,
duration_ns INTEGER,
metadata TEXT,
created_at TIMESTAMP NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_invocations_action ON invocations(action)`,
		`CREATE INDEX IF NOT EXISTS idx_invocations_created_at ON invocations(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) RecordInvocation(ctx context.Context, rec *domain.InvocationRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("invocation record requires an id")
	}
	var metadata any
	if len(rec.Metadata) > 0 {
		metadata = string(rec.Metadata)
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO invocations
(id, request_id, action, method, path, status, valid, duration_ns, metadata, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.RequestID, rec.Action, rec.Method, rec.Path,
		rec.Status, rec.Valid, rec.DurationNs, metadata, rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert invocation: %w", err)
	}
	return nil
}

// invocationRow mirrors the table; metadata is nullable.
type invocationRow struct {
	ID         string         `db:"id"`
	RequestID  sql.NullString `db:"request_id"`
	Action     string         `db:"action"`
	Method     sql.NullString `db:"method"`
	Path       sql.NullString `db:"path"`
	Status     int            `db:"status"`
	Valid      bool           `db:"valid"`
	DurationNs sql.NullInt64  `db:"duration_ns"`
	Metadata   sql.NullString `db:"metadata"`
	CreatedAt  sql.NullTime   `db:"created_at"`
}

func (r invocationRow) record() *domain.InvocationRecord {
	rec := &domain.InvocationRecord{
		ID:         r.ID,
		RequestID:  r.RequestID.String,
		Action:     r.Action,
		Method:     r.Method.String,
		Path:       r.Path.String,
		Status:     r.Status,
		Valid:      r.Valid,
		DurationNs: r.DurationNs.Int64,
		CreatedAt:  r.CreatedAt.Time,
	}
	if r.Metadata.Valid && r.Metadata.String != "" {
		rec.Metadata = []byte(r.Metadata.String)
	}
	return rec
}

const selectInvocations = `SELECT id, request_id, action, method, path, status, valid, duration_ns, metadata, created_at FROM invocations`

func (s *Store) GetInvocation(ctx context.Context, id string) (*domain.InvocationRecord, error) {
	var row invocationRow
	err := s.db.GetContext(ctx, &row, selectInvocations+` WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("invocation %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invocation: %w", err)
	}
	return row.record(), nil
}

func (s *Store) ListInvocations(ctx context.Context, opts ports.InvocationListOptions) ([]*domain.InvocationRecord, error) {
	var (
		where []string
		args  []any
	)
	if opts.Action != "" {
		where = append(where, "action = ?")
		args = append(args, opts.Action)
	}
	if opts.Status != 0 {
		where = append(where, "status = ?")
		args = append(args, opts.Status)
	}

	query := selectInvocations
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, storage.Limit(opts.Limit), opts.Offset)

	var rows []invocationRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query invocations: %w", err)
	}

	out := make([]*domain.InvocationRecord, len(rows))
	for i, r := range rows {
		out[i] = r.record()
	}
	return out, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
