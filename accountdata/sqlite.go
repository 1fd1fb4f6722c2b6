// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package accountdata

import (
	"context"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/warden-foundation/warden/lib/codec"
	"github.com/warden-foundation/warden/lib/ref"
	"github.com/warden-foundation/warden/lib/sqlitepool"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS account_data (
	event_type TEXT PRIMARY KEY,
	content    BLOB NOT NULL
);
`

// PrepareSQLite is the sqlitepool OnConnect callback creating the
// account data table. Pass it to sqlitepool.Open for any pool backing
// a SQLiteStore.
func PrepareSQLite(conn *sqlite.Conn) error {
	return sqlitex.ExecuteScript(conn, sqliteSchema, nil)
}

// SQLiteStore persists a configuration document in a local SQLite
// database, keyed by the same account data event type the Matrix
// store would use. Values are deterministic CBOR.
type SQLiteStore[T any] struct {
	pool      *sqlitepool.Pool
	eventType ref.EventType
}

// NewSQLiteStore creates a store writing to the given pool. The pool
// must have been opened with PrepareSQLite as its OnConnect callback.
func NewSQLiteStore[T any](pool *sqlitepool.Pool, eventType ref.EventType) *SQLiteStore[T] {
	return &SQLiteStore[T]{pool: pool, eventType: eventType}
}

// Load fetches and decodes the stored document. ok=false when no row
// exists for the event type.
func (s *SQLiteStore[T]) Load(ctx context.Context) (T, bool, error) {
	var value T
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return value, false, fmt.Errorf("accountdata: loading %s: %w", s.eventType, err)
	}
	defer s.pool.Put(conn)

	var content []byte
	err = sqlitex.Execute(conn, "SELECT content FROM account_data WHERE event_type = ?", &sqlitex.ExecOptions{
		Args: []any{s.eventType.String()},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			content = make([]byte, stmt.ColumnLen(0))
			stmt.ColumnBytes(0, content)
			return nil
		},
	})
	if err != nil {
		return value, false, fmt.Errorf("accountdata: loading %s: %w", s.eventType, err)
	}
	if content == nil {
		return value, false, nil
	}
	if err := codec.Unmarshal(content, &value); err != nil {
		return value, false, fmt.Errorf("accountdata: decoding %s: %w", s.eventType, err)
	}
	return value, true, nil
}

// Save encodes and upserts the document. The write is a single
// statement, so a failure leaves the previous row intact.
func (s *SQLiteStore[T]) Save(ctx context.Context, value T) error {
	content, err := codec.Marshal(value)
	if err != nil {
		return fmt.Errorf("accountdata: encoding %s: %w", s.eventType, err)
	}
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("accountdata: saving %s: %w", s.eventType, err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		"INSERT INTO account_data (event_type, content) VALUES (?, ?) ON CONFLICT(event_type) DO UPDATE SET content = excluded.content",
		&sqlitex.ExecOptions{Args: []any{s.eventType.String(), content}})
	if err != nil {
		return fmt.Errorf("accountdata: saving %s: %w", s.eventType, err)
	}
	return nil
}
