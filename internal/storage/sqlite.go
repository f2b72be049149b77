package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS kv_store (
	k TEXT PRIMARY KEY,
	v BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// OpenSQLite opens (or creates) a SQLite database at path and prepares the kv table.
func OpenSQLite(ctx context.Context, path string) (Storage, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite storage requires a database path")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// Single writer avoids SQLITE_BUSY under concurrent requests.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA busy_timeout = 5000`,
		sqliteSchema,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close() //nolint:errcheck
			return nil, fmt.Errorf("failed to initialize sqlite database: %w", err)
		}
	}

	return &sqlStore{
		db: db,
		upsert: `INSERT INTO kv_store (k, v, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(k) DO UPDATE SET v = excluded.v, updated_at = excluded.updated_at`,
		isQuota: isSQLiteFull,
	}, nil
}

func isSQLiteFull(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code() & 0xff
	return code == sqlite3.SQLITE_FULL || code == sqlite3.SQLITE_TOOBIG
}
