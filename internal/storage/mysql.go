package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

const mysqlSchema = `CREATE TABLE IF NOT EXISTS kv_store (
	k VARCHAR(191) NOT NULL PRIMARY KEY,
	v LONGBLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
) CHARACTER SET utf8mb4`

// MySQL error numbers that mean the value cannot be stored for lack of space.
const (
	mysqlErrDiskFull       = 1021
	mysqlErrPacketTooLarge = 1153
	mysqlErrRecordFileFull = 1114
	mysqlErrTooBigRowsize  = 1118
)

// OpenMySQL connects to MySQL using dsn and prepares the kv table.
func OpenMySQL(ctx context.Context, dsn string) (Storage, error) {
	if dsn == "" {
		return nil, fmt.Errorf("mysql storage requires a DSN")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("failed to ping mysql: %w", err)
	}
	if _, err := db.ExecContext(ctx, mysqlSchema); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}

	return &sqlStore{
		db:      db,
		upsert:  `INSERT INTO kv_store (k, v) VALUES (?, ?) ON DUPLICATE KEY UPDATE v = VALUES(v)`,
		isQuota: isMySQLFull,
	}, nil
}

func isMySQLFull(err error) bool {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return false
	}
	switch myErr.Number {
	case mysqlErrDiskFull, mysqlErrPacketTooLarge, mysqlErrRecordFileFull, mysqlErrTooBigRowsize:
		return true
	}
	return false
}
