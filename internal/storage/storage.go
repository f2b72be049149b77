// Package storage provides key/value persistence for small JSON blobs.
// Backends range from an in-memory map for tests to SQL databases and object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrQuotaExceeded is returned by Set when the backend has no room for the value.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Storage is a keyed blob store. Get returns (nil, nil) for a missing key.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMySQL    = "mysql"
	BackendMinIO    = "minio"
)

// Options selects and configures a backend.
type Options struct {
	Backend    string
	Path       string // file directory or SQLite database path
	DSN        string // PostgreSQL or MySQL connection string
	QuotaBytes int64  // 0 disables the size limit
	MinIO      MinIOOptions
}

// MinIOOptions configures the object storage backend.
type MinIOOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// Open creates the backend described by opts, wrapped with a quota when one is set.
func Open(ctx context.Context, opts Options) (Storage, error) {
	var (
		s   Storage
		err error
	)

	switch opts.Backend {
	case BackendMemory, "":
		s = NewMemory()
	case BackendFile:
		s, err = NewFile(opts.Path)
	case BackendSQLite:
		s, err = OpenSQLite(ctx, opts.Path)
	case BackendPostgres:
		s, err = OpenPostgres(ctx, opts.DSN)
	case BackendMySQL:
		s, err = OpenMySQL(ctx, opts.DSN)
	case BackendMinIO:
		s, err = OpenMinIO(ctx, opts.MinIO)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
	if err != nil {
		return nil, err
	}

	if opts.QuotaBytes > 0 {
		s = WithQuota(s, opts.QuotaBytes)
	}
	return s, nil
}
