package storage

import (
	"context"
	"fmt"
)

// Quota rejects values larger than a fixed byte budget, the way browser
// storage rejects writes once its per-origin allowance is used up.
type Quota struct {
	Storage
	max int64
}

// WithQuota wraps s so that Set fails with ErrQuotaExceeded for values over max bytes.
func WithQuota(s Storage, max int64) *Quota {
	return &Quota{Storage: s, max: max}
}

func (q *Quota) Set(ctx context.Context, key string, value []byte) error {
	if int64(len(value)) > q.max {
		return fmt.Errorf("%w: %d bytes over limit of %d", ErrQuotaExceeded, len(value), q.max)
	}
	return q.Storage.Set(ctx, key, value)
}
