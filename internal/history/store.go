// Package history keeps the most recent analysis runs in a single persisted
// blob: a JSON array of entries, most recent first, capped at MaxEntries.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/balance-validator/internal/logging"
	"github.com/jonathan/balance-validator/internal/storage"
	"github.com/jonathan/balance-validator/internal/types"
)

const (
	// StorageKey is the key holding the serialized entry list.
	StorageKey = "cpcen_validation_history"
	// MaxEntries caps the stored list; older entries fall off the tail.
	MaxEntries = 50
	// RecoveryKeep is how many entries survive when the backend runs out of space.
	RecoveryKeep = 10
)

// Store is the history log. All methods are safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	storage storage.Storage
	logger  *zap.Logger
	now     func() time.Time
}

// NewStore creates a store persisting to s.
func NewStore(s storage.Storage, logger *zap.Logger) *Store {
	return &Store{
		storage: s,
		logger:  logging.OrNop(logger),
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// NewID returns a timestamp-prefixed identifier with a short random suffix.
// Uniqueness is best effort.
func NewID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%d-%s", now.UnixMilli(), suffix)
}

// Add builds an entry for a completed analysis and appends it. The entry is
// returned even when it could not be persisted.
func (s *Store) Add(ctx context.Context, fileName string, pdf []byte, result *types.ValidationResult, elapsed time.Duration) (types.HistoryEntry, error) {
	now := s.now()
	entry := types.HistoryEntry{
		ID:             NewID(now),
		FileName:       fileName,
		PDFData:        types.EncodePDF(pdf),
		ProcessingTime: elapsed.Seconds(),
		CreatedAt:      now,
	}
	if result != nil {
		entry.Result = *result.Clone()
	}
	return entry, s.Append(ctx, entry)
}

// Append inserts entry at the head of the list and truncates to MaxEntries.
// When the backend reports it is full, the stored list is cut to the
// RecoveryKeep most recent entries and the write is retried once.
func (s *Store) Append(ctx context.Context, entry types.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx)
	if err != nil {
		return &PersistError{Op: "append", Cause: err}
	}

	err = s.save(ctx, prepend(entry, entries))
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrQuotaExceeded) {
		s.logger.Error("failed to save history", zap.String("entry_id", entry.ID), zap.Error(err))
		return &PersistError{Op: "append", Cause: err}
	}

	s.logger.Warn("history storage full, keeping only the most recent entries",
		zap.Int("kept", min(RecoveryKeep, len(entries))),
		zap.Int("stored", len(entries)),
		zap.Error(err),
	)
	if err := s.save(ctx, entries[:min(RecoveryKeep, len(entries))]); err != nil {
		s.logger.Error("failed to trim history", zap.Error(err))
	}

	entries, err = s.load(ctx)
	if err == nil {
		err = s.save(ctx, prepend(entry, entries))
	}
	if err != nil {
		s.logger.Error("failed to save history after trimming, entry dropped",
			zap.String("entry_id", entry.ID), zap.Error(err))
		return &PersistError{Op: "append", Cause: err}
	}
	return nil
}

// List returns all entries, most recent first. Unreadable stored data yields
// an empty list; only a failing backend is an error.
func (s *Store) List(ctx context.Context) ([]types.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Get returns the entry with the given ID, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (types.HistoryEntry, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return types.HistoryEntry{}, err
	}
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return types.HistoryEntry{}, ErrNotFound
}

// Delete removes the entry with the given ID. A missing ID is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx)
	if err != nil {
		return err
	}

	kept := make([]types.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(entries) {
		return nil
	}
	if err := s.save(ctx, kept); err != nil {
		s.logger.Error("failed to delete history entry", zap.String("entry_id", id), zap.Error(err))
		return &PersistError{Op: "delete", Cause: err}
	}
	return nil
}

// Clear removes every entry.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Delete(ctx, StorageKey); err != nil {
		s.logger.Error("failed to clear history", zap.Error(err))
		return &PersistError{Op: "clear", Cause: err}
	}
	return nil
}

func (s *Store) load(ctx context.Context) ([]types.HistoryEntry, error) {
	data, err := s.storage.Get(ctx, StorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return decodeEntries(data, s.logger), nil
}

func (s *Store) save(ctx context.Context, entries []types.HistoryEntry) error {
	if entries == nil {
		entries = []types.HistoryEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	return s.storage.Set(ctx, StorageKey, data)
}

func prepend(entry types.HistoryEntry, entries []types.HistoryEntry) []types.HistoryEntry {
	out := make([]types.HistoryEntry, 0, min(len(entries)+1, MaxEntries))
	out = append(out, entry)
	for _, e := range entries {
		if len(out) == MaxEntries {
			break
		}
		out = append(out, e)
	}
	return out
}
