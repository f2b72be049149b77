package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/balance-validator/internal/storage"
	"github.com/jonathan/balance-validator/internal/types"
)

func testResult() *types.ValidationResult {
	return &types.ValidationResult{
		Summary: types.AuditSummary{
			Status:        types.StatusApproved,
			Conclusion:    "Sin observaciones",
			Confidence:    types.ConfidenceHigh,
			CompanyName:   "ACME S.A.",
			TaxID:         "30-11111111-1",
			PeriodEndDate: "31/12/2023",
		},
		Items: []types.ChecklistItem{
			{ID: "3.1.I.b", Text: "PN = EEPN", CurrentStatus: types.CheckOK, PriorStatus: types.CheckOK},
			{ID: "1", Text: "Tipeado", CurrentStatus: types.CheckNotApplicable, PriorStatus: types.CheckError, Notes: "n/a"},
		},
	}
}

func testEntry(i int, pdfSize int) types.HistoryEntry {
	return types.HistoryEntry{
		ID:             fmt.Sprintf("entry-%02d", i),
		FileName:       fmt.Sprintf("balance-%02d.pdf", i),
		PDFData:        types.EncodePDF([]byte(strings.Repeat("x", pdfSize))),
		Result:         *testResult(),
		ProcessingTime: 1.5,
		CreatedAt:      time.Date(2024, 6, 30, 12, 0, i, 0, time.UTC),
	}
}

func ids(entries []types.HistoryEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestStore_AppendInsertsAtHead(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemory(), nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Append(ctx, testEntry(i, 4)))
		entries, err := s.List(ctx)
		require.NoError(t, err)
		assert.Len(t, entries, i+1)
		assert.Equal(t, fmt.Sprintf("entry-%02d", i), entries[0].ID)
	}

	entries, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"entry-02", "entry-01", "entry-00"}, ids(entries))
}

func TestStore_CapKeepsMostRecent(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemory(), nil)

	for i := 0; i < 60; i++ {
		before, err := s.List(ctx)
		require.NoError(t, err)

		require.NoError(t, s.Append(ctx, testEntry(i, 1)))

		after, err := s.List(ctx)
		require.NoError(t, err)
		assert.Len(t, after, min(len(before)+1, MaxEntries))
	}

	entries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, MaxEntries)
	for i, e := range entries {
		assert.Equal(t, fmt.Sprintf("entry-%02d", 59-i), e.ID)
	}
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemory(), nil)

	result := testResult()
	added, err := s.Add(ctx, "balance.pdf", []byte("%PDF-1.7"), result, 2500*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 2.5, added.ProcessingTime)

	got, err := s.Get(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, *result, got.Result)
	assert.Equal(t, added, got)

	pdf, err := got.DecodePDF()
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7"), pdf)

	_, err = s.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_AddCopiesResult(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemory(), nil)

	result := testResult()
	added, err := s.Add(ctx, "a.pdf", nil, result, time.Second)
	require.NoError(t, err)
	result.Items[0].Notes = "edited later"

	got, err := s.Get(ctx, added.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Result.Items[0].Notes)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemory(), nil)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Append(ctx, testEntry(i, 1)))
	}

	require.NoError(t, s.Delete(ctx, "entry-01"))
	require.NoError(t, s.Delete(ctx, "missing"))

	entries, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"entry-02", "entry-00"}, ids(entries))
}

func TestStore_ClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemory(), nil)
	require.NoError(t, s.Append(ctx, testEntry(0, 1)))

	for i := 0; i < 2; i++ {
		require.NoError(t, s.Clear(ctx))
		entries, err := s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, entries)
	}
}

func TestStore_MalformedBlobIsEmpty(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	require.NoError(t, mem.Set(ctx, StorageKey, []byte(`{not json`)))

	s := NewStore(mem, nil)
	entries, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Appending replaces the unreadable blob.
	require.NoError(t, s.Append(ctx, testEntry(1, 1)))
	entries, err = s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"entry-01"}, ids(entries))
}

func seed(t *testing.T, s storage.Storage, n, pdfSize int) {
	t.Helper()
	entries := make([]types.HistoryEntry, 0, n)
	for i := n - 1; i >= 0; i-- {
		entries = append(entries, testEntry(i, pdfSize))
	}
	data, err := json.Marshal(entries)
	require.NoError(t, err)
	require.NoError(t, s.Set(context.Background(), StorageKey, data))
}

func TestStore_QuotaRecovery(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	seed(t, mem, 30, 1000)

	// Thirty entries do not fit, eleven do.
	s := NewStore(storage.WithQuota(mem, 30_000), nil)
	require.NoError(t, s.Append(ctx, testEntry(99, 1000)))

	entries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, RecoveryKeep+1)
	assert.Equal(t, "entry-99", entries[0].ID)
	assert.Equal(t, "entry-29", entries[1].ID)
	assert.Equal(t, "entry-20", entries[RecoveryKeep].ID)
}

func TestStore_QuotaRecoveryFailsDropsEntry(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	seed(t, mem, 2, 1000)

	s := NewStore(storage.WithQuota(mem, 100), nil)
	err := s.Append(ctx, testEntry(99, 1000))

	var perr *PersistError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, storage.ErrQuotaExceeded)

	entries, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"entry-01", "entry-00"}, ids(entries))
}

type failingStorage struct {
	storage.Storage
	sets int
}

func (f *failingStorage) Set(context.Context, string, []byte) error {
	f.sets++
	return errors.New("disk on fire")
}

func TestStore_NonQuotaFailureSkipsRecovery(t *testing.T) {
	fs := &failingStorage{Storage: storage.NewMemory()}
	s := NewStore(fs, nil)

	err := s.Append(context.Background(), testEntry(0, 1))
	var perr *PersistError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "append", perr.Op)
	assert.Equal(t, 1, fs.sets)
}

func TestNewID(t *testing.T) {
	now := time.UnixMilli(1719748800123)
	a, b := NewID(now), NewID(now)
	assert.True(t, strings.HasPrefix(a, "1719748800123-"))
	assert.Len(t, a, len("1719748800123-")+9)
	assert.NotEqual(t, a, b)
}
