package workflow

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jonathan/balance-validator/internal/analysis"
	"github.com/jonathan/balance-validator/internal/history"
	"github.com/jonathan/balance-validator/internal/storage"
	"github.com/jonathan/balance-validator/internal/types"
)

// The Google API transport linked in through the analysis package starts an
// opencensus stats worker at init that never exits.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

type fakeAnalyzer struct {
	calls   int
	result  *types.ValidationResult
	err     error
	release chan struct{}
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, _ analysis.Document) (*types.ValidationResult, error) {
	f.calls++
	if f.release != nil {
		<-f.release
	}
	return f.result, f.err
}

func pdfDoc() analysis.Document {
	return analysis.Document{Name: "balance.pdf", MIMEType: types.PDFMIMEType, Data: []byte("%PDF-1.4")}
}

func newStore() *history.Store {
	return history.NewStore(storage.NewMemory(), nil)
}

func TestSubmit_RejectsNonPDFBeforeAnalysis(t *testing.T) {
	for _, mime := range []string{"image/png", "", "application/octet-stream", "text/plain"} {
		a := &fakeAnalyzer{result: analysis.ExampleResult()}
		c := New(a, nil, nil)

		state, err := c.Submit(context.Background(), analysis.Document{Name: "foto.png", MIMEType: mime})
		var ierr *InputError
		require.ErrorAs(t, err, &ierr)
		assert.Equal(t, MsgNotPDF, ierr.Message)
		assert.Equal(t, 0, a.calls)
		assert.Equal(t, ScreenUpload, state.Screen)
		assert.Equal(t, MsgNotPDF, state.Error)
		assert.Nil(t, state.Result)
	}
}

func TestSubmit_AcceptsPDFWithParameters(t *testing.T) {
	a := &fakeAnalyzer{result: analysis.ExampleResult()}
	c := New(a, nil, nil)

	doc := pdfDoc()
	doc.MIMEType = "Application/PDF; charset=binary"
	_, err := c.Submit(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, 1, a.calls)
}

func TestSubmit_FixtureScenario(t *testing.T) {
	store := newStore()
	c := New(analysis.NewFixtureClient(), store, nil)

	state, err := c.Submit(context.Background(), pdfDoc())
	require.NoError(t, err)
	c.Wait()

	assert.Equal(t, ScreenResults, state.Screen)
	assert.Equal(t, "balance.pdf", state.FileName)
	assert.Empty(t, state.Error)
	require.NotNil(t, state.Result)
	assert.Equal(t, types.StatusFlagged, state.Result.Summary.Status)
	require.Len(t, state.Result.Items, 11)
	assert.Equal(t, "2", state.Result.Items[1].ID)
	assert.Equal(t, types.CheckError, state.Result.Items[1].CurrentStatus)

	entries, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "balance.pdf", entries[0].FileName)
	assert.Equal(t, *state.Result, entries[0].Result)
	pdf, err := entries[0].DecodePDF()
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), pdf)
}

func TestSubmit_NetworkFailureReturnsToUpload(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	store := newStore()
	c := New(analysis.NewHTTPClient(url, nil, nil), store, nil)

	state, err := c.Submit(context.Background(), pdfDoc())
	require.Error(t, err)
	c.Wait()

	assert.Equal(t, ScreenUpload, state.Screen)
	assert.Equal(t, analysis.MsgConnection, state.Error)
	assert.Nil(t, state.Result)
	assert.Equal(t, state, c.Snapshot())

	entries, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSubmit_UnexpectedErrorIsCollapsed(t *testing.T) {
	a := &fakeAnalyzer{err: errors.New("panic: secret internal detail")}
	c := New(a, nil, nil)

	state, err := c.Submit(context.Background(), pdfDoc())
	require.Error(t, err)
	assert.Equal(t, analysis.MsgUnexpected, state.Error)
	assert.NotContains(t, err.Error(), "secret")
}

func TestSubmit_NilResultIsUnexpected(t *testing.T) {
	c := New(&fakeAnalyzer{}, nil, nil)
	state, err := c.Submit(context.Background(), pdfDoc())
	require.Error(t, err)
	assert.Equal(t, ScreenUpload, state.Screen)
	assert.Equal(t, analysis.MsgUnexpected, state.Error)
}

func TestSubmit_BusyWhileProcessing(t *testing.T) {
	a := &fakeAnalyzer{result: analysis.ExampleResult(), release: make(chan struct{})}
	c := New(a, nil, nil)

	require.NoError(t, c.SubmitAsync(context.Background(), pdfDoc()))
	assert.Equal(t, ScreenProcessing, c.Snapshot().Screen)
	assert.True(t, c.Busy())

	_, err := c.Submit(context.Background(), pdfDoc())
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, c.SubmitAsync(context.Background(), pdfDoc()), ErrBusy)

	close(a.release)
	c.Wait()
	assert.False(t, c.Busy())
	assert.Equal(t, ScreenResults, c.Snapshot().Screen)
	assert.Equal(t, 1, a.calls)
}

func TestSubmit_OnlyFromUploadScreen(t *testing.T) {
	a := &fakeAnalyzer{result: analysis.ExampleResult()}
	c := New(a, nil, nil)
	_, err := c.Submit(context.Background(), pdfDoc())
	require.NoError(t, err)

	for _, screen := range []Screen{ScreenResults, ScreenHistory} {
		require.NoError(t, c.Navigate(screen))
		before := c.Snapshot()

		state, err := c.Submit(context.Background(), pdfDoc())
		var ierr *InputError
		require.ErrorAs(t, err, &ierr, screen)
		assert.Equal(t, MsgNotOnUpload, ierr.Message)
		assert.Equal(t, before, state)
		assert.Equal(t, before, c.Snapshot())
		assert.False(t, c.Busy())
	}
	assert.Equal(t, 1, a.calls)

	require.NoError(t, c.Navigate(ScreenUpload))
	_, err = c.Submit(context.Background(), pdfDoc())
	require.NoError(t, err)
	assert.Equal(t, 2, a.calls)
}

func TestSubmit_HistoryFailureDoesNotFailTransition(t *testing.T) {
	full := history.NewStore(storage.WithQuota(storage.NewMemory(), 10), nil)
	c := New(analysis.NewFixtureClient(), full, nil)

	state, err := c.Submit(context.Background(), pdfDoc())
	require.NoError(t, err)
	c.Wait()
	assert.Equal(t, ScreenResults, state.Screen)
}

func TestNavigate(t *testing.T) {
	c := New(analysis.NewFixtureClient(), nil, nil)
	_, err := c.Submit(context.Background(), pdfDoc())
	require.NoError(t, err)

	require.NoError(t, c.Navigate(ScreenHistory))
	s := c.Snapshot()
	assert.Equal(t, ScreenHistory, s.Screen)
	assert.Equal(t, "balance.pdf", s.FileName)
	assert.Nil(t, s.Result)

	// The result is still there when coming back.
	require.NoError(t, c.Navigate(ScreenResults))
	s = c.Snapshot()
	require.NotNil(t, s.Result)
	assert.Equal(t, "balance.pdf", s.FileName)

	require.NoError(t, c.Navigate(ScreenUpload))
	assert.Equal(t, State{Screen: ScreenUpload}, c.Snapshot())

	var ierr *InputError
	assert.ErrorAs(t, c.Navigate(ScreenResults), &ierr)
	assert.ErrorAs(t, c.Navigate(ScreenProcessing), &ierr)
	assert.ErrorAs(t, c.Navigate(Screen("settings")), &ierr)
}

func TestNavigate_UploadClearsFailureError(t *testing.T) {
	c := New(&fakeAnalyzer{err: errors.New("boom")}, nil, nil)
	_, err := c.Submit(context.Background(), pdfDoc())
	require.Error(t, err)
	assert.NotEmpty(t, c.Snapshot().Error)

	require.NoError(t, c.Navigate(ScreenHistory))
	require.NoError(t, c.Navigate(ScreenUpload))
	assert.Empty(t, c.Snapshot().Error)
}

func TestSelectEntry_NoAnalysis(t *testing.T) {
	a := &fakeAnalyzer{}
	c := New(a, nil, nil)
	require.NoError(t, c.Navigate(ScreenHistory))

	entry := types.HistoryEntry{
		ID:             "1719748800000-abcdefghi",
		FileName:       "anterior.pdf",
		Result:         *analysis.ExampleResult(),
		ProcessingTime: 4.2,
		CreatedAt:      time.Now(),
	}
	c.SelectEntry(entry)

	s := c.Snapshot()
	assert.Equal(t, ScreenResults, s.Screen)
	assert.Equal(t, "anterior.pdf", s.FileName)
	require.NotNil(t, s.Result)
	assert.Equal(t, entry.Result, *s.Result)
	assert.Equal(t, entry.ID, s.EntryID)
	assert.Equal(t, 0, a.calls)
}

func TestSnapshot_IsIndependent(t *testing.T) {
	c := New(analysis.NewFixtureClient(), nil, nil)
	_, err := c.Submit(context.Background(), pdfDoc())
	require.NoError(t, err)

	s := c.Snapshot()
	s.Result.Items[0].Notes = "changed"
	assert.NotEqual(t, "changed", c.Snapshot().Result.Items[0].Notes)
}

func TestSubscribe(t *testing.T) {
	a := &fakeAnalyzer{result: analysis.ExampleResult(), release: make(chan struct{})}
	c := New(a, nil, nil)

	updates, cancel := c.Subscribe()
	defer cancel()

	require.NoError(t, c.SubmitAsync(context.Background(), pdfDoc()))
	assert.Equal(t, ScreenProcessing, (<-updates).Screen)

	close(a.release)
	select {
	case s := <-updates:
		assert.Equal(t, ScreenResults, s.Screen)
		assert.NotNil(t, s.Result)
	case <-time.After(5 * time.Second):
		t.Fatal("no update after analysis finished")
	}
	c.Wait()

	cancel()
	_, open := <-updates
	assert.False(t, open)
}

func TestSubscribe_SlowReaderGetsLatest(t *testing.T) {
	c := New(analysis.NewFixtureClient(), nil, nil)
	updates, cancel := c.Subscribe()
	defer cancel()

	require.NoError(t, c.Navigate(ScreenHistory))
	require.NoError(t, c.Navigate(ScreenUpload))
	require.NoError(t, c.Navigate(ScreenHistory))

	assert.Equal(t, ScreenHistory, (<-updates).Screen)
	select {
	case s := <-updates:
		t.Fatalf("unexpected extra update %v", s.Screen)
	default:
	}
}

func TestScreen_Title(t *testing.T) {
	assert.Equal(t, "Analizar balance", ScreenUpload.Title())
	assert.Equal(t, "Procesando...", ScreenProcessing.Title())
	assert.Equal(t, "Resultados de Validación", ScreenResults.Title())
	assert.Equal(t, "Historial", ScreenHistory.Title())
}
