package server

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/balance-validator/internal/server/ratelimit"
	"github.com/jonathan/balance-validator/internal/types"
	"github.com/jonathan/balance-validator/internal/workflow"
)

func TestPage_Upload(t *testing.T) {
	ts := newTestServer(t, nil, ratelimit.DefaultConfig())

	w := ts.do(httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, "<h2>Analizar balance</h2>")
	assert.Contains(t, body, `enctype="multipart/form-data"`)
	assert.NotContains(t, body, "Ya hay un análisis en curso.")
}

func TestPage_UploadFormRedirectsAndShowsResults(t *testing.T) {
	ts := newTestServer(t, nil, ratelimit.DefaultConfig())

	w := ts.do(uploadRequest(t, "/analyze", "balance.pdf", types.PDFMIMEType, testPDF))
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	ts.ctrl.Wait()

	w = ts.do(httptest.NewRequest(http.MethodGet, "/", nil))
	body := w.Body.String()
	assert.Contains(t, body, "Resultados de Validación")
	assert.Contains(t, body, "EMPRESA MODELO")
	assert.Contains(t, body, "Mostrando 1-10 de 11")
	assert.Contains(t, body, `href="/?page=2"`)
	assert.NotContains(t, body, "6. Verificación pase a libros rubricados")

	w = ts.do(httptest.NewRequest(http.MethodGet, "/?page=2", nil))
	body = w.Body.String()
	assert.Contains(t, body, "Mostrando 11-11 de 11")
	assert.Contains(t, body, "6. Verificación pase a libros rubricados")
	assert.Contains(t, body, `href="/?page=1"`)

	// Out of range pages clamp to the last one.
	w = ts.do(httptest.NewRequest(http.MethodGet, "/?page=9", nil))
	assert.Contains(t, w.Body.String(), "página 2 de 2")
}

func TestPage_UploadFormRejectsNonPDF(t *testing.T) {
	ts := newTestServer(t, nil, ratelimit.DefaultConfig())

	w := ts.do(uploadRequest(t, "/analyze", "notas.txt", "text/plain", []byte("hola")))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), workflow.MsgNotPDF)
}

func TestPage_ProcessingDisablesUpload(t *testing.T) {
	a := &blockingAnalyzer{release: make(chan struct{})}
	ts := newTestServer(t, a, ratelimit.DefaultConfig())
	defer func() {
		close(a.release)
		ts.ctrl.Wait()
	}()

	w := ts.do(uploadRequest(t, "/analyze", "balance.pdf", types.PDFMIMEType, testPDF))
	require.Equal(t, http.StatusSeeOther, w.Code)

	w = ts.do(httptest.NewRequest(http.MethodGet, "/", nil))
	body := w.Body.String()
	assert.Contains(t, body, "Procesando...")
	assert.Contains(t, body, `new EventSource("/api/events")`)

	require.NoError(t, ts.ctrl.Navigate(workflow.ScreenUpload))
	w = ts.do(httptest.NewRequest(http.MethodGet, "/", nil))
	body = w.Body.String()
	assert.Contains(t, body, "Ya hay un análisis en curso.")
	assert.Contains(t, body, `required disabled`)
}

func TestPage_History(t *testing.T) {
	ts := newTestServer(t, nil, ratelimit.DefaultConfig())
	require.NoError(t, ts.ctrl.Navigate(workflow.ScreenHistory))

	w := ts.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, w.Body.String(), "No hay validaciones previas.")

	w = ts.do(uploadRequest(t, "/analyze", "balance.pdf", types.PDFMIMEType, testPDF))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), workflow.MsgNotOnUpload)
	assert.Equal(t, workflow.ScreenHistory, ts.ctrl.Snapshot().Screen)

	w = ts.do(httptest.NewRequest(http.MethodPost, "/navigate/upload", nil))
	require.Equal(t, http.StatusSeeOther, w.Code)
	entry := ts.analyze(t)
	w = ts.do(httptest.NewRequest(http.MethodPost, "/navigate/history", nil))
	require.Equal(t, http.StatusSeeOther, w.Code)

	w = ts.do(httptest.NewRequest(http.MethodGet, "/", nil))
	body := w.Body.String()
	assert.Contains(t, body, "1 registro")
	assert.Contains(t, body, "balance.pdf")
	assert.Contains(t, body, "Observado")
	assert.Contains(t, body, "/api/history/"+entry.ID+"/export")

	w = ts.do(httptest.NewRequest(http.MethodPost, "/history/"+entry.ID+"/open", nil))
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, entry.ID, ts.ctrl.Snapshot().EntryID)

	w = ts.do(httptest.NewRequest(http.MethodPost, "/history/"+entry.ID+"/delete", nil))
	require.Equal(t, http.StatusSeeOther, w.Code)
	w = ts.do(httptest.NewRequest(http.MethodPost, "/history/"+url.PathEscape(entry.ID)+"/open", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "El registro no existe.")
}

func TestPage_NavigateFormError(t *testing.T) {
	ts := newTestServer(t, nil, ratelimit.DefaultConfig())

	w := ts.do(httptest.NewRequest(http.MethodPost, "/navigate/results", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `role="alert"`))
}
