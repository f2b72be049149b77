package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/balance-validator/internal/types"
)

func testDocument() Document {
	return Document{Name: "balance.pdf", MIMEType: types.PDFMIMEType, Data: []byte("%PDF-1.4 fake")}
}

func requireAnalysisError(t *testing.T, err error) *Error {
	t.Helper()
	require.Error(t, err)
	var aerr *Error
	require.True(t, errors.As(err, &aerr), "error should be *analysis.Error, got %T", err)
	return aerr
}

func TestHTTPClient_Success(t *testing.T) {
	var gotField, gotName, gotType string
	var gotData []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, AnalyzePath, r.URL.Path)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		for field, files := range r.MultipartForm.File {
			gotField = field
			gotName = files[0].Filename
			gotType = files[0].Header.Get("Content-Type")
			f, err := files[0].Open()
			require.NoError(t, err)
			gotData, _ = io.ReadAll(f)
		}

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(ExampleResult()))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL+"/", srv.Client(), nil)
	result, err := c.Analyze(context.Background(), testDocument())
	require.NoError(t, err)

	assert.Equal(t, FormField, gotField)
	assert.Equal(t, "balance.pdf", gotName)
	assert.Equal(t, types.PDFMIMEType, gotType)
	assert.Equal(t, []byte("%PDF-1.4 fake"), gotData)
	assert.Equal(t, ExampleResult(), result)
}

func TestHTTPClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr Kind
	}{
		{"rate limited", 429, `{"message":"quota for project exhausted"}`, MsgRateLimited, KindRateLimited},
		{"unauthorized", 401, `{"error":"invalid key sk-123"}`, MsgAuth, KindAuth},
		{"forbidden", 403, `{"message":"forbidden"}`, MsgAuth, KindAuth},
		{"unavailable with message", 503, `{"message":"Servicio en mantenimiento"}`, "Servicio en mantenimiento", KindUnavailable},
		{"unavailable with error field", 503, `{"error":"Mantenimiento programado"}`, "Mantenimiento programado", KindUnavailable},
		{"unavailable without body", 503, ``, MsgUnavailable, KindUnavailable},
		{"unavailable with html", 503, `<html>nginx</html>`, MsgUnavailable, KindUnavailable},
		{"internal error", 500, `{"message":"panic: nil pointer at analyze.go:42"}`, MsgGeneric, KindGeneric},
		{"bad request", 400, `{"error":"missing pdf"}`, MsgGeneric, KindGeneric},
		{"bad gateway", 502, `upstream connect error`, MsgGeneric, KindGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewHTTPClient(srv.URL, srv.Client(), nil).Analyze(context.Background(), testDocument())
			aerr := requireAnalysisError(t, err)
			assert.Equal(t, tt.want, err.Error())
			assert.Equal(t, tt.wantErr, aerr.Kind)
			if tt.status != 503 && tt.body != "" {
				assert.NotContains(t, err.Error(), tt.body)
			}
		})
	}
}

func TestHTTPClient_LongUpstreamMessageIsNotShown(t *testing.T) {
	long := strings.Repeat("x", 500)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": long})
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL, srv.Client(), nil).Analyze(context.Background(), testDocument())
	require.Error(t, err)
	assert.Equal(t, MsgUnavailable, err.Error())
}

func TestHTTPClient_MalformedBody(t *testing.T) {
	bodies := []string{
		`not json`,
		`{"resumen_auditoria": {}}`,
		`{"resumen_auditoria": {"status_global": "APROBADO", "conclusion_ia": "", "confianza_analisis": "Alto"}, "checklist_data": [{"id": "1", "item_text": "", "estado_actual": "MAYBE", "estado_anterior": "OK"}]}`,
	}
	for _, body := range bodies {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(body))
		}))

		_, err := NewHTTPClient(srv.URL, srv.Client(), nil).Analyze(context.Background(), testDocument())
		aerr := requireAnalysisError(t, err)
		assert.Equal(t, KindGeneric, aerr.Kind)
		assert.Equal(t, MsgGeneric, err.Error())
		srv.Close()
	}
}

func TestHTTPClient_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPClient(url, nil, nil).Analyze(context.Background(), testDocument())
	aerr := requireAnalysisError(t, err)
	assert.Equal(t, KindConnection, aerr.Kind)
	assert.Equal(t, MsgConnection, err.Error())
}

func TestHTTPClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := &http.Client{Timeout: 50 * time.Millisecond}
	_, err := NewHTTPClient(srv.URL, client, nil).Analyze(context.Background(), testDocument())
	aerr := requireAnalysisError(t, err)
	assert.Equal(t, KindTimeout, aerr.Kind)
	assert.Equal(t, MsgTimeout, err.Error())
}

func TestHTTPClient_SingleRequest(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL, srv.Client(), nil).Analyze(context.Background(), testDocument())
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
