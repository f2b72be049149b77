package server

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jonathan/balance-validator/internal/analysis"
	"github.com/jonathan/balance-validator/internal/export"
	"github.com/jonathan/balance-validator/internal/types"
	"github.com/jonathan/balance-validator/internal/workflow"
)

// sseKeepAlive is the interval between keep-alive comments on /api/events.
const sseKeepAlive = 15 * time.Second

// HistorySummary is a history entry without the stored PDF.
type HistorySummary struct {
	ID             string                `json:"id"`
	FileName       string                `json:"fileName"`
	Status         types.GlobalStatus    `json:"status"`
	Confidence     types.Confidence      `json:"confidence"`
	CompanyName    string                `json:"empresa,omitempty"`
	Counts         types.ChecklistCounts `json:"counts"`
	ProcessingTime float64               `json:"processingTime"`
	CreatedAt      time.Time             `json:"createdAt"`
}

func summarize(e types.HistoryEntry) HistorySummary {
	return HistorySummary{
		ID:             e.ID,
		FileName:       e.FileName,
		Status:         e.Result.Summary.Status,
		Confidence:     e.Result.Summary.Confidence,
		CompanyName:    e.Result.Summary.CompanyName,
		Counts:         e.Result.Counts(),
		ProcessingTime: e.ProcessingTime,
		CreatedAt:      e.CreatedAt,
	}
}

// readUpload extracts the "pdf" part of a multipart request.
func readUpload(w http.ResponseWriter, r *http.Request) (analysis.Document, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile(analysis.FormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return analysis.Document{}, &ErrValidation{Field: analysis.FormField, Message: "El archivo es demasiado grande."}
		}
		return analysis.Document{}, &ErrValidation{Field: analysis.FormField, Message: workflow.MsgNotPDF}
	}
	defer file.Close() //nolint:errcheck

	data, err := io.ReadAll(file)
	if err != nil {
		return analysis.Document{}, &ErrValidation{Field: analysis.FormField, Message: "No se pudo leer el archivo."}
	}
	return analysis.Document{
		Name:     header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

// handleAnalyze accepts a PDF and starts the analysis in the background.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	doc, err := readUpload(w, r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if err := s.controller.SubmitAsync(r.Context(), doc); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.logger.Info("analysis started",
		zap.String("request_id", RequestID(r.Context())),
		zap.String("file", doc.Name),
		zap.Int("bytes", len(doc.Data)),
	)
	s.jsonResponse(w, http.StatusAccepted, s.controller.Snapshot())
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.controller.Snapshot())
}

// handleEvents streams every state change as a "state" event, starting with
// the current one.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	updates, cancel := s.controller.Subscribe()
	defer cancel()

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if err := sse.WriteEvent("state", s.controller.Snapshot()); err != nil {
		return
	}

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.closing:
			return
		case st, ok := <-updates:
			if !ok {
				return
			}
			if err := sse.WriteEvent("state", st); err != nil {
				s.logger.Debug("event stream closed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := sse.WriteComment("keep-alive"); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	screen := workflow.Screen(chi.URLParam(r, "screen"))
	if err := s.controller.Navigate(screen); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, s.controller.Snapshot())
}

// handleExportCurrent downloads the result on screen as a workbook.
func (s *Server) handleExportCurrent(w http.ResponseWriter, r *http.Request) {
	st := s.controller.Snapshot()
	if st.Screen != workflow.ScreenResults || st.Result == nil {
		s.errorResponse(w, r, ErrNoResult)
		return
	}
	s.writeWorkbook(w, r, st.Result, st.FileName)
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.history.List(r.Context())
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	out := make([]HistorySummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, summarize(e))
	}
	s.jsonResponse(w, http.StatusOK, out)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.history.Clear(r.Context()); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.history.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, entry)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.history.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleOpenEntry shows a past result on the results screen.
func (s *Server) handleOpenEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.history.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.controller.SelectEntry(entry)
	s.jsonResponse(w, http.StatusOK, s.controller.Snapshot())
}

func (s *Server) handleExportEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.history.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.writeWorkbook(w, r, &entry.Result, entry.FileName)
}

// handleEntryPDF returns the original document of a history entry.
func (s *Server) handleEntryPDF(w http.ResponseWriter, r *http.Request) {
	entry, err := s.history.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	data, err := entry.DecodePDF()
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	w.Header().Set("Content-Type", types.PDFMIMEType)
	w.Header().Set("Content-Disposition", attachment(entry.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck
}

// writeWorkbook builds the workbook in memory so that a failure can still be
// reported as JSON.
func (s *Server) writeWorkbook(w http.ResponseWriter, r *http.Request, result *types.ValidationResult, source string) {
	now := s.now()
	var buf bytes.Buffer
	if err := export.Write(&buf, result, source, now); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", attachment(export.FileName(source, now)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w) //nolint:errcheck
}

func attachment(name string) string {
	return `attachment; filename="` + sanitizeFilename(name) + `"`
}

func sanitizeFilename(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case '"', '\\', '\r', '\n':
			out = append(out, '_')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}
