package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jonathan/balance-validator/internal/workflow"
)

// Form handlers follow post/redirect/get; failures re-render the current
// screen with a notice and the matching status code.

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, http.StatusOK, "")
}

func (s *Server) redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) formError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("form request failed",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	s.renderPage(w, r, status, publicMessage(err))
}

func (s *Server) handleUploadForm(w http.ResponseWriter, r *http.Request) {
	doc, err := readUpload(w, r)
	if err != nil {
		s.formError(w, r, err)
		return
	}
	err = s.controller.SubmitAsync(r.Context(), doc)
	var inputErr *workflow.InputError
	switch {
	case errors.As(err, &inputErr) && inputErr.Message == workflow.MsgNotPDF:
		// The controller already shows the message on the upload screen.
		s.renderPage(w, r, http.StatusBadRequest, "")
	case err != nil:
		s.formError(w, r, err)
	default:
		s.redirectHome(w, r)
	}
}

func (s *Server) handleNavigateForm(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.Navigate(workflow.Screen(chi.URLParam(r, "screen"))); err != nil {
		s.formError(w, r, err)
		return
	}
	s.redirectHome(w, r)
}

func (s *Server) handleOpenEntryForm(w http.ResponseWriter, r *http.Request) {
	entry, err := s.history.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.formError(w, r, err)
		return
	}
	s.controller.SelectEntry(entry)
	s.redirectHome(w, r)
}

func (s *Server) handleDeleteEntryForm(w http.ResponseWriter, r *http.Request) {
	if err := s.history.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.formError(w, r, err)
		return
	}
	s.redirectHome(w, r)
}

func (s *Server) handleClearHistoryForm(w http.ResponseWriter, r *http.Request) {
	if err := s.history.Clear(r.Context()); err != nil {
		s.formError(w, r, err)
		return
	}
	s.redirectHome(w, r)
}
