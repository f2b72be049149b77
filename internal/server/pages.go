package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/jonathan/balance-validator/internal/render"
	"github.com/jonathan/balance-validator/internal/types"
	"github.com/jonathan/balance-validator/internal/workflow"
)

//go:embed templates/*.html
var templateFS embed.FS

type pages struct {
	tmpl *template.Template
}

var pageFuncs = template.FuncMap{
	"statusLabel": func(s types.GlobalStatus) string {
		return s.Label()
	},
	"statusClass": func(s types.GlobalStatus) string {
		if s == types.StatusApproved {
			return "ok"
		}
		return "warn"
	},
	"confidenceLabel": func(c types.Confidence) string {
		if !c.Valid() {
			return string(types.ConfidenceMedium)
		}
		return string(c)
	},
	"confidenceClass": func(c types.Confidence) string {
		switch c {
		case types.ConfidenceHigh:
			return "ok"
		case types.ConfidenceLow:
			return "err"
		default:
			return "warn"
		}
	},
	"checkClass": func(s types.CheckStatus) string {
		switch s {
		case types.CheckOK:
			return "ok"
		case types.CheckError:
			return "err"
		default:
			return "muted"
		}
	},
	"counts": func(r types.ValidationResult) types.ChecklistCounts {
		return r.Counts()
	},
	"seconds": func(v float64) string {
		return fmt.Sprintf("%.1f s", v)
	},
	"add": func(a, b int) int {
		return a + b
	},
	"formatDate": render.FormatDate,
}

func loadPages() (*pages, error) {
	tmpl, err := template.New("pages").Funcs(pageFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &pages{tmpl: tmpl}, nil
}

type navLink struct {
	Screen   workflow.Screen
	Label    string
	Active   bool
	Disabled bool
}

// pageData is the view model of every screen.
type pageData struct {
	Screen  string
	Title   string
	Nav     []navLink
	Busy    bool
	Notice  string
	State   workflow.State
	Counts  types.ChecklistCounts
	Page    render.Page
	History []types.HistoryEntry
}

func (s *Server) buildPage(r *http.Request, notice string) pageData {
	st := s.controller.Snapshot()
	busy := s.controller.Busy()
	data := pageData{
		Screen: string(st.Screen),
		Title:  st.Screen.Title(),
		Busy:   busy,
		Notice: notice,
		State:  st,
		Nav: []navLink{
			{Screen: workflow.ScreenUpload, Label: "Nuevo análisis", Active: st.Screen == workflow.ScreenUpload},
			{Screen: workflow.ScreenProcessing, Label: "En curso", Active: st.Screen == workflow.ScreenProcessing, Disabled: !busy},
			{Screen: workflow.ScreenResults, Label: "Resultados", Active: st.Screen == workflow.ScreenResults},
			{Screen: workflow.ScreenHistory, Label: "Historial", Active: st.Screen == workflow.ScreenHistory},
		},
	}

	switch st.Screen {
	case workflow.ScreenResults:
		if st.Result != nil {
			n := 1
			fmt.Sscan(r.URL.Query().Get("page"), &n) //nolint:errcheck
			data.Page = render.Paginate(st.Result.Items, n, render.ItemsPerPage)
			data.Counts = st.Result.Counts()
		}
	case workflow.ScreenHistory:
		entries, err := s.history.List(r.Context())
		if err != nil {
			s.logger.Error("failed to list history", zap.Error(err))
			if data.Notice == "" {
				data.Notice = "No se pudo cargar el historial."
			}
		}
		data.History = entries
	}
	return data
}

// renderPage renders the current screen. Output is buffered so that a
// template failure still yields a clean 500.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, notice string) {
	var buf bytes.Buffer
	if err := s.pages.tmpl.ExecuteTemplate(&buf, "layout", s.buildPage(r, notice)); err != nil {
		s.logger.Error("failed to render page", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w) //nolint:errcheck
}
