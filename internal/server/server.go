// Package server hosts the validation workflow as web pages and a JSON API.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/jonathan/balance-validator/internal/logging"
	"github.com/jonathan/balance-validator/internal/server/ratelimit"
	"github.com/jonathan/balance-validator/internal/types"
	"github.com/jonathan/balance-validator/internal/workflow"
)

// maxUploadBytes bounds the multipart body of an analysis upload.
const maxUploadBytes = 50 << 20

// HistoryStore is the part of history.Store the server uses.
type HistoryStore interface {
	List(ctx context.Context) ([]types.HistoryEntry, error)
	Get(ctx context.Context, id string) (types.HistoryEntry, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// Config holds server configuration
type Config struct {
	Port           int
	AllowedOrigins []string
	RateLimit      ratelimit.Config
}

// Server represents the HTTP server
type Server struct {
	controller *workflow.Controller
	history    HistoryStore
	limiter    *ratelimit.Limiter
	pages      *pages
	logger     *zap.Logger
	now        func() time.Time

	handler    http.Handler
	httpServer *http.Server

	// closing ends open event streams, which Shutdown would otherwise wait on
	// until its context expires.
	closing     chan struct{}
	closingOnce sync.Once
}

// New creates a new server instance
func New(cfg Config, controller *workflow.Controller, store HistoryStore, logger *zap.Logger) (*Server, error) {
	p, err := loadPages()
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	s := &Server{
		controller: controller,
		history:    store,
		limiter:    ratelimit.New(cfg.RateLimit),
		pages:      p,
		logger:     logging.OrNop(logger),
		now:        time.Now,
		closing:    make(chan struct{}),
	}
	s.handler = s.routes(cfg)
	// No WriteTimeout: SSE streams stay open for the whole analysis.
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	s.httpServer.RegisterOnShutdown(s.closeStreams)
	return s, nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// ListenAndServe serves until Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight work, including
// a running analysis and its history write.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	s.closeStreams()
	err := s.httpServer.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.controller.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("shutdown timed out waiting for analysis")
	}

	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) closeStreams() {
	s.closingOnce.Do(func() { close(s.closing) })
}

func (s *Server) routes(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(withRequestID)
	r.Use(s.withLogging)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-ID", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(s.withRateLimit)

	r.Get("/health", s.handleHealth)

	// Pages
	r.Get("/", s.handlePage)
	r.Post("/analyze", s.handleUploadForm)
	r.Post("/navigate/{screen}", s.handleNavigateForm)
	r.Post("/history/clear", s.handleClearHistoryForm)
	r.Post("/history/{id}/open", s.handleOpenEntryForm)
	r.Post("/history/{id}/delete", s.handleDeleteEntryForm)

	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Get("/state", s.handleState)
		r.Get("/events", s.handleEvents)
		r.Post("/navigate/{screen}", s.handleNavigate)
		r.Get("/export", s.handleExportCurrent)

		r.Get("/history", s.handleListHistory)
		r.Delete("/history", s.handleClearHistory)
		r.Get("/history/{id}", s.handleGetEntry)
		r.Delete("/history/{id}", s.handleDeleteEntry)
		r.Post("/history/{id}/open", s.handleOpenEntry)
		r.Get("/history/{id}/export", s.handleExportEntry)
		r.Get("/history/{id}/pdf", s.handleEntryPDF)
	})

	return r
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response. Only the public message is sent.
func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	s.jsonResponse(w, status, map[string]string{"error": publicMessage(err)})
}
