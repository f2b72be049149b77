// Package analysis sends financial-statement PDFs to an analysis backend and
// returns the structured verdict. Every failure leaving this package is an
// *Error carrying one of a closed set of user messages.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/balance-validator/internal/llm"
	"github.com/jonathan/balance-validator/internal/logging"
	"github.com/jonathan/balance-validator/internal/schemas"
	"github.com/jonathan/balance-validator/internal/types"
)

// Document is a file submitted for analysis. The caller has already checked
// that MIMEType is PDF; the client does not look at the content.
type Document struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Client analyzes one document per call. There is no internal retry.
type Client interface {
	Analyze(ctx context.Context, doc Document) (*types.ValidationResult, error)
	Close() error
}

// Backend names accepted by New.
const (
	BackendAuto    = "auto"
	BackendHTTP    = "http"
	BackendGemini  = "gemini"
	BackendFixture = "fixture"
)

// Options selects and configures the backend.
type Options struct {
	Backend      string
	BaseURL      string
	GeminiAPIKey string
	Model        string
	// Timeout bounds each analysis call on the HTTP and Gemini backends; zero
	// means none.
	Timeout time.Duration
}

// ResolveBackend returns the backend New will build for opts. Missing endpoint
// configuration resolves to the fixture rather than an error.
func ResolveBackend(opts Options) string {
	switch opts.Backend {
	case BackendFixture:
		return BackendFixture
	case BackendHTTP:
		if opts.BaseURL != "" {
			return BackendHTTP
		}
	case BackendGemini:
		if opts.GeminiAPIKey != "" {
			return BackendGemini
		}
	default:
		if opts.BaseURL != "" {
			return BackendHTTP
		}
		if opts.GeminiAPIKey != "" {
			return BackendGemini
		}
	}
	return BackendFixture
}

// New builds the client described by opts.
func New(ctx context.Context, opts Options, logger *zap.Logger) (Client, error) {
	logger = logging.OrNop(logger)

	switch backend := ResolveBackend(opts); backend {
	case BackendHTTP:
		httpClient := &http.Client{Timeout: opts.Timeout}
		return NewHTTPClient(opts.BaseURL, httpClient, logger), nil
	case BackendGemini:
		cfg := llm.DefaultConfig().WithModel(llm.TierStandard, opts.Model)
		gc, err := llm.NewGeminiClient(ctx, cfg, opts.GeminiAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini backend: %w", err)
		}
		return NewGeminiClient(gc, logger).WithTimeout(opts.Timeout), nil
	default:
		logger.Warn("no analysis endpoint configured, returning example results",
			zap.String("requested_backend", opts.Backend))
		return NewFixtureClient(), nil
	}
}

// decodeResult validates a response body against the schema and the struct
// rules, returning a generic *Error on any mismatch.
func decodeResult(body []byte, logger *zap.Logger) (*types.ValidationResult, error) {
	if err := schemas.ValidateValidationResult(body); err != nil {
		logger.Error("analysis response failed schema validation",
			zap.Error(err), zap.Int("body_bytes", len(body)))
		return nil, newError(KindGeneric, err)
	}

	var result types.ValidationResult
	if err := json.Unmarshal(body, &result); err != nil {
		logger.Error("failed to decode analysis response", zap.Error(err))
		return nil, newError(KindGeneric, err)
	}
	if err := result.Validate(); err != nil {
		logger.Error("analysis response failed validation", zap.Error(err))
		return nil, newError(KindGeneric, err)
	}
	return &result, nil
}
