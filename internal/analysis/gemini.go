package analysis

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/googleapi"

	"github.com/jonathan/balance-validator/internal/llm"
	"github.com/jonathan/balance-validator/internal/logging"
	"github.com/jonathan/balance-validator/internal/prompts"
	"github.com/jonathan/balance-validator/internal/schemas"
	"github.com/jonathan/balance-validator/internal/types"
)

// GeminiClient analyzes the PDF directly with a Gemini model.
type GeminiClient struct {
	model   llm.Client
	tier    llm.ModelTier
	timeout time.Duration
	logger  *zap.Logger
}

// NewGeminiClient wraps an llm.Client. The client is closed by Close.
func NewGeminiClient(model llm.Client, logger *zap.Logger) *GeminiClient {
	return &GeminiClient{model: model, tier: llm.TierStandard, logger: logging.OrNop(logger)}
}

// WithTimeout bounds each Analyze call. Zero means no bound beyond ctx.
func (c *GeminiClient) WithTimeout(d time.Duration) *GeminiClient {
	c.timeout = d
	return c
}

func (c *GeminiClient) Analyze(ctx context.Context, doc Document) (*types.ValidationResult, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	prompt, err := prompts.AuditChecklistPrompt(schemas.ValidationResultSchema())
	if err != nil {
		c.logger.Error("failed to build analysis prompt", zap.Error(err))
		return nil, newError(KindGeneric, err)
	}

	mimeType := doc.MIMEType
	if mimeType == "" {
		mimeType = types.PDFMIMEType
	}
	text, err := c.model.GenerateJSON(ctx, prompt,
		[]llm.Attachment{{MIMEType: mimeType, Data: doc.Data}}, c.tier)
	if err != nil {
		c.logger.Error("gemini analysis failed",
			zap.String("file", doc.Name),
			zap.String("model", c.model.GetModel(c.tier)),
			zap.Error(err),
		)
		return nil, fromGemini(err)
	}
	return decodeResult([]byte(text), c.logger)
}

func (c *GeminiClient) Close() error {
	return c.model.Close()
}

// fromGemini maps API errors by HTTP code when available, then by the gRPC
// status names that appear in error text, then as transport failures.
func fromGemini(err error) *Error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests, http.StatusUnauthorized, http.StatusForbidden:
			return fromStatus(apiErr.Code, "", err)
		case http.StatusServiceUnavailable:
			return newError(KindUnavailable, err)
		case http.StatusGatewayTimeout:
			return newError(KindTimeout, err)
		}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "RESOURCE_EXHAUSTED"), strings.Contains(msg, "Error 429"):
		return newError(KindRateLimited, err)
	case strings.Contains(msg, "PERMISSION_DENIED"), strings.Contains(msg, "UNAUTHENTICATED"),
		strings.Contains(msg, "API key not valid"):
		return newError(KindAuth, err)
	case strings.Contains(msg, "UNAVAILABLE"):
		return newError(KindUnavailable, err)
	case strings.Contains(msg, "DEADLINE_EXCEEDED"):
		return newError(KindTimeout, err)
	}
	return fromTransport(err)
}
