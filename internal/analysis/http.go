package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/jonathan/balance-validator/internal/logging"
	"github.com/jonathan/balance-validator/internal/types"
)

const (
	// AnalyzePath is appended to the configured base URL.
	AnalyzePath = "/demos/cpcen/analyze"
	// FormField is the multipart field carrying the PDF.
	FormField = "pdf"

	maxErrorBody = 64 << 10
	// Longer upstream messages are treated as diagnostics, not user text.
	maxUpstreamMessage = 200
)

// HTTPClient posts the PDF to an external analysis endpoint.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPClient creates a client for the endpoint at baseURL. A nil httpClient
// uses http.DefaultClient.
func NewHTTPClient(baseURL string, httpClient *http.Client, logger *zap.Logger) *HTTPClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logging.OrNop(logger),
	}
}

// Analyze issues exactly one request.
func (c *HTTPClient) Analyze(ctx context.Context, doc Document) (*types.ValidationResult, error) {
	body, contentType, err := encodeMultipart(doc)
	if err != nil {
		c.logger.Error("failed to encode document", zap.String("file", doc.Name), zap.Error(err))
		return nil, newError(KindGeneric, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+AnalyzePath, body)
	if err != nil {
		c.logger.Error("failed to build analysis request", zap.Error(err))
		return nil, newError(KindGeneric, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("analysis request failed", zap.String("file", doc.Name), zap.Error(err))
		return nil, fromTransport(err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		upstream := upstreamMessage(raw)
		c.logger.Error("analysis endpoint returned an error",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw),
		)
		return nil, fromStatus(resp.StatusCode, upstream,
			fmt.Errorf("analysis endpoint returned status %d", resp.StatusCode))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("failed to read analysis response", zap.Error(err))
		return nil, fromTransport(err)
	}
	return decodeResult(raw, c.logger)
}

// Close is a no-op; the http.Client is owned by the caller.
func (c *HTTPClient) Close() error { return nil }

func encodeMultipart(doc Document) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	mimeType := doc.MIMEType
	if mimeType == "" {
		mimeType = types.PDFMIMEType
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		FormField, escapeQuotes(doc.Name)))
	h.Set("Content-Type", mimeType)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(doc.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// upstreamMessage extracts {"message": ...} or {"error": ...} from an error body.
func upstreamMessage(raw []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	msg := strings.TrimSpace(payload.Message)
	if msg == "" {
		msg = strings.TrimSpace(payload.Error)
	}
	if utf8.RuneCountInString(msg) > maxUpstreamMessage || strings.ContainsAny(msg, "\n\t") {
		return ""
	}
	return msg
}
