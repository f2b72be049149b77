package types

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// PDFMIMEType is the only document type accepted for analysis.
const PDFMIMEType = "application/pdf"

const dataURLPrefix = "data:" + PDFMIMEType + ";base64,"

// HistoryEntry is a persisted record of one past analysis run.
// Entries are never modified after they are stored.
type HistoryEntry struct {
	ID             string           `json:"id"`
	FileName       string           `json:"fileName"`
	PDFData        string           `json:"pdfBase64"`
	Result         ValidationResult `json:"result"`
	ProcessingTime float64          `json:"processingTime"` // seconds
	CreatedAt      time.Time        `json:"createdAt"`
}

// EncodePDF returns data as a base64 data URL, the form stored in PDFData.
func EncodePDF(data []byte) string {
	return dataURLPrefix + base64.StdEncoding.EncodeToString(data)
}

// DecodePDF returns the original file bytes held by the entry.
// A bare base64 payload without the data URL header is also accepted.
func (e *HistoryEntry) DecodePDF() ([]byte, error) {
	payload := e.PDFData
	if strings.HasPrefix(payload, "data:") {
		idx := strings.Index(payload, ",")
		if idx < 0 {
			return nil, fmt.Errorf("malformed data URL in entry %s", e.ID)
		}
		payload = payload[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode PDF of entry %s: %w", e.ID, err)
	}
	return data, nil
}
