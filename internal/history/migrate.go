package history

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/balance-validator/internal/types"
)

// storedEntry mirrors types.HistoryEntry with the result left raw, so that
// results written by older versions can be converted before use.
type storedEntry struct {
	ID             string          `json:"id"`
	FileName       string          `json:"fileName"`
	PDFData        string          `json:"pdfBase64"`
	Result         json.RawMessage `json:"result"`
	ProcessingTime float64         `json:"processingTime"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// storedResult accepts both the current result shape and the legacy one,
// which had a top-level global_status and a checklist_detail list.
type storedResult struct {
	Summary     *storedSummary `json:"resumen_auditoria"`
	Items       []storedItem   `json:"checklist_data"`
	LegacyState string         `json:"global_status"`
	LegacyItems []storedItem   `json:"checklist_detail"`
}

type storedSummary struct {
	Status        string `json:"status_global"`
	Conclusion    string `json:"conclusion_ia"`
	Confidence    string `json:"confianza_analisis"`
	CompanyName   string `json:"empresa"`
	TaxID         string `json:"cuit"`
	PeriodEndDate string `json:"ejercicio_finalizado"`
}

type storedItem struct {
	ID            string `json:"id"`
	Text          string `json:"item_text"`
	CurrentStatus string `json:"estado_actual"`
	PriorStatus   string `json:"estado_anterior"`
	Notes         string `json:"observaciones"`
	LegacyCurrent string `json:"actual"`
	LegacyPrior   string `json:"anterior"`
}

// decodeEntries parses the stored blob. A blob that is not a JSON array gives
// an empty list; individual entries that cannot be parsed are skipped.
func decodeEntries(data []byte, logger *zap.Logger) []types.HistoryEntry {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		logger.Error("stored history is unreadable, treating as empty",
			zap.Int("bytes", len(data)), zap.Error(err))
		return nil
	}

	entries := make([]types.HistoryEntry, 0, len(raw))
	for i, r := range raw {
		entry, ok := decodeEntry(r)
		if !ok {
			logger.Warn("skipping unreadable history entry", zap.Int("index", i))
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

func decodeEntry(data json.RawMessage) (types.HistoryEntry, bool) {
	var se storedEntry
	if err := json.Unmarshal(data, &se); err != nil || se.ID == "" {
		return types.HistoryEntry{}, false
	}

	var sr storedResult
	if len(se.Result) == 0 || json.Unmarshal(se.Result, &sr) != nil {
		return types.HistoryEntry{}, false
	}
	result, ok := sr.migrate()
	if !ok {
		return types.HistoryEntry{}, false
	}

	return types.HistoryEntry{
		ID:             se.ID,
		FileName:       se.FileName,
		PDFData:        se.PDFData,
		Result:         result,
		ProcessingTime: se.ProcessingTime,
		CreatedAt:      se.CreatedAt,
	}, true
}

// migrate converts either shape to the current result. It reports false when
// neither shape is present.
func (r storedResult) migrate() (types.ValidationResult, bool) {
	if r.Summary == nil && r.LegacyState == "" && r.Items == nil && r.LegacyItems == nil {
		return types.ValidationResult{}, false
	}

	var out types.ValidationResult
	status := r.LegacyState
	if r.Summary != nil {
		out.Summary = types.AuditSummary{
			Conclusion:    r.Summary.Conclusion,
			Confidence:    types.Confidence(r.Summary.Confidence),
			CompanyName:   r.Summary.CompanyName,
			TaxID:         r.Summary.TaxID,
			PeriodEndDate: r.Summary.PeriodEndDate,
		}
		if r.Summary.Status != "" {
			status = r.Summary.Status
		}
	}

	// Statuses and confidence levels that no longer exist display as the
	// cautious default.
	out.Summary.Status = types.GlobalStatus(status)
	if !out.Summary.Status.Valid() {
		out.Summary.Status = types.StatusFlagged
	}
	if !out.Summary.Confidence.Valid() {
		out.Summary.Confidence = types.ConfidenceMedium
	}

	items := r.Items
	if items == nil {
		items = r.LegacyItems
	}
	if items != nil {
		out.Items = make([]types.ChecklistItem, 0, len(items))
	}
	for _, it := range items {
		out.Items = append(out.Items, it.migrate())
	}
	return out, true
}

func (it storedItem) migrate() types.ChecklistItem {
	current, prior := it.CurrentStatus, it.PriorStatus
	if current == "" {
		current = it.LegacyCurrent
	}
	if prior == "" {
		prior = it.LegacyPrior
	}
	return types.ChecklistItem{
		ID:            it.ID,
		Text:          it.Text,
		CurrentStatus: types.CheckStatus(current),
		PriorStatus:   types.CheckStatus(prior),
		Notes:         it.Notes,
	}
}
