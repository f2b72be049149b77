// Package types provides the data shapes shared by the analysis client, history store,
// workflow controller and presentation layers.
package types

import (
	"github.com/go-playground/validator/v10"
)

// GlobalStatus is the overall verdict for an analyzed financial statement.
type GlobalStatus string

const (
	// StatusApproved means no material inconsistency was found.
	StatusApproved GlobalStatus = "APROBADO"
	// StatusFlagged means at least one checklist rule needs attention.
	StatusFlagged GlobalStatus = "OBSERVADO"
)

// Label returns the display label for the status.
func (s GlobalStatus) Label() string {
	switch s {
	case StatusApproved:
		return "Aprobado"
	default:
		return "Observado"
	}
}

// Valid reports whether s is one of the known statuses.
func (s GlobalStatus) Valid() bool {
	return s == StatusApproved || s == StatusFlagged
}

// Confidence is the model's self-reported confidence in its verdict.
type Confidence string

const (
	ConfidenceHigh   Confidence = "Alto"
	ConfidenceMedium Confidence = "Medio"
	ConfidenceLow    Confidence = "Bajo"
)

// Valid reports whether c is one of the known confidence levels.
func (c Confidence) Valid() bool {
	return c == ConfidenceHigh || c == ConfidenceMedium || c == ConfidenceLow
}

// CheckStatus is the outcome of a single checklist rule.
type CheckStatus string

const (
	CheckOK            CheckStatus = "OK"
	CheckError         CheckStatus = "ERROR"
	CheckNotApplicable CheckStatus = "N/A"
)

// AuditSummary is the verdict and identifying metadata for one analyzed document.
type AuditSummary struct {
	Status        GlobalStatus `json:"status_global" validate:"required,oneof=APROBADO OBSERVADO"`
	Conclusion    string       `json:"conclusion_ia"`
	Confidence    Confidence   `json:"confianza_analisis" validate:"required,oneof=Alto Medio Bajo"`
	CompanyName   string       `json:"empresa"`
	TaxID         string       `json:"cuit"`
	PeriodEndDate string       `json:"ejercicio_finalizado"`
}

// ChecklistItem is one audit rule evaluation.
// IDs are stable but not numerically sortable ("3.1.I.b", "4-5").
type ChecklistItem struct {
	ID            string      `json:"id" validate:"required"`
	Text          string      `json:"item_text"`
	CurrentStatus CheckStatus `json:"estado_actual" validate:"required,oneof=OK ERROR N/A"`
	PriorStatus   CheckStatus `json:"estado_anterior" validate:"required,oneof=OK ERROR N/A"`
	Notes         string      `json:"observaciones"`
}

// ValidationResult is the structured outcome of one analysis.
// Items are kept in the order received; that order is the display and pagination order.
type ValidationResult struct {
	Summary AuditSummary    `json:"resumen_auditoria"`
	Items   []ChecklistItem `json:"checklist_data" validate:"required,dive"`
}

// ChecklistCounts tallies item outcomes by current status.
type ChecklistCounts struct {
	Total         int `json:"total"`
	OK            int `json:"ok"`
	Errors        int `json:"errors"`
	NotApplicable int `json:"not_applicable"`
}

// Counts returns the per-status tally of the checklist.
func (r *ValidationResult) Counts() ChecklistCounts {
	c := ChecklistCounts{Total: len(r.Items)}
	for _, item := range r.Items {
		switch item.CurrentStatus {
		case CheckOK:
			c.OK++
		case CheckError:
			c.Errors++
		case CheckNotApplicable:
			c.NotApplicable++
		}
	}
	return c
}

// Clone returns a deep copy of the result.
func (r *ValidationResult) Clone() *ValidationResult {
	if r == nil {
		return nil
	}
	out := &ValidationResult{Summary: r.Summary}
	if r.Items != nil {
		out.Items = make([]ChecklistItem, len(r.Items))
		copy(out.Items, r.Items)
	}
	return out
}

// Validate checks required fields and enum values using the validator.
func (r *ValidationResult) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
