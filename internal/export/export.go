// Package export writes a validation result as an XLSX workbook with a
// checklist sheet and a summary sheet.
package export

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jonathan/balance-validator/internal/types"
)

const (
	SheetChecklist = "Checklist"
	SheetSummary   = "Resumen"

	// ContentType is the MIME type of the generated workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// FileName derives the workbook name from the analyzed file:
// "<name without .pdf>_validacion_<YYYY-MM-DD>.xlsx", dated in UTC.
func FileName(source string, now time.Time) string {
	base := filepath.Base(source)
	if ext := filepath.Ext(base); strings.EqualFold(ext, ".pdf") {
		base = strings.TrimSuffix(base, ext)
	}
	return fmt.Sprintf("%s_validacion_%s.xlsx", base, now.UTC().Format("2006-01-02"))
}

// Write encodes result as a workbook to w. Errors from the spreadsheet library
// are returned as they are.
func Write(w io.Writer, result *types.ValidationResult, source string, now time.Time) error {
	f, err := Build(result, source, now)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	_, err = f.WriteTo(w)
	return err
}

// Build returns the workbook without serializing it. The caller closes it.
func Build(result *types.ValidationResult, source string, now time.Time) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetChecklist); err != nil {
		f.Close() //nolint:errcheck
		return nil, err
	}
	if err := writeChecklist(f, result, source, now); err != nil {
		f.Close() //nolint:errcheck
		return nil, err
	}
	if _, err := f.NewSheet(SheetSummary); err != nil {
		f.Close() //nolint:errcheck
		return nil, err
	}
	if err := writeSummary(f, result); err != nil {
		f.Close() //nolint:errcheck
		return nil, err
	}
	return f, nil
}

// formatExportDay renders the export day in the same UTC calendar as FileName.
func formatExportDay(now time.Time) string {
	return now.UTC().Format("2/1/2006")
}

func writeChecklist(f *excelize.File, result *types.ValidationResult, source string, now time.Time) error {
	s := result.Summary
	rows := [][]any{
		{"Estado Global", string(s.Status)},
		{"Confianza del Análisis", string(s.Confidence)},
		{"Empresa", s.CompanyName},
		{"CUIT", s.TaxID},
		{"Ejercicio Finalizado", s.PeriodEndDate},
		{"Archivo Original", source},
		{"Fecha de Exportación", formatExportDay(now)},
		nil,
		{"ID", "Ítem", "Estado Actual", "Observaciones"},
	}
	for _, item := range result.Items {
		rows = append(rows, []any{item.ID, item.Text, string(item.CurrentStatus), item.Notes})
	}

	if err := writeRows(f, SheetChecklist, rows); err != nil {
		return err
	}
	return setWidths(f, SheetChecklist, 12, 60, 15, 80)
}

func writeSummary(f *excelize.File, result *types.ValidationResult) error {
	s := result.Summary
	c := result.Counts()
	rows := [][]any{
		{"Resumen de Auditoría"},
		nil,
		{"Estado Global", string(s.Status)},
		{"Confianza del Análisis", string(s.Confidence)},
		nil,
		{"Empresa", s.CompanyName},
		{"CUIT", s.TaxID},
		{"Ejercicio Finalizado", s.PeriodEndDate},
		nil,
		{"Conclusión IA", s.Conclusion},
		nil,
		{"Estadísticas del Checklist"},
		nil,
		{"Total de Items", c.Total},
		{"Items OK", c.OK},
		{"Items con Error", c.Errors},
		{"Items N/A", c.NotApplicable},
	}

	if err := writeRows(f, SheetSummary, rows); err != nil {
		return err
	}
	return setWidths(f, SheetSummary, 25, 80)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func setWidths(f *excelize.File, sheet string, widths ...float64) error {
	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}
	return nil
}
