package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jonathan/balance-validator/internal/types"
)

// DateLayout is the day-first layout used for history timestamps.
const DateLayout = "02/01/2006, 15:04"

// FormatDate formats t in local time with DateLayout.
func FormatDate(t time.Time) string {
	return t.Local().Format(DateLayout)
}

// Renderer writes styled output to w.
type Renderer struct {
	w      io.Writer
	styles Styles
}

// New creates a renderer with the default styles.
func New(w io.Writer) *Renderer {
	return &Renderer{w: w, styles: DefaultStyles()}
}

// Result writes the summary cards, the conclusion and the full checklist.
func (r *Renderer) Result(fileName string, result *types.ValidationResult) error {
	var sb strings.Builder
	if fileName != "" {
		sb.WriteString(r.styles.Title.Render("Resultados de Validación"))
		sb.WriteString(r.styles.Muted.Render("  " + fileName))
		sb.WriteString("\n\n")
	}
	sb.WriteString(r.summary(result))
	sb.WriteString("\n\n")
	sb.WriteString(r.styles.Label.Render("CONCLUSIÓN DEL ANÁLISIS"))
	sb.WriteString("\n")
	sb.WriteString(lipgloss.NewStyle().Width(100).Render(result.Summary.Conclusion))
	sb.WriteString("\n\n")
	sb.WriteString(r.checklist(result))

	_, err := io.WriteString(r.w, sb.String())
	return err
}

// History writes the history table, most recent first.
func (r *Renderer) History(entries []types.HistoryEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(r.w, r.styles.Muted.Render("No hay validaciones previas."))
		return err
	}

	noun := "registros"
	if len(entries) == 1 {
		noun = "registro"
	}

	t := newTable("ID", "Archivo", "Fecha", "Estado", "OK", "Errores")
	for _, e := range entries {
		c := e.Result.Counts()
		t.addRow(
			e.ID,
			e.FileName,
			FormatDate(e.CreatedAt),
			r.statusBadge(e.Result.Summary.Status),
			fmt.Sprintf("%d", c.OK),
			fmt.Sprintf("%d", c.Errors),
		)
	}

	var sb strings.Builder
	sb.WriteString(r.styles.Title.Render("Historial de Validaciones"))
	sb.WriteString(r.styles.Muted.Render(fmt.Sprintf("  %d %s", len(entries), noun)))
	sb.WriteString("\n\n")
	sb.WriteString(t.render(r.styles))

	_, err := io.WriteString(r.w, sb.String())
	return err
}

func (r *Renderer) summary(result *types.ValidationResult) string {
	s := result.Summary
	status := r.card("ESTADO GLOBAL", r.statusBadge(s.Status))
	confidence := r.card("CONFIANZA DEL ANÁLISIS", r.confidenceBadge(s.Confidence))

	c := result.Counts()
	counts := r.card("CHECKLIST", fmt.Sprintf("%s  %s  %s",
		r.styles.OK.Render(fmt.Sprintf("%d OK", c.OK)),
		r.styles.Error.Render(fmt.Sprintf("%d ERROR", c.Errors)),
		r.styles.Muted.Render(fmt.Sprintf("%d N/A", c.NotApplicable)),
	))

	cards := lipgloss.JoinHorizontal(lipgloss.Top, status, " ", confidence, " ", counts)

	company := fmt.Sprintf("%s %s   %s %s   %s %s",
		r.styles.Label.Render("Empresa:"), s.CompanyName,
		r.styles.Label.Render("CUIT:"), s.TaxID,
		r.styles.Label.Render("Ejercicio:"), s.PeriodEndDate,
	)
	return lipgloss.JoinVertical(lipgloss.Left, cards, company)
}

func (r *Renderer) card(label, value string) string {
	return r.styles.Card.Render(r.styles.Label.Render(label) + "\n" + value)
}

func (r *Renderer) checklist(result *types.ValidationResult) string {
	t := newTable("ID", "Ítem", "Actual", "Anterior", "Observaciones")
	for _, item := range result.Items {
		t.addRow(
			item.ID,
			truncate(item.Text, 60),
			r.checkBadge(item.CurrentStatus),
			r.checkBadge(item.PriorStatus),
			truncate(item.Notes, 80),
		)
	}
	return r.styles.Title.Render("Detalle del Checklist") + "\n" + t.render(r.styles)
}

// statusBadge shows unknown statuses as flagged, matching how history
// entries from older versions are migrated.
func (r *Renderer) statusBadge(s types.GlobalStatus) string {
	if s == types.StatusApproved {
		return r.styles.OK.Render(s.Label())
	}
	return r.styles.Warning.Render(s.Label())
}

func (r *Renderer) confidenceBadge(c types.Confidence) string {
	switch c {
	case types.ConfidenceHigh:
		return r.styles.OK.Render(string(c))
	case types.ConfidenceLow:
		return r.styles.Error.Render(string(c))
	default:
		return r.styles.Warning.Render(string(types.ConfidenceMedium))
	}
}

func (r *Renderer) checkBadge(s types.CheckStatus) string {
	switch s {
	case types.CheckOK:
		return r.styles.OK.Render(string(s))
	case types.CheckError:
		return r.styles.Error.Render(string(s))
	default:
		return r.styles.Muted.Render(string(s))
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
