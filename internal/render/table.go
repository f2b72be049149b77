package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type table struct {
	headers []string
	rows    [][]string
}

func newTable(headers ...string) *table {
	return &table{headers: headers}
}

func (t *table) addRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) render(styles Styles) string {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}
	// Cell padding.
	total := len(widths) - 1
	for i := range widths {
		widths[i] += 2
		total += widths[i]
	}

	header := styles.Bold.Padding(0, 1)
	sep := styles.Muted.Render("│")

	var sb strings.Builder
	for i, h := range t.headers {
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(header.Width(widths[i]).Render(h))
	}
	sb.WriteString("\n")
	sb.WriteString(styles.Muted.Render(strings.Repeat("─", total)))
	sb.WriteString("\n")

	for _, row := range t.rows {
		for i := range widths {
			if i > 0 {
				sb.WriteString(sep)
			}
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			sb.WriteString(styles.Cell.Width(widths[i]).Render(cell))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
