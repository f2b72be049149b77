// Package render formats validation results and history for the terminal.
package render

import "github.com/charmbracelet/lipgloss"

var (
	colorOK      = lipgloss.Color("#16a34a")
	colorWarning = lipgloss.Color("#ca8a04")
	colorError   = lipgloss.Color("#dc2626")
	colorMuted   = lipgloss.Color("#6b7280")
	colorPrimary = lipgloss.Color("#1e40af")
)

// Styles groups the lipgloss styles used by the renderers.
type Styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Muted   lipgloss.Style
	Card    lipgloss.Style
	Bold    lipgloss.Style
	OK      lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Cell    lipgloss.Style
}

// DefaultStyles returns the standard palette.
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true),
		Label: lipgloss.NewStyle().
			Foreground(colorMuted).
			Bold(true),
		Muted: lipgloss.NewStyle().
			Foreground(colorMuted),
		Card: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 2),
		Bold: lipgloss.NewStyle().Bold(true),
		OK: lipgloss.NewStyle().
			Foreground(colorOK).
			Bold(true),
		Warning: lipgloss.NewStyle().
			Foreground(colorWarning).
			Bold(true),
		Error: lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true),
		Cell: lipgloss.NewStyle().Padding(0, 1),
	}
}
