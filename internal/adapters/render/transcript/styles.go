package transcript

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title     lipgloss.Style
	header    lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	errorMsg  lipgloss.Style
	citation  lipgloss.Style
	feedback  lipgloss.Style
	pending   lipgloss.Style
	empty     lipgloss.Style
	warning   lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:     lipgloss.NewStyle().Bold(true),
		header:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		user:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		assistant: lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		errorMsg:  lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		citation:  lipgloss.NewStyle().Faint(true).Foreground(lipgloss.Color("245")),
		feedback:  lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		pending:   lipgloss.NewStyle().Faint(true),
		empty:     lipgloss.NewStyle().Faint(true),
		warning:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
	}
}
