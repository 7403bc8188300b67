package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/idilsaglam/todoclient/internal/model"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	selectedStyle = lipgloss.NewStyle().Bold(true).Reverse(true)
	doneStyle     = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	savingStyle   = lipgloss.NewStyle().Italic(true).Faint(true)
	helpStyle     = lipgloss.NewStyle().Faint(true)
	overdueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	activeTab     = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color("12"))

	frameStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(0, 1)

	boxChecked   = "☑"
	boxUnchecked = "☐"
)

func panelString(inner string) string { return frameStyle.Render(inner) }

func tagChip(t model.Tag) string {
	color := t.Color
	if color == "" {
		color = model.DefaultTagColor
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(color)).
		Render("#" + t.Name)
}
