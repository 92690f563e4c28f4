package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	accentStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	mutedStyle    = lipgloss.NewStyle().Faint(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Bold(true).Reverse(true)
	doneStyle     = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	tabStyle      = lipgloss.NewStyle().Padding(0, 1)
	activeTab     = tabStyle.Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("28"))
	promptStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8")).Padding(0, 1)
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8")).Padding(0, 1)

	boxChecked   = "☑"
	boxUnchecked = "☐"
)

// ProgressBar renders checked/total as a fixed-width bar with a percentage.
func ProgressBar(checked, total, width int) string {
	if width < 5 {
		width = 5
	}
	filled, pct := 0, 0
	if total > 0 {
		filled = checked * width / total
		pct = checked * 100 / total
	}
	if filled > width {
		filled = width
	}
	return fmt.Sprintf("%s%s %3d%%",
		successStyle.Render(strings.Repeat("█", filled)),
		mutedStyle.Render(strings.Repeat("░", width-filled)),
		pct)
}
