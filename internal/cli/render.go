package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/knc219-a11y/pension-list/internal/catalog"
	"github.com/knc219-a11y/pension-list/internal/model"
	"github.com/knc219-a11y/pension-list/internal/tui"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	doneStyle    = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8")).Padding(0, 1)
)

func (r runner) ok(msg string) {
	fmt.Fprintln(r.env.Out, successStyle.Render("✔ "+msg))
}

func (r runner) fail(msg string) {
	fmt.Fprintln(r.env.Err, errorStyle.Render("✖ "+msg))
}

func (r runner) panel(lines []string) {
	fmt.Fprintln(r.env.Out, panelStyle.Render(strings.Join(lines, "\n")))
}

// listLines numbers every item in sorted order so indexes match check/rm,
// then hides the ones outside the filter.
func listLines(code string, items []model.Item, filter model.Filter) []string {
	checked, _ := model.Progress(items)
	p := catalog.PresentationFor(filter)
	lines := []string{
		fmt.Sprintf("%s  %s  %s",
			titleStyle.Render("🏕️ 펜션 장보기"),
			accentStyle.Render("["+code+"]"),
			mutedStyle.Render(p.Icon+" "+p.Label)),
		tui.ProgressBar(checked, len(items), 28) + mutedStyle.Render(fmt.Sprintf("  %d / %d", checked, len(items))),
		"",
	}
	shown := 0
	for i, it := range items {
		if filter != model.FilterAll && it.Category != model.Category(filter) {
			continue
		}
		shown++
		lines = append(lines, fmt.Sprintf("%s %s", mutedStyle.Render(fmt.Sprintf("%2d.", i+1)), itemLine(it.Checked, it.Category, it.Text)))
	}
	if shown == 0 {
		lines = append(lines, mutedStyle.Render("목록이 비어있어요."))
	}
	return lines
}

func itemLine(checked bool, category model.Category, text string) string {
	box := mutedStyle.Render("☐")
	if checked {
		box = successStyle.Render("☑")
		text = doneStyle.Render(text)
	}
	return fmt.Sprintf("%s %s %s", box, catalog.PresentationFor(model.Filter(category)).Icon, text)
}
