package tui

import (
	"fmt"
	"strings"

	"github.com/Veraticus/spice-forecast/internal/cli"
	"github.com/Veraticus/spice-forecast/internal/model"
)

const descriptionWidth = 32

// View renders the model.
func (m Model) View() string {
	if m.state != StateReviewing {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.theme.Title.Render(m.title))
	b.WriteString("\n")

	if len(m.series) == 0 {
		b.WriteString(m.theme.Muted.Render("No recurring series detected."))
		b.WriteString("\n\n")
		b.WriteString(m.help.View(m.keymap))
		return b.String()
	}

	b.WriteString(m.theme.Subtitle.Render(fmt.Sprintf("%d of %d selected", m.Selected(), len(m.series))))
	b.WriteString("\n")

	end := min(len(m.series), m.offset+m.pageSize())
	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderRow(i))
		b.WriteString("\n")
	}
	if end < len(m.series) {
		b.WriteString(m.theme.Muted.Render(fmt.Sprintf("  … %d more", len(m.series)-end)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keymap))
	return b.String()
}

func (m Model) renderRow(i int) string {
	s := m.series[i]

	box := m.theme.Unchecked.Render("[ ]")
	if s.Enabled {
		box = m.theme.Checked.Render("[x]")
	}

	amountStyle := m.theme.Inflow
	if model.FlowOf(s.Amount) == model.FlowOutflow {
		amountStyle = m.theme.Outflow
	}

	line := fmt.Sprintf("%-*s %12s  every %3d days  %2d seen  last %s  %s",
		descriptionWidth,
		truncate(s.Description, descriptionWidth),
		cli.FormatSignedMoney(s.Amount),
		s.AverageIntervalDays,
		len(s.ObservedDates),
		s.LastObserved(),
		cli.AccountLabel(s.AccountID))

	cursor := "  "
	if i == m.cursor {
		cursor = "> "
		line = m.theme.Selected.Render(line)
	} else {
		line = amountStyle.Render(line)
	}
	return cursor + box + " " + line
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
