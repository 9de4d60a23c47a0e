package tui

import (
	"fmt"
	"strings"
)

func (m MainModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	title := "opcreach"
	if m.version != "" {
		title += " " + m.version
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	if m.done {
		b.WriteString(" " + m.statusLine() + "\n")
	} else {
		b.WriteString(fmt.Sprintf(" %s %s\n", m.spin.View(), taskStyle.Render(m.task)))
	}
	b.WriteString(fmt.Sprintf(" %s %3d%%\n\n", m.bar.ViewAs(float64(m.percent)/100.0), m.percent))

	b.WriteString(m.logView.View())
	b.WriteString("\n")

	hint := "q: cancel and quit  ↑/↓: scroll log"
	if m.done {
		hint = "q/enter: quit  ↑/↓: scroll log"
	}
	b.WriteString(footerStyle.Render(" " + hint))

	return b.String()
}
