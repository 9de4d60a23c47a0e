package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wrap"

	"opcreach/pkg/model"
)

type eventMsg struct {
	event model.Event
}

type streamClosedMsg struct{}

func waitEvent(ch <-chan model.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg{event: ev}
	}
}

func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.session.Cancel()
			m.quitting = true
			return m, tea.Quit
		case "up", "down", "pgup", "pgdown":
			var cmd tea.Cmd
			m.logView, cmd = m.logView.Update(msg)
			return m, cmd
		}
		if m.done && msg.String() == "enter" {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		barWidth := msg.Width - 8
		if barWidth < 10 {
			barWidth = 10
		}
		m.bar.Width = barWidth
		m.logView.Width = msg.Width - 4
		logHeight := msg.Height - 9
		if logHeight < 3 {
			logHeight = 3
		}
		m.logView.Height = logHeight
		m.refreshLog()
		return m, nil

	case eventMsg:
		m = m.apply(msg.event)
		return m, waitEvent(m.session.Events())

	case streamClosedMsg:
		m.done = true
		return m, nil

	default:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
}

func (m MainModel) apply(ev model.Event) MainModel {
	switch ev := ev.(type) {
	case model.ProgressEvent:
		m.task = ev.Task
		if ev.Percent > m.percent {
			m.percent = ev.Percent
		}

	case model.LogLineEvent:
		m.logLines = append(m.logLines, ev.Text)
		m.refreshLog()

	case model.PartialResultEvent:
		// Stage data lands in the log view via headline records; nothing
		// extra to render here.

	case model.FinalResultEvent:
		res := ev.Result
		m.result = &res

	case model.ErrorEvent:
		m.errMsg = ev.Message

	case model.FinishedEvent:
		m.done = true
	}
	return m
}

func (m *MainModel) refreshLog() {
	content := strings.Join(m.logLines, "\n")
	if m.logView.Width > 0 {
		content = wrap.String(content, m.logView.Width)
	}
	m.logView.SetContent(content)
	m.logView.GotoBottom()
}

func (m MainModel) statusLine() string {
	if m.errMsg != "" {
		return errorStyle.Render("probe failed: " + m.errMsg)
	}
	if m.result != nil {
		verdict := "no callback traffic observed"
		style := errorStyle
		if len(m.result.Attempts) > 0 {
			verdict = fmt.Sprintf("callback traffic observed (%d attempts)", len(m.result.Attempts))
			style = okStyle
		}
		return style.Render(verdict)
	}
	return ""
}
