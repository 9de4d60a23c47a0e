package tui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"opcreach/internal/probe"
	"opcreach/pkg/model"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")). // White
			Background(lipgloss.Color("#7D56F4")). // Purple
			Padding(0, 1)

	taskStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5f5fd7")). // Purple/Blue
			Bold(true)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676")) // Dimmed Gray

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff5f5f")). // Soft red
			Bold(true)

	okStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#22aa22")). // Green
			Bold(true)
)

type MainModel struct {
	session *probe.Session

	spin     spinner.Model
	bar      progress.Model
	logView  viewport.Model
	logLines []string

	task    string
	percent int
	result  *model.ProbeResult
	errMsg  string
	done    bool

	width    int
	height   int
	quitting bool
	version  string
}

func InitialModel(session *probe.Session, version string) MainModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = taskStyle

	vp := viewport.New(0, 0)
	vp.YPosition = 0

	return MainModel{
		session: session,
		spin:    sp,
		bar:     progress.New(progress.WithDefaultGradient()),
		logView: vp,
		task:    "Starting probe",
		version: version,
	}
}

// Start runs the observer until the probe finishes or the user quits.
func Start(session *probe.Session, version string) error {
	if os.Getenv("COLORTERM") == "" {
		os.Setenv("COLORTERM", "truecolor") //nolint:errcheck
	}

	p := tea.NewProgram(InitialModel(session, version), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running tui: %w", err)
	}
	return nil
}

func (m MainModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, waitEvent(m.session.Events()))
}
