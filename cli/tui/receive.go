package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pithecene-io/qrtx/session"
	"github.com/pithecene-io/qrtx/types"
)

// OutcomeMsg delivers one receiver outcome to the model.
type OutcomeMsg session.Outcome

// DeliveredMsg reports where a finished transfer was delivered.
type DeliveredMsg struct {
	Name     string
	Location string
	Err      error
}

// DoneMsg ends the receive TUI.
type DoneMsg struct{}

const maxRecent = 5

// ReceiveModel is a Bubble Tea model that shows reassembly progress.
type ReceiveModel struct {
	bar      progress.Model
	last     session.Outcome
	seen     bool
	recent   []string
	width    int
	quitting bool
}

// NewReceiveModel creates an idle receive model.
func NewReceiveModel() ReceiveModel {
	return ReceiveModel{
		bar: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

// Init implements tea.Model.
func (m ReceiveModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ReceiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		if w := msg.Width - 4; w > 10 && w < 80 {
			m.bar.Width = w
		}
		return m, nil

	case OutcomeMsg:
		o := session.Outcome(msg)
		// Stale and malformed frames do not disturb the transfer on screen.
		if o.Kind == types.OutcomeRejected && !o.Fatal() {
			return m, nil
		}
		m.last = o
		m.seen = true
		if o.Fatal() {
			m.push(ErrorStyle.Render(fmt.Sprintf("%s: %s", o.Reason, o.Err)))
		}
		return m, nil

	case DeliveredMsg:
		if msg.Err != nil {
			m.push(ErrorStyle.Render(fmt.Sprintf("%s: %v", msg.Name, msg.Err)))
		} else {
			m.push(SuccessStyle.Render(fmt.Sprintf("%s -> %s", msg.Name, msg.Location)))
		}
		return m, nil

	case DoneMsg:
		m.quitting = true
		return m, tea.Quit

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m *ReceiveModel) push(line string) {
	m.recent = append(m.recent, line)
	if len(m.recent) > maxRecent {
		m.recent = m.recent[len(m.recent)-maxRecent:]
	}
}

// Percent returns the completed fraction of the transfer on screen.
func (m ReceiveModel) Percent() float64 {
	if m.last.Expected == 0 || m.last.Kind == types.OutcomeRejected {
		return 0
	}
	return float64(m.last.Received) / float64(m.last.Expected)
}

// Status returns the progress line for the transfer on screen.
func (m ReceiveModel) Status() string {
	if !m.seen {
		return "waiting for frames"
	}
	return m.last.String()
}

// View implements tea.Model.
func (m ReceiveModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("qrtx receive"))
	b.WriteString("\n\n")
	b.WriteString(m.bar.ViewAs(m.Percent()))
	b.WriteString("\n")

	status := m.Status()
	switch {
	case m.seen && m.last.Kind == types.OutcomeFinished:
		status = SuccessStyle.Render(status)
	case m.seen && m.last.Fatal():
		status = ErrorStyle.Render(status)
	default:
		status = ValueStyle.Render(status)
	}
	b.WriteString(status)
	b.WriteString("\n")

	for _, line := range m.recent {
		b.WriteString("\n" + line)
	}

	b.WriteString("\n")
	b.WriteString(HelpStyle.Render(helpLine(keys.Quit)))
	return b.String()
}

// NewReceiveProgram creates the receive TUI program. Callers feed it with
// Program.Send and run it with Program.Run.
func NewReceiveProgram(opts ...tea.ProgramOption) *tea.Program {
	return tea.NewProgram(NewReceiveModel(), opts...)
}
