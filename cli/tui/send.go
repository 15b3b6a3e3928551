package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/pithecene-io/qrtx/metrics"
	"github.com/pithecene-io/qrtx/payload"
	"github.com/pithecene-io/qrtx/session"
)

// DefaultAutoplay is the autoplay advance interval.
const DefaultAutoplay = 500 * time.Millisecond

// builtMsg carries a frame sequence built off the update loop.
type builtMsg struct {
	seq *session.Sequence
	err error
}

// tickMsg advances autoplay. gen ties a tick to the sequence it was
// scheduled for so that a rebuild does not double the cadence.
type tickMsg struct {
	gen int
}

// SendModel is a Bubble Tea model that displays a frame sequence as QR codes.
type SendModel struct {
	sender    *session.Sender
	container *payload.Container
	opts      session.SendOptions
	interval  time.Duration
	metrics   *metrics.Collector

	gen      int
	paused   bool
	index    int
	total    int
	code     string
	err      error
	quitting bool
}

// NewSendModel creates a send model for c. Frames are built by Init's
// command, not here. A zero interval selects DefaultAutoplay.
func NewSendModel(c *payload.Container, opts session.SendOptions, interval time.Duration, m *metrics.Collector) SendModel {
	if interval <= 0 {
		interval = DefaultAutoplay
	}
	return SendModel{
		sender:    session.NewSender(),
		container: c,
		opts:      opts,
		interval:  interval,
		metrics:   m,
	}
}

// Init implements tea.Model.
func (m SendModel) Init() tea.Cmd {
	c, opts := m.container, m.opts
	return func() tea.Msg {
		seq, err := session.BuildFrames(c, opts)
		return builtMsg{seq: seq, err: err}
	}
}

// Update implements tea.Model.
func (m SendModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case builtMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.sender.Set(msg.seq)
		m.gen++
		m.show(m.sender.Current())
		return m, m.tick()

	case tickMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		if !m.paused {
			m.show(m.sender.Next())
		}
		return m, m.tick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m SendModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, keys.Pause):
		m.paused = !m.paused
	case key.Matches(msg, keys.Next):
		m.paused = true
		m.show(m.sender.Next())
	case key.Matches(msg, keys.Prev):
		m.paused = true
		m.show(m.sender.Prev())
	case key.Matches(msg, keys.First):
		m.paused = true
		m.show(m.sender.Seek(0))
	}
	return m, nil
}

func (m SendModel) tick() tea.Cmd {
	gen := m.gen
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		return tickMsg{gen: gen}
	})
}

// show renders the frame returned by a Sender navigation call.
func (m *SendModel) show(text string, index int, err error) {
	if err != nil {
		m.err = err
		return
	}
	code, err := RenderQR(text)
	if err != nil {
		m.err = err
		return
	}
	m.index = index
	m.total = m.sender.Len()
	m.code = code
	m.err = nil
	m.metrics.IncFrameDisplayed()
}

// Counter returns the 1-based k:n frame counter, or "" before frames exist.
func (m SendModel) Counter() string {
	if m.total == 0 {
		return ""
	}
	return fmt.Sprintf("%d:%d", m.index+1, m.total)
}

// Paused reports whether autoplay is paused.
func (m SendModel) Paused() bool {
	return m.paused
}

// Err returns the last build or render error.
func (m SendModel) Err() error {
	return m.err
}

// View implements tea.Model.
func (m SendModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(m.container.Name))
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(ErrorStyle.Render("error: " + m.err.Error()))
	case m.total == 0:
		b.WriteString(LabelStyle.Render("building frames..."))
	default:
		b.WriteString(CodeStyle.Render(m.code))
		b.WriteString("\n")
		b.WriteString(CounterStyle.Render(m.Counter()))
		if m.paused {
			b.WriteString(" " + StatusStyle("paused").Render("paused"))
		}
	}

	b.WriteString("\n")
	b.WriteString(HelpStyle.Render(helpLine(keys.Next, keys.Prev, keys.Pause, keys.Quit)))
	return b.String()
}

// RenderQR renders text as a compact QR code using half-block characters,
// at the lowest error correction level.
func RenderQR(text string) (string, error) {
	q, err := qrcode.New(text, qrcode.Low)
	if err != nil {
		return "", fmt.Errorf("render frame: %w", err)
	}
	return strings.TrimRight(q.ToSmallString(false), "\n"), nil
}

// RunSendTUI runs the send TUI until the operator quits.
func RunSendTUI(c *payload.Container, opts session.SendOptions, interval time.Duration, m *metrics.Collector) error {
	p := tea.NewProgram(NewSendModel(c, opts, interval, m), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return err
	}
	if sm, ok := final.(SendModel); ok && sm.err != nil && sm.total == 0 {
		return sm.err
	}
	return nil
}
