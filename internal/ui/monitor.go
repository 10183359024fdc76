package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/spacenav"
	"github.com/bnema/spacenav/internal/logger"
)

// fullDeflection is the nominal axis range of a SpaceMouse puck; gauges
// are normalized against it.
const fullDeflection = 350

// EventMsg delivers one decoded device event to the model.
type EventMsg struct {
	Event spacenav.Event
}

// ErrMsg delivers a wait failure; the dashboard shows it and stops
// updating.
type ErrMsg struct {
	Err error
}

// flushedMsg reports the result of an interactive flush.
type flushedMsg struct {
	count int
	err   error
}

type keyMap struct {
	Flush key.Binding
	Quit  key.Binding
}

var keys = keyMap{
	Flush: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "flush pending"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// MonitorModel renders live axis and button state for one connection.
type MonitorModel struct {
	motion  spacenav.MotionEvent
	buttons map[int32]bool

	motions     uint64
	buttonEvs   uint64
	lastFlushed int

	flush func() (int, error)

	width  int
	height int
	err    error
	keys   keyMap
}

// NewMonitorModel creates the dashboard model. flush is invoked on the
// flush keybinding; pass the connection's Flush.
func NewMonitorModel(flush func() (int, error)) *MonitorModel {
	return &MonitorModel{
		buttons:     map[int32]bool{},
		lastFlushed: -1,
		flush:       flush,
		keys:        keys,
	}
}

func (m *MonitorModel) Init() tea.Cmd {
	return nil
}

func (m *MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Flush):
			flush := m.flush
			if flush == nil {
				return m, nil
			}
			return m, func() tea.Msg {
				n, err := flush()
				return flushedMsg{count: n, err: err}
			}
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case EventMsg:
		switch ev := msg.Event.(type) {
		case spacenav.MotionEvent:
			m.motion = ev
			m.motions++
		case spacenav.ButtonEvent:
			m.buttons[ev.Num] = ev.Press
			m.buttonEvs++
		}
	case flushedMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.lastFlushed = msg.count
		}
	case ErrMsg:
		m.err = msg.Err
	}
	return m, nil
}

func (m *MonitorModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := TitleStyle.Render("Spacenav Monitor")

	axes := []struct {
		label string
		value int32
	}{
		{"x", m.motion.X}, {"y", m.motion.Y}, {"z", m.motion.Z},
		{"rx", m.motion.RX}, {"ry", m.motion.RY}, {"rz", m.motion.RZ},
	}
	rows := make([]string, 0, len(axes))
	for _, a := range axes {
		rows = append(rows, axisGauge(a.label, a.value))
	}

	var pressed []string
	for num, down := range m.buttons {
		if down {
			pressed = append(pressed, fmt.Sprintf("%d", num))
		}
	}
	buttonLine := MutedStyle.Render("buttons: none")
	if len(pressed) > 0 {
		buttonLine = SuccessStyle.Render("buttons: " + strings.Join(pressed, " "))
	}

	counters := SubtleStyle.Render(
		fmt.Sprintf("%d motion / %d button events", m.motions, m.buttonEvs))
	if m.lastFlushed >= 0 {
		counters += SubtleStyle.Render(fmt.Sprintf("  (flushed %d)", m.lastFlushed))
	}

	status := ""
	if m.err != nil {
		status = ErrorStyle.Render(fmt.Sprintf("✗ %v", m.err))
	}

	controls := MutedStyle.Render("[f] flush pending  •  [q] quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		strings.Join(rows, "\n"),
		"",
		buttonLine,
		counters,
		status,
		"",
		controls,
	)
}

// axisGauge draws one axis as a signed bar around a center mark.
func axisGauge(label string, v int32) string {
	const half = 20

	n := int(v) * half / fullDeflection
	if n > half {
		n = half
	}
	if n < -half {
		n = -half
	}

	left := strings.Repeat(" ", half)
	right := strings.Repeat(" ", half)
	if n >= 0 {
		right = BarPositiveStyle.Render(strings.Repeat("█", n)) + strings.Repeat(" ", half-n)
	} else {
		left = strings.Repeat(" ", half+n) + BarNegativeStyle.Render(strings.Repeat("█", -n))
	}

	return fmt.Sprintf("%s %s│%s %s",
		AxisLabelStyle.Render(label), left, right,
		TextStyle.Render(fmt.Sprintf("%5d", v)))
}

// Run drives the dashboard until quit. It spawns a reader pumping
// conn.Wait into the program; a wait failure is shown rather than
// tearing the UI down.
func Run(conn *spacenav.Conn) error {
	m := NewMonitorModel(func() (int, error) {
		return conn.Flush(spacenav.EventAny)
	})
	p := tea.NewProgram(m, tea.WithAltScreen())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			ev, err := conn.Wait()
			if err != nil {
				p.Send(ErrMsg{Err: err})
				return
			}
			p.Send(EventMsg{Event: ev})
		}
	}()

	_, err := p.Run()
	if err != nil {
		return fmt.Errorf("monitor ui: %w", err)
	}

	// Unblock the reader; its wait fails once the session drops.
	if cerr := conn.Close(); cerr != nil {
		logger.Errorf("Failed to close connection: %v", cerr)
	}
	<-done
	return nil
}
