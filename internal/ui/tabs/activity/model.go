// Package activity provides the tab that charts poll cycles and lists
// state transitions.
package activity

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/usage-indicator/internal/app"
)

// chartMode selects what the main chart plots.
type chartMode int

const (
	chartUsage chartMode = iota
	chartInterval
)

// String returns the chart title.
func (c chartMode) String() string {
	if c == chartInterval {
		return "Poll Interval"
	}
	return "Usage"
}

// maxLogLines bounds the transition log shown on screen.
const maxLogLines = 30

// keyMap defines the key bindings specific to the activity tab.
type keyMap struct {
	ToggleChart key.Binding
	Up          key.Binding
	Down        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		ToggleChart: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "toggle chart"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
	}
}

// Model represents the activity tab state.
type Model struct {
	state    *app.State
	loc      *time.Location
	keys     keyMap
	viewport viewport.Model
	mode     chartMode
	width    int
	height   int
}

// New creates a new activity model. A nil loc means local time.
func New(state *app.State, loc *time.Location) *Model {
	if loc == nil {
		loc = time.Local
	}
	return &Model{
		state:    state,
		loc:      loc,
		keys:     defaultKeyMap(),
		viewport: viewport.New(0, 0),
	}
}

// Init initializes the activity tab.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the activity tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	switch msg := msg.(type) {
	case app.TabSwitchMsg:
		if msg.Tab == app.TabActivity {
			m.viewport.GotoTop()
		}

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.ToggleChart) {
			m.mode = (m.mode + 1) % 2
			return m, nil
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

// SetSize sets the available size for the activity tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.ToggleChart}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.ToggleChart},
		{m.keys.Up, m.keys.Down},
	}
}
