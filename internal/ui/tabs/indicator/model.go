// Package indicator provides the tab that mirrors the tray icon and tooltip.
package indicator

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/usage-indicator/internal/app"
	"github.com/j-veylop/usage-indicator/internal/models"
	"github.com/j-veylop/usage-indicator/internal/tooltip"
	"github.com/j-veylop/usage-indicator/internal/ui/components"
)

// Usage window lengths used to draw the reset bars.
const (
	weeklyWindow  = 7 * 24 * time.Hour
	sessionWindow = 5 * time.Hour
)

// tickTimeout is how long without a frame before the chain counts as lost.
const tickTimeout = 250 * time.Millisecond

// keyMap defines the key bindings specific to the indicator tab.
type keyMap struct {
	Copy   key.Binding
	Export key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Copy: key.NewBinding(
			key.WithKeys("y", "c"),
			key.WithHelp("y", "copy tooltip"),
		),
		Export: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "export icon"),
		),
	}
}

// Options configures what the tab shows.
type Options struct {
	// Metric is the percentage the icon tracks.
	Metric models.Metric
	// StaleAfter matches the renderer setting.
	StaleAfter time.Duration
	// Location is used for clock times. Nil means local time.
	Location *time.Location
}

// Model represents the indicator tab state.
type Model struct {
	state       *app.State
	opts        Options
	now         func() time.Time
	keys        keyMap
	spinner     components.LoadingSpinner
	viewport    viewport.Model
	weeklyBar   components.UsageBar
	sessionBar  components.UsageBar
	lastVersion uint64
	synced      bool
	lastTick    time.Time
	width       int
	height      int
}

// New creates a new indicator model.
func New(state *app.State, opts Options) *Model {
	return &Model{
		state:      state,
		opts:       opts,
		now:        time.Now,
		keys:       defaultKeyMap(),
		spinner:    components.NewSpinner("Waiting for first poll..."),
		viewport:   viewport.New(0, 0),
		weeklyBar:  components.NewUsageBar("Weekly", 30),
		sessionBar: components.NewUsageBar("5-hour", 30),
	}
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Init()
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	var cmds []tea.Cmd

	m.syncBars()

	switch msg := msg.(type) {
	case components.AnimationTickMsg:
		// The tab owns a single tick chain for both bars.
		m.weeklyBar, _ = m.weeklyBar.Update(msg)
		m.sessionBar, _ = m.sessionBar.Update(msg)
		m.lastTick = time.Now()
		if m.weeklyBar.Animating() || m.sessionBar.Animating() {
			cmds = append(cmds, components.AnimationTick())
		}

	case spinner.TickMsg:
		if v, ok := m.state.View(); !ok || !v.HasSnapshot() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKeyMsg(msg))
		cmds = append(cmds, m.animate())

	default:
		cmds = append(cmds, m.animate())
	}

	return m, tea.Batch(cmds...)
}

// animate starts a tick chain when the bars are easing and no chain is
// alive. Ticks are dropped while another tab is active.
func (m *Model) animate() tea.Cmd {
	if !m.weeklyBar.Animating() && !m.sessionBar.Animating() {
		return nil
	}
	if time.Since(m.lastTick) < tickTimeout {
		return nil
	}
	m.lastTick = time.Now()
	return components.AnimationTick()
}

// syncBars retargets the usage bars when a newer view arrived.
func (m *Model) syncBars() {
	v, ok := m.state.View()
	if !ok || (m.synced && v.Version == m.lastVersion) {
		return
	}
	m.lastVersion = v.Version
	m.synced = true
	m.weeklyBar.SetPercent(v.Percent(models.MetricWeekly))
	m.sessionBar.SetPercent(v.Percent(models.MetricSixHour))
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Copy):
		text := m.tooltip()
		return func() tea.Msg {
			return app.CopyToClipboardMsg{Text: text, Label: "tooltip"}
		}
	case key.Matches(msg, m.keys.Export):
		return func() tea.Msg { return app.ExportIconMsg{} }
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return cmd
}

func (m *Model) tooltip() string {
	v, _ := m.state.View()
	return tooltip.Format(v, m.now(), tooltip.Options{
		Location:   m.opts.Location,
		StaleAfter: m.opts.StaleAfter,
	})
}

// SetSize sets the available size for the tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Copy, m.keys.Export}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{{m.keys.Copy, m.keys.Export}}
}
