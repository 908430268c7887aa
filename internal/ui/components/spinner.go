package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/usage-indicator/internal/models"
	"github.com/j-veylop/usage-indicator/internal/ui/styles"
)

// LoadingSpinner shows poll loop activity while no usage is known.
type LoadingSpinner struct {
	spinner spinner.Model
	label   string
	style   lipgloss.Style
}

// NewSpinner creates a new loading spinner with the given label.
func NewSpinner(label string) LoadingSpinner {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = lipgloss.NewStyle().Foreground(styles.Primary)

	return LoadingSpinner{
		spinner: s,
		label:   label,
		style:   lipgloss.NewStyle().Foreground(styles.TextSecondary),
	}
}

// Init initializes the spinner model.
func (l LoadingSpinner) Init() tea.Cmd {
	return l.spinner.Tick
}

// Update handles spinner tick messages.
func (l LoadingSpinner) Update(msg tea.Msg) (LoadingSpinner, tea.Cmd) {
	var cmd tea.Cmd
	l.spinner, cmd = l.spinner.Update(msg)
	return l, cmd
}

// View renders the spinner without label.
func (l LoadingSpinner) View() string {
	return l.spinner.View()
}

// ViewWithLabel renders the spinner with its label.
func (l LoadingSpinner) ViewWithLabel() string {
	return l.spinner.View() + " " + l.style.Render(l.label)
}

// SetPolling relabels and restyles the spinner for the poll loop state.
func (l *LoadingSpinner) SetPolling(p models.PollingState, now time.Time) {
	l.label = PollLabel(p, now)

	kind := models.PollingIdle
	if p != nil {
		kind = p.Kind()
	}
	switch kind {
	case models.PollingBackoff, models.PollingRateLimited:
		l.spinner.Spinner = spinner.Pulse
		l.spinner.Style = lipgloss.NewStyle().Foreground(styles.Warning)
	case models.PollingAuthError:
		l.spinner.Spinner = spinner.Spinner{Frames: []string{"!"}, FPS: time.Second}
		l.spinner.Style = lipgloss.NewStyle().Foreground(styles.Error)
	default:
		l.spinner.Spinner = spinner.MiniDot
		l.spinner.Style = lipgloss.NewStyle().Foreground(styles.Primary)
	}
}

// PollLabel describes what the poll loop is doing before the first reading.
func PollLabel(p models.PollingState, now time.Time) string {
	switch s := p.(type) {
	case models.Backoff:
		return fmt.Sprintf("Retrying in %s (attempt %d)...",
			models.ShortDuration(max(s.Until.Sub(now), 0)), s.Attempt)
	case models.RateLimited:
		return fmt.Sprintf("Rate limited, next try in %s...",
			models.ShortDuration(max(s.Until.Sub(now), 0)))
	case models.AuthError:
		return "Authentication failed, press r to retry"
	default:
		return "Waiting for first poll..."
	}
}

// SetLabel updates the spinner's label.
func (l *LoadingSpinner) SetLabel(label string) {
	l.label = label
}

// Label returns the current label.
func (l LoadingSpinner) Label() string {
	return l.label
}

// Tick returns the tick command for the spinner.
func (l LoadingSpinner) Tick() tea.Cmd {
	return l.spinner.Tick
}

// RenderSpinnerCentered renders a spinner centered in a given width and height.
func RenderSpinnerCentered(s LoadingSpinner, width, height int) string {
	content := s.ViewWithLabel()
	return styles.CenterBoth(content, width, height)
}
