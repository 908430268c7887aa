package activity

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/usage-indicator/internal/app"
	"github.com/j-veylop/usage-indicator/internal/models"
	"github.com/j-veylop/usage-indicator/internal/services/poller"
	"github.com/j-veylop/usage-indicator/internal/ui/components"
	"github.com/j-veylop/usage-indicator/internal/ui/styles"
)

// View renders the activity tab.
func (m *Model) View() string {
	samples := m.state.Samples()
	if len(samples) == 0 {
		return m.renderEmpty()
	}
	transitions := m.state.Transitions()

	content := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(samples, transitions),
		m.renderChart(samples),
		m.renderLog(transitions),
	)
	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderEmpty() string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		styles.TitleStyle.Render("Activity"),
		"",
		styles.HelpStyle.Render("No poll cycles recorded yet."),
		styles.HelpStyle.Render("Charts appear after the first poll completes."),
	)
	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(content)
}

func (m *Model) renderHeader(samples []app.Sample, transitions []poller.Transition) string {
	failures := 0
	for _, t := range transitions {
		if t.Failure != nil {
			failures++
		}
	}

	title := styles.TitleStyle.Render("Activity")
	rangeStyle := lipgloss.NewStyle().
		Foreground(styles.Primary).
		Bold(true).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Primary)
	header := lipgloss.JoinHorizontal(lipgloss.Center, title, "  ",
		rangeStyle.Render("[t] "+m.mode.String()))

	first := samples[0].At.In(m.loc)
	subtitle := styles.HelpStyle.Render(fmt.Sprintf("%d polls since %s, %d failed",
		len(samples), first.Format("Jan 2 15:04"), failures))

	return lipgloss.JoinVertical(lipgloss.Left, header, subtitle, "")
}

func (m *Model) renderChart(samples []app.Sample) string {
	cardWidth := max(m.width-6, 40)
	chartWidth := max(cardWidth-12, 30)
	chartHeight := 8

	rows := []string{styles.CardTitleStyle.Render(m.mode.String()), ""}

	var chart string
	switch m.mode {
	case chartInterval:
		chart = components.RenderLineChart(delayMinutes(samples), chartWidth, chartHeight,
			fmt.Sprintf("Minutes until next poll, last %d cycles", len(samples)))
	default:
		weekly, session := usageSeries(samples)
		chart = components.RenderDualLineChart(weekly, session, chartWidth, chartHeight,
			fmt.Sprintf("Usage %%, last %d cycles", len(samples)))
	}
	for line := range strings.SplitSeq(chart, "\n") {
		rows = append(rows, "  "+line)
	}

	rows = append(rows, "")
	if m.mode == chartUsage {
		rows = append(rows, "  "+components.RenderLegend([]components.LegendItem{
			{Label: "Weekly", Color: components.ChartWeeklyColor},
			{Label: "5-hour", Color: components.ChartSessionColor},
		}))
	}

	weekly, _ := usageSeries(samples)
	rows = append(rows, fmt.Sprintf("  %s %s",
		styles.ProgressLabelStyle.Render("Trend"),
		components.RenderUsageSparkline(weekly, chartWidth-8)))

	return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderLog(transitions []poller.Transition) string {
	cardWidth := max(m.width-6, 40)
	rows := []string{styles.CardTitleStyle.Render("Transitions"), ""}

	shown := 0
	for i := len(transitions) - 1; i >= 0 && shown < maxLogLines; i-- {
		rows = append(rows, transitionLine(transitions[i], m.loc))
		shown++
	}
	if shown == 0 {
		rows = append(rows, styles.HelpStyle.Render("  No transitions yet"))
	}

	return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// transitionLine renders one log entry: time, state change and outcome.
func transitionLine(t poller.Transition, loc *time.Location) string {
	change := fmt.Sprintf("%s → %s", kindOf(t.From), kindOf(t.To))

	var outcome string
	switch {
	case t.Failure != nil:
		outcome = styles.ErrorTextStyle.Render(t.Failure.Kind.Label())
		if t.Failure.Message != "" {
			outcome += styles.HelpStyle.Render(": " + truncate(t.Failure.Message, 48))
		}
	case t.Snapshot != nil:
		outcome = styles.SuccessTextStyle.Render(fmt.Sprintf("%.0f%% / %.0f%%",
			t.Snapshot.WeeklyPct, t.Snapshot.SixHourPct))
	}

	next := "halted"
	if !t.NextPollAt.IsZero() {
		next = "next " + t.NextPollAt.In(loc).Format("15:04:05")
	}

	return fmt.Sprintf("  %s  %-28s %s  %s",
		t.At.In(loc).Format("15:04:05"),
		change,
		styles.HelpStyle.Render(next),
		outcome,
	)
}

func kindOf(p models.PollingState) string {
	if p == nil {
		return models.PollingIdle.String()
	}
	return p.Kind().String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// usageSeries returns the weekly and 5-hour series, holding the last known
// value across failed polls.
func usageSeries(samples []app.Sample) (weekly, session []float64) {
	weekly = make([]float64, len(samples))
	session = make([]float64, len(samples))
	for i, s := range samples {
		weekly[i], session[i] = s.Weekly, s.SixHour
	}
	return carryForward(weekly), carryForward(session)
}

// carryForward replaces unknown (negative) values with the previous known
// one. Leading unknowns become zero.
func carryForward(values []float64) []float64 {
	last := 0.0
	for i, v := range values {
		if v < 0 {
			values[i] = last
			continue
		}
		last = v
	}
	return values
}

func delayMinutes(samples []app.Sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Delay.Minutes()
	}
	return out
}
