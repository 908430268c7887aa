package indicator

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/usage-indicator/internal/models"
	"github.com/j-veylop/usage-indicator/internal/state"
	"github.com/j-veylop/usage-indicator/internal/ui/components"
	"github.com/j-veylop/usage-indicator/internal/ui/styles"
)

// View renders the indicator tab.
func (m *Model) View() string {
	v, ok := m.state.View()
	now := m.now()
	if !ok || !v.HasSnapshot() {
		m.spinner.SetPolling(v.Polling, now)
		return components.RenderSpinnerCentered(m.spinner, m.width, m.height)
	}

	cardWidth := min(max(m.width-6, 44), 90)

	top := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderIconCard(v, now),
		"  ",
		m.renderUsageCard(v, now, max(cardWidth-24, 30)),
	)

	content := lipgloss.JoinVertical(lipgloss.Left,
		m.renderTitle(),
		top,
		m.renderTooltipCard(cardWidth),
	)

	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Claude Usage")
	subtitle := styles.HelpStyle.Render("Tray icon preview and usage windows")
	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

// renderIconCard shows the icon as the tray would draw it plus a status badge.
func (m *Model) renderIconCard(v state.View, now time.Time) string {
	status := v.Status(now, m.opts.StaleAfter)

	var preview string
	if bmp := m.state.Icon(); bmp != nil {
		preview = components.RenderImage(bmp.Image())
	} else {
		preview = styles.HelpStyle.Render("no icon")
	}

	rows := []string{
		styles.CardTitleStyle.Render("Icon"),
		preview,
		"",
		styles.GetStatusStyle(status).Render(statusText(status)),
	}
	return styles.CardStyle.Render(lipgloss.JoinVertical(lipgloss.Center, rows...))
}

func statusText(s models.StatusClass) string {
	return strings.ToUpper(strings.ReplaceAll(s.String(), "_", " "))
}

func (m *Model) renderUsageCard(v state.View, now time.Time, width int) string {
	rows := []string{styles.CardTitleStyle.Render("Usage")}

	weeklyReset, sessionReset := time.Time{}, time.Time{}
	if v.Last != nil {
		weeklyReset, sessionReset = v.Last.WeeklyResetAt, v.Last.SixHourResetAt
	}

	rows = append(rows,
		m.marker(models.MetricWeekly)+m.weeklyBar.View(width),
		m.resetRow(weeklyReset, now, weeklyWindow, width),
		"",
		m.marker(models.MetricSixHour)+m.sessionBar.View(width),
		m.resetRow(sessionReset, now, sessionWindow, width),
	)

	if v.Last != nil {
		fetched := "Fetched " + humanize.RelTime(v.Last.FetchedAt, now, "ago", "from now")
		style := styles.HelpStyle
		if v.IsStale(now, m.opts.StaleAfter) {
			fetched += ", may be outdated"
			style = lipgloss.NewStyle().Foreground(styles.Warning)
		}
		rows = append(rows, "", style.Render(fetched))
	}

	return styles.CardStyle.Width(width + 6).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// marker flags the metric that drives the icon.
func (m *Model) marker(metric models.Metric) string {
	if metric == m.opts.Metric {
		return lipgloss.NewStyle().Foreground(styles.Primary).Render("◆ ")
	}
	return "  "
}

func (m *Model) resetRow(resetAt, now time.Time, window time.Duration, width int) string {
	label := "not started"
	if !resetAt.IsZero() {
		label = "resets " + humanize.RelTime(resetAt, now, "ago", "from now")
	}
	bar := components.RenderResetBar(resetAt, now, window, max(width-36, 10))
	return fmt.Sprintf("            %s %s", bar, styles.HelpStyle.Render(label))
}

func (m *Model) renderTooltipCard(width int) string {
	rows := []string{
		styles.CardTitleStyle.Render("Tooltip"),
		m.tooltip(),
		"",
		styles.HelpStyle.Render("Press 'y' to copy, 'e' to export the icon"),
	}
	return styles.CardStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
