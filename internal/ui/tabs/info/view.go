package info

import (
	"fmt"
	"runtime"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/usage-indicator/internal/models"
	"github.com/j-veylop/usage-indicator/internal/ui/styles"
	"github.com/j-veylop/usage-indicator/internal/version"
)

// View renders the info tab.
func (m *Model) View() string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		m.renderTitle(),
		m.renderConfigCard(),
		m.renderRendererCard(),
		m.renderAboutCard(),
	)

	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

// renderTitle renders the info tab title.
func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Info")
	subtitle := styles.HelpStyle.Render("Configuration and application information")

	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) cardWidth() int {
	return min(max(m.width-6, 50), 80)
}

// renderConfigCard renders the effective configuration.
func (m *Model) renderConfigCard() string {
	rows := []string{styles.CardTitleStyle.Render("Configuration"), ""}

	if c := m.config; c != nil {
		envPath := c.EnvPath
		if envPath == "" {
			envPath = "(environment only)"
		}
		rows = append(rows,
			renderRow("Env File", envPath),
			renderRow("Organization", orDash(c.OrgID)),
			renderRow("Session Key", maskSecret(c.SessionKey)),
			renderRow("API", c.BaseURL),
			"",
			renderRow("Interval", fmt.Sprintf("%s to %s, +%s / x%s",
				models.ShortDuration(c.MinInterval),
				models.ShortDuration(c.MaxInterval),
				models.ShortDuration(c.AdditiveStep),
				strconv.FormatFloat(c.DecreaseFactor, 'f', -1, 64))),
			renderRow("Retry", fmt.Sprintf("%s to %s, %d attempts",
				models.ShortDuration(c.RetryBaseDelay),
				models.ShortDuration(c.RetryMaxDelay),
				c.RetryMaxAttempts)),
			renderRow("Stale After", models.ShortDuration(c.StaleAfter)),
			renderRow("Icon Metric", c.IconMetric.String()),
			renderRow("Notifications", strconv.FormatBool(c.Notifications)),
			renderRow("Log Level", c.LogLevel),
		)
		if m.source != nil {
			rows = append(rows,
				renderRow("Endpoint", m.source.Endpoint()),
				renderRow("Current Interval", models.ShortDuration(m.source.Interval())),
			)
		}
		rows = append(rows, "", styles.HelpStyle.Render("Press 'c' to copy the env file path"))
	} else {
		rows = append(rows, styles.HelpStyle.Render("Configuration not loaded"))
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

// renderRendererCard shows icon cache activity.
func (m *Model) renderRendererCard() string {
	if m.source == nil || m.source.Renderer() == nil {
		return ""
	}
	stats := m.source.Renderer().Stats()

	hitRate := "n/a"
	if total := stats.Hits + stats.Renders; total > 0 {
		hitRate = fmt.Sprintf("%.0f%%", float64(stats.Hits)/float64(total)*100)
	}

	rows := []string{
		styles.CardTitleStyle.Render("Icon Renderer"),
		"",
		renderRow("Renders", humanize.Comma(stats.Renders)),
		renderRow("Cache Hits", humanize.Comma(stats.Hits)),
		renderRow("Hit Rate", hitRate),
		renderRow("Cached Icons", strconv.Itoa(stats.Cached)),
	}
	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

// renderRow renders a key-value row.
func renderRow(label, value string) string {
	labelStyle := lipgloss.NewStyle().
		Width(18).
		Foreground(styles.TextMuted)

	valueStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimary)

	return labelStyle.Render(label+":") + " " + valueStyle.Render(value)
}

// renderAboutCard renders the about/version information card.
func (m *Model) renderAboutCard() string {
	rows := []string{
		styles.CardTitleStyle.Render("About Usage Indicator"),
		"",
		renderRow("Version", version.GetVersion()),
		renderRow("Build Date", orDash(version.GetDate())),
		renderRow("Git Commit", version.GetCommit()),
		renderRow("Go Version", runtime.Version()),
		renderRow("Platform", fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)),
	}

	if updated := m.state.GetLastUpdated(); !updated.IsZero() {
		rows = append(rows, "", fmt.Sprintf("Last update: %s",
			styles.InfoTextStyle.Render(humanize.Time(updated))))
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

// maskSecret keeps the first and last four characters of s.
func maskSecret(s string) string {
	switch {
	case s == "":
		return "-"
	case len(s) <= 12:
		return "********"
	default:
		return s[:4] + "..." + s[len(s)-4:]
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
