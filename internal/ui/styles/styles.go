// Package styles defines the visual styling for the application.
package styles

import (
	"fmt"
	"image/color"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/usage-indicator/internal/icon"
	"github.com/j-veylop/usage-indicator/internal/models"
)

// Terminal palette. Usage and status colours come from the icon palette so
// the preview and the surrounding text agree.
var (
	Primary = lipgloss.Color("208") // Orange
	Subtle  = lipgloss.Color("240")

	Success = FromRGBA(icon.BandColor(icon.BandNominal))
	Warning = FromRGBA(icon.BandColor(icon.BandElevated))
	Error   = FromRGBA(icon.BandColor(icon.BandCritical))
	Info    = lipgloss.Color("39")

	BgDark  = lipgloss.Color("235")
	BgLight = lipgloss.Color("237")

	TextPrimary   = lipgloss.Color("252")
	TextSecondary = lipgloss.Color("245")
	TextMuted     = lipgloss.Color("240")
)

// Layout.
var (
	DocStyle = lipgloss.NewStyle().
			Margin(1, 2).
			Padding(0, 1)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			MarginBottom(1)

	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Subtle).
			Padding(1, 2).
			MarginBottom(1)

	CardTitleStyle = TitleStyle

	ProgressLabelStyle = lipgloss.NewStyle().
				Foreground(TextSecondary).
				Width(20)
)

// Help and toasts.
var (
	HelpStyle = lipgloss.NewStyle().Foreground(TextMuted)

	HelpPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(Primary).
			Padding(1, 3).
			Background(BgDark)

	ToastStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(0, 1).
			MarginBottom(1)

	ErrorTextStyle   = lipgloss.NewStyle().Foreground(Error)
	SuccessTextStyle = lipgloss.NewStyle().Foreground(Success)
	InfoTextStyle    = lipgloss.NewStyle().Foreground(Info)

	UsageUnknownStyle = lipgloss.NewStyle().Foreground(Subtle)
)

// FromRGBA converts an icon colour to a terminal colour.
func FromRGBA(c color.NRGBA) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B))
}

// GetUsageStyle returns the style for a usage percentage, banded the same
// way as the icon. Negative values mean the percentage is unknown.
func GetUsageStyle(percent float64) lipgloss.Style {
	pct := icon.Quantize(percent)
	if pct == icon.Unknown {
		return UsageUnknownStyle
	}
	band := icon.BandFor(pct)
	s := lipgloss.NewStyle().Foreground(FromRGBA(icon.BandColor(band)))
	if band == icon.BandCritical {
		s = s.Bold(true)
	}
	return s
}

// GetStatusStyle returns the badge style for a display status. Error states
// use the icon's border colour as the badge background.
func GetStatusStyle(status models.StatusClass) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	if c, ok := icon.StatusColor(status); ok {
		return base.Foreground(FromRGBA(icon.TextColor(c))).Background(FromRGBA(c))
	}
	switch status {
	case models.StatusNormal:
		nominal := icon.BandColor(icon.BandNominal)
		return base.Foreground(FromRGBA(icon.TextColor(nominal))).Background(FromRGBA(nominal))
	case models.StatusStale:
		return base.Foreground(TextPrimary).Background(Subtle)
	default:
		return base.Foreground(TextSecondary)
	}
}

// CenterBoth centers content both horizontally and vertically.
func CenterBoth(content string, width, height int) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center).
		AlignVertical(lipgloss.Center).
		Render(content)
}
