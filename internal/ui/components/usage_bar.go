package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/usage-indicator/internal/logger"
	"github.com/j-veylop/usage-indicator/internal/ui/styles"
)

// Gradient endpoints for consumption bars: calm at zero, hot at full.
const (
	usageColorLow  = "#51cf66"
	usageColorHigh = "#ff6b6b"
	resetColorFrom = "#ffd93d"
	resetColorTo   = "#6c5ce7"
)

// AnimationTickMsg advances usage bar easing.
type AnimationTickMsg time.Time

// AnimationTick schedules the next animation frame.
func AnimationTick() tea.Cmd {
	return tea.Tick(time.Millisecond*50, func(t time.Time) tea.Msg {
		return AnimationTickMsg(t)
	})
}

// UsageBar renders a usage progress bar that eases towards its target.
type UsageBar struct {
	progress       progress.Model
	label          string
	targetPercent  float64
	currentPercent float64
	isAnimating    bool
}

// NewUsageBar creates a usage bar of the given width.
func NewUsageBar(label string, width int) UsageBar {
	p := progress.New(
		progress.WithScaledGradient(usageColorLow, usageColorHigh),
		progress.WithWidth(width),
		progress.WithoutPercentage(),
	)
	return UsageBar{progress: p, label: label}
}

// Init initializes the progress bar model.
func (u UsageBar) Init() tea.Cmd {
	return nil
}

// Update advances the easing animation.
func (u UsageBar) Update(msg tea.Msg) (UsageBar, tea.Cmd) {
	if _, ok := msg.(AnimationTickMsg); !ok || !u.isAnimating {
		return u, nil
	}

	diff := u.targetPercent - u.currentPercent
	if diff == 0 {
		u.isAnimating = false
		return u, nil
	}

	step := max(abs(diff)/10, 0.5)
	if diff > 0 {
		u.currentPercent = min(u.currentPercent+step, u.targetPercent)
	} else {
		u.currentPercent = max(u.currentPercent-step, u.targetPercent)
	}
	return u, AnimationTick()
}

// SetPercent sets the target percentage and starts easing towards it.
// Negative values mark the percentage as unknown.
func (u *UsageBar) SetPercent(percent float64) tea.Cmd {
	u.targetPercent = percent
	if percent < 0 {
		u.currentPercent = percent
		u.isAnimating = false
		return nil
	}
	if u.currentPercent < 0 {
		u.currentPercent = 0
	}
	if u.isAnimating {
		return nil
	}
	u.isAnimating = true
	return AnimationTick()
}

// Percent returns the displayed percentage.
func (u UsageBar) Percent() float64 {
	return u.currentPercent
}

// Animating reports whether the bar is still easing towards its target.
func (u UsageBar) Animating() bool {
	return u.isAnimating
}

// Target returns the percentage being eased towards.
func (u UsageBar) Target() float64 {
	return u.targetPercent
}

// SetLabel sets the bar label.
func (u *UsageBar) SetLabel(label string) {
	u.label = label
}

// View renders the label, the bar and the percentage.
func (u UsageBar) View(width int) string {
	labelStr := styles.ProgressLabelStyle.Width(10).Render(u.label)

	barWidth := max(width-20, 10)
	if u.targetPercent < 0 {
		empty := lipgloss.NewStyle().Foreground(styles.Subtle).Render(strings.Repeat("░", barWidth))
		return lipgloss.JoinHorizontal(lipgloss.Center, labelStr, empty, " ",
			styles.UsageUnknownStyle.Width(6).Align(lipgloss.Right).Render("--"))
	}

	u.progress.Width = barWidth
	bar := u.progress.ViewAs(clampUnit(u.currentPercent / 100))

	percentStr := styles.GetUsageStyle(u.targetPercent).
		Width(6).
		Align(lipgloss.Right).
		Render(fmt.Sprintf("%.0f%%", u.targetPercent))

	return lipgloss.JoinHorizontal(lipgloss.Center, labelStr, bar, " ", percentStr)
}

// RenderGradientBar renders just the bar characters, coloured from calm to hot.
func RenderGradientBar(percent float64, width int) string {
	return renderBar(clampUnit(percent/100), width, usageColorLow, usageColorHigh)
}

// RenderResetBar shows how much of a usage window has elapsed before resetAt.
func RenderResetBar(resetAt, now time.Time, window time.Duration, width int) string {
	if resetAt.IsZero() || window <= 0 {
		return renderBar(0, width, resetColorFrom, resetColorTo)
	}
	remaining := resetAt.Sub(now)
	elapsed := 1 - float64(remaining)/float64(window)
	return renderBar(clampUnit(elapsed), width, resetColorFrom, resetColorTo)
}

func renderBar(fraction float64, width int, from, to string) string {
	if width < 1 {
		return ""
	}

	filled := min(max(int(float64(width)*fraction), 0), width)

	var b strings.Builder
	for i := range width {
		if i < filled {
			t := float64(i) / float64(max(1, width-1))
			style := lipgloss.NewStyle().Foreground(lipgloss.Color(interpolateColor(from, to, t)))
			b.WriteString(style.Render("█"))
		} else {
			b.WriteString(lipgloss.NewStyle().Foreground(styles.Subtle).Render("░"))
		}
	}
	return b.String()
}

// SimpleUsageBar renders a bracketed gradient bar with label and percentage.
func SimpleUsageBar(percent float64, label string, width int) string {
	const percentWidth = 6
	barWidth := max(width-len(label)-1-percentWidth-4, 5)

	labelStr := lipgloss.NewStyle().Foreground(styles.TextSecondary).Render(label)

	pctText := "--"
	if percent >= 0 {
		pctText = fmt.Sprintf("%.0f%%", percent)
	}
	percentStr := styles.GetUsageStyle(percent).
		Width(percentWidth).
		Align(lipgloss.Right).
		Render(pctText)

	return fmt.Sprintf("%s [%s] %s", labelStr, RenderGradientBar(percent, barWidth), percentStr)
}

// SimpleUsageBarLoading renders a shimmering placeholder bar for frame.
func SimpleUsageBarLoading(width int, frame int) string {
	barWidth := max(width-10, 10)

	const cycle = 120
	t := float64(frame%cycle) / float64(cycle)
	p := t * 2
	if t >= 0.5 {
		p = (1 - t) * 2
	}
	eased := p * p * (3 - 2*p)
	shimmerPos := int(eased * float64(barWidth))

	var b strings.Builder
	for i := range barWidth {
		dist := shimmerPos - i
		if dist < 0 {
			dist = -dist
		}
		switch {
		case dist < 3:
			b.WriteString(lipgloss.NewStyle().Foreground(styles.Primary).Render("▓"))
		case dist < 5:
			b.WriteString(lipgloss.NewStyle().Foreground(styles.TextSecondary).Render("▒"))
		default:
			b.WriteString(lipgloss.NewStyle().Foreground(styles.BgLight).Render("░"))
		}
	}
	return b.String()
}

func interpolateColor(fromHex, toHex string, t float64) string {
	from := hexToRGB(fromHex)
	to := hexToRGB(toHex)

	r := int(float64(from[0]) + t*(float64(to[0])-float64(from[0])))
	g := int(float64(from[1]) + t*(float64(to[1])-float64(from[1])))
	b := int(float64(from[2]) + t*(float64(to[2])-float64(from[2])))

	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func hexToRGB(hex string) [3]int {
	hex = strings.TrimPrefix(hex, "#")
	var r, g, b int
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		logger.Error("failed to parse hex color", "hex", hex, "error", err)
		return [3]int{0, 0, 0}
	}
	return [3]int{r, g, b}
}

func clampUnit(f float64) float64 {
	return min(max(f, 0), 1)
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
