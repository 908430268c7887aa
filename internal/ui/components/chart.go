// Package components provides reusable UI components for the TUI.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/j-veylop/usage-indicator/internal/ui/styles"
)

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Legend colours matching the dual chart series.
const (
	ChartWeeklyColor  = lipgloss.Color("#FF8C00")
	ChartSessionColor = lipgloss.Color("#0000FF")
)

// RenderLineChart creates a single-series ASCII line chart.
func RenderLineChart(data []float64, width, height int, caption string) string {
	if len(data) == 0 {
		return styles.HelpStyle.Render("No data available")
	}

	// Ensure minimum dimensions
	width = max(width, 20)
	height = max(height, 3)

	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(asciigraph.DarkOrange),
	)
}

// RenderDualLineChart plots the weekly and 5-hour usage series together.
func RenderDualLineChart(weekly, session []float64, width, height int, caption string) string {
	if len(weekly) == 0 && len(session) == 0 {
		return styles.HelpStyle.Render("No data available")
	}

	width = max(width, 20)
	height = max(height, 3)

	// Normalize lengths - pad shorter series with zeros
	n := max(len(weekly), len(session))
	a := make([]float64, n)
	b := make([]float64, n)
	copy(a, weekly)
	copy(b, session)

	return asciigraph.PlotMany([][]float64{a, b},
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(asciigraph.DarkOrange, asciigraph.Blue),
		asciigraph.LowerBound(0),
	)
}

// RenderSparkline creates a compact inline sparkline chart.
func RenderSparkline(values []float64, width int) string {
	return sparkline(values, width, func(_ float64, r rune) string { return string(r) })
}

// RenderUsageSparkline colours each cell by the usage band of its value.
func RenderUsageSparkline(values []float64, width int) string {
	return sparkline(values, width, func(v float64, r rune) string {
		return styles.GetUsageStyle(v).Render(string(r))
	})
}

func sparkline(values []float64, width int, cell func(float64, rune) string) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}

	maxVal := 0.0
	for _, v := range values {
		maxVal = max(maxVal, v)
	}
	if maxVal == 0 {
		maxVal = 1
	}

	// Sample values to fit width
	step := max(float64(len(values))/float64(width), 1)

	var b strings.Builder
	for i := 0; i < width && int(float64(i)*step) < len(values); i++ {
		v := values[int(float64(i)*step)]
		idx := int((v / maxVal) * float64(len(sparkChars)-1))
		idx = min(max(idx, 0), len(sparkChars)-1)
		b.WriteString(cell(v, sparkChars[idx]))
	}
	return b.String()
}

// LegendItem represents a single legend entry.
type LegendItem struct {
	Label string
	Color lipgloss.Color
}

// RenderLegend creates a chart legend.
func RenderLegend(items []LegendItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		box := lipgloss.NewStyle().Foreground(item.Color).Render("■")
		parts = append(parts, fmt.Sprintf("%s %s", box, item.Label))
	}
	return strings.Join(parts, "  ")
}
