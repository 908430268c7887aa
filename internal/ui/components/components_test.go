package components

import (
	"image"
	"image/color"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/usage-indicator/internal/models"
)

func TestNewSpinner(t *testing.T) {
	s := NewSpinner("Loading")
	if s.label != "Loading" {
		t.Error("Spinner label mismatch")
	}
}

func TestSpinner_Methods(t *testing.T) {
	s := NewSpinner("Init")

	s.SetLabel("Polling")
	if s.Label() != "Polling" {
		t.Errorf("Label = %s, want Polling", s.Label())
	}

	if s.View() == "" {
		t.Error("View returned empty")
	}
	if !strings.Contains(s.ViewWithLabel(), "Polling") {
		t.Error("ViewWithLabel missing label")
	}
	if s.Init() == nil {
		t.Error("Init should return command")
	}
	if _, cmd := s.Update(s.spinner.Tick()); cmd == nil {
		t.Error("Update should return command for tick")
	}
	if s.Tick() == nil {
		t.Error("Tick should return command")
	}
}

func TestPollLabel(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		state models.PollingState
		want  string
	}{
		{"nil", nil, "Waiting for first poll..."},
		{"idle", models.Idle{}, "Waiting for first poll..."},
		{"backoff", models.Backoff{Until: now.Add(20 * time.Second), Attempt: 3}, "Retrying in 20s (attempt 3)..."},
		{"backoff overdue", models.Backoff{Until: now.Add(-time.Second), Attempt: 1}, "Retrying in 0s (attempt 1)..."},
		{"rate limited", models.RateLimited{Until: now.Add(90 * time.Second)}, "Rate limited, next try in 1m30s..."},
		{"auth", models.AuthError{}, "Authentication failed, press r to retry"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PollLabel(tt.state, now); got != tt.want {
				t.Errorf("PollLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSpinner_SetPolling(t *testing.T) {
	s := NewSpinner("Loading...")
	s.SetPolling(models.AuthError{}, time.Now())
	if s.Label() != "Authentication failed, press r to retry" {
		t.Errorf("Label() = %q", s.Label())
	}
	if !strings.Contains(s.View(), "!") {
		t.Errorf("auth spinner View() = %q", s.View())
	}

	s.SetPolling(models.Idle{}, time.Now())
	if s.Label() != "Waiting for first poll..." {
		t.Errorf("Label() = %q", s.Label())
	}
}

func TestRenderSpinnerCentered(t *testing.T) {
	s := NewSpinner("Loading...")
	view := RenderSpinnerCentered(s, 20, 5)
	if lipgloss.Height(view) != 5 {
		t.Errorf("height = %d, want 5", lipgloss.Height(view))
	}
}

func TestRenderLineChart(t *testing.T) {
	if s := RenderLineChart([]float64{3, 4.5, 6, 3}, 20, 5, "Interval"); !strings.Contains(s, "Interval") {
		t.Error("RenderLineChart missing caption")
	}
	if s := RenderLineChart(nil, 20, 5, ""); !strings.Contains(s, "No data") {
		t.Errorf("empty chart = %q", s)
	}
}

func TestRenderDualLineChart(t *testing.T) {
	s := RenderDualLineChart([]float64{1, 2, 3}, []float64{3, 2}, 20, 5, "Usage")
	if !strings.Contains(s, "Usage") {
		t.Error("RenderDualLineChart missing caption")
	}
	if s := RenderDualLineChart(nil, nil, 20, 5, ""); !strings.Contains(s, "No data") {
		t.Errorf("empty chart = %q", s)
	}
}

func TestRenderSparkline(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		width  int
		want   string
	}{
		{"empty", nil, 10, ""},
		{"zero width", []float64{1}, 0, ""},
		{"scaled", []float64{0, 7}, 10, "▁█"},
		{"all zero", []float64{0, 0, 0}, 10, "▁▁▁"},
		{"sampled", []float64{0, 0, 7, 7}, 2, "▁█"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RenderSparkline(tt.values, tt.width); got != tt.want {
				t.Errorf("RenderSparkline() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderUsageSparkline(t *testing.T) {
	s := RenderUsageSparkline([]float64{10, 60, 90}, 10)
	if !strings.Contains(s, "█") {
		t.Errorf("RenderUsageSparkline() = %q", s)
	}
}

func TestRenderLegend(t *testing.T) {
	s := RenderLegend([]LegendItem{
		{Label: "Weekly", Color: lipgloss.Color("#ffffff")},
		{Label: "5-hour", Color: lipgloss.Color("#000000")},
	})
	if !strings.Contains(s, "Weekly") || !strings.Contains(s, "5-hour") {
		t.Errorf("RenderLegend() = %q", s)
	}
}

func TestUsageBar_Animation(t *testing.T) {
	bar := NewUsageBar("Weekly", 30)
	if bar.Init() != nil {
		t.Error("Init should return nil")
	}

	if cmd := bar.SetPercent(40); cmd == nil {
		t.Fatal("SetPercent should start animation")
	}
	if !bar.Animating() {
		t.Error("bar should be animating after SetPercent")
	}
	if bar.Target() != 40 {
		t.Errorf("Target() = %v, want 40", bar.Target())
	}

	for range 100 {
		var cmd tea.Cmd
		bar, cmd = bar.Update(AnimationTickMsg(time.Now()))
		if cmd == nil {
			break
		}
	}
	if bar.Percent() != 40 {
		t.Errorf("Percent() = %v after animation, want 40", bar.Percent())
	}
	if bar.Animating() {
		t.Error("bar should stop animating at its target")
	}

	// Unrelated messages are ignored.
	if _, cmd := bar.Update("noop"); cmd != nil {
		t.Error("unexpected command for unrelated message")
	}
}

func TestUsageBar_View(t *testing.T) {
	bar := NewUsageBar("Weekly", 30)
	bar.SetPercent(42)
	view := bar.View(50)
	if !strings.Contains(view, "Weekly") || !strings.Contains(view, "42%") {
		t.Errorf("View() = %q", view)
	}

	bar.SetPercent(-1)
	if bar.Percent() != -1 {
		t.Errorf("unknown percent should apply immediately, got %v", bar.Percent())
	}
	if view := bar.View(50); !strings.Contains(view, "--") {
		t.Errorf("unknown View() = %q", view)
	}
}

func TestRenderGradientBar(t *testing.T) {
	if RenderGradientBar(50, 0) != "" {
		t.Error("zero width should render nothing")
	}
	full := RenderGradientBar(150, 10)
	if strings.Count(full, "█") != 10 || strings.Contains(full, "░") {
		t.Errorf("over-100 bar should be full: %q", full)
	}
	half := RenderGradientBar(50, 10)
	if strings.Count(half, "█") != 5 || strings.Count(half, "░") != 5 {
		t.Errorf("half bar = %q", half)
	}
}

func TestRenderResetBar(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	s := RenderResetBar(now.Add(5*time.Hour/2), now, 5*time.Hour, 10)
	if strings.Count(s, "█") != 5 {
		t.Errorf("half elapsed bar = %q", s)
	}
	if s := RenderResetBar(time.Time{}, now, 5*time.Hour, 4); strings.Count(s, "░") != 4 {
		t.Errorf("unknown reset bar = %q", s)
	}
}

func TestSimpleUsageBar(t *testing.T) {
	if s := SimpleUsageBar(50, "Weekly", 40); !strings.Contains(s, "50%") {
		t.Errorf("SimpleUsageBar() = %q", s)
	}
	if s := SimpleUsageBar(-1, "Weekly", 40); !strings.Contains(s, "--") {
		t.Errorf("unknown SimpleUsageBar() = %q", s)
	}
}

func TestSimpleUsageBarLoading(t *testing.T) {
	if s := SimpleUsageBarLoading(40, 7); !strings.Contains(s, "▓") {
		t.Errorf("loading bar missing shimmer: %q", s)
	}
}

func TestInterpolateColor(t *testing.T) {
	if got := interpolateColor("#000000", "#ffffff", 0); got != "#000000" {
		t.Errorf("t=0: %s", got)
	}
	if got := interpolateColor("#000000", "#ffffff", 1); got != "#ffffff" {
		t.Errorf("t=1: %s", got)
	}
	if got := hexToRGB("zz"); got != [3]int{} {
		t.Errorf("invalid hex = %v", got)
	}
}

func TestRenderImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	for x := range 4 {
		img.SetNRGBA(x, 0, color.NRGBA{R: 255, A: 255})
		img.SetNRGBA(x, 1, color.NRGBA{G: 255, A: 255})
	}

	out := RenderImage(img)
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	for i, line := range lines {
		if w := lipgloss.Width(line); w != 4 {
			t.Errorf("line %d width = %d, want 4", i, w)
		}
	}
	// Third row is transparent, so the last line is blank.
	if strings.TrimSpace(lines[1]) != "" {
		t.Errorf("transparent row rendered %q", lines[1])
	}
	if RenderImage(nil) != "" {
		t.Error("nil image should render nothing")
	}
}

func TestHexColor(t *testing.T) {
	if _, ok := hexColor(color.Transparent); ok {
		t.Error("transparent should not convert")
	}
	if got, ok := hexColor(color.NRGBA{R: 0x12, G: 0x34, B: 0x56, A: 0xff}); !ok || got != "#123456" {
		t.Errorf("hexColor = %q, %v", got, ok)
	}
}
