package info

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/usage-indicator/internal/app"
	"github.com/j-veylop/usage-indicator/internal/config"
	"github.com/j-veylop/usage-indicator/internal/icon"
	"github.com/j-veylop/usage-indicator/internal/models"
)

type fakeSource struct {
	interval time.Duration
	renderer *icon.Renderer
}

func (f fakeSource) Interval() time.Duration  { return f.interval }
func (f fakeSource) Renderer() *icon.Renderer { return f.renderer }
func (f fakeSource) Endpoint() string {
	return "https://claude.ai/api/organizations/org-123/usage"
}

func testConfig() *config.Config {
	return &config.Config{
		EnvPath:          "/home/user/.config/usage-indicator/.env",
		OrgID:            "org-123",
		SessionKey:       "sk-ant-REDACTED",
		BaseURL:          "https://claude.ai",
		MinInterval:      3 * time.Minute,
		MaxInterval:      90 * time.Minute,
		AdditiveStep:     90 * time.Second,
		DecreaseFactor:   0.5,
		RetryBaseDelay:   5 * time.Second,
		RetryMaxDelay:    5 * time.Minute,
		RetryMaxAttempts: 5,
		StaleAfter:       3 * time.Hour,
		IconMetric:       models.MetricWeekly,
		LogLevel:         "info",
	}
}

func TestNew(t *testing.T) {
	m := New(app.NewState(), &config.Config{}, nil)
	if m == nil {
		t.Fatal("New returned nil")
	}
	if m.Init() != nil {
		t.Error("Init should return nil")
	}
}

func TestModel_Update(t *testing.T) {
	m := New(app.NewState(), &config.Config{}, nil)

	updated, cmd := m.Update(nil)
	if updated == nil {
		t.Error("Update returned nil model")
	}
	if cmd != nil {
		t.Error("non-key messages should not produce commands")
	}
}

func TestModel_View(t *testing.T) {
	r, err := icon.NewRenderer(icon.Options{Size: 8, Supersample: 1, CacheSize: 4})
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	if _, err := r.RenderPercent(10, models.StatusNormal); err != nil {
		t.Fatalf("RenderPercent() error = %v", err)
	}
	if _, err := r.RenderPercent(10, models.StatusNormal); err != nil {
		t.Fatalf("RenderPercent() error = %v", err)
	}

	m := New(app.NewState(), testConfig(), fakeSource{interval: 270 * time.Second, renderer: r})
	m.SetSize(100, 80)

	view := m.View()
	for _, want := range []string{
		"Configuration",
		"org-123",
		"sk-a...mnop",
		"3m to 1h30m, +1m30s / x0.5",
		"5s to 5m, 5 attempts",
		"4m30s",
		"/api/organizations/org-123/usage",
		"Icon Renderer",
		"50%",
		"About Usage Indicator",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if strings.Contains(view, "abcdefghijklmnop") {
		t.Error("session key leaked into view")
	}
}

func TestModel_ViewWithoutConfig(t *testing.T) {
	m := New(app.NewState(), nil, nil)
	m.SetSize(80, 40)

	view := m.View()
	if !strings.Contains(view, "Configuration not loaded") {
		t.Error("missing placeholder for absent config")
	}
	if strings.Contains(view, "Icon Renderer") {
		t.Error("renderer card shown without a source")
	}
}

func TestModel_CopyEnvPath(t *testing.T) {
	cfg := testConfig()
	m := New(app.NewState(), cfg, nil)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'c'}})
	if cmd == nil {
		t.Fatal("copy key returned no command")
	}
	msg, ok := cmd().(app.CopyToClipboardMsg)
	if !ok {
		t.Fatalf("cmd() = %T, want CopyToClipboardMsg", cmd())
	}
	if msg.Text != cfg.EnvPath {
		t.Errorf("Text = %q, want %q", msg.Text, cfg.EnvPath)
	}

	cfg.EnvPath = ""
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'c'}}); cmd != nil {
		t.Error("copy without an env file should be a no-op")
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "-"},
		{"short", "********"},
		{"sk-ant-0123456789", "sk-a...6789"},
	}
	for _, tt := range tests {
		if got := maskSecret(tt.in); got != tt.want {
			t.Errorf("maskSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestModel_Help(t *testing.T) {
	m := New(app.NewState(), nil, nil)
	if len(m.ShortHelp()) != 1 {
		t.Error("ShortHelp should have one binding")
	}
	if len(m.FullHelp()) != 2 {
		t.Error("FullHelp should have two groups")
	}
}
