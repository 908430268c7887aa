package indicator

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/usage-indicator/internal/app"
	"github.com/j-veylop/usage-indicator/internal/icon"
	"github.com/j-veylop/usage-indicator/internal/models"
	"github.com/j-veylop/usage-indicator/internal/state"
	"github.com/j-veylop/usage-indicator/internal/tooltip"
	"github.com/j-veylop/usage-indicator/internal/ui/components"
)

var testNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func newTestModel(t *testing.T, withView bool) (*Model, *app.State) {
	t.Helper()
	st := app.NewState()
	m := New(st, Options{Metric: models.MetricWeekly, StaleAfter: 3 * time.Hour, Location: time.UTC})
	m.now = func() time.Time { return testNow }
	m.SetSize(100, 40)

	if withView {
		snap := &models.UsageSnapshot{
			WeeklyPct:     42,
			SixHourPct:    10,
			WeeklyResetAt: testNow.Add(72 * time.Hour),
			FetchedAt:     testNow.Add(-time.Minute),
		}
		v := state.View{
			Polling:    models.Active{Interval: 3 * time.Minute},
			Last:       snap,
			NextPollAt: testNow.Add(2 * time.Minute),
			UpdatedAt:  testNow.Add(-time.Minute),
			Version:    2,
		}
		r, err := icon.NewRenderer(icon.Options{Size: 8, Supersample: 2, CacheSize: 4})
		if err != nil {
			t.Fatalf("NewRenderer() error = %v", err)
		}
		bmp, err := r.RenderView(v, testNow)
		if err != nil {
			t.Fatalf("RenderView() error = %v", err)
		}
		st.SetView(v, bmp)
		st.SetLoading("initial", false)
	}
	return m, st
}

func TestModel_Init(t *testing.T) {
	m, _ := newTestModel(t, false)
	if m.Init() == nil {
		t.Error("Init should start the spinner")
	}
}

func TestModel_ViewLoading(t *testing.T) {
	m, _ := newTestModel(t, false)
	if view := m.View(); !strings.Contains(view, "Waiting for first poll") {
		t.Errorf("loading view = %q", view)
	}
}

func TestModel_ViewFailingBeforeFirstReading(t *testing.T) {
	m, st := newTestModel(t, false)
	st.SetView(state.View{
		Polling: models.Backoff{Until: testNow.Add(10 * time.Second), Attempt: 2},
		Version: 1,
	}, nil)
	st.SetLoading("initial", false)

	if view := m.View(); !strings.Contains(view, "Retrying in 10s (attempt 2)") {
		t.Errorf("view = %q", view)
	}
}

func TestModel_ViewWithData(t *testing.T) {
	m, _ := newTestModel(t, true)
	m.Update(nil)

	view := m.View()
	for _, want := range []string{"Claude Usage", "Icon", "NORMAL", "42%", "10%", "Weekly: 42%", "resets 3 days from now", "▀"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if strings.Contains(view, "may be outdated") {
		t.Error("fresh data flagged as outdated")
	}
}

func TestModel_ViewOutdatedData(t *testing.T) {
	tests := []struct {
		name    string
		polling models.PollingState
		fetched time.Time
	}{
		{"offline", models.Backoff{Until: testNow.Add(time.Minute), Attempt: 1}, testNow.Add(-time.Minute)},
		{"old reading", models.Active{Interval: 3 * time.Minute}, testNow.Add(-4 * time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, st := newTestModel(t, false)
			st.SetView(state.View{
				Polling:   tt.polling,
				Last:      &models.UsageSnapshot{WeeklyPct: 42, SixHourPct: 10, FetchedAt: tt.fetched},
				LastError: &models.FetchFailure{At: testNow, Message: "dial tcp: refused", Kind: models.KindTransient},
				Version:   3,
			}, nil)

			if view := m.View(); !strings.Contains(view, "may be outdated") {
				t.Errorf("view = %q", view)
			}
		})
	}
}

func TestModel_SyncBars(t *testing.T) {
	m, st := newTestModel(t, true)

	if _, cmd := m.Update(nil); cmd == nil {
		t.Error("first sync should start the bar animation")
	}
	if m.weeklyBar.Target() != 42 || m.sessionBar.Target() != 10 {
		t.Errorf("targets = %v, %v", m.weeklyBar.Target(), m.sessionBar.Target())
	}

	for range 50 {
		m.Update(components.AnimationTickMsg(testNow))
	}
	if m.weeklyBar.Percent() != 42 {
		t.Errorf("weekly bar = %v after animation", m.weeklyBar.Percent())
	}

	// A failed poll without data shows unknown bars.
	st.SetView(state.View{Polling: models.Backoff{Attempt: 1}, Version: 3}, nil)
	m.Update(nil)
	if m.weeklyBar.Target() != state.UnknownPercent {
		t.Errorf("weekly target = %v, want unknown", m.weeklyBar.Target())
	}
}

func TestModel_Keys(t *testing.T) {
	m, _ := newTestModel(t, true)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	if cmd == nil {
		t.Fatal("y should return a command")
	}
	found := false
	for _, msg := range flatten(cmd) {
		if c, ok := msg.(app.CopyToClipboardMsg); ok {
			found = true
			if !strings.HasPrefix(c.Text, tooltip.Title) || c.Label != "tooltip" {
				t.Errorf("copy msg = %+v", c)
			}
		}
	}
	if !found {
		t.Error("y should request a clipboard copy")
	}

	cmd = m.handleKeyMsg(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'e'}})
	if _, ok := cmd().(app.ExportIconMsg); !ok {
		t.Error("e should request an icon export")
	}
}

func TestModel_Help(t *testing.T) {
	m, _ := newTestModel(t, false)
	if len(m.ShortHelp()) != 2 || len(m.FullHelp()) != 1 {
		t.Error("unexpected help bindings")
	}
}

func TestStatusText(t *testing.T) {
	if got := statusText(models.StatusRateLimited); got != "RATE LIMITED" {
		t.Errorf("statusText() = %q", got)
	}
}

// flatten runs cmd and expands batches.
func flatten(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}
	var out []tea.Msg
	for _, c := range batch {
		out = append(out, flatten(c)...)
	}
	return out
}
