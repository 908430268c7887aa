package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/usage-indicator/internal/config"
	"github.com/j-veylop/usage-indicator/internal/models"
	"github.com/j-veylop/usage-indicator/internal/services"
	"github.com/j-veylop/usage-indicator/internal/services/poller"
	"github.com/j-veylop/usage-indicator/internal/state"
)

func newTestManager(t *testing.T) *services.Manager {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"five_hour":{"utilization":10},"seven_day":{"utilization":42}}`)
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		OrgID:            "org-1",
		SessionKey:       "sk-1",
		BaseURL:          srv.URL,
		MinInterval:      180 * time.Second,
		MaxInterval:      5400 * time.Second,
		InitialInterval:  180 * time.Second,
		AdditiveStep:     90 * time.Second,
		DecreaseFactor:   0.5,
		ChangeEpsilon:    0.5,
		RetryBaseDelay:   5 * time.Second,
		RetryMaxDelay:    300 * time.Second,
		RetryMaxAttempts: 5,
		RetryJitter:      0.2,
		RequestTimeout:   5 * time.Second,
		StaleAfter:       3 * time.Hour,
		IconSize:         16,
		IconSupersample:  2,
		IconCacheSize:    8,
	}
	mgr, err := services.NewManager(cfg, services.WithoutConfigWatch())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	t.Cleanup(func() { _ = mgr.Close() })
	return mgr
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

// lastNotification runs cmd and applies the resulting AddNotificationMsg.
func lastNotification(t *testing.T, model *Model, cmd tea.Cmd) Notification {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a notification command")
	}
	msg, ok := cmd().(AddNotificationMsg)
	if !ok {
		t.Fatalf("command returned %T, want AddNotificationMsg", msg)
	}
	model.Update(msg)
	notifs := model.state.GetNotifications()
	if len(notifs) == 0 {
		t.Fatal("no notifications")
	}
	return notifs[len(notifs)-1]
}

func TestNewModel(t *testing.T) {
	model := NewModel(nil)
	if model.state == nil {
		t.Error("State should be initialized")
	}
	if model.activeTab != TabIndicator {
		t.Error("Default tab should be Indicator")
	}
	if len(model.tabs) != 3 {
		t.Errorf("Should have 3 tabs placeholder, got %d", len(model.tabs))
	}
	if model.exportPath != DefaultExportPath {
		t.Errorf("exportPath = %q", model.exportPath)
	}
	model.SetExportPath("")
	if model.exportPath != DefaultExportPath {
		t.Error("empty export path should be ignored")
	}
}

func TestModel_Init(t *testing.T) {
	model := NewModel(nil)
	if model.Init() == nil {
		t.Error("Init returned nil command")
	}
	if !model.state.AnyLoading() {
		t.Error("Init should leave initial loading set")
	}
}

func TestModel_Update_WindowSize(t *testing.T) {
	model := NewModel(nil)
	newModel, _ := model.Update(tea.WindowSizeMsg{Width: 100, Height: 50})

	m, ok := newModel.(*Model)
	if !ok {
		t.Fatal("Update returned wrong model type")
	}
	if m.width != 100 || m.height != 50 {
		t.Errorf("size = %dx%d, want 100x50", m.width, m.height)
	}
	if !m.IsReady() {
		t.Error("Model should be ready after WindowSizeMsg")
	}
}

func TestModel_TabSwitching(t *testing.T) {
	model := NewModel(nil)

	model.Update(TabSwitchMsg{Tab: TabActivity})
	if model.GetActiveTab() != TabActivity {
		t.Errorf("ActiveTab = %v, want Activity", model.activeTab)
	}

	tests := []struct {
		msg  tea.KeyMsg
		want TabID
	}{
		{runeKey('3'), TabInfo},
		{runeKey('1'), TabIndicator},
		{tea.KeyMsg{Type: tea.KeyTab}, TabActivity},
		{tea.KeyMsg{Type: tea.KeyShiftTab}, TabIndicator},
		{tea.KeyMsg{Type: tea.KeyShiftTab}, TabInfo},
		{runeKey('2'), TabActivity},
	}
	for _, tt := range tests {
		model.handleKeyMsg(tt.msg)
		if model.activeTab != tt.want {
			t.Errorf("after %q: tab = %v, want %v", tt.msg.String(), model.activeTab, tt.want)
		}
	}
}

func TestModel_Keys(t *testing.T) {
	model := NewModel(nil)

	if cmd := model.handleKeyMsg(runeKey('q')); cmd == nil {
		t.Error("q should quit")
	} else if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should return tea.Quit")
	}

	// Without a manager there is nothing to retry.
	if cmd := model.handleKeyMsg(runeKey('r')); cmd != nil {
		t.Error("retry without manager should be a no-op")
	}
}

func TestModel_Update_Tick(t *testing.T) {
	model := NewModel(nil)
	model.state.AddNotification(NotificationInfo, "old", time.Nanosecond)
	time.Sleep(time.Millisecond)

	_, cmd := model.Update(TickMsg{Time: time.Now()})
	if cmd == nil {
		t.Error("TickMsg should return a command (next tick)")
	}
	if len(model.state.notifications) != 0 {
		t.Error("Tick should clear expired notifications")
	}
}

func TestModel_View(t *testing.T) {
	model := NewModel(nil)

	if view := model.View(); !strings.Contains(view, "Loading...") {
		t.Error("View should show Loading when not ready")
	}

	model.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	model.state.SetView(state.View{Polling: models.Active{Interval: 3 * time.Minute}, Version: 1}, nil)

	view := model.View()
	if !strings.Contains(view, "Indicator") {
		t.Error("View should show Indicator tab")
	}
	if !strings.Contains(view, "Active, every 3m") {
		t.Error("View should show polling state in the navbar")
	}
	if !strings.Contains(view, "not available") {
		t.Error("View should show placeholder text")
	}
}

type stubTab struct {
	updates int
	w, h    int
}

func (s *stubTab) Init() tea.Cmd                 { return nil }
func (s *stubTab) Update(tea.Msg) (Tab, tea.Cmd) { s.updates++; return s, nil }
func (s *stubTab) View() string                  { return "stub content" }
func (s *stubTab) SetSize(w, h int)              { s.w, s.h = w, h }
func (s *stubTab) ShortHelp() []key.Binding      { return nil }
func (s *stubTab) FullHelp() [][]key.Binding     { return nil }

func TestModel_SetTabs(t *testing.T) {
	model := NewModel(nil)
	model.Update(tea.WindowSizeMsg{Width: 80, Height: 30})

	tab := &stubTab{}
	model.SetTabs([]Tab{tab, nil, nil})
	if tab.w != 80 || tab.h != 25 {
		t.Errorf("tab size = %dx%d, want 80x25", tab.w, tab.h)
	}

	model.Update(TickMsg{})
	if tab.updates != 1 {
		t.Errorf("active tab updates = %d, want 1", tab.updates)
	}
	if !strings.Contains(model.View(), "stub content") {
		t.Error("View should render the active tab")
	}

	model.Update(TabSwitchMsg{Tab: TabActivity})
	model.Update(TickMsg{})
	if tab.updates != 1 {
		t.Error("inactive tabs should not receive messages")
	}
}

func TestModel_Help(t *testing.T) {
	model := NewModel(nil)
	model.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	model.Update(ToggleHelpMsg{})
	if !model.showHelp {
		t.Error("showHelp should be true")
	}
	if view := model.View(); !strings.Contains(view, "Keyboard Shortcuts") {
		t.Error("View should show help modal")
	}

	model.handleKeyMsg(runeKey('?'))
	if model.showHelp {
		t.Error("showHelp should be false after toggle")
	}

	model.showHelp = true
	model.handleKeyMsg(tea.KeyMsg{Type: tea.KeyEsc})
	if model.showHelp {
		t.Error("Esc should close help")
	}
}

func TestModel_Notifications(t *testing.T) {
	model := NewModel(nil)
	model.Update(AddNotificationMsg{Message: "Test Note", Type: NotificationInfo})

	if n := len(model.state.GetNotifications()); n != 1 {
		t.Errorf("Expected 1 notification, got %d", n)
	}

	model.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	if view := model.View(); !strings.Contains(view, "Test Note") {
		t.Error("View should show notification")
	}

	model.Update(ClearNotificationsMsg{})
	if n := len(model.state.GetNotifications()); n != 0 {
		t.Errorf("ClearNotificationsMsg left %d notifications", n)
	}
}

func TestModel_HandleServiceEvent(t *testing.T) {
	model := NewModel(nil)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	snap := &models.UsageSnapshot{WeeklyPct: 42, SixHourPct: 10, FetchedAt: now}
	v := state.View{Polling: models.Active{Interval: 3 * time.Minute}, Last: snap, Version: 4}
	if cmd := model.handleServiceEvent(services.StateChangedEvent{View: v}); cmd != nil {
		t.Error("StateChangedEvent without manager should not load")
	}
	if got, ok := model.state.View(); !ok || got.Version != 4 {
		t.Errorf("View() = %+v, %v", got, ok)
	}

	tests := []struct {
		name     string
		event    services.ServiceEvent
		wantType NotificationType
		contains string
	}{
		{
			name: "auth error",
			event: services.TransitionEvent{Transition: poller.Transition{
				At: now, From: models.Active{}, To: models.AuthError{},
			}},
			wantType: NotificationError,
			contains: "Authentication failed",
		},
		{
			name: "rate limited",
			event: services.TransitionEvent{Transition: poller.Transition{
				At: now, From: models.Active{}, To: models.RateLimited{Until: now.Add(time.Hour)},
			}},
			wantType: NotificationWarning,
			contains: "Rate limited until",
		},
		{
			name: "degraded",
			event: services.TransitionEvent{Transition: poller.Transition{
				At: now, From: models.Backoff{Attempt: 5}, To: models.Degraded{Since: now},
			}},
			wantType: NotificationWarning,
			contains: "degraded",
		},
		{
			name: "recovered",
			event: services.TransitionEvent{Transition: poller.Transition{
				At: now, From: models.Backoff{Attempt: 1}, To: models.Active{}, Snapshot: snap,
			}},
			wantType: NotificationSuccess,
			contains: "Back online",
		},
		{
			name:     "credentials",
			event:    services.CredentialsChangedEvent{OrgID: "org-9"},
			wantType: NotificationInfo,
			contains: "org-9",
		},
		{
			name:     "error",
			event:    services.ErrorEvent{Service: "poller", Error: errors.New("boom")},
			wantType: NotificationError,
			contains: "[poller] boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := lastNotification(t, model, model.handleServiceEvent(tt.event))
			if n.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", n.Type, tt.wantType)
			}
			if !strings.Contains(n.Message, tt.contains) {
				t.Errorf("Message = %q, want %q", n.Message, tt.contains)
			}
		})
	}

	if got := len(model.state.Transitions()); got != 4 {
		t.Errorf("Transitions() len = %d, want 4", got)
	}
}

func TestModel_QuietTransitions(t *testing.T) {
	model := NewModel(nil)
	tests := []poller.Transition{
		{From: models.Active{}, To: models.Active{}},
		{From: models.Idle{}, To: models.Active{}},
		{From: models.Backoff{Attempt: 1}, To: models.Backoff{Attempt: 2}},
	}
	for _, tr := range tests {
		if cmd := model.handleServiceEvent(services.TransitionEvent{Transition: tr}); cmd != nil {
			t.Errorf("%T -> %T should be quiet", tr.From, tr.To)
		}
	}
}

func TestModel_RetryLoading(t *testing.T) {
	model := NewModel(nil)
	model.state.SetLoading("initial", false)

	model.Update(RetryRequestedMsg{})
	if !model.state.Loading.Poll {
		t.Fatal("retry should mark poll as loading")
	}

	model.handleServiceEvent(services.TransitionEvent{Transition: poller.Transition{
		From: models.Active{}, To: models.Active{},
	}})
	if model.state.AnyLoading() {
		t.Error("transition should clear poll loading")
	}
	for _, n := range model.state.GetNotifications() {
		if n.ID == LoadingNotificationID {
			t.Error("loading notification should be cleared")
		}
	}
}

func TestModel_ViewLoaded(t *testing.T) {
	model := NewModel(nil)
	model.Init()

	// Idle views keep the initial loading state.
	model.Update(ViewLoadedMsg{View: state.View{Polling: models.Idle{}, Version: 1}})
	if !model.state.IsInitialLoading() {
		t.Error("idle view should not end initial loading")
	}

	model.Update(ViewLoadedMsg{View: state.View{Polling: models.Active{}, Version: 2}})
	if model.state.IsInitialLoading() {
		t.Error("first poll should end initial loading")
	}
	if len(model.state.GetNotifications()) != 0 {
		t.Error("loading notification should be cleared")
	}

	_, cmd := model.Update(ViewLoadedMsg{View: state.View{Polling: models.Active{}, Version: 3}, Err: errors.New("font")})
	if cmd == nil {
		t.Error("render error should produce a notification")
	}
}

func TestModel_Update_Messages(t *testing.T) {
	model := NewModel(nil)

	model.Update(StartLoadingMsg{Resource: "poll"})
	if !model.state.Loading.Poll {
		t.Error("Loading.Poll should be true")
	}
	model.Update(StopLoadingMsg{Resource: "poll"})
	if model.state.Loading.Poll {
		t.Error("Loading.Poll should be false")
	}

	n := lastNotification(t, model, model.handleAppMsg(ErrorMsg{Error: errors.New("bad"), Context: "poll"})[0])
	if n.Message != "poll: bad" {
		t.Errorf("ErrorMsg notification = %q", n.Message)
	}

	n = lastNotification(t, model, model.handleAppMsg(ClipboardResultMsg{Label: "tooltip", Success: true})[0])
	if n.Message != "Copied tooltip" {
		t.Errorf("clipboard notification = %q", n.Message)
	}

	n = lastNotification(t, model, model.handleAppMsg(ExportResultMsg{Path: "x.png", Success: true})[0])
	if !strings.Contains(n.Message, "x.png") {
		t.Errorf("export notification = %q", n.Message)
	}

	if cmds := model.handleAppMsg(ExportIconMsg{}); len(cmds) != 0 {
		t.Error("export without manager should be a no-op")
	}

	model.Update(RemoveNotificationMsg{ID: "nonexistent"})
	model.Update(ClearExpiredNotificationsMsg{})
}

func TestModel_HandleSpinnerTick(t *testing.T) {
	model := NewModel(nil)
	_, cmd := model.Update(model.spinner.Tick())
	if cmd == nil {
		t.Error("Spinner tick should return command")
	}
	_, _ = model.Update(spinner.TickMsg{})
}

func TestModel_WithManager(t *testing.T) {
	mgr := newTestManager(t)
	if _, err := mgr.PollOnce(context.Background()); err != nil {
		t.Fatalf("PollOnce() error = %v", err)
	}

	model := NewModel(mgr)
	msg := model.commands.LoadView()()
	loaded, ok := msg.(ViewLoadedMsg)
	if !ok {
		t.Fatalf("LoadView returned %T", msg)
	}
	if loaded.Err != nil || loaded.Icon == nil {
		t.Fatalf("LoadView icon = %v, err = %v", loaded.Icon, loaded.Err)
	}
	model.Update(loaded)
	if v, _ := model.state.View(); v.Percent(models.MetricWeekly) != 42 {
		t.Errorf("weekly = %v, want 42", v.Percent(models.MetricWeekly))
	}
	if model.state.Icon() == nil {
		t.Error("icon should be stored")
	}

	if _, ok := model.commands.Retry()().(RetryRequestedMsg); !ok {
		t.Error("Retry should return RetryRequestedMsg")
	}

	path := filepath.Join(t.TempDir(), "icon.png")
	model.SetExportPath(path)
	cmds := model.handleAppMsg(ExportIconMsg{})
	if len(cmds) != 1 {
		t.Fatalf("export cmds = %d, want 1", len(cmds))
	}
	res, ok := cmds[0]().(ExportResultMsg)
	if !ok || !res.Success {
		t.Fatalf("export result = %+v", res)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("icon not written: %v", err)
	}
}

func TestModel_QuitUnsubscribes(t *testing.T) {
	mgr := newTestManager(t)
	model := NewModel(mgr)

	sub, ok := subscribeToServicesCmd(mgr)().(SubscriptionEventMsg)
	if !ok {
		t.Fatal("subscribe should return SubscriptionEventMsg")
	}
	model.Update(sub)
	if model.eventChannel == nil {
		t.Fatal("event channel not stored")
	}

	cmd := model.handleKeyMsg(runeKey('q'))
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should return tea.Quit")
	}
	select {
	case _, open := <-sub.Channel:
		if open {
			t.Error("channel should be closed")
		}
	default:
		t.Error("channel should be closed after quit")
	}
	if model.eventChannel != nil {
		t.Error("event channel should be cleared")
	}

	// Closing the manager afterwards must not close the channel twice.
	if err := mgr.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestTabID_String(t *testing.T) {
	tests := []struct {
		id   TabID
		want string
	}{
		{TabIndicator, "Indicator"},
		{TabActivity, "Activity"},
		{TabInfo, "Info"},
		{TabID(999), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.id.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestDefaultKeyMap(t *testing.T) {
	km := DefaultKeyMap()
	if len(km.ShortHelp()) == 0 {
		t.Error("ShortHelp empty")
	}
	if len(km.FullHelp()) == 0 {
		t.Error("FullHelp empty")
	}
}
