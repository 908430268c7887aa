// Package services provides service orchestration for the indicator.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/usage-indicator/internal/config"
	"github.com/j-veylop/usage-indicator/internal/icon"
	"github.com/j-veylop/usage-indicator/internal/logger"
	"github.com/j-veylop/usage-indicator/internal/models"
	"github.com/j-veylop/usage-indicator/internal/notify"
	"github.com/j-veylop/usage-indicator/internal/services/poller"
	"github.com/j-veylop/usage-indicator/internal/services/usage"
	"github.com/j-veylop/usage-indicator/internal/state"
	"github.com/j-veylop/usage-indicator/internal/tooltip"
)

// ErrAlreadyStarted is returned by Start when the poll loop is running.
var ErrAlreadyStarted = errors.New("manager already started")

type (
	// StateChangedEvent is emitted after the usage state was updated.
	StateChangedEvent struct {
		View state.View
	}

	// TransitionEvent is emitted for every completed poll cycle.
	TransitionEvent struct {
		Transition poller.Transition
	}

	// CredentialsChangedEvent is emitted when new credentials were loaded.
	CredentialsChangedEvent struct {
		OrgID string
	}

	// ErrorEvent is emitted when an error occurs in any service.
	ErrorEvent struct {
		Service string
		Error   error
	}
)

// ServiceEvent is the interface implemented by all service events.
type ServiceEvent interface {
	isServiceEvent()
}

func (StateChangedEvent) isServiceEvent()       {}
func (TransitionEvent) isServiceEvent()         {}
func (CredentialsChangedEvent) isServiceEvent() {}
func (ErrorEvent) isServiceEvent()              {}

// Option customises a Manager.
type Option func(*options)

type options struct {
	transport   http.RoundTripper
	notifier    *notify.Notifier
	pollerOpts  []poller.Option
	now         func() time.Time
	watchConfig bool
}

// WithTransport sets the HTTP transport of the usage client.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithNotifier replaces the desktop notifier.
func WithNotifier(n *notify.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithPollerOptions passes options to the scheduler.
func WithPollerOptions(opts ...poller.Option) Option {
	return func(o *options) { o.pollerOpts = append(o.pollerOpts, opts...) }
}

// WithNow replaces the wall clock used for rendering.
func WithNow(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithoutConfigWatch disables the credential file watcher.
func WithoutConfigWatch() Option {
	return func(o *options) { o.watchConfig = false }
}

// Manager orchestrates services and event routing.
type Manager struct {
	mu          sync.RWMutex
	cfg         *config.Config
	client      *usage.Client
	store       *state.Store
	scheduler   *poller.Scheduler
	renderer    *icon.Renderer
	notifier    *notify.Notifier
	watcher     *config.Watcher
	now         func() time.Time
	stopChan    chan struct{}
	subscribers []chan<- ServiceEvent
	cancel      context.CancelFunc
	done        chan struct{}
	closeOnce   sync.Once
}

// NewManager creates a new service manager. Every error is a fatal
// configuration problem.
func NewManager(cfg *config.Config, opts ...Option) (*Manager, error) {
	o := options{now: time.Now, watchConfig: true}
	for _, opt := range opts {
		opt(&o)
	}

	m := &Manager{
		cfg:      cfg,
		store:    state.New(),
		now:      o.now,
		stopChan: make(chan struct{}),
		notifier: o.notifier,
	}

	clientCfg := cfg.Client()
	clientCfg.Transport = o.transport

	var err error
	m.client, err = usage.NewClient(clientCfg, cfg.Credentials())
	if err != nil {
		return nil, err
	}

	pollerOpts := append([]poller.Option{poller.WithObserver(m.observe)}, o.pollerOpts...)
	m.scheduler, err = poller.New(m.client, m.store, cfg.Poller(), pollerOpts...)
	if err != nil {
		return nil, err
	}

	m.renderer, err = icon.NewRenderer(cfg.Icon())
	if err != nil {
		return nil, err
	}

	// Created last so failed construction leaves no delivery goroutine.
	if m.notifier == nil {
		m.notifier = notify.New(cfg.Notifications)
	}

	if o.watchConfig && cfg.EnvPath != "" {
		m.watcher, err = config.NewWatcher(cfg.EnvPath, cfg.Credentials(), m.onCredentials)
		if err != nil {
			logger.Warn("credential hot reload disabled", "path", cfg.EnvPath, "error", err)
		}
	}

	go m.routeEvents()

	return m, nil
}

// Start runs the poll loop in the background until ctx is cancelled or the
// manager is closed.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.done != nil {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	go func() {
		defer close(done)
		if err := m.scheduler.Run(ctx); err != nil {
			logger.Error("poll loop failed", "error", err)
			m.broadcast(ErrorEvent{Service: "poller", Error: err})
		}
	}()
	return nil
}

// PollOnce performs a single poll cycle and returns the resulting view.
func (m *Manager) PollOnce(ctx context.Context) (state.View, error) {
	if _, err := m.scheduler.PollOnce(ctx); err != nil {
		return m.store.Current(), err
	}
	return m.store.Current(), nil
}

// routeEvents turns store change hints into state events.
func (m *Manager) routeEvents() {
	for {
		select {
		case <-m.store.Changes():
			m.broadcast(StateChangedEvent{View: m.store.Current()})

		case <-m.stopChan:
			return
		}
	}
}

// observe runs on the poll loop after every cycle.
func (m *Manager) observe(t poller.Transition) {
	pct := state.UnknownPercent
	if t.Snapshot != nil {
		pct = t.Snapshot.Percent(m.cfg.IconMetric)
	}
	m.notifier.Observe(t.From, t.To, pct)
	m.broadcast(TransitionEvent{Transition: t})
}

// onCredentials swaps in credentials loaded by the watcher and polls.
func (m *Manager) onCredentials(creds usage.Credentials) {
	if err := m.SetCredentials(creds); err != nil {
		logger.Warn("rejected new credentials", "error", err)
		m.broadcast(ErrorEvent{Service: "config", Error: err})
	}
}

// SetCredentials replaces the client credentials and triggers a poll.
func (m *Manager) SetCredentials(creds usage.Credentials) error {
	if err := m.client.SetCredentials(creds); err != nil {
		return fmt.Errorf("invalid credentials: %w", err)
	}
	m.scheduler.RetryNow()
	m.broadcast(CredentialsChangedEvent{OrgID: creds.OrgID})
	return nil
}

// RetryNow is the manual retry trigger.
func (m *Manager) RetryNow() {
	logger.Info("manual retry requested")
	m.scheduler.RetryNow()
}

// View returns the current usage state.
func (m *Manager) View() state.View {
	return m.store.Current()
}

// Status returns the current indicator status.
func (m *Manager) Status() models.StatusClass {
	return m.store.Current().Status(m.now(), m.cfg.StaleAfter)
}

// Icon renders the icon for the current state.
func (m *Manager) Icon() (*icon.Bitmap, error) {
	return m.renderer.RenderView(m.store.Current(), m.now())
}

// Tooltip renders the tooltip text for the current state.
func (m *Manager) Tooltip() string {
	return tooltip.Format(m.store.Current(), m.now(), tooltip.Options{StaleAfter: m.cfg.StaleAfter})
}

// Interval returns the current steady-state poll interval.
func (m *Manager) Interval() time.Duration {
	return m.scheduler.Interval()
}

// Endpoint returns the usage URL the client currently polls.
func (m *Manager) Endpoint() string {
	return m.client.Endpoint()
}

// Renderer returns the icon renderer.
func (m *Manager) Renderer() *icon.Renderer {
	return m.renderer
}

// Config returns the loaded configuration.
func (m *Manager) Config() *config.Config {
	return m.cfg
}

// broadcast sends an event to all subscribers.
func (m *Manager) broadcast(event ServiceEvent) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber channel full, skip
		}
	}
}

// Subscribe creates a channel for receiving service events.
// Returns a tea.Cmd that can be used in Bubble Tea's Init or Update.
func (m *Manager) Subscribe() (chan ServiceEvent, tea.Cmd) {
	ch := make(chan ServiceEvent, 50)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	return ch, WaitForEvent(ch)
}

// WaitForEvent returns a tea.Cmd for the next event on a channel.
func WaitForEvent(ch <-chan ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return event
	}
}

// Unsubscribe removes a subscriber channel.
func (m *Manager) Unsubscribe(ch chan ServiceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscribers {
		if sub == ch {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// Close stops the poll loop and all services. Shutdown is final.
func (m *Manager) Close() error {
	var errs []error
	m.closeOnce.Do(func() {
		m.mu.Lock()
		cancel, done := m.cancel, m.done
		m.mu.Unlock()

		if cancel != nil {
			cancel()
			<-done
		}
		close(m.stopChan)

		if m.watcher != nil {
			if err := m.watcher.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if err := m.notifier.Close(); err != nil {
			errs = append(errs, err)
		}

		m.mu.Lock()
		for _, sub := range m.subscribers {
			close(sub)
		}
		m.subscribers = nil
		m.mu.Unlock()
	})
	return errors.Join(errs...)
}
