// Package app provides the main Bubble Tea application model and state management.
package app

import (
	"sync"
	"time"

	"github.com/j-veylop/usage-indicator/internal/icon"
	"github.com/j-veylop/usage-indicator/internal/services/poller"
	"github.com/j-veylop/usage-indicator/internal/state"
)

// NotificationType defines the type of notification.
type NotificationType int

const (
	// NotificationSuccess represents a success notification.
	NotificationSuccess NotificationType = iota
	// NotificationError represents an error notification.
	NotificationError
	// NotificationWarning represents a warning notification.
	NotificationWarning
	// NotificationInfo represents an informational notification.
	NotificationInfo
	// NotificationLoading represents a loading notification with spinner.
	NotificationLoading
)

const (
	// LoadingNotificationID is the fixed ID for loading notifications.
	LoadingNotificationID = "__loading__"

	// maxNotifications bounds the toast stack.
	maxNotifications = 10
	// MaxSamples bounds the poll history kept for charts.
	MaxSamples = 240
	// MaxTransitions bounds the transition log.
	MaxTransitions = 100
)

// String returns the string representation of a NotificationType.
func (n NotificationType) String() string {
	switch n {
	case NotificationSuccess:
		return "success"
	case NotificationError:
		return "error"
	case NotificationWarning:
		return "warning"
	case NotificationInfo:
		return "info"
	case NotificationLoading:
		return "loading"
	default:
		return "unknown"
	}
}

// Notification represents a user-facing notification message.
type Notification struct {
	ID        string
	Type      NotificationType
	Message   string
	CreatedAt time.Time
	Duration  time.Duration
}

// IsExpired returns true if the notification has expired.
func (n *Notification) IsExpired() bool {
	if n.Duration <= 0 {
		return false
	}
	return time.Since(n.CreatedAt) > n.Duration
}

// LoadingState tracks loading states for different resources.
type LoadingState struct {
	Initial bool
	Poll    bool
}

// Sample is one completed poll cycle as plotted by the activity tab.
// Percentages are state.UnknownPercent when the cycle failed.
type Sample struct {
	At      time.Time
	Weekly  float64
	SixHour float64
	// Delay is the wait scheduled after the cycle; zero when halted.
	Delay time.Duration
}

// State is the UI side copy of the indicator state shared by all tabs.
type State struct {
	mu sync.RWMutex

	view    state.View
	hasView bool
	icon    *icon.Bitmap

	samples     []Sample
	transitions []poller.Transition

	Loading LoadingState

	LastUpdated time.Time

	notifications   []Notification
	notificationSeq int
}

// NewState creates an empty state that is still loading.
func NewState() *State {
	return &State{
		notifications: make([]Notification, 0),
		Loading: LoadingState{
			Initial: true,
		},
	}
}

// SetLoading sets the loading state for a specific resource.
func (s *State) SetLoading(resource string, loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch resource {
	case "initial":
		s.Loading.Initial = loading
	case "poll":
		s.Loading.Poll = loading
	}
}

// AnyLoading returns true if any resource is currently loading.
func (s *State) AnyLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Loading.Initial || s.Loading.Poll
}

// IsInitialLoading returns true if initial data is still loading.
func (s *State) IsInitialLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Loading.Initial
}

// SetView stores the latest usage view and its rendered icon.
// Older versions than the one held are ignored.
func (s *State) SetView(v state.View, bmp *icon.Bitmap) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasView && v.Version < s.view.Version {
		return
	}
	s.view = v
	s.hasView = true
	if bmp != nil {
		s.icon = bmp
	}
	s.LastUpdated = time.Now()
}

// View returns the latest usage view and whether one was received.
func (s *State) View() (state.View, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view, s.hasView
}

// Icon returns the latest rendered icon, or nil.
func (s *State) Icon() *icon.Bitmap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.icon
}

// AddTransition appends a completed poll cycle to the log and the samples.
func (s *State) AddTransition(t poller.Transition) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transitions = appendBounded(s.transitions, t, MaxTransitions)

	sample := Sample{
		At:      t.At,
		Weekly:  state.UnknownPercent,
		SixHour: state.UnknownPercent,
	}
	if t.Snapshot != nil {
		sample.Weekly = t.Snapshot.WeeklyPct
		sample.SixHour = t.Snapshot.SixHourPct
	}
	if !t.NextPollAt.IsZero() {
		sample.Delay = max(t.NextPollAt.Sub(t.At), 0)
	}
	s.samples = appendBounded(s.samples, sample, MaxSamples)
}

// Transitions returns a copy of the transition log, oldest first.
func (s *State) Transitions() []poller.Transition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]poller.Transition, len(s.transitions))
	copy(out, s.transitions)
	return out
}

// Samples returns a copy of the poll samples, oldest first.
func (s *State) Samples() []Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Sample, len(s.samples))
	copy(out, s.samples)
	return out
}

func appendBounded[T any](list []T, item T, limit int) []T {
	list = append(list, item)
	if len(list) > limit {
		list = list[len(list)-limit:]
	}
	return list
}

// AddNotification adds a new notification and returns its ID.
func (s *State) AddNotification(notifType NotificationType, message string, duration time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notificationSeq++
	id := time.Now().Format("20060102150405") + "-" + string(rune('A'+s.notificationSeq%26))

	s.notifications = appendBounded(s.notifications, Notification{
		ID:        id,
		Type:      notifType,
		Message:   message,
		CreatedAt: time.Now(),
		Duration:  duration,
	}, maxNotifications)

	return id
}

// RemoveNotification removes a notification by ID.
func (s *State) RemoveNotification(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == id {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			return
		}
	}
}

// ClearExpiredNotifications removes all expired notifications.
func (s *State) ClearExpiredNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := make([]Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if !n.IsExpired() {
			active = append(active, n)
		}
	}
	s.notifications = active
}

// GetNotifications returns a copy of all active notifications.
func (s *State) GetNotifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if !n.IsExpired() {
			active = append(active, n)
		}
	}
	return active
}

// ClearAllNotifications removes all notifications.
func (s *State) ClearAllNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = make([]Notification, 0)
}

// SetLoadingNotification sets a loading notification message.
func (s *State) SetLoadingNotification(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == LoadingNotificationID {
			s.notifications[i].Message = message
			return
		}
	}

	s.notifications = append(s.notifications, Notification{
		ID:        LoadingNotificationID,
		Type:      NotificationLoading,
		Message:   message,
		CreatedAt: time.Now(),
	})
}

// ClearLoadingNotification removes the loading notification.
func (s *State) ClearLoadingNotification() {
	s.RemoveNotification(LoadingNotificationID)
}

// GetLastUpdated returns the last time a view was received.
func (s *State) GetLastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastUpdated
}

// TimeSinceUpdate returns the duration since the last update.
func (s *State) TimeSinceUpdate() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.LastUpdated.IsZero() {
		return 0
	}
	return time.Since(s.LastUpdated)
}
