// Package notify raises desktop notifications for significant indicator
// changes.
package notify

import (
	"fmt"
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/j-veylop/usage-indicator/internal/icon"
	"github.com/j-veylop/usage-indicator/internal/logger"
	"github.com/j-veylop/usage-indicator/internal/models"
)

// SendFunc delivers one notification.
type SendFunc func(title, body string) error

// queueSize bounds pending notifications; further ones are dropped.
const queueSize = 16

type message struct {
	title string
	body  string
}

// Notifier decides which poll outcomes deserve a notification. Delivery
// happens on a separate goroutine so Observe never blocks the poll loop.
type Notifier struct {
	mu      sync.Mutex
	send    SendFunc
	queue   chan message
	done    chan struct{}
	closed  bool
	lastPct float64
	enabled bool
}

// New creates a notifier delivering through beeep. A disabled notifier
// never sends.
func New(enabled bool) *Notifier {
	return NewWithSender(enabled, func(title, body string) error {
		return beeep.Notify(title, body, "")
	})
}

// NewWithSender creates a notifier with a custom delivery function.
func NewWithSender(enabled bool, send SendFunc) *Notifier {
	n := &Notifier{
		send:    send,
		enabled: enabled,
		lastPct: -1,
		queue:   make(chan message, queueSize),
		done:    make(chan struct{}),
	}
	go n.run()
	return n
}

// Close delivers what is queued and stops the worker. Later notifications
// are discarded.
func (n *Notifier) Close() error {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()
	<-n.done
	return nil
}

func (n *Notifier) run() {
	defer close(n.done)
	for msg := range n.queue {
		if err := n.send(msg.title, msg.body); err != nil {
			logger.Warn("failed to send notification", "title", msg.title, "error", err)
			continue
		}
		logger.Debug("notification sent", "title", msg.title)
	}
}

// Observe is called after every poll cycle with the previous and new state
// and the displayed percentage (negative when unknown).
func (n *Notifier) Observe(from, to models.PollingState, pct float64) {
	n.mu.Lock()
	prevPct := n.lastPct
	if pct >= 0 {
		n.lastPct = pct
	}
	n.mu.Unlock()

	if !n.enabled || n.send == nil {
		return
	}

	fromKind, toKind := kindOf(from), kindOf(to)
	if fromKind != toKind {
		switch toKind {
		case models.PollingAuthError:
			n.deliver("Claude usage: sign-in required",
				"The session key was rejected. Update it and choose Retry now.")
		case models.PollingDegraded:
			n.deliver("Claude usage: showing stale data",
				"Usage could not be refreshed. The last good reading is still shown.")
		case models.PollingActive:
			if fromKind == models.PollingAuthError || fromKind == models.PollingDegraded {
				n.deliver("Claude usage: back online", "Usage data is up to date again.")
			}
		}
	}

	if crossedCritical(prevPct, pct) {
		n.deliver(fmt.Sprintf("Claude usage at %d%%", icon.Quantize(pct)),
			"Usage has entered the critical range.")
	}
}

func (n *Notifier) deliver(title, body string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	select {
	case n.queue <- message{title: title, body: body}:
	default:
		logger.Warn("notification queue full, dropping", "title", title)
	}
}

func kindOf(s models.PollingState) models.PollingKind {
	if s == nil {
		return models.PollingIdle
	}
	return s.Kind()
}

// crossedCritical reports an upward crossing into the critical band. The
// first known reading never counts as a crossing.
func crossedCritical(prev, cur float64) bool {
	if prev < 0 || cur < 0 {
		return false
	}
	return icon.BandFor(icon.Quantize(prev)) != icon.BandCritical &&
		icon.BandFor(icon.Quantize(cur)) == icon.BandCritical
}
