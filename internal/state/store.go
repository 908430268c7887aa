// Package state holds the shared, versioned view of what the indicator
// currently believes about usage.
package state

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/j-veylop/usage-indicator/internal/models"
)

// View is a point-in-time copy of the usage state. Every field of a View
// comes from the same update.
type View struct {
	UpdatedAt  time.Time
	NextPollAt time.Time
	Polling    models.PollingState
	Last       *models.UsageSnapshot
	LastError  *models.FetchFailure
	CycleID    string
	Version    uint64
	Interval   time.Duration
}

// HasSnapshot reports whether a good snapshot has ever been recorded.
func (v View) HasSnapshot() bool {
	return v.Last != nil
}

// Reader is the read-only side of the store.
type Reader interface {
	Current() View
}

// Store is a single-writer, multi-reader holder of the current View.
// Updates publish a fresh copy with an atomic pointer swap, so readers never
// block and never see a partially applied update.
type Store struct {
	current atomic.Pointer[View]
	changes chan struct{}
	now     func() time.Time
	// writeMu only serialises writers; readers never take it.
	writeMu sync.Mutex
}

// New creates a store in the Idle state with no snapshot.
func New() *Store {
	s := &Store{
		changes: make(chan struct{}, 1),
		now:     time.Now,
	}
	s.current.Store(&View{Polling: models.Idle{}})
	return s
}

// Current returns a private copy of the latest view.
func (s *Store) Current() View {
	return s.current.Load().clone()
}

// Update applies fn to a copy of the current view and publishes the result.
// Only the poll loop calls Update.
func (s *Store) Update(fn func(v *View)) View {
	s.writeMu.Lock()
	next := s.current.Load().clone()
	fn(&next)
	next.Version++
	next.UpdatedAt = s.now()
	published := next.clone()
	s.current.Store(&published)
	s.writeMu.Unlock()

	s.notify()
	return next
}

// Changes returns a channel that receives a value after updates. Several
// updates between two receives are coalesced into one signal.
func (s *Store) Changes() <-chan struct{} {
	return s.changes
}

func (s *Store) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

func (v *View) clone() View {
	c := *v
	if v.Last != nil {
		snap := *v.Last
		c.Last = &snap
	}
	if v.LastError != nil {
		failure := *v.LastError
		c.LastError = &failure
	}
	return c
}
