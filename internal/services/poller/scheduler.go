// Package poller runs the adaptive usage poll loop.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/j-veylop/usage-indicator/internal/logger"
	"github.com/j-veylop/usage-indicator/internal/models"
	"github.com/j-veylop/usage-indicator/internal/services/retry"
	"github.com/j-veylop/usage-indicator/internal/services/usage"
	"github.com/j-veylop/usage-indicator/internal/state"
)

// ErrAlreadyRunning is returned when a second poll is started while one is
// outstanding.
var ErrAlreadyRunning = errors.New("poll loop is already running")

// Fetcher performs one usage fetch.
type Fetcher interface {
	Fetch(ctx context.Context) (models.UsageSnapshot, error)
}

// Transition describes the outcome of one poll cycle.
type Transition struct {
	At         time.Time
	NextPollAt time.Time
	From       models.PollingState
	To         models.PollingState
	Snapshot   *models.UsageSnapshot
	Failure    *models.FetchFailure
	CycleID    string
}

// Config holds configuration for the scheduler.
type Config struct {
	Retry    retry.Policy
	Interval IntervalConfig
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Interval: DefaultIntervalConfig(),
		Retry:    retry.DefaultPolicy(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := c.Interval.Validate(); err != nil {
		return fmt.Errorf("invalid poll interval: %w", err)
	}
	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("invalid retry policy: %w", err)
	}
	return nil
}

// Option customises a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithObserver registers fn to be called after every poll cycle from the
// loop goroutine. fn must not block.
func WithObserver(fn func(Transition)) Option {
	return func(s *Scheduler) { s.observer = fn }
}

// Schedule is the scheduler's decision about the next poll.
type Schedule struct {
	At time.Time
	// Halted means no automatic poll is scheduled.
	Halted bool
}

// Scheduler owns the poll loop and is the only writer of the state store.
type Scheduler struct {
	fetcher  Fetcher
	store    *state.Store
	clock    Clock
	interval *Interval
	observer func(Transition)
	trigger  chan struct{}
	policy   retry.Policy
	running  atomic.Bool

	// Loop state. Only touched while running is held.
	polling        models.PollingState
	lastGood       *models.UsageSnapshot
	nextSteady     time.Time
	rateLimitUntil time.Time
	attempt        int
}

// New creates a scheduler. Configuration errors are fatal and reported here.
func New(fetcher Fetcher, store *state.Store, cfg Config, opts ...Option) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Scheduler{
		fetcher:  fetcher,
		store:    store,
		clock:    SystemClock(),
		interval: NewInterval(cfg.Interval),
		policy:   cfg.Retry,
		trigger:  make(chan struct{}, 1),
		polling:  models.Idle{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RetryNow asks the loop to poll immediately. During a server rate-limit
// window the poll happens when the window ends.
func (s *Scheduler) RetryNow() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Interval returns the current steady-state interval.
func (s *Scheduler) Interval() time.Duration {
	return s.store.Current().Interval
}

// Run polls until ctx is cancelled. The first poll happens immediately.
// Cancellation interrupts both the sleep and an in-flight request; Run then
// returns nil.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	next := Schedule{At: s.clock.Now()}
	s.store.Update(func(v *state.View) {
		v.NextPollAt = next.At
		v.Interval = s.interval.Current()
	})
	logger.Info("poll loop started", "interval", s.interval.Current())

	for {
		if !s.wait(ctx, next) {
			logger.Info("poll loop stopped")
			return nil
		}
		next = s.cycle(ctx)
		if ctx.Err() != nil {
			logger.Info("poll loop stopped")
			return nil
		}
	}
}

// PollOnce runs a single poll cycle synchronously.
func (s *Scheduler) PollOnce(ctx context.Context) (Schedule, error) {
	if !s.running.CompareAndSwap(false, true) {
		return Schedule{}, ErrAlreadyRunning
	}
	defer s.running.Store(false)
	return s.cycle(ctx), ctx.Err()
}

// wait blocks until the schedule is due, a manual trigger arrives or ctx is
// cancelled. It returns false on cancellation.
func (s *Scheduler) wait(ctx context.Context, next Schedule) bool {
	var (
		timer    Timer
		timerC   <-chan time.Time
		deadline time.Time
	)
	arm := func(at time.Time) {
		if timer != nil {
			timer.Stop()
		}
		timer = s.clock.NewTimer(max(at.Sub(s.clock.Now()), 0))
		timerC = timer.C()
		deadline = at
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	if !next.Halted {
		arm(next.At)
	}

	for {
		select {
		case <-ctx.Done():
			return false
		case <-timerC:
			return true
		case <-s.trigger:
			if now := s.clock.Now(); now.Before(s.rateLimitUntil) {
				// The manual retry fires when the window closes.
				if timer == nil || s.rateLimitUntil.Before(deadline) {
					arm(s.rateLimitUntil)
				}
				logger.Info("manual retry deferred by rate limit", "until", s.rateLimitUntil)
				continue
			}
			logger.Info("manual retry requested", "state", s.polling.Kind())
			return true
		}
	}
}

func (s *Scheduler) cycle(ctx context.Context) Schedule {
	cycleID := uuid.NewString()

	snap, err := s.fetcher.Fetch(ctx)
	if ctx.Err() != nil {
		// Shutting down; the outcome is irrelevant.
		return Schedule{Halted: true}
	}

	now := s.clock.Now()
	if err != nil {
		return s.handleFailure(cycleID, now, err)
	}
	return s.handleSuccess(cycleID, now, snap)
}

func (s *Scheduler) handleSuccess(cycleID string, now time.Time, snap models.UsageSnapshot) Schedule {
	changed, interval := s.interval.Observe(snap)

	s.attempt = 0
	s.rateLimitUntil = time.Time{}
	s.lastGood = &snap
	next := now.Add(interval)
	s.nextSteady = next

	logger.Debug("usage fetched",
		"cycle", cycleID,
		"weekly_pct", snap.WeeklyPct,
		"six_hour_pct", snap.SixHourPct,
		"changed", changed,
		"interval", interval,
	)

	s.commit(Transition{
		CycleID:    cycleID,
		At:         now,
		To:         models.Active{Interval: interval},
		NextPollAt: next,
		Snapshot:   &snap,
	})
	return Schedule{At: next}
}

func (s *Scheduler) handleFailure(cycleID string, now time.Time, err error) Schedule {
	kind := usage.KindOf(err)
	failure := &models.FetchFailure{Kind: kind, Message: usage.MessageOf(err), At: now}

	if !s.policy.Retryable(kind) {
		// Auth and configuration failures wait for a manual retry.
		if kind == models.KindFatal {
			logger.Error("fatal error during poll, automatic polling halted", "cycle", cycleID, "error", err)
		}
		s.rateLimitUntil = time.Time{}
		s.commit(Transition{
			CycleID: cycleID,
			At:      now,
			To:      models.AuthError{},
			Failure: failure,
		})
		return Schedule{Halted: true}
	}

	switch kind {
	case models.KindRateLimited:
		var fe *usage.FetchError
		if !errors.As(err, &fe) {
			fe = &usage.FetchError{}
		}
		until := now.Add(s.policy.RateLimitDelay(fe.RetryAfter, fe.HasRetryAfter, s.attempt))
		next := until
		if s.nextSteady.After(next) {
			next = s.nextSteady
		}
		s.rateLimitUntil = until
		s.commit(Transition{
			CycleID:    cycleID,
			At:         now,
			To:         models.RateLimited{Until: until},
			NextPollAt: next,
			Failure:    failure,
		})
		return Schedule{At: next}

	default:
		delay := s.policy.Delay(s.attempt)
		s.attempt++
		until := now.Add(delay)

		var to models.PollingState = models.Backoff{Until: until, Attempt: s.attempt}
		if s.policy.Escalate(s.attempt) && s.lastGood != nil {
			since := now
			if d, ok := s.polling.(models.Degraded); ok {
				since = d.Since
			}
			to = models.Degraded{LastGood: *s.lastGood, Since: since}
		}

		s.commit(Transition{
			CycleID:    cycleID,
			At:         now,
			To:         to,
			NextPollAt: until,
			Failure:    failure,
		})
		return Schedule{At: until}
	}
}

// commit publishes the transition to the store and the audit log.
func (s *Scheduler) commit(t Transition) {
	t.From = s.polling
	s.polling = t.To

	view := s.store.Update(func(v *state.View) {
		v.Polling = t.To
		v.NextPollAt = t.NextPollAt
		v.Interval = s.interval.Current()
		v.LastError = t.Failure
		v.CycleID = t.CycleID
		if t.Snapshot != nil {
			v.Last = t.Snapshot
		}
	})

	attrs := []any{
		"cycle", t.CycleID,
		"from", t.From.Kind(),
		"to", t.To.Kind(),
		"next_poll_at", t.NextPollAt,
		"version", view.Version,
	}
	if t.Failure != nil {
		attrs = append(attrs, "error_kind", t.Failure.Kind, "error", t.Failure.Message)
	}
	if t.From.Kind() != t.To.Kind() {
		logger.Info("poll transition", attrs...)
	} else {
		logger.Debug("poll cycle", attrs...)
	}

	if s.observer != nil {
		s.observer(t)
	}
}
