// Package retry decides when a failed usage fetch is attempted again.
package retry

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/j-veylop/usage-indicator/internal/models"
)

// Policy is an exponential backoff schedule with upward jitter.
//
// The delay for attempt n (zero based) is Base*2^n*(1+Jitter*u) with u drawn
// uniformly from [0,1), clamped to Max. Jitter is limited to [0,1] so that
// the jittered delay of attempt n never exceeds the unjittered delay of n+1,
// which keeps the schedule non-decreasing.
type Policy struct {
	rand        func() float64
	Base        time.Duration
	Max         time.Duration
	Jitter      float64
	MaxAttempts int
}

// DefaultPolicy returns the default retry schedule.
func DefaultPolicy() Policy {
	return Policy{
		Base:        5 * time.Second,
		Max:         5 * time.Minute,
		Jitter:      0.2,
		MaxAttempts: 5,
	}
}

// WithRand returns a copy of the policy using fn as its jitter source.
func (p Policy) WithRand(fn func() float64) Policy {
	p.rand = fn
	return p
}

// Validate checks the policy parameters.
func (p Policy) Validate() error {
	switch {
	case p.Base <= 0:
		return errors.New("retry base delay must be positive")
	case p.Max < p.Base:
		return errors.New("retry max delay must not be smaller than the base delay")
	case p.Jitter < 0 || p.Jitter > 1:
		return errors.New("retry jitter must be within [0, 1]")
	case p.MaxAttempts < 0:
		return errors.New("retry max attempts must not be negative")
	}
	return nil
}

// Delay returns the wait before retry number attempt.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// 2^32 * Base exceeds any sane ceiling and would overflow soon after.
	if attempt > 32 {
		return p.Max
	}
	raw := float64(p.Base) * float64(uint64(1)<<uint(attempt))
	if p.Jitter > 0 {
		raw *= 1 + p.Jitter*p.random()
	}
	if raw >= float64(p.Max) {
		return p.Max
	}
	return time.Duration(raw)
}

// Retryable reports whether a failure of this kind is retried automatically.
func (p Policy) Retryable(kind models.ErrorKind) bool {
	switch kind {
	case models.KindTransient, models.KindMalformed, models.KindRateLimited:
		return true
	default:
		return false
	}
}

// Escalate reports whether failures consecutive transient failures exceed
// the tolerated budget.
func (p Policy) Escalate(failures int) bool {
	return failures > p.MaxAttempts
}

// RateLimitDelay returns the wait after a rate-limit response. A server
// supplied retryAfter wins; otherwise one backoff step at the current attempt
// is used.
func (p Policy) RateLimitDelay(retryAfter time.Duration, hasRetryAfter bool, attempt int) time.Duration {
	if hasRetryAfter {
		if retryAfter < 0 {
			return 0
		}
		return retryAfter
	}
	return p.Delay(attempt)
}

func (p Policy) random() float64 {
	if p.rand != nil {
		return p.rand()
	}
	return rand.Float64()
}
