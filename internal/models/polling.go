package models

import (
	"fmt"
	"time"
)

// PollingKind enumerates the PollingState variants.
type PollingKind int

const (
	PollingIdle PollingKind = iota
	PollingActive
	PollingBackoff
	PollingRateLimited
	PollingAuthError
	PollingDegraded
)

// String returns the variant name.
func (k PollingKind) String() string {
	switch k {
	case PollingIdle:
		return "idle"
	case PollingActive:
		return "active"
	case PollingBackoff:
		return "backoff"
	case PollingRateLimited:
		return "rate_limited"
	case PollingAuthError:
		return "auth_error"
	case PollingDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// PollingState is the closed set of poll loop states. Only the types in this
// file implement it.
type PollingState interface {
	Kind() PollingKind
	// Label is a short human readable description.
	Label() string
	isPollingState()
}

// Idle means no poll has completed yet.
type Idle struct{}

// Active is steady polling at Interval.
type Active struct {
	Interval time.Duration
}

// Backoff means a transient failure occurred and a retry is due at Until.
type Backoff struct {
	Until   time.Time
	Attempt int
}

// RateLimited means the server asked us to wait until Until.
type RateLimited struct {
	Until time.Time
}

// AuthError halts automatic polling until a manual retry.
type AuthError struct{}

// Degraded serves LastGood after repeated failures, starting at Since.
type Degraded struct {
	Since    time.Time
	LastGood UsageSnapshot
}

func (Idle) isPollingState()        {}
func (Active) isPollingState()      {}
func (Backoff) isPollingState()     {}
func (RateLimited) isPollingState() {}
func (AuthError) isPollingState()   {}
func (Degraded) isPollingState()    {}

func (Idle) Kind() PollingKind        { return PollingIdle }
func (Active) Kind() PollingKind      { return PollingActive }
func (Backoff) Kind() PollingKind     { return PollingBackoff }
func (RateLimited) Kind() PollingKind { return PollingRateLimited }
func (AuthError) Kind() PollingKind   { return PollingAuthError }
func (Degraded) Kind() PollingKind    { return PollingDegraded }

func (Idle) Label() string { return "Starting" }

func (a Active) Label() string {
	return fmt.Sprintf("Active, every %s", ShortDuration(a.Interval))
}

func (b Backoff) Label() string {
	return fmt.Sprintf("Retrying (attempt %d)", b.Attempt)
}

func (RateLimited) Label() string { return "Rate limited" }

func (AuthError) Label() string { return "Authentication failed" }

func (Degraded) Label() string { return "Degraded, showing last good data" }

// ShortDuration renders d compactly, e.g. "45m", "1h30m", "90s".
func ShortDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Round(time.Second)/time.Second))
	}
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	s := int((d % time.Minute) / time.Second)
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh%dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	case s > 0:
		return fmt.Sprintf("%dm%ds", m, s)
	default:
		return fmt.Sprintf("%dm", m)
	}
}
