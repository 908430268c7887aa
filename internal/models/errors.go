package models

import "time"

// ErrorKind classifies a failed usage fetch.
type ErrorKind int

const (
	// KindTransient covers network errors, timeouts and 5xx responses.
	KindTransient ErrorKind = iota
	// KindRateLimited is an explicit rate-limit signal (HTTP 429).
	KindRateLimited
	// KindAuthFailed means the session credential was rejected.
	KindAuthFailed
	// KindMalformed means the response did not have the expected shape.
	KindMalformed
	// KindFatal is a configuration problem detected at startup.
	KindFatal
)

// String returns a short diagnostic name.
func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindRateLimited:
		return "rate_limited"
	case KindAuthFailed:
		return "auth_failed"
	case KindMalformed:
		return "malformed"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Label returns a human readable description used in tooltips.
func (k ErrorKind) Label() string {
	switch k {
	case KindTransient:
		return "Connection problem"
	case KindRateLimited:
		return "Rate limited"
	case KindAuthFailed:
		return "Authentication failed"
	case KindMalformed:
		return "Unexpected API response"
	case KindFatal:
		return "Configuration error"
	default:
		return "Unknown error"
	}
}

// FetchFailure records the most recent failed poll.
type FetchFailure struct {
	At      time.Time
	Message string
	Kind    ErrorKind
}
