package models

import (
	"fmt"
	"strings"
)

// StatusClass is the visual condition of the indicator.
type StatusClass int

const (
	StatusNormal StatusClass = iota
	StatusOffline
	StatusAuthError
	StatusRateLimited
	StatusAPIError
	StatusStale
)

var statusNames = [...]string{
	StatusNormal:      "normal",
	StatusOffline:     "offline",
	StatusAuthError:   "auth_error",
	StatusRateLimited: "rate_limited",
	StatusAPIError:    "api_error",
	StatusStale:       "stale",
}

// String returns the status name.
func (s StatusClass) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// ParseStatus parses a status name as produced by String.
func ParseStatus(s string) (StatusClass, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range statusNames {
		if name == s {
			return StatusClass(i), nil
		}
	}
	return StatusNormal, fmt.Errorf("unknown status %q", s)
}
