package models

import (
	"testing"
	"time"
)

func TestPollingState_Kinds(t *testing.T) {
	tests := []struct {
		state PollingState
		kind  PollingKind
		name  string
	}{
		{Idle{}, PollingIdle, "idle"},
		{Active{Interval: time.Minute}, PollingActive, "active"},
		{Backoff{Attempt: 1}, PollingBackoff, "backoff"},
		{RateLimited{}, PollingRateLimited, "rate_limited"},
		{AuthError{}, PollingAuthError, "auth_error"},
		{Degraded{}, PollingDegraded, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.Kind(); got != tt.kind {
				t.Errorf("Kind() = %v, want %v", got, tt.kind)
			}
			if got := tt.state.Kind().String(); got != tt.name {
				t.Errorf("Kind().String() = %q, want %q", got, tt.name)
			}
			if tt.state.Label() == "" {
				t.Error("Label() should not be empty")
			}
		})
	}
}

func TestPollingState_Labels(t *testing.T) {
	if got := (Active{Interval: 45 * time.Minute}).Label(); got != "Active, every 45m" {
		t.Errorf("Active label = %q", got)
	}
	if got := (Backoff{Attempt: 3}).Label(); got != "Retrying (attempt 3)" {
		t.Errorf("Backoff label = %q", got)
	}
}

func TestShortDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{3 * time.Minute, "3m"},
		{90 * time.Second, "1m30s"},
		{45 * time.Minute, "45m"},
		{90 * time.Minute, "1h30m"},
		{90 * time.Hour, "90h"},
		{2 * time.Hour, "2h"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := ShortDuration(tt.d); got != tt.want {
				t.Errorf("ShortDuration(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}

func TestErrorKind_String(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{KindTransient, "transient"},
		{KindRateLimited, "rate_limited"},
		{KindAuthFailed, "auth_failed"},
		{KindMalformed, "malformed"},
		{KindFatal, "fatal"},
		{ErrorKind(42), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	for s := StatusNormal; s <= StatusStale; s++ {
		got, err := ParseStatus(s.String())
		if err != nil {
			t.Fatalf("ParseStatus(%q) error: %v", s.String(), err)
		}
		if got != s {
			t.Errorf("ParseStatus(%q) = %v, want %v", s.String(), got, s)
		}
	}
	if _, err := ParseStatus("sparkly"); err == nil {
		t.Error("expected error for unknown status")
	}
	if got := StatusClass(99).String(); got != "unknown" {
		t.Errorf("String() for out of range = %q", got)
	}
}
