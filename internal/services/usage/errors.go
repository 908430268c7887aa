package usage

import (
	"errors"
	"fmt"
	"time"

	"github.com/j-veylop/usage-indicator/internal/models"
)

// Sentinel errors matched by errors.Is against a *FetchError of the same kind.
var (
	ErrTransient   = errors.New("transient usage fetch failure")
	ErrRateLimited = errors.New("usage api rate limited")
	ErrAuthFailed  = errors.New("usage api authentication failed")
	ErrMalformed   = errors.New("malformed usage response")
	ErrFatal       = errors.New("usage client misconfigured")
)

// FetchError is a classified usage fetch failure.
type FetchError struct {
	Err           error
	Message       string
	Kind          models.ErrorKind
	Status        int
	RetryAfter    time.Duration
	HasRetryAfter bool
}

func (e *FetchError) Error() string {
	msg := e.Message
	switch {
	case msg == "" && e.Err != nil:
		msg = e.Err.Error()
	case e.Err != nil:
		msg += ": " + e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error for the failure kind.
func (e *FetchError) Is(target error) bool {
	return target == sentinelFor(e.Kind)
}

func sentinelFor(kind models.ErrorKind) error {
	switch kind {
	case models.KindTransient:
		return ErrTransient
	case models.KindRateLimited:
		return ErrRateLimited
	case models.KindAuthFailed:
		return ErrAuthFailed
	case models.KindMalformed:
		return ErrMalformed
	case models.KindFatal:
		return ErrFatal
	}
	return nil
}

// KindOf classifies err. Errors that did not come from the client are
// treated as transient.
func KindOf(err error) models.ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return models.KindTransient
}

// MessageOf returns the short diagnostic message carried by err.
func MessageOf(err error) string {
	var fe *FetchError
	if errors.As(err, &fe) && fe.Message != "" {
		return fe.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func transientError(msg string, err error) *FetchError {
	return &FetchError{Kind: models.KindTransient, Message: msg, Err: err}
}

func malformedError(msg string, err error) *FetchError {
	return &FetchError{Kind: models.KindMalformed, Message: msg, Err: err}
}

func fatalError(msg string) *FetchError {
	return &FetchError{Kind: models.KindFatal, Message: msg}
}
