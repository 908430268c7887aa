package poller

import (
	"errors"
	"fmt"
	"time"

	"github.com/j-veylop/usage-indicator/internal/models"
)

// IntervalConfig parameterises the adaptive interval.
type IntervalConfig struct {
	Min     time.Duration
	Max     time.Duration
	Initial time.Duration
	// Step is added to the interval after an unchanged poll.
	Step time.Duration
	// Decrease multiplies the interval after a changed poll.
	Decrease float64
	// Epsilon is the change threshold in percentage points.
	Epsilon float64
}

// DefaultIntervalConfig returns the default AIMD parameters.
func DefaultIntervalConfig() IntervalConfig {
	return IntervalConfig{
		Min:      180 * time.Second,
		Max:      5400 * time.Second,
		Initial:  180 * time.Second,
		Step:     90 * time.Second,
		Decrease: 0.5,
		Epsilon:  0.5,
	}
}

// Validate checks the configuration.
func (c IntervalConfig) Validate() error {
	switch {
	case c.Min <= 0:
		return errors.New("min interval must be positive")
	case c.Min > c.Max:
		return fmt.Errorf("min interval %s exceeds max interval %s", c.Min, c.Max)
	case c.Initial < c.Min || c.Initial > c.Max:
		return fmt.Errorf("initial interval %s outside [%s, %s]", c.Initial, c.Min, c.Max)
	case c.Step < 0:
		return errors.New("additive step must not be negative")
	case c.Decrease <= 0 || c.Decrease >= 1:
		return errors.New("decrease factor must be within (0, 1)")
	case c.Epsilon < 0:
		return errors.New("change epsilon must not be negative")
	}
	return nil
}

// Interval is the adaptive poll interval together with the snapshot used
// for change detection.
type Interval struct {
	prev    *models.UsageSnapshot
	cfg     IntervalConfig
	current time.Duration
}

// NewInterval starts at cfg.Initial.
func NewInterval(cfg IntervalConfig) *Interval {
	return &Interval{cfg: cfg, current: clampDuration(cfg.Initial, cfg.Min, cfg.Max)}
}

// Current returns the steady-state interval.
func (iv *Interval) Current() time.Duration {
	return iv.current
}

// Observe feeds a successful snapshot. The first observation only records
// the baseline. Later ones shrink the interval multiplicatively when usage
// moved by more than epsilon and grow it additively otherwise.
func (iv *Interval) Observe(s models.UsageSnapshot) (changed bool, next time.Duration) {
	prev := iv.prev
	iv.prev = &s
	if prev == nil {
		return false, iv.current
	}

	if s.ChangedFrom(*prev, iv.cfg.Epsilon) {
		iv.current = clampDuration(time.Duration(float64(iv.current)*iv.cfg.Decrease), iv.cfg.Min, iv.cfg.Max)
		return true, iv.current
	}
	iv.current = clampDuration(iv.current+iv.cfg.Step, iv.cfg.Min, iv.cfg.Max)
	return false, iv.current
}

func clampDuration(d, lo, hi time.Duration) time.Duration {
	return max(lo, min(d, hi))
}
