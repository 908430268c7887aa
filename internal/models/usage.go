// Package models defines data structures and domain types.
package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// UsageSnapshot is one complete reading of the subscription usage counters.
// Percentages may exceed 100 when the upstream reports overage; only display
// code clamps them.
type UsageSnapshot struct {
	WeeklyResetAt  time.Time `json:"weeklyResetAt"`
	SixHourResetAt time.Time `json:"sixHourResetAt"`
	FetchedAt      time.Time `json:"fetchedAt"`
	WeeklyPct      float64   `json:"weeklyPct"`
	SixHourPct     float64   `json:"sixHourPct"`
}

// ChangedFrom reports whether either tracked percentage moved by more than
// epsilon percentage points since prev. Raw values are compared.
func (s UsageSnapshot) ChangedFrom(prev UsageSnapshot, epsilon float64) bool {
	return math.Abs(s.WeeklyPct-prev.WeeklyPct) > epsilon ||
		math.Abs(s.SixHourPct-prev.SixHourPct) > epsilon
}

// Percent returns the percentage tracked by the given metric.
func (s UsageSnapshot) Percent(metric Metric) float64 {
	if metric == MetricSixHour {
		return s.SixHourPct
	}
	return s.WeeklyPct
}

// Age returns how old the snapshot is at now.
func (s UsageSnapshot) Age(now time.Time) time.Duration {
	if s.FetchedAt.IsZero() {
		return 0
	}
	return now.Sub(s.FetchedAt)
}

// Metric selects which usage window drives the indicator.
type Metric int

const (
	// MetricWeekly is the seven day window.
	MetricWeekly Metric = iota
	// MetricSixHour is the short rolling window.
	MetricSixHour
)

// String returns the configuration name of the metric.
func (m Metric) String() string {
	switch m {
	case MetricWeekly:
		return "weekly"
	case MetricSixHour:
		return "six_hour"
	default:
		return "unknown"
	}
}

// ParseMetric parses a configuration value into a Metric.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "weekly", "seven_day", "7d":
		return MetricWeekly, nil
	case "six_hour", "five_hour", "session", "6h", "5h":
		return MetricSixHour, nil
	default:
		return MetricWeekly, fmt.Errorf("unknown usage metric %q", s)
	}
}
