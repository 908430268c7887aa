// Package tooltip renders the indicator tooltip text.
package tooltip

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/j-veylop/usage-indicator/internal/models"
	"github.com/j-veylop/usage-indicator/internal/state"
)

// Title is the first tooltip line.
const Title = "Claude usage"

// NoData is shown in place of percentages before the first good poll.
const NoData = "No data yet"

// Options tunes the tooltip.
type Options struct {
	// Location is used for absolute times. Nil means time.Local.
	Location *time.Location
	// StaleAfter marks active data older than this as stale. Zero disables.
	StaleAfter time.Duration
}

// Format renders v as multi-line tooltip text at now.
func Format(v state.View, now time.Time, opts Options) string {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	var b strings.Builder
	b.WriteString(Title)

	status := v.Status(now, opts.StaleAfter)
	if status == models.StatusStale {
		b.WriteString(" (stale)")
	}
	b.WriteByte('\n')

	if s := v.Last; s != nil {
		fmt.Fprintf(&b, "Weekly: %s, %s\n", percent(s.WeeklyPct), resetText(s.WeeklyResetAt, now, loc))
		fmt.Fprintf(&b, "5-hour: %s, %s\n", percent(s.SixHourPct), resetText(s.SixHourResetAt, now, loc))
	} else {
		b.WriteString(NoData)
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "State: %s\n", stateLabel(v.Polling))
	fmt.Fprintf(&b, "Next poll: %s", nextPollText(v, now, loc))

	if v.Last != nil && !v.Last.FetchedAt.IsZero() {
		fmt.Fprintf(&b, "\nUpdated %s", relative(v.Last.FetchedAt, now))
	}

	if e := v.LastError; e != nil {
		fmt.Fprintf(&b, "\nLast error: %s", e.Kind.Label())
		if e.Message != "" {
			fmt.Fprintf(&b, ": %s", e.Message)
		}
		if retry := retryAt(v.Polling); !retry.IsZero() {
			fmt.Fprintf(&b, "\nRetry at %s", clock(retry, now, loc))
		}
	}
	return b.String()
}

func percent(p float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(p)))
}

func resetText(t, now time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "not started"
	}
	return fmt.Sprintf("resets %s (%s)", clock(t, now, loc), relative(t, now))
}

func stateLabel(p models.PollingState) string {
	if p == nil {
		return models.Idle{}.Label()
	}
	return p.Label()
}

func nextPollText(v state.View, now time.Time, loc *time.Location) string {
	if _, halted := v.Polling.(models.AuthError); halted {
		return "paused until retry"
	}
	if v.NextPollAt.IsZero() {
		return "pending"
	}
	if !v.NextPollAt.After(now) {
		return "now"
	}
	return fmt.Sprintf("%s (%s)", clock(v.NextPollAt, now, loc), relative(v.NextPollAt, now))
}

func retryAt(p models.PollingState) time.Time {
	switch s := p.(type) {
	case models.Backoff:
		return s.Until
	case models.RateLimited:
		return s.Until
	default:
		return time.Time{}
	}
}

// clock formats t with the date only when it is not today.
func clock(t, now time.Time, loc *time.Location) string {
	t, now = t.In(loc), now.In(loc)
	if t.YearDay() == now.YearDay() && t.Year() == now.Year() {
		return t.Format("15:04")
	}
	return t.Format("Mon 2 Jan 15:04")
}

func relative(t, now time.Time) string {
	if d := t.Sub(now); d > -time.Second && d < time.Second {
		return "now"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
