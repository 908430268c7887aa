package state

import (
	"testing"
	"time"

	"github.com/j-veylop/usage-indicator/internal/models"
)

func TestView_Status(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	fresh := &models.UsageSnapshot{WeeklyPct: 40, FetchedAt: now.Add(-time.Minute)}
	old := &models.UsageSnapshot{WeeklyPct: 40, FetchedAt: now.Add(-4 * time.Hour)}
	staleAfter := 3 * time.Hour

	tests := []struct {
		name string
		view View
		want models.StatusClass
	}{
		{"IdleNoData", View{Polling: models.Idle{}}, models.StatusNormal},
		{"ActiveFresh", View{Polling: models.Active{}, Last: fresh}, models.StatusNormal},
		{"ActiveOld", View{Polling: models.Active{}, Last: old}, models.StatusStale},
		{"BackoffTransient", View{
			Polling:   models.Backoff{Attempt: 1},
			Last:      fresh,
			LastError: &models.FetchFailure{Kind: models.KindTransient},
		}, models.StatusOffline},
		{"BackoffMalformed", View{
			Polling:   models.Backoff{Attempt: 1},
			LastError: &models.FetchFailure{Kind: models.KindMalformed},
		}, models.StatusAPIError},
		{"RateLimited", View{Polling: models.RateLimited{}, Last: fresh}, models.StatusRateLimited},
		{"AuthError", View{Polling: models.AuthError{}, Last: fresh}, models.StatusAuthError},
		{"Degraded", View{Polling: models.Degraded{}, Last: fresh}, models.StatusStale},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.view.Status(now, staleAfter); got != tt.want {
				t.Errorf("Status() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestView_Percent(t *testing.T) {
	v := View{}
	if got := v.Percent(models.MetricWeekly); got != UnknownPercent {
		t.Errorf("Percent() without data = %v, want %v", got, UnknownPercent)
	}
	v.Last = &models.UsageSnapshot{WeeklyPct: 42, SixHourPct: 7}
	if got := v.Percent(models.MetricSixHour); got != 7 {
		t.Errorf("Percent(six_hour) = %v, want 7", got)
	}
}

func TestView_IsStale(t *testing.T) {
	now := time.Now()
	v := View{Polling: models.Degraded{}}
	if v.IsStale(now, time.Hour) {
		t.Error("view without data cannot be stale")
	}
	v.Last = &models.UsageSnapshot{FetchedAt: now}
	if !v.IsStale(now, time.Hour) {
		t.Error("degraded view with data should be stale")
	}
}
