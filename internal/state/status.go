package state

import (
	"time"

	"github.com/j-veylop/usage-indicator/internal/models"
)

// UnknownPercent is reported when no usage data is available.
const UnknownPercent = -1.0

// Status derives the indicator status. Data older than staleAfter is Stale
// even while polling is nominally active.
func (v View) Status(now time.Time, staleAfter time.Duration) models.StatusClass {
	switch v.Polling.(type) {
	case models.AuthError:
		return models.StatusAuthError
	case models.RateLimited:
		return models.StatusRateLimited
	case models.Degraded:
		return models.StatusStale
	case models.Backoff:
		if v.LastError != nil && v.LastError.Kind == models.KindMalformed {
			return models.StatusAPIError
		}
		return models.StatusOffline
	case models.Active:
		if v.Last != nil && staleAfter > 0 && v.Last.Age(now) > staleAfter {
			return models.StatusStale
		}
		return models.StatusNormal
	default:
		return models.StatusNormal
	}
}

// Percent returns the displayed percentage for metric, or UnknownPercent.
func (v View) Percent(metric models.Metric) float64 {
	if v.Last == nil {
		return UnknownPercent
	}
	return v.Last.Percent(metric)
}

// IsStale reports whether the view shows data that is not fresh.
func (v View) IsStale(now time.Time, staleAfter time.Duration) bool {
	if v.Last == nil {
		return false
	}
	return v.Status(now, staleAfter) != models.StatusNormal
}
