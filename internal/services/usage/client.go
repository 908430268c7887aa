// Package usage fetches subscription usage snapshots from the remote API.
package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/j-veylop/usage-indicator/internal/logger"
	"github.com/j-veylop/usage-indicator/internal/models"
)

const (
	// DefaultBaseURL is the production API host.
	DefaultBaseURL = "https://claude.ai"

	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	// Usage responses are a few hundred bytes; anything larger is not ours.
	maxBodySize = 1 << 20
)

// Credentials identify the account whose usage is fetched.
type Credentials struct {
	OrgID      string
	SessionKey string
}

// Config holds configuration for the usage client.
type Config struct {
	Transport http.RoundTripper
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// MinGap is the minimum spacing between two requests. Zero disables it.
	MinGap time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: defaultUserAgent,
		Timeout:   30 * time.Second,
		MinGap:    10 * time.Second,
	}
}

// Client performs authenticated usage fetches.
type Client struct {
	base      *url.URL
	http      *http.Client
	limiter   *rate.Limiter
	now       func() time.Time
	userAgent string
	creds     Credentials
	mu        sync.RWMutex
}

// NewClient validates the endpoint and credentials and builds a client.
// Validation failures are KindFatal.
func NewClient(cfg Config, creds Credentials) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		return nil, fatalError("request timeout must be positive")
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fatalError(fmt.Sprintf("invalid API base URL %q: %v", cfg.BaseURL, err))
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fatalError(fmt.Sprintf("API base URL %q must use http or https", cfg.BaseURL))
	}
	if base.Host == "" {
		return nil, fatalError(fmt.Sprintf("API base URL %q has no host", cfg.BaseURL))
	}

	if err := validateCredentials(creds); err != nil {
		return nil, err
	}

	limit := rate.Inf
	if cfg.MinGap > 0 {
		limit = rate.Every(cfg.MinGap)
	}

	return &Client{
		base:      base,
		http:      &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
		limiter:   rate.NewLimiter(limit, 1),
		now:       time.Now,
		userAgent: cfg.UserAgent,
		creds:     creds,
	}, nil
}

func validateCredentials(creds Credentials) error {
	if creds.OrgID == "" || creds.SessionKey == "" {
		return fatalError("organization id and session key are required")
	}
	if strings.ContainsAny(creds.OrgID, "/?#") {
		return fatalError("organization id contains invalid characters")
	}
	// Values end up in a Cookie header.
	for _, v := range []string{creds.OrgID, creds.SessionKey} {
		if strings.ContainsAny(v, ";\r\n\x00 ") {
			return fatalError("credentials contain characters not allowed in a cookie")
		}
	}
	return nil
}

// SetCredentials replaces the credentials used by subsequent fetches.
func (c *Client) SetCredentials(creds Credentials) error {
	if err := validateCredentials(creds); err != nil {
		return err
	}
	c.mu.Lock()
	c.creds = creds
	c.mu.Unlock()
	return nil
}

// Credentials returns the credentials currently in use.
func (c *Client) Credentials() Credentials {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds
}

// Endpoint returns the usage URL for the configured organization.
func (c *Client) Endpoint() string {
	return c.endpoint(c.Credentials().OrgID)
}

func (c *Client) endpoint(orgID string) string {
	return c.base.JoinPath("api", "organizations", orgID, "usage").String()
}

// usageWindow is one rolling window in the usage response.
type usageWindow struct {
	Utilization *float64   `json:"utilization"`
	ResetsAt    *time.Time `json:"resets_at"`
}

// usageResponse is the body returned by the usage endpoint.
type usageResponse struct {
	FiveHour *usageWindow `json:"five_hour"`
	SixHour  *usageWindow `json:"six_hour"`
	SevenDay *usageWindow `json:"seven_day"`
}

// apiErrorResponse is the error envelope returned on failures.
type apiErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Fetch performs one usage request. Failures are returned as *FetchError.
func (c *Client) Fetch(ctx context.Context) (models.UsageSnapshot, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return models.UsageSnapshot{}, transientError("request cancelled", err)
	}

	creds := c.Credentials()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(creds.OrgID), nil)
	if err != nil {
		return models.UsageSnapshot{}, transientError("failed to create usage request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Cookie", fmt.Sprintf("sessionKey=%s; lastActiveOrg=%s", creds.SessionKey, creds.OrgID))

	resp, err := c.http.Do(req)
	if err != nil {
		return models.UsageSnapshot{}, transientError("usage request failed", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return models.UsageSnapshot{}, transientError("failed to read usage response", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return c.parseSnapshot(body)

	case resp.StatusCode == http.StatusTooManyRequests:
		fe := &FetchError{
			Kind:    models.KindRateLimited,
			Status:  resp.StatusCode,
			Message: apiErrorMessage(body, "too many requests"),
		}
		fe.RetryAfter, fe.HasRetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), c.now())
		return models.UsageSnapshot{}, fe

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return models.UsageSnapshot{}, &FetchError{
			Kind:    models.KindAuthFailed,
			Status:  resp.StatusCode,
			Message: apiErrorMessage(body, http.StatusText(resp.StatusCode)),
		}

	default:
		return models.UsageSnapshot{}, &FetchError{
			Kind:    models.KindTransient,
			Status:  resp.StatusCode,
			Message: apiErrorMessage(body, http.StatusText(resp.StatusCode)),
		}
	}
}

func (c *Client) parseSnapshot(body []byte) (models.UsageSnapshot, error) {
	var data usageResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return models.UsageSnapshot{}, malformedError("failed to parse usage response", err)
	}

	short := data.FiveHour
	if short == nil {
		short = data.SixHour
	}

	weeklyPct, weeklyReset, err := data.SevenDay.values("seven_day")
	if err != nil {
		return models.UsageSnapshot{}, err
	}
	shortPct, shortReset, err := short.values("five_hour")
	if err != nil {
		return models.UsageSnapshot{}, err
	}

	return models.UsageSnapshot{
		WeeklyPct:      weeklyPct,
		SixHourPct:     shortPct,
		WeeklyResetAt:  weeklyReset,
		SixHourResetAt: shortReset,
		FetchedAt:      c.now(),
	}, nil
}

// values extracts the utilization and reset time. A null reset time means
// the window has not started and is returned as the zero time.
func (w *usageWindow) values(name string) (float64, time.Time, error) {
	if w == nil {
		return 0, time.Time{}, malformedError(fmt.Sprintf("usage response is missing %s", name), nil)
	}
	if w.Utilization == nil {
		return 0, time.Time{}, malformedError(fmt.Sprintf("%s.utilization is missing", name), nil)
	}
	if *w.Utilization < 0 {
		return 0, time.Time{}, malformedError(fmt.Sprintf("%s.utilization is negative", name), nil)
	}
	var reset time.Time
	if w.ResetsAt != nil {
		reset = *w.ResetsAt
	}
	return *w.Utilization, reset, nil
}

// apiErrorMessage extracts "type - message" from an error body.
func apiErrorMessage(body []byte, fallback string) string {
	var data apiErrorResponse
	if err := json.Unmarshal(body, &data); err != nil || data.Error.Message == "" {
		return fallback
	}
	if data.Error.Type == "" {
		return data.Error.Message
	}
	return fmt.Sprintf("%s - %s", data.Error.Type, data.Error.Message)
}

// maxRetryAfter caps server supplied waits.
const maxRetryAfter = 24 * time.Hour

// parseRetryAfter accepts delta-seconds or an HTTP-date. Waits are clamped
// to [0, maxRetryAfter].
func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		if secs < 0 {
			return 0, false
		}
		if secs > int64(maxRetryAfter/time.Second) {
			return maxRetryAfter, true
		}
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(value); err == nil {
		return min(max(at.Sub(now), 0), maxRetryAfter), true
	}
	return 0, false
}
