// Package config contains everything related to configuration
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/j-veylop/usage-indicator/internal/icon"
	"github.com/j-veylop/usage-indicator/internal/models"
	"github.com/j-veylop/usage-indicator/internal/services/poller"
	"github.com/j-veylop/usage-indicator/internal/services/retry"
	"github.com/j-veylop/usage-indicator/internal/services/usage"
)

// Environment keys.
const (
	EnvOrgID      = "CLAUDE_ORG_ID"
	EnvSessionKey = "CLAUDE_SESSION_KEY"
)

// Config holds the application configuration.
type Config struct {
	// EnvPath is the .env file that was loaded, if any.
	EnvPath string

	OrgID      string
	SessionKey string
	BaseURL    string

	MinInterval     time.Duration
	MaxInterval     time.Duration
	InitialInterval time.Duration
	AdditiveStep    time.Duration
	DecreaseFactor  float64
	ChangeEpsilon   float64

	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
	RetryMaxAttempts int
	RetryJitter      float64

	RequestTimeout time.Duration
	RequestMinGap  time.Duration
	StaleAfter     time.Duration

	IconSize        int
	IconSupersample int
	IconMetric      models.Metric
	IconCacheSize   int

	Notifications bool
	LogLevel      string
	LogFile       string

	// parseErr holds environment values that could not be parsed.
	parseErr error
}

// Default values
const (
	defaultMinInterval    = 180 * time.Second
	defaultMaxInterval    = 5400 * time.Second
	defaultAdditiveStep   = 90 * time.Second
	defaultDecreaseFactor = 0.5
	defaultChangeEpsilon  = 0.5

	defaultRetryBaseDelay   = 5 * time.Second
	defaultRetryMaxDelay    = 300 * time.Second
	defaultRetryMaxAttempts = 5
	defaultRetryJitter      = 0.2

	defaultRequestTimeout = 30 * time.Second
	defaultRequestMinGap  = 10 * time.Second

	defaultIconSize        = 32
	defaultIconSupersample = 4
	defaultIconCacheSize   = 256
)

// Load reads configuration from .env files and environment variables and
// validates it. Any error is fatal for startup.
func Load() (*Config, error) {
	var envPath string
	for _, path := range getEnvPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", path, err)
			}
			envPath = path
			break
		}
	}

	cfg, err := fromEnv()
	if err != nil {
		return nil, err
	}
	cfg.EnvPath = envPath

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromEnv() (*Config, error) {
	var env envReader
	minInterval := env.duration("POLL_MIN_INTERVAL", defaultMinInterval)
	maxInterval := env.duration("POLL_MAX_INTERVAL", defaultMaxInterval)

	metric, err := models.ParseMetric(getEnvString("ICON_METRIC", models.MetricWeekly.String()))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		OrgID:      strings.TrimSpace(os.Getenv(EnvOrgID)),
		SessionKey: strings.TrimSpace(os.Getenv(EnvSessionKey)),
		BaseURL:    getEnvString("USAGE_API_BASE_URL", usage.DefaultBaseURL),

		MinInterval:     minInterval,
		MaxInterval:     maxInterval,
		InitialInterval: env.duration("POLL_INITIAL_INTERVAL", minInterval),
		AdditiveStep:    env.duration("POLL_ADDITIVE_STEP", defaultAdditiveStep),
		DecreaseFactor:  env.number("POLL_DECREASE_FACTOR", defaultDecreaseFactor),
		ChangeEpsilon:   env.number("POLL_CHANGE_EPSILON", defaultChangeEpsilon),

		RetryBaseDelay:   env.duration("RETRY_BASE_DELAY", defaultRetryBaseDelay),
		RetryMaxDelay:    env.duration("RETRY_MAX_DELAY", defaultRetryMaxDelay),
		RetryMaxAttempts: env.integer("RETRY_MAX_ATTEMPTS", defaultRetryMaxAttempts),
		RetryJitter:      env.number("RETRY_JITTER", defaultRetryJitter),

		RequestTimeout: env.duration("REQUEST_TIMEOUT", defaultRequestTimeout),
		RequestMinGap:  env.duration("REQUEST_MIN_GAP", defaultRequestMinGap),
		StaleAfter:     env.duration("STALE_AFTER", 2*maxInterval),

		IconSize:        env.integer("ICON_SIZE", defaultIconSize),
		IconSupersample: env.integer("ICON_SUPERSAMPLE", defaultIconSupersample),
		IconMetric:      metric,
		IconCacheSize:   env.integer("ICON_CACHE_SIZE", defaultIconCacheSize),

		Notifications: env.boolean("NOTIFICATIONS", true),
		LogLevel:      getEnvString("LOG_LEVEL", "info"),
		LogFile:       getEnvString("LOG_FILE", ""),
	}
	cfg.parseErr = errors.Join(env.errs...)
	return cfg, nil
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error
	if c.parseErr != nil {
		errs = append(errs, c.parseErr)
	}
	if c.OrgID == "" || c.SessionKey == "" {
		errs = append(errs, fmt.Errorf("%s and %s are required", EnvOrgID, EnvSessionKey))
	}
	if err := c.Poller().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	if c.RequestMinGap < 0 {
		errs = append(errs, errors.New("REQUEST_MIN_GAP must not be negative"))
	}
	if c.StaleAfter < 0 {
		errs = append(errs, errors.New("STALE_AFTER must not be negative"))
	}
	if c.IconSize <= 0 || c.IconSupersample <= 0 || c.IconCacheSize <= 0 {
		errs = append(errs, errors.New("ICON_SIZE, ICON_SUPERSAMPLE and ICON_CACHE_SIZE must be positive"))
	}
	return errors.Join(errs...)
}

// Credentials returns the configured session credentials.
func (c *Config) Credentials() usage.Credentials {
	return usage.Credentials{OrgID: c.OrgID, SessionKey: c.SessionKey}
}

// Client returns the usage client configuration.
func (c *Config) Client() usage.Config {
	cfg := usage.DefaultConfig()
	cfg.BaseURL = c.BaseURL
	cfg.Timeout = c.RequestTimeout
	cfg.MinGap = c.RequestMinGap
	return cfg
}

// Poller returns the scheduler configuration.
func (c *Config) Poller() poller.Config {
	return poller.Config{
		Interval: poller.IntervalConfig{
			Min:      c.MinInterval,
			Max:      c.MaxInterval,
			Initial:  c.InitialInterval,
			Step:     c.AdditiveStep,
			Decrease: c.DecreaseFactor,
			Epsilon:  c.ChangeEpsilon,
		},
		Retry: retry.Policy{
			Base:        c.RetryBaseDelay,
			Max:         c.RetryMaxDelay,
			Jitter:      c.RetryJitter,
			MaxAttempts: c.RetryMaxAttempts,
		},
	}
}

// Icon returns the renderer options.
func (c *Config) Icon() icon.Options {
	return icon.Options{
		Size:        c.IconSize,
		Supersample: c.IconSupersample,
		CacheSize:   c.IconCacheSize,
		Metric:      c.IconMetric,
		StaleAfter:  c.StaleAfter,
	}
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	// Current directory
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	// Home directory locations
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "usage-indicator", ".env"),
			filepath.Join(home, ".usage-indicator", ".env"),
		)
	}

	return paths
}

// DefaultLogPath returns the log file used by the terminal host when
// LOG_FILE is unset.
func DefaultLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "usage-indicator.log"
	}
	return filepath.Join(home, ".config", "usage-indicator", "usage-indicator.log")
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envReader reads typed environment variables. Unset variables take the
// default; malformed ones take the default and are recorded in errs.
type envReader struct {
	errs []error
}

func (r *envReader) invalid(key, value, kind string) {
	r.errs = append(r.errs, fmt.Errorf("%s: invalid %s %q", key, kind, value))
}

// duration accepts values like "30s", "1m", "500ms" or bare seconds.
func (r *envReader) duration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	r.invalid(key, value, "duration")
	return defaultValue
}

func (r *envReader) integer(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		r.invalid(key, value, "integer")
		return defaultValue
	}
	return n
}

func (r *envReader) number(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		r.invalid(key, value, "number")
		return defaultValue
	}
	return f
}

func (r *envReader) boolean(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		r.invalid(key, value, "boolean")
		return defaultValue
	}
	return b
}
