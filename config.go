package fic

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/giantswarm/mcp-fic/instrumentation"
)

// Config holds the token service configuration
type Config struct {
	// AuthorityHost is the identity provider base URL
	// Default: https://login.microsoftonline.com
	AuthorityHost string

	// RefreshBuffer is how long before expiry a cached token is refreshed
	// Default: 5 minutes
	RefreshBuffer time.Duration

	// MaxCacheEntries bounds the token cache
	// Default: 10000
	MaxCacheEntries int

	// CleanupInterval is how often expired tokens are dropped from the cache
	// Default: 1 minute. Negative disables periodic cleanup.
	CleanupInterval time.Duration

	// HTTPClient is used for identity provider and callback requests
	// Default: client with a 30 second timeout
	HTTPClient *http.Client

	// Retry configures retries of throttled (429) or unavailable (503) answers
	Retry RetryConfig

	// RateLimit throttles identity provider requests per tenant
	RateLimit RateLimitConfig

	// EnableAuditLogging logs token lifecycle events with hashed subjects
	EnableAuditLogging bool

	// Instrumentation records metrics and traces (optional)
	Instrumentation *instrumentation.Instrumentation

	// Logger for structured logging (optional, uses default if not provided)
	Logger *slog.Logger

	// LookupEnv resolves environment fallbacks (default: os.LookupEnv)
	LookupEnv func(string) (string, bool)

	// Now is the clock used for expiry decisions (default: time.Now)
	Now func() time.Time
}

// RetryConfig holds retry settings for transient upstream rejections
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt
	// Default: 2. Negative disables retries.
	MaxRetries int

	// BaseDelay is the first backoff delay, doubled on each retry
	// Default: 200ms
	BaseDelay time.Duration

	// MaxDelay caps a single backoff delay
	// Default: 5s
	MaxDelay time.Duration

	// JitterPercent randomizes each delay by up to this percentage
	// Default: 20
	JitterPercent uint64
}

// RateLimitConfig holds identity provider rate limiting configuration
type RateLimitConfig struct {
	// Rate is requests per second allowed per tenant. Zero disables limiting.
	Rate float64

	// Burst is the maximum burst size allowed per tenant.
	Burst int
}

// applyDefaults fills unset fields with their defaults
func applyDefaults(config *Config) *Config {
	if config.AuthorityHost == "" {
		config.AuthorityHost = DefaultAuthorityHost
	}
	if config.RefreshBuffer == 0 {
		config.RefreshBuffer = DefaultRefreshBuffer
	}
	if config.MaxCacheEntries == 0 {
		config.MaxCacheEntries = DefaultMaxCacheEntries
	}
	if config.CleanupInterval == 0 {
		config.CleanupInterval = time.Minute
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	if config.Retry.MaxRetries == 0 {
		config.Retry.MaxRetries = 2
	}
	if config.Retry.BaseDelay == 0 {
		config.Retry.BaseDelay = 200 * time.Millisecond
	}
	if config.Retry.MaxDelay == 0 {
		config.Retry.MaxDelay = 5 * time.Second
	}
	if config.Retry.JitterPercent == 0 {
		config.Retry.JitterPercent = 20
	}

	if config.RateLimit.Rate > 0 && config.RateLimit.Burst == 0 {
		config.RateLimit.Burst = 1
	}

	return config
}

// Validate checks the configuration after defaults were applied
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.AuthorityHost, validation.Required, validation.By(absoluteHTTPURL)),
		validation.Field(&c.RefreshBuffer, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxCacheEntries, validation.Min(1)),
		validation.Field(&c.Retry),
		validation.Field(&c.RateLimit),
	)
}

// Validate checks the retry settings
func (r RetryConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.BaseDelay, validation.Min(time.Duration(0))),
		validation.Field(&r.MaxDelay, validation.Min(r.BaseDelay)),
		validation.Field(&r.JitterPercent, validation.Max(uint64(100))),
	)
}

// Validate checks the rate limit settings
func (r RateLimitConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Rate, validation.Min(float64(0))),
		validation.Field(&r.Burst, validation.Min(0)),
	)
}

func absoluteHTTPURL(value any) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return errors.New("must be an absolute http(s) URL")
	}
	return nil
}
