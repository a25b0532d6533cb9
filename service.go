package fic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/giantswarm/mcp-fic/cache"
	"github.com/giantswarm/mcp-fic/callback"
	"github.com/giantswarm/mcp-fic/credentials"
	"github.com/giantswarm/mcp-fic/exchange"
	"github.com/giantswarm/mcp-fic/instrumentation"
	"github.com/giantswarm/mcp-fic/security"
	"github.com/giantswarm/mcp-fic/token"
)

const (
	// DefaultAuthorityHost is the identity provider used when none is configured
	DefaultAuthorityHost = exchange.DefaultAuthorityHost

	// DefaultRefreshBuffer is how long before expiry a cached token is refreshed
	DefaultRefreshBuffer = cache.DefaultRefreshBuffer

	// DefaultMaxCacheEntries bounds the token cache
	DefaultMaxCacheEntries = cache.DefaultMaxEntries
)

// Acquisition paths
const (
	PathExchange = "exchange"
	PathCallback = "callback"
)

// callbackClientPrefix keeps callback-issued tokens apart from exchanged ones in the cache
const callbackClientPrefix = "callback:"

// Service acquires and caches tokens. Construct it once with New and share it;
// it is safe for concurrent use.
type Service struct {
	config   *Config
	resolver *credentials.Resolver
	cache    *cache.Cache
	engine   *exchange.Engine
	callback *callback.Client
	limiter  *security.RateLimiter
	auditor  *security.Auditor
	metrics  *instrumentation.Metrics
	logger   *slog.Logger

	cacheGauge  metric.Registration
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// acquisition is the resolved plan for one Acquire call
type acquisition struct {
	path    string
	key     cache.Key
	refresh cache.RefreshFunc
}

// New creates a token service. A nil config uses the defaults.
func New(config *Config) (*Service, error) {
	cfg := Config{}
	if config != nil {
		cfg = *config
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	s := &Service{
		config:   &cfg,
		resolver: credentials.NewResolver(cfg.LookupEnv),
		auditor:  security.NewAuditor(cfg.Logger, cfg.EnableAuditLogging),
		logger:   cfg.Logger,
		cache: cache.New(cache.Config{
			RefreshBuffer: cfg.RefreshBuffer,
			MaxEntries:    cfg.MaxCacheEntries,
			Now:           cfg.Now,
			Logger:        cfg.Logger,
		}),
		callback: callback.NewClient(callback.Config{
			HTTPClient:      cfg.HTTPClient,
			Instrumentation: cfg.Instrumentation,
			Logger:          cfg.Logger,
		}),
		stopCleanup: make(chan struct{}),
	}

	if cfg.Instrumentation != nil {
		s.metrics = cfg.Instrumentation.Metrics()
		reg, err := cfg.Instrumentation.RegisterCacheSizeCallback(func() int64 {
			return int64(s.cache.Len())
		})
		if err != nil {
			return nil, fmt.Errorf("failed to register cache gauge: %w", err)
		}
		s.cacheGauge = reg
	}

	if cfg.RateLimit.Rate > 0 {
		s.limiter = security.NewRateLimiter(cfg.RateLimit.Rate, cfg.RateLimit.Burst, cfg.Logger)
	}

	s.engine = exchange.NewEngine(exchange.NewStageClient(exchange.StageClientConfig{
		AuthorityHost:   cfg.AuthorityHost,
		HTTPClient:      cfg.HTTPClient,
		RateLimiter:     s.limiter,
		Instrumentation: cfg.Instrumentation,
		Logger:          cfg.Logger,
	}), cfg.Logger)

	if cfg.CleanupInterval > 0 {
		go s.cleanupLoop(cfg.CleanupInterval)
	}

	return s, nil
}

// Acquire returns a bearer token for subject, or false when no token is
// available. An empty subject falls back to the source's default subject and
// then to a service-only token. It never fails loudly: use AcquireToken to
// see why a token is absent.
//
// A returned token normally has more than Config.RefreshBuffer of lifetime
// left. The exception is an issuer granting a lifetime shorter than the
// buffer: that token is returned as is, without being cached, so every call
// fetches a new one. Callers needing a minimum lifetime should check
// Token.ExpiresAt from AcquireToken.
func (s *Service) Acquire(ctx context.Context, src *credentials.Source, subject string) (string, bool) {
	tok, err := s.AcquireToken(ctx, src, subject)
	if err != nil {
		return "", false
	}
	return tok.AccessToken, true
}

// AcquireToken is Acquire with the cached token and the typed failure exposed.
// The same lifetime caveat applies: ExpiresAt may be closer than RefreshBuffer.
func (s *Service) AcquireToken(ctx context.Context, src *credentials.Source, subject string) (*token.Token, error) {
	plan, err := s.plan(src, subject)
	if err != nil {
		s.logger.Debug("Token acquisition not configured")
		s.metrics.RecordAcquire(ctx, "", instrumentation.ResultNotConfigured, false)
		return nil, err
	}

	var span trace.Span
	if s.config.Instrumentation != nil {
		ctx, span = s.config.Instrumentation.Tracer("service").Start(ctx, "fic.acquire")
		defer span.End()
		instrumentation.SetSpanAttributes(span, attribute.String(instrumentation.AttrPath, plan.path))
		instrumentation.AddIdentityAttributes(span, plan.key.TenantID, plan.key.ClientID, plan.key.Scope,
			hashSubject(plan.key.Subject))
	}

	tok, cached, err := s.cache.GetOrRefresh(ctx, plan.key, plan.refresh)
	if err != nil {
		s.logger.Debug("Token not available",
			"path", plan.path,
			"stage", token.StageOf(err),
			"status", token.StatusOf(err),
			"subject_hash", hashSubject(plan.key.Subject))
		s.metrics.RecordAcquire(ctx, plan.path, instrumentation.ResultAbsent, false)
		instrumentation.RecordError(span, err)
		return nil, err
	}

	s.metrics.RecordAcquire(ctx, plan.path, instrumentation.ResultSuccess, cached)
	instrumentation.SetSpanAttributes(span, attribute.Bool(instrumentation.AttrCacheHit, cached))
	instrumentation.SetSpanSuccess(span)
	return tok, nil
}

// InvalidateFor drops the cached token Acquire would return for src and
// subject, typically after the downstream API rejected it with a 401.
func (s *Service) InvalidateFor(src *credentials.Source, subject string) {
	plan, err := s.plan(src, subject)
	if err != nil {
		return
	}
	s.cache.Invalidate(plan.key)
	s.auditor.LogTokenInvalidated(plan.key.Subject, plan.key.ClientID, plan.key.TenantID, "requested")
}

// InvalidateAll drops every cached token
func (s *Service) InvalidateAll() {
	s.cache.InvalidateAll()
	s.auditor.LogTokenInvalidated("", "", "", "all")
}

// Stop ends background cleanup and releases the rate limiter and metric
// callbacks. Cached tokens stay usable. Safe to call more than once.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCleanup)
		if s.limiter != nil {
			s.limiter.Stop()
		}
		if s.cacheGauge != nil {
			if err := s.cacheGauge.Unregister(); err != nil {
				s.logger.Warn("Failed to unregister cache gauge", "error", err)
			}
		}
	})
}

// plan resolves the path, cache key and refresh function for one acquisition.
// The exchange path is preferred over the callback path.
func (s *Service) plan(src *credentials.Source, subject string) (*acquisition, error) {
	if subject == "" {
		subject = s.resolver.ResolveSubject(src)
	}

	if exch := s.resolver.ResolveExchangeConfig(src); exch != nil {
		key := cache.Key{
			TenantID: exch.TenantID,
			ClientID: exch.ClientID,
			Scope:    exch.Scope,
			Subject:  subject,
		}
		return &acquisition{
			path: PathExchange,
			key:  key,
			refresh: s.refresher(PathExchange, key, func(ctx context.Context) (*token.Grant, error) {
				return s.engine.Run(ctx, exch, subject)
			}),
		}, nil
	}

	if cb := s.resolver.ResolveCallbackConfig(src); cb != nil {
		key := cache.Key{
			TenantID: s.resolver.ResolveServiceTenantID(src),
			ClientID: callbackClientID(cb.URL),
			Scope:    s.resolver.ResolveScope(src),
			Subject:  subject,
		}
		req := callback.Request{Subject: subject, TenantID: key.TenantID, Scope: key.Scope}
		return &acquisition{
			path: PathCallback,
			key:  key,
			refresh: s.refresher(PathCallback, key, func(ctx context.Context) (*token.Grant, error) {
				return s.callback.Fetch(ctx, cb, req)
			}),
		}, nil
	}

	return nil, ErrNotConfigured
}

// refresher wraps fetch with retries and binds the resulting grant to key
func (s *Service) refresher(path string, key cache.Key, fetch func(context.Context) (*token.Grant, error)) cache.RefreshFunc {
	return func(ctx context.Context) (*token.Token, error) {
		grant, err := s.withRetry(ctx, fetch)
		if err != nil {
			s.auditFailure(path, key, err)
			return nil, err
		}

		tok, err := token.New(grant, s.config.Now(), token.Binding{
			Scope:    key.Scope,
			Subject:  key.Subject,
			TenantID: key.TenantID,
		})
		if err != nil {
			return nil, err
		}

		s.auditor.LogTokenIssued(key.Subject, key.ClientID, key.TenantID, path, key.Scope, tok.ExpiresAt)
		return tok, nil
	}
}

// withRetry runs fetch, retrying with exponential backoff and jitter while
// the failure is a 429 or 503. Other failures return immediately.
func (s *Service) withRetry(ctx context.Context, fetch func(context.Context) (*token.Grant, error)) (*token.Grant, error) {
	rc := s.config.Retry
	if rc.MaxRetries < 0 {
		return fetch(ctx)
	}

	backoff := retry.NewExponential(rc.BaseDelay)
	backoff = retry.WithJitterPercent(rc.JitterPercent, backoff)
	backoff = retry.WithCappedDuration(rc.MaxDelay, backoff)
	backoff = retry.WithMaxRetries(uint64(rc.MaxRetries), backoff)

	var grant *token.Grant
	var lastErr error
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if lastErr != nil {
			s.metrics.RecordRetry(ctx, token.StageOf(lastErr).String(), token.StatusOf(lastErr))
			s.logger.Debug("Retrying token acquisition",
				"stage", token.StageOf(lastErr),
				"status", token.StatusOf(lastErr))
		}

		g, err := fetch(ctx)
		if err != nil {
			lastErr = err
			if token.IsRetryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		grant = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return grant, nil
}

func (s *Service) auditFailure(path string, key cache.Key, err error) {
	var chainErr *token.ChainError
	switch {
	case errors.As(err, &chainErr):
		s.auditor.LogChainAborted(key.Subject, key.ClientID, key.TenantID, chainErr.Stage.String(), token.StatusOf(err))
	case path == PathCallback:
		s.auditor.LogCallbackFailed(key.Subject, strings.TrimPrefix(key.ClientID, callbackClientPrefix), token.StatusOf(err))
	}
}

// cleanupLoop periodically drops expired tokens
func (s *Service) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := s.cache.CleanupExpired(); removed > 0 {
				s.logger.Debug("Removed expired tokens", "count", removed)
			}
		case <-s.stopCleanup:
			return
		}
	}
}

// callbackClientID names a callback issuer in cache keys, which end up in logs.
// Credentials in the URL are replaced by a digest that still keeps issuers
// differing only in them apart.
func callbackClientID(callbackURL string) string {
	redacted := security.RedactURL(callbackURL)
	if redacted == callbackURL {
		return callbackClientPrefix + redacted
	}
	return callbackClientPrefix + redacted + "#" + security.HashForLogging(callbackURL)
}

func hashSubject(subject string) string {
	if subject == "" {
		return ""
	}
	return security.HashForLogging(subject)
}
