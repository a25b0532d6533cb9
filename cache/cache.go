package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/giantswarm/mcp-fic/security"
	"github.com/giantswarm/mcp-fic/token"
)

const (
	// DefaultRefreshBuffer is how long before literal expiry a token is refreshed
	DefaultRefreshBuffer = 5 * time.Minute

	// DefaultMaxEntries bounds the number of cached tokens
	DefaultMaxEntries = 10000
)

// RefreshFunc obtains a fresh token for a key
type RefreshFunc func(ctx context.Context) (*token.Token, error)

// Config holds cache settings
type Config struct {
	// RefreshBuffer is the safety margin before expiry (default: 5 minutes)
	RefreshBuffer time.Duration

	// MaxEntries bounds the cache; when full, the entry expiring soonest is evicted
	// (default: 10000)
	MaxEntries int

	// Now is the clock used for expiry decisions (default: time.Now)
	Now func() time.Time

	// Logger receives debug output (default: slog.Default())
	Logger *slog.Logger
}

// Cache is a concurrency-safe token cache with single-flight refreshes
type Cache struct {
	mu      sync.RWMutex
	entries map[Key]*token.Token
	group   singleflight.Group

	// generation is bumped by every invalidation. A refresh only stores its
	// token if no invalidation happened while it ran.
	generation uint64

	refreshBuffer time.Duration
	maxEntries    int
	now           func() time.Time
	logger        *slog.Logger
}

// New creates a new token cache
func New(cfg Config) *Cache {
	if cfg.RefreshBuffer <= 0 {
		cfg.RefreshBuffer = DefaultRefreshBuffer
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Cache{
		entries:       make(map[Key]*token.Token),
		refreshBuffer: cfg.RefreshBuffer,
		maxEntries:    cfg.MaxEntries,
		now:           cfg.Now,
		logger:        cfg.Logger,
	}
}

// Get returns the cached token for key if it is still usable
func (c *Cache) Get(key Key) (*token.Token, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tok, ok := c.entries[key]
	if !ok || !tok.Usable(c.now(), c.refreshBuffer) {
		return nil, false
	}
	return tok, true
}

// GetOrRefresh returns the usable cached token for key, or runs refresh to
// obtain one. At most one refresh per key runs at a time; concurrent callers
// wait for it and share its result. cached reports whether the token was
// served without a refresh.
//
// The refresh runs with the context of the caller that started it, so its
// cancellation fails every waiter of that refresh. A caller whose own context
// ends while waiting returns ctx.Err() and leaves the refresh running for the
// others.
func (c *Cache) GetOrRefresh(ctx context.Context, key Key, refresh RefreshFunc) (tok *token.Token, cached bool, err error) {
	if tok, ok := c.Get(key); ok {
		return tok, true, nil
	}

	ch := c.group.DoChan(key.String(), func() (any, error) {
		// Another flight may have stored a token while this caller was deciding to refresh
		if tok, ok := c.Get(key); ok {
			return tok, nil
		}

		c.mu.RLock()
		startedAt := c.generation
		c.mu.RUnlock()

		c.logger.Debug("Refreshing token",
			"tenant_id", key.TenantID,
			"client_id", key.ClientID,
			"subject_hash", security.HashForLogging(key.Subject))

		fresh, err := refresh(ctx)
		if err != nil {
			return nil, err
		}
		if fresh == nil {
			return nil, token.ErrInvalidResponse
		}
		if !fresh.Usable(c.now(), c.refreshBuffer) {
			// Lifetime shorter than the buffer: hand it out once but do not cache it
			c.logger.Debug("Token lifetime within refresh buffer, not caching",
				"tenant_id", key.TenantID,
				"client_id", key.ClientID,
				"expires_at", fresh.ExpiresAt)
			return fresh, nil
		}

		if !c.store(key, fresh, startedAt) {
			c.logger.Debug("Cache invalidated during refresh, not caching",
				"tenant_id", key.TenantID,
				"client_id", key.ClientID)
		}
		return fresh, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(*token.Token), false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// store saves tok under key, evicting the entry expiring soonest if the cache is
// full. It reports false and stores nothing when the cache was invalidated after
// generation was read.
func (c *Cache) store(key Key, tok *token.Token, generation uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation != generation {
		return false
	}
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictSoonestExpiring()
	}
	c.entries[key] = tok
	return true
}

// evictSoonestExpiring removes the entry with the earliest expiry.
// Caller must hold write lock
func (c *Cache) evictSoonestExpiring() {
	var (
		victim    Key
		victimExp time.Time
		found     bool
	)
	for key, tok := range c.entries {
		if !found || tok.ExpiresAt.Before(victimExp) {
			victim, victimExp, found = key, tok.ExpiresAt, true
		}
	}
	if found {
		delete(c.entries, victim)
		c.logger.Debug("Evicted token from full cache",
			"tenant_id", victim.TenantID,
			"client_id", victim.ClientID,
			"max_entries", c.maxEntries)
	}
}

// Invalidate drops the entry for key. A refresh already in flight still
// answers its callers (and callers that join it) but its token is not cached,
// so the next call after it completes starts a new refresh.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	c.generation++
}

// InvalidateAll drops every entry. In-flight refreshes behave as for Invalidate.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[Key]*token.Token)
	c.generation++
}

// CleanupExpired removes entries past their literal expiry and returns how many were removed
func (c *Cache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, tok := range c.entries {
		if !now.Before(tok.ExpiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of cached entries, including stale ones
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
