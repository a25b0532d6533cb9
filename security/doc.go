// Package security provides the audit logging and outbound rate limiting used
// around token acquisition.
//
// # Audit Logging
//
// The Auditor records token lifecycle events (issued, chain aborted, invalidated)
// as structured slog entries. Subjects are never written in clear text: they are
// replaced by HashForLogging, a truncated BLAKE2b digest that is stable across
// entries so events for the same user can still be correlated.
//
// # Rate Limiting
//
// The RateLimiter throttles requests to the identity provider per identifier
// (typically the tenant id) using a token bucket per identifier, with LRU
// eviction and periodic cleanup of idle buckets to bound memory.
//
//	limiter := security.NewRateLimiter(5, 10, logger)
//	defer limiter.Stop()
//
//	if err := limiter.Wait(ctx, tenantID); err != nil {
//	    return err // context cancelled while waiting
//	}
package security
