// Package cache holds acquired tokens per identity and coordinates refreshes.
//
// Entries are keyed by (tenant, client, scope, subject). A token is served
// from the cache until it enters the refresh buffer before its literal expiry;
// after that the next caller refreshes it. Concurrent callers for the same key
// share one in-flight refresh (golang.org/x/sync/singleflight), so a burst of
// requests costs one round of issuer calls. A failed refresh never replaces
// the previous entry.
package cache
