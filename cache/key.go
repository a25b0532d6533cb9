package cache

import (
	"fmt"
)

// Key identifies a cached token. Subject is empty for service-only tokens,
// which keeps them apart from any delegated token of the same client.
type Key struct {
	TenantID string
	ClientID string
	Scope    string
	Subject  string
}

// String returns an unambiguous encoding of the key, used as the single-flight group key
func (k Key) String() string {
	return fmt.Sprintf("%q|%q|%q|%q", k.TenantID, k.ClientID, k.Scope, k.Subject)
}
