// Package testutil provides testing utilities for the mcp-fic module: a fake
// identity provider token endpoint, a fake callback issuer, and a mock time
// source for deterministic expiry tests.
package testutil
