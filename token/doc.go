// Package token defines the token shapes shared by every acquisition path and
// the failure taxonomy returned by the exchange and callback clients.
//
// A Grant is what a single token endpoint (or the external callback) hands back:
// an access token and its lifetime. A Token is a Grant bound to the tenant, scope
// and subject it was issued for, stamped with its absolute expiry, and is what the
// cache stores.
//
// Failures are typed so callers can tell them apart with errors.As:
//   - ErrNotConfigured: nothing to acquire a token with
//   - *UpstreamError: the identity provider or callback answered with a non-2xx status
//   - *NetworkError: the request never produced a response (DNS, connect, timeout, cancel)
//   - *ChainError: a stage of the three-stage exchange failed, tagged with that stage
//   - ErrInvalidResponse: a 2xx answer without a usable access token or lifetime
package token
