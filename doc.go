// Package fic acquires delegated access tokens through a federated identity
// credential exchange.
//
// A Service is constructed once at process start and passed to every consumer.
// Each acquisition resolves its configuration from an explicit
// credentials.Source (falling back to environment variables per field) and
// picks one of two paths:
//
//   - Exchange: three sequential token requests against the tenant's OAuth2
//     endpoint (service bootstrap, federated exchange, user delegation).
//   - Callback: a single POST to an external issuer that manages federated
//     credentials on the service's behalf.
//
// The exchange path wins when both are configured. Tokens are cached per
// (tenant, client, scope, subject) and refreshed five minutes before they
// expire; concurrent acquisitions for the same identity share one refresh.
//
// Basic usage:
//
//	svc, err := fic.New(&fic.Config{Logger: logger})
//	if err != nil {
//		return err
//	}
//	defer svc.Stop()
//
//	accessToken, ok := svc.Acquire(ctx, src, "user@example.com")
//	if !ok {
//		return errors.New(fic.Describe(fic.ErrNotConfigured))
//	}
//
// Acquire never returns an error; AcquireToken returns the typed failure
// (token.ChainError, token.UpstreamError, token.NetworkError or
// ErrNotConfigured) for diagnostics.
package fic
