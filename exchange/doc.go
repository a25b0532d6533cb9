// Package exchange performs the federated credential exchange against a
// multi-tenant OAuth2 token endpoint.
//
// StageClient sends one form-encoded token request (built on
// golang.org/x/oauth2/clientcredentials) and maps the answer into either a
// token.Grant or a typed failure. Engine strings three such requests together:
//
//  1. T1, service bootstrap: client_credentials for the service, scoped to the
//     federated application instance.
//  2. T2, federated exchange: jwt-bearer using the T1 token as assertion.
//  3. User, delegation: user_fic using the T2 token as assertion plus the
//     subject's identity.
//
// A stage starts only after the previous one succeeded, and a failure at any
// stage aborts the chain with a *token.ChainError. Intermediate tokens are
// never returned. Without a subject the chain stops after T2 and returns the
// service-only token.
package exchange
