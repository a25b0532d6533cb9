// Package callback fetches tokens from an external issuer that manages
// federated credentials on the service's behalf.
//
// The issuer receives a JSON POST describing the identity and answers with
// the same {access_token, expires_in} body a token endpoint returns, so the
// result can be cached exactly like an exchanged token.
package callback
