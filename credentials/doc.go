// Package credentials resolves the configuration a token acquisition needs from
// layered sources.
//
// Each value is looked up first in the explicit configuration (a Source, usually
// loaded from a TOML file with LoadFile) and then in the environment. The
// configuration value always wins when it is non-empty. Resolution never touches
// the network or any cache, and a missing or partial configuration resolves to
// nil ("not configured") rather than an error.
//
// Three shapes are resolved:
//   - ServiceCredentials: client id, secret and tenant of the service identity
//   - ExchangeConfig: parameters for the three-stage federated exchange
//   - CallbackConfig: an external token issuer used instead of the exchange
//
// Example configuration file:
//
//	subject = "someone@example.com"
//
//	[service]
//	client_id = "..."
//	client_secret = "..."
//	tenant_id = "..."
//
//	[exchange]
//	client_id = "..."
//	client_secret = "..."
//	instance_id = "..."
//	scope = "https://graph.microsoft.com/.default"
//
//	[callback]
//	url = "https://tokens.internal.example.com/issue"
//	auth_token = "..."
package credentials
