package security

// Event type constants for audit logging.
const (
	// EventTokenIssued is logged when a fresh token was obtained from an issuer
	EventTokenIssued = "token_issued"

	// EventChainAborted is logged when a stage of the exchange chain failed
	EventChainAborted = "chain_aborted"

	// EventCallbackFailed is logged when the external callback issuer failed
	EventCallbackFailed = "callback_failed"

	// EventTokenInvalidated is logged when a cached token was dropped on request
	EventTokenInvalidated = "token_invalidated" //nolint:gosec // event type name, not a credential
)
