package fic

import (
	"errors"

	"github.com/giantswarm/mcp-fic/token"
)

// Operator messages for absent tokens
const (
	MessageNotConfigured = "token not available - check exchange configuration"
	MessageUnavailable   = "token not available"
)

var (
	// ErrNotConfigured means neither an exchange nor a callback configuration resolved
	ErrNotConfigured = token.ErrNotConfigured

	// ErrInvalidResponse means an issuer answered 2xx without a usable token
	ErrInvalidResponse = token.ErrInvalidResponse
)

// Describe converts an acquisition failure into the message shown to users
// and operators. Stage, status and upstream bodies stay in the logs.
func Describe(err error) string {
	if errors.Is(err, ErrNotConfigured) {
		return MessageNotConfigured
	}
	return MessageUnavailable
}
