package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/giantswarm/mcp-fic/internal/util"
)

// MaxErrorBodyLength is the maximum number of response body bytes kept on an UpstreamError
const MaxErrorBodyLength = 512

var (
	// ErrNotConfigured means neither an exchange nor a callback configuration is available.
	// It is a configuration-absence condition, not a failure.
	ErrNotConfigured = errors.New("token acquisition not configured")

	// ErrInvalidResponse means the issuer answered 2xx without a usable token
	ErrInvalidResponse = errors.New("invalid token response")
)

// UpstreamError is a non-2xx answer from a token endpoint or the callback issuer.
type UpstreamError struct {
	Stage       Stage  // Request that was rejected
	Status      int    // HTTP status code
	Code        string // OAuth error code, when the body carried one
	Description string // OAuth error_description, when the body carried one
	Body        string // Response body, truncated to MaxErrorBodyLength
}

// NewUpstreamError builds an UpstreamError from a raw response. A JSON body in
// the OAuth error format fills Code and Description.
func NewUpstreamError(stage Stage, status int, body []byte) *UpstreamError {
	e := &UpstreamError{
		Stage:  stage,
		Status: status,
		Body:   util.TruncateBody(body, MaxErrorBodyLength),
	}

	var oauthErr struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if json.Unmarshal(body, &oauthErr) == nil {
		e.Code = oauthErr.Error
		e.Description = util.SafeTruncate(oauthErr.ErrorDescription, MaxErrorBodyLength)
	}
	return e
}

// Error implements the error interface
func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("%s request rejected with status %d", e.Stage, e.Status)
	if e.Code != "" {
		msg += ": " + e.Code
		if e.Description != "" {
			msg += ": " + e.Description
		}
	} else if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Retryable reports whether the rejection is transient (throttled or unavailable)
func (e *UpstreamError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status == http.StatusServiceUnavailable
}

// NetworkError is a transport-level failure: no HTTP response was received.
type NetworkError struct {
	Stage Stage
	Err   error
}

// Error implements the error interface
func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying transport error
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a deadline or a cancellation
func (e *NetworkError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) || errors.Is(e.Err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// ChainError reports that the three-stage exchange stopped at Stage.
// No token from an earlier stage is ever returned alongside it.
type ChainError struct {
	Stage Stage
	Err   error
}

// Error implements the error interface
func (e *ChainError) Error() string {
	return fmt.Sprintf("token exchange aborted at stage %s: %v", e.Stage, e.Err)
}

// Unwrap returns the stage failure
func (e *ChainError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err (or anything it wraps) is a transient
// upstream rejection worth retrying with backoff.
func IsRetryable(err error) bool {
	var upstream *UpstreamError
	return errors.As(err, &upstream) && upstream.Retryable()
}

// StageOf returns the stage a failure is attributed to, or "" if unknown.
func StageOf(err error) Stage {
	var chainErr *ChainError
	if errors.As(err, &chainErr) {
		return chainErr.Stage
	}
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Stage
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return netErr.Stage
	}
	return ""
}

// StatusOf returns the upstream HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Status
	}
	return 0
}
