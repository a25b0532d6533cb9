package security

import (
	"encoding/hex"
	"log/slog"
	"net/url"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Auditor handles security event logging with PII protection.
type Auditor struct {
	logger  *slog.Logger
	enabled bool
}

// NewAuditor creates a new security auditor
func NewAuditor(logger *slog.Logger, enabled bool) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{
		logger:  logger,
		enabled: enabled,
	}
}

// Event represents a security audit event
type Event struct {
	Type      string
	Subject   string
	ClientID  string
	TenantID  string
	Details   map[string]any
	Timestamp time.Time
}

// LogEvent logs a security event with the subject hashed (nil-safe)
func (a *Auditor) LogEvent(event Event) {
	if a == nil || !a.enabled {
		return
	}

	event.Timestamp = time.Now()

	a.logger.Info("security_audit",
		"event_type", event.Type,
		"subject_hash", HashForLogging(event.Subject),
		"client_id", event.ClientID,
		"tenant_id", event.TenantID,
		"details", event.Details,
		"timestamp", event.Timestamp,
	)
}

// LogTokenIssued logs when a fresh token was obtained
func (a *Auditor) LogTokenIssued(subject, clientID, tenantID, path, scope string, expiresAt time.Time) {
	a.LogEvent(Event{
		Type:     EventTokenIssued,
		Subject:  subject,
		ClientID: clientID,
		TenantID: tenantID,
		Details: map[string]any{
			"path":       path,
			"scope":      scope,
			"expires_at": expiresAt,
		},
	})
}

// LogChainAborted logs a failed exchange stage
func (a *Auditor) LogChainAborted(subject, clientID, tenantID, stage string, status int) {
	a.LogEvent(Event{
		Type:     EventChainAborted,
		Subject:  subject,
		ClientID: clientID,
		TenantID: tenantID,
		Details: map[string]any{
			"stage":  stage,
			"status": status,
		},
	})
}

// LogCallbackFailed logs a failed callback issuer request
func (a *Auditor) LogCallbackFailed(subject, callbackURL string, status int) {
	a.LogEvent(Event{
		Type:    EventCallbackFailed,
		Subject: subject,
		Details: map[string]any{
			"url":    RedactURL(callbackURL),
			"status": status,
		},
	})
}

// LogTokenInvalidated logs when cached tokens are dropped
func (a *Auditor) LogTokenInvalidated(subject, clientID, tenantID, reason string) {
	a.LogEvent(Event{
		Type:     EventTokenInvalidated,
		Subject:  subject,
		ClientID: clientID,
		TenantID: tenantID,
		Details: map[string]any{
			"reason": reason,
		},
	})
}

// HashForLogging returns a short, stable BLAKE2b digest of sensitive data
// (user identities) so it can appear in logs and traces.
func HashForLogging(sensitive string) string {
	if sensitive == "" {
		return "<empty>"
	}
	hash := blake2b.Sum256([]byte(sensitive))
	return hex.EncodeToString(hash[:])[:16]
}

// RedactURL reduces a URL to scheme, host and path so it can be logged.
// User info, query and fragment are dropped since they may carry credentials.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path}).String()
}
