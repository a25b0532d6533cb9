package instrumentation

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Common span attribute keys
//
// SECURITY WARNING: Never record access tokens, assertions, client secrets or
// callback auth tokens in traces or metrics. Only metadata such as stages,
// statuses, tenants and hashed subjects.
const (
	AttrPath        = "fic.path"         // "exchange" or "callback"
	AttrStage       = "fic.stage"        // t1, t2, user, callback
	AttrTenantID    = "fic.tenant_id"    // Directory tenant (non-secret)
	AttrClientID    = "fic.client_id"    // Client identifier (non-secret)
	AttrScope       = "fic.scope"        // Requested scope
	AttrSubjectHash = "fic.subject_hash" // Hashed subject, never the clear value
	AttrGrantType   = "fic.grant_type"   // OAuth grant type of a stage request
	AttrCacheHit    = "fic.cache.hit"    // Whether the token was served from cache
	AttrStatusCode  = "fic.status_code"  // Upstream HTTP status
	AttrExpiresIn   = "fic.expires_in"   // Token lifetime in seconds
	AttrError       = "fic.error"        // OAuth error code
)

// RecordError records an error on a span with proper status codes (nil-safe)
func RecordError(span trace.Span, err error) {
	if span != nil && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess marks a span as successful (nil-safe)
func SetSpanSuccess(span trace.Span) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
}

// SetSpanError sets an error status on a span (nil-safe)
func SetSpanError(span trace.Span, message string) {
	if span != nil {
		span.SetStatus(codes.Error, message)
	}
}

// SetSpanAttributes sets attributes on a span (nil-safe)
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span != nil {
		span.SetAttributes(attrs...)
	}
}

// AddIdentityAttributes adds who-the-token-is-for attributes to a span (nil-safe).
// subjectHash must already be hashed.
func AddIdentityAttributes(span trace.Span, tenantID, clientID, scope, subjectHash string) {
	if tenantID != "" {
		SetSpanAttributes(span, attribute.String(AttrTenantID, tenantID))
	}
	if clientID != "" {
		SetSpanAttributes(span, attribute.String(AttrClientID, clientID))
	}
	if scope != "" {
		SetSpanAttributes(span, attribute.String(AttrScope, scope))
	}
	if subjectHash != "" {
		SetSpanAttributes(span, attribute.String(AttrSubjectHash, subjectHash))
	}
}

// AddStageAttributes adds issuer request attributes to a span (nil-safe)
func AddStageAttributes(span trace.Span, stage, grantType string) {
	SetSpanAttributes(span, attribute.String(AttrStage, stage))
	if grantType != "" {
		SetSpanAttributes(span, attribute.String(AttrGrantType, grantType))
	}
}

// AddUpstreamAttributes adds the upstream answer to a span (nil-safe)
func AddUpstreamAttributes(span trace.Span, statusCode int, errorCode string) {
	if statusCode != 0 {
		SetSpanAttributes(span, attribute.Int(AttrStatusCode, statusCode))
	}
	if errorCode != "" {
		SetSpanAttributes(span, attribute.String(AttrError, errorCode))
	}
}
