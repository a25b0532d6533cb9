package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// MaxLifetime is the longest token lifetime accepted from an issuer
const MaxLifetime = 366 * 24 * time.Hour

// Stage identifies which request produced a grant or a failure.
type Stage string

const (
	// StageT1 is the service bootstrap (client_credentials) request
	StageT1 Stage = "t1"
	// StageT2 is the federated exchange (jwt-bearer) request
	StageT2 Stage = "t2"
	// StageUser is the user delegation (user_fic) request
	StageUser Stage = "user"
	// StageCallback is the external callback issuer request
	StageCallback Stage = "callback"
)

// String implements fmt.Stringer
func (s Stage) String() string {
	return string(s)
}

// Grant is the outcome of one successful token request.
type Grant struct {
	// AccessToken is the bearer token value
	AccessToken string

	// TokenType is the token type reported by the issuer (usually "Bearer")
	TokenType string

	// ExpiresIn is the lifetime of the token, relative to when it was received
	ExpiresIn time.Duration
}

// FromOAuth2 converts a token returned by golang.org/x/oauth2 into a Grant.
// receivedAt is the wall-clock time the response was read; the lifetime is
// derived from the absolute expiry oauth2 computed and rounded to whole seconds.
func FromOAuth2(tok *oauth2.Token, receivedAt time.Time) *Grant {
	if tok == nil {
		return nil
	}
	g := &Grant{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
	}
	if !tok.Expiry.IsZero() {
		g.ExpiresIn = tok.Expiry.Sub(receivedAt).Round(time.Second)
	}
	return g
}

// EnsureExpiry validates the grant and fills in a missing lifetime from the
// access token's "exp" claim when the token is a JWT. The claim is read without
// verifying the signature.
func (g *Grant) EnsureExpiry(now time.Time) error {
	if g == nil || g.AccessToken == "" {
		return fmt.Errorf("%w: missing access_token", ErrInvalidResponse)
	}
	if g.ExpiresIn > MaxLifetime {
		return fmt.Errorf("%w: expires_in %v exceeds %v", ErrInvalidResponse, g.ExpiresIn, MaxLifetime)
	}
	if g.ExpiresIn > 0 {
		return nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(g.AccessToken, claims); err != nil {
		return fmt.Errorf("%w: missing expires_in", ErrInvalidResponse)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return fmt.Errorf("%w: missing expires_in and exp claim", ErrInvalidResponse)
	}

	lifetime := exp.Sub(now)
	if lifetime <= 0 {
		return fmt.Errorf("%w: token already expired", ErrInvalidResponse)
	}
	if lifetime > MaxLifetime {
		return fmt.Errorf("%w: exp claim %v away exceeds %v", ErrInvalidResponse, lifetime, MaxLifetime)
	}
	g.ExpiresIn = lifetime
	return nil
}

// Token is a cached access token bound to the identity it was issued for.
// ExpiresAt is always strictly after IssuedAt.
type Token struct {
	// AccessToken is the bearer token value (never log this)
	AccessToken string

	// TokenType is the token type, "Bearer" when the issuer did not say
	TokenType string

	// IssuedAt is when the token was received
	IssuedAt time.Time

	// ExpiresAt is the literal expiry of the token
	ExpiresAt time.Time

	// Scope is the scope the token was requested for
	Scope string

	// Subject is the delegated user; empty for service-only tokens
	Subject string

	// TenantID is the directory tenant that issued the token
	TenantID string
}

// Binding describes who a grant was issued for.
type Binding struct {
	Scope    string
	Subject  string
	TenantID string
}

// New binds a grant to its identity and stamps the absolute expiry.
func New(g *Grant, issuedAt time.Time, b Binding) (*Token, error) {
	if err := g.EnsureExpiry(issuedAt); err != nil {
		return nil, err
	}

	tokenType := g.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	return &Token{
		AccessToken: g.AccessToken,
		TokenType:   tokenType,
		IssuedAt:    issuedAt,
		ExpiresAt:   issuedAt.Add(g.ExpiresIn),
		Scope:       b.Scope,
		Subject:     b.Subject,
		TenantID:    b.TenantID,
	}, nil
}

// Usable reports whether the token can still be handed out at now, keeping
// buffer as a safety margin before the literal expiry.
func (t *Token) Usable(now time.Time, buffer time.Duration) bool {
	if t == nil || t.AccessToken == "" {
		return false
	}
	return now.Add(buffer).Before(t.ExpiresAt)
}

// Delegated reports whether the token acts on behalf of a user.
func (t *Token) Delegated() bool {
	return t != nil && t.Subject != ""
}

// ExpiresAtEpochMs returns the expiry in milliseconds since the Unix epoch.
func (t *Token) ExpiresAtEpochMs() int64 {
	return t.ExpiresAt.UnixMilli()
}
