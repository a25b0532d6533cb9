package token

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Response is the JSON body returned by token endpoints and the callback issuer.
type Response struct {
	// AccessToken is the issued token
	AccessToken string `json:"access_token"`

	// TokenType is the type of token (usually "Bearer")
	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is the lifetime in seconds of the access token
	ExpiresIn expiresIn `json:"expires_in,omitempty"`
}

// expiresIn accepts both numeric and string encodings of expires_in;
// some issuers quote the value.
type expiresIn int64

// UnmarshalJSON implements json.Unmarshaler
func (e *expiresIn) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if n == "" {
		return nil
	}
	i, err := strconv.ParseInt(string(n), 10, 64)
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil {
			return fmt.Errorf("invalid expires_in %q", string(n))
		}
		if f >= math.MaxInt64 || f < math.MinInt64 {
			return fmt.Errorf("expires_in %q out of range", string(n))
		}
		i = int64(f)
	}
	*e = expiresIn(i)
	return nil
}

// ParseResponse decodes a successful token response body into a Grant.
func ParseResponse(body []byte) (*Grant, error) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("%w: missing access_token", ErrInvalidResponse)
	}
	// Checked in seconds: converting first would overflow time.Duration
	if int64(resp.ExpiresIn) > int64(MaxLifetime/time.Second) {
		return nil, fmt.Errorf("%w: expires_in %d exceeds %v", ErrInvalidResponse, resp.ExpiresIn, MaxLifetime)
	}

	return &Grant{
		AccessToken: resp.AccessToken,
		TokenType:   resp.TokenType,
		ExpiresIn:   time.Duration(resp.ExpiresIn) * time.Second,
	}, nil
}
