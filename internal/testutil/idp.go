package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
)

// Grant types understood by the fake identity provider
const (
	GrantClientCredentials = "client_credentials"
	GrantJWTBearer         = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	GrantUserFIC           = "user_fic"
)

// TokenRequest is one request received by a fake issuer
type TokenRequest struct {
	TenantID string
	Form     url.Values
	Header   http.Header
}

// Responder produces the answer to the n-th request (1-based) of a grant type.
type Responder func(n int, req TokenRequest) (status int, body string)

// TokenBody returns a successful token endpoint body
func TokenBody(accessToken string, expiresIn int) string {
	return fmt.Sprintf(`{"access_token":%q,"token_type":"Bearer","expires_in":%d}`, accessToken, expiresIn)
}

// ErrorBody returns an OAuth error body
func ErrorBody(code, description string) string {
	return fmt.Sprintf(`{"error":%q,"error_description":%q}`, code, description)
}

// Static always answers with status and body
func Static(status int, body string) Responder {
	return func(int, TokenRequest) (int, string) {
		return status, body
	}
}

// Sequence answers with the given statuses in order, then repeats the last one.
// Any 2xx status is answered with a token body carrying accessToken.
func Sequence(accessToken string, statuses ...int) Responder {
	return func(n int, _ TokenRequest) (int, string) {
		status := statuses[len(statuses)-1]
		if n <= len(statuses) {
			status = statuses[n-1]
		}
		if status >= 200 && status < 300 {
			return status, TokenBody(accessToken, 3600)
		}
		return status, ErrorBody("temporarily_unavailable", fmt.Sprintf("attempt %d", n))
	}
}

// IdentityProvider is a fake multi-tenant token endpoint serving
// POST /{tenant}/oauth2/v2.0/token. By default every grant succeeds with a
// token named "<prefix>-<n>" (t1, t2, user) valid for one hour.
type IdentityProvider struct {
	server *httptest.Server

	mu         sync.Mutex
	responders map[string]Responder
	gates      map[string]chan struct{}
	requests   map[string][]TokenRequest
}

// NewIdentityProvider starts a fake identity provider closed at test cleanup
func NewIdentityProvider(t testing.TB) *IdentityProvider {
	t.Helper()
	idp := &IdentityProvider{
		responders: make(map[string]Responder),
		gates:      make(map[string]chan struct{}),
		requests:   make(map[string][]TokenRequest),
	}
	idp.server = httptest.NewServer(http.HandlerFunc(idp.serveToken))
	t.Cleanup(idp.server.Close)
	return idp
}

// URL returns the authority host of the fake identity provider
func (p *IdentityProvider) URL() string {
	return p.server.URL
}

// Client returns an HTTP client for the fake identity provider
func (p *IdentityProvider) Client() *http.Client {
	return p.server.Client()
}

// Respond scripts the answers for a grant type
func (p *IdentityProvider) Respond(grantType string, r Responder) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responders[grantType] = r
}

// Block holds every request of grantType until the returned release func is
// called (or the client gives up). Release is idempotent.
func (p *IdentityProvider) Block(grantType string) (release func()) {
	gate := make(chan struct{})
	p.mu.Lock()
	p.gates[grantType] = gate
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(gate)
			p.mu.Lock()
			delete(p.gates, grantType)
			p.mu.Unlock()
		})
	}
}

// Calls returns how many requests of grantType were received
func (p *IdentityProvider) Calls(grantType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests[grantType])
}

// TotalCalls returns how many token requests were received
func (p *IdentityProvider) TotalCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for _, reqs := range p.requests {
		total += len(reqs)
	}
	return total
}

// Requests returns the requests received for grantType
func (p *IdentityProvider) Requests(grantType string) []TokenRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]TokenRequest(nil), p.requests[grantType]...)
}

func (p *IdentityProvider) serveToken(w http.ResponseWriter, r *http.Request) {
	tenant, ok := strings.CutSuffix(strings.TrimPrefix(r.URL.Path, "/"), "/oauth2/v2.0/token")
	if !ok || tenant == "" || strings.Contains(tenant, "/") {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	grantType := r.PostForm.Get("grant_type")
	req := TokenRequest{TenantID: tenant, Form: r.PostForm, Header: r.Header.Clone()}

	p.mu.Lock()
	p.requests[grantType] = append(p.requests[grantType], req)
	n := len(p.requests[grantType])
	responder := p.responders[grantType]
	gate := p.gates[grantType]
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	var status int
	var body string
	if responder != nil {
		status, body = responder(n, req)
	} else {
		status, body = defaultAnswer(grantType, n)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func defaultAnswer(grantType string, n int) (int, string) {
	var prefix string
	switch grantType {
	case GrantClientCredentials:
		prefix = "t1"
	case GrantJWTBearer:
		prefix = "t2"
	case GrantUserFIC:
		prefix = "user"
	default:
		return http.StatusBadRequest, ErrorBody("unsupported_grant_type", grantType)
	}
	return http.StatusOK, TokenBody(fmt.Sprintf("%s-%d", prefix, n), 3600)
}
