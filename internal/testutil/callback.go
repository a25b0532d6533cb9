package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
)

// CallbackRequest is the JSON body a callback issuer receives
type CallbackRequest struct {
	Subject  string `json:"subject"`
	TenantID string `json:"tenantId"`
	Scope    string `json:"scope"`
}

// CallbackIssuer is a fake external token issuer. By default it answers
// every request with a token named "cb-<n>" valid for one hour.
type CallbackIssuer struct {
	server *httptest.Server

	mu        sync.Mutex
	responder Responder
	requests  []CallbackRequest
	headers   []http.Header
}

// NewCallbackIssuer starts a fake callback issuer closed at test cleanup
func NewCallbackIssuer(t testing.TB) *CallbackIssuer {
	t.Helper()
	c := &CallbackIssuer{}
	c.server = httptest.NewServer(http.HandlerFunc(c.serve))
	t.Cleanup(c.server.Close)
	return c
}

// URL returns the callback URL
func (c *CallbackIssuer) URL() string {
	return c.server.URL + "/token"
}

// Respond scripts the answers of the issuer
func (c *CallbackIssuer) Respond(r Responder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responder = r
}

// Calls returns how many requests were received
func (c *CallbackIssuer) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

// LastRequest returns the most recent request body and headers
func (c *CallbackIssuer) LastRequest() (CallbackRequest, http.Header, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.requests) == 0 {
		return CallbackRequest{}, nil, false
	}
	last := len(c.requests) - 1
	return c.requests[last], c.headers[last], true
}

func (c *CallbackIssuer) serve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != "/token" {
		http.NotFound(w, r)
		return
	}

	var body CallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	c.mu.Lock()
	c.requests = append(c.requests, body)
	c.headers = append(c.headers, r.Header.Clone())
	n := len(c.requests)
	responder := c.responder
	c.mu.Unlock()

	status, out := http.StatusOK, TokenBody("cb-"+strconv.Itoa(n), 3600)
	if responder != nil {
		status, out = responder(n, TokenRequest{TenantID: body.TenantID, Header: r.Header})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(out))
}
