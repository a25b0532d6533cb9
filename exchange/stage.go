package exchange

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/giantswarm/mcp-fic/instrumentation"
	"github.com/giantswarm/mcp-fic/security"
	"github.com/giantswarm/mcp-fic/token"
)

const (
	// DefaultAuthorityHost is the identity provider used when none is configured
	DefaultAuthorityHost = "https://login.microsoftonline.com"

	// DefaultHTTPTimeout bounds a single token request
	DefaultHTTPTimeout = 30 * time.Second
)

// StageRequest is one token request. Params are added to the form body next to
// grant_type, client_id, client_secret and scope.
type StageRequest struct {
	Stage        token.Stage
	TenantID     string
	GrantType    string
	ClientID     string
	ClientSecret string // sent only when non-empty
	Scope        string
	Params       url.Values
}

// StageClientConfig holds StageClient settings
type StageClientConfig struct {
	// AuthorityHost is the identity provider base URL (default: DefaultAuthorityHost)
	AuthorityHost string

	// HTTPClient is used for every request (default: 30s timeout)
	HTTPClient *http.Client

	// RateLimiter throttles requests per tenant (optional)
	RateLimiter *security.RateLimiter

	// Instrumentation records stage metrics and spans (optional)
	Instrumentation *instrumentation.Instrumentation

	// Logger is used for request logging (default: slog.Default())
	Logger *slog.Logger
}

// StageClient performs single token requests against tenant-scoped endpoints.
// It is safe for concurrent use.
type StageClient struct {
	authority  string
	httpClient *http.Client
	limiter    *security.RateLimiter
	inst       *instrumentation.Instrumentation
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
}

// NewStageClient creates a new stage client
func NewStageClient(cfg StageClientConfig) *StageClient {
	if cfg.AuthorityHost == "" {
		cfg.AuthorityHost = DefaultAuthorityHost
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	c := &StageClient{
		authority:  strings.TrimRight(cfg.AuthorityHost, "/"),
		httpClient: cfg.HTTPClient,
		limiter:    cfg.RateLimiter,
		inst:       cfg.Instrumentation,
		logger:     cfg.Logger,
	}
	if c.inst != nil {
		c.metrics = c.inst.Metrics()
	}
	return c
}

// TokenURL returns the token endpoint of a tenant
func (c *StageClient) TokenURL(tenantID string) string {
	return c.authority + "/" + url.PathEscape(tenantID) + "/oauth2/v2.0/token"
}

// Do performs exactly one token request. Non-2xx answers become
// *token.UpstreamError, transport failures *token.NetworkError, and 2xx
// answers without a usable token wrap token.ErrInvalidResponse.
func (c *StageClient) Do(ctx context.Context, req StageRequest) (*token.Grant, error) {
	var span trace.Span
	if c.inst != nil {
		ctx, span = c.inst.Tracer("exchange").Start(ctx, "fic.stage."+req.Stage.String())
		defer span.End()
		instrumentation.AddStageAttributes(span, req.Stage.String(), req.GrantType)
		instrumentation.AddIdentityAttributes(span, req.TenantID, req.ClientID, req.Scope, "")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, req.TenantID); err != nil {
			return nil, c.fail(ctx, span, req, &token.NetworkError{Stage: req.Stage, Err: err}, 0, 0)
		}
	}

	params := url.Values{"grant_type": {req.GrantType}}
	for k, v := range req.Params {
		params[k] = v
	}
	conf := &clientcredentials.Config{
		ClientID:       req.ClientID,
		ClientSecret:   req.ClientSecret,
		TokenURL:       c.TokenURL(req.TenantID),
		EndpointParams: params,
		AuthStyle:      oauth2.AuthStyleInParams,
	}
	if req.Scope != "" {
		conf.Scopes = []string{req.Scope}
	}

	start := time.Now()
	tok, err := conf.Token(context.WithValue(ctx, oauth2.HTTPClient, c.httpClient))
	elapsed := time.Since(start)
	// Lifetimes are measured against the wall clock the issuer's expiry refers to
	receivedAt := time.Now()

	if err != nil {
		return nil, c.fail(ctx, span, req, classify(req.Stage, err), elapsed, statusOf(err))
	}

	grant := token.FromOAuth2(tok, receivedAt)
	if err := grant.EnsureExpiry(receivedAt); err != nil {
		return nil, c.fail(ctx, span, req, err, elapsed, http.StatusOK)
	}

	c.metrics.RecordStageCall(ctx, req.Stage.String(), http.StatusOK, msSince(elapsed))
	instrumentation.SetSpanSuccess(span)

	c.logger.Debug("Token request succeeded",
		"stage", req.Stage,
		"tenant_id", req.TenantID,
		"client_id", req.ClientID,
		"expires_in", grant.ExpiresIn)

	return grant, nil
}

// fail records and logs a failed request and returns err
func (c *StageClient) fail(ctx context.Context, span trace.Span, req StageRequest, err error, elapsed time.Duration, status int) error {
	c.metrics.RecordStageCall(ctx, req.Stage.String(), status, msSince(elapsed))

	var upstream *token.UpstreamError
	if errors.As(err, &upstream) {
		instrumentation.AddUpstreamAttributes(span, upstream.Status, upstream.Code)
		c.logger.Warn("Token request rejected",
			"stage", req.Stage,
			"tenant_id", req.TenantID,
			"client_id", req.ClientID,
			"status", upstream.Status,
			"error", upstream.Code,
			"error_description", upstream.Description)
	} else {
		c.logger.Warn("Token request failed",
			"stage", req.Stage,
			"tenant_id", req.TenantID,
			"client_id", req.ClientID,
			"error", err)
	}

	instrumentation.RecordError(span, err)
	return err
}

// classify maps an error returned by golang.org/x/oauth2 onto the token taxonomy
func classify(stage token.Stage, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		return token.NewUpstreamError(stage, status, retrieveErr.Body)
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &token.NetworkError{Stage: stage, Err: err}
	}

	return fmt.Errorf("%s: %w: %v", stage, token.ErrInvalidResponse, err)
}

func statusOf(err error) int {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		return retrieveErr.Response.StatusCode
	}
	return 0
}

func msSince(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
