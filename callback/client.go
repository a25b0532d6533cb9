package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/giantswarm/mcp-fic/credentials"
	"github.com/giantswarm/mcp-fic/instrumentation"
	"github.com/giantswarm/mcp-fic/security"
	"github.com/giantswarm/mcp-fic/token"
)

// maxResponseSize bounds the body read from the issuer
const maxResponseSize = 1 << 20

// Request describes the token the issuer should return
type Request struct {
	Subject  string `json:"subject,omitempty"`
	TenantID string `json:"tenantId,omitempty"`
	Scope    string `json:"scope,omitempty"`
}

// Config holds Client settings
type Config struct {
	// HTTPClient is used for every request (default: 30s timeout)
	HTTPClient *http.Client

	// Instrumentation records call metrics and spans (optional)
	Instrumentation *instrumentation.Instrumentation

	// Logger is used for request logging (default: slog.Default())
	Logger *slog.Logger
}

// Client talks to an external token issuer
type Client struct {
	httpClient *http.Client
	inst       *instrumentation.Instrumentation
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
}

// NewClient creates a new callback client
func NewClient(cfg Config) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	c := &Client{
		httpClient: cfg.HTTPClient,
		inst:       cfg.Instrumentation,
		logger:     cfg.Logger,
	}
	if c.inst != nil {
		c.metrics = c.inst.Metrics()
	}
	return c
}

// Fetch performs exactly one POST to the issuer configured in cfg
func (c *Client) Fetch(ctx context.Context, cfg *credentials.CallbackConfig, req Request) (*token.Grant, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, token.ErrNotConfigured
	}

	var span trace.Span
	if c.inst != nil {
		ctx, span = c.inst.Tracer("callback").Start(ctx, "fic.callback")
		defer span.End()
		instrumentation.AddIdentityAttributes(span, req.TenantID, "", req.Scope, security.HashForLogging(req.Subject))
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode callback request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create callback request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if cfg.AuthToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+cfg.AuthToken)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// The transport error quotes the request URL
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = security.RedactURL(urlErr.URL)
		}
		return nil, c.fail(ctx, span, cfg, &token.NetworkError{Stage: token.StageCallback, Err: err}, time.Since(start), 0)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	elapsed := time.Since(start)
	if err != nil {
		return nil, c.fail(ctx, span, cfg, &token.NetworkError{Stage: token.StageCallback, Err: err}, elapsed, resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.fail(ctx, span, cfg, token.NewUpstreamError(token.StageCallback, resp.StatusCode, body), elapsed, resp.StatusCode)
	}

	grant, err := token.ParseResponse(body)
	if err == nil {
		err = grant.EnsureExpiry(time.Now())
	}
	if err != nil {
		return nil, c.fail(ctx, span, cfg, err, elapsed, resp.StatusCode)
	}

	c.metrics.RecordStageCall(ctx, token.StageCallback.String(), resp.StatusCode, msSince(elapsed))
	instrumentation.SetSpanSuccess(span)

	c.logger.Debug("Callback token request succeeded",
		"url", security.RedactURL(cfg.URL),
		"subject_hash", security.HashForLogging(req.Subject),
		"expires_in", grant.ExpiresIn)

	return grant, nil
}

func (c *Client) fail(ctx context.Context, span trace.Span, cfg *credentials.CallbackConfig, err error, elapsed time.Duration, status int) error {
	c.metrics.RecordStageCall(ctx, token.StageCallback.String(), status, msSince(elapsed))
	instrumentation.AddUpstreamAttributes(span, status, "")
	instrumentation.RecordError(span, err)

	c.logger.Warn("Callback token request failed",
		"url", security.RedactURL(cfg.URL),
		"status", status,
		"error", err)
	return err
}

func msSince(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
