package fic

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/giantswarm/mcp-fic/credentials"
	"github.com/giantswarm/mcp-fic/internal/testutil"
	"github.com/giantswarm/mcp-fic/token"
)

func noEnv(string) (string, bool) { return "", false }

func exchangeSource() *credentials.Source {
	return &credentials.Source{
		Exchange: credentials.ExchangeSection{
			ClientID:     "c1",
			ClientSecret: "s1",
			TenantID:     "tenant-1",
			InstanceID:   "instance-1",
		},
	}
}

func newTestService(t *testing.T, idp *testutil.IdentityProvider, mutate ...func(*Config)) *Service {
	t.Helper()
	cfg := &Config{
		LookupEnv:       noEnv,
		CleanupInterval: -1,
		Retry: RetryConfig{
			BaseDelay: time.Millisecond,
			MaxDelay:  5 * time.Millisecond,
		},
	}
	if idp != nil {
		cfg.AuthorityHost = idp.URL()
		cfg.HTTPClient = idp.Client()
	}
	for _, fn := range mutate {
		fn(cfg)
	}

	svc, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestService_NotConfigured(t *testing.T) {
	idp := testutil.NewIdentityProvider(t)
	svc := newTestService(t, idp)

	// Service credentials alone do not configure acquisition
	src := &credentials.Source{
		Service: credentials.ServiceSection{ClientID: "c1", ClientSecret: "s1", TenantID: "t1"},
	}

	accessToken, ok := svc.Acquire(context.Background(), src, "u@x.com")
	if ok || accessToken != "" {
		t.Errorf("Acquire() = (%q, %v), want absent", accessToken, ok)
	}

	_, err := svc.AcquireToken(context.Background(), src, "u@x.com")
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("AcquireToken() error = %v, want ErrNotConfigured", err)
	}
	if got := Describe(err); got != MessageNotConfigured {
		t.Errorf("Describe() = %q, want %q", got, MessageNotConfigured)
	}
	if idp.TotalCalls() != 0 {
		t.Errorf("identity provider calls = %d, want 0", idp.TotalCalls())
	}
}

func TestService_Acquire_ExchangeChain(t *testing.T) {
	idp := testutil.NewIdentityProvider(t)
	for _, grant := range []string{testutil.GrantClientCredentials, testutil.GrantJWTBearer, testutil.GrantUserFIC} {
		idp.Respond(grant, testutil.Static(http.StatusOK, testutil.TokenBody("TOK", 3600)))
	}
	svc := newTestService(t, idp)

	for i := 0; i < 2; i++ {
		accessToken, ok := svc.Acquire(context.Background(), exchangeSource(), "u@x.com")
		if !ok || accessToken != "TOK" {
			t.Fatalf("Acquire() call %d = (%q, %v), want (TOK, true)", i+1, accessToken, ok)
		}
	}

	if got := idp.TotalCalls(); got != 3 {
		t.Errorf("identity provider calls = %d, want 3 (one chain)", got)
	}
}

func TestService_CacheLiveness(t *testing.T) {
	idp := testutil.NewIdentityProvider(t)
	clock := testutil.NewMockTime(time.Now())
	svc := newTestService(t, idp, func(c *Config) { c.Now = clock.Now })

	for i := 0; i < 10; i++ {
		if _, ok := svc.Acquire(context.Background(), exchangeSource(), "u@x.com"); !ok {
			t.Fatalf("Acquire() call %d failed", i+1)
		}
		clock.Advance(5 * time.Minute)
	}
	if got := idp.Calls(testutil.GrantUserFIC); got != 1 {
		t.Errorf("User stage calls inside TTL = %d, want 1", got)
	}

	// 56 minutes in: inside the refresh buffer of a one hour token
	clock.Advance(6 * time.Minute)
	accessToken, ok := svc.Acquire(context.Background(), exchangeSource(), "u@x.com")
	if !ok {
		t.Fatal("Acquire() after buffer failed")
	}
	if accessToken != "user-2" {
		t.Errorf("Acquire() after buffer = %q, want user-2", accessToken)
	}
	for _, grant := range []string{testutil.GrantClientCredentials, testutil.GrantJWTBearer, testutil.GrantUserFIC} {
		if got := idp.Calls(grant); got != 2 {
			t.Errorf("%s calls = %d, want 2", grant, got)
		}
	}
}

func TestService_PathSelection(t *testing.T) {
	tests := []struct {
		name             string
		withExchange     bool
		withCallback     bool
		wantIDPCalls     int
		wantCallbackCall int
		wantToken        string
	}{
		{
			name:             "exchange wins over callback",
			withExchange:     true,
			withCallback:     true,
			wantIDPCalls:     3,
			wantCallbackCall: 0,
			wantToken:        "user-1",
		},
		{
			name:             "callback only",
			withCallback:     true,
			wantIDPCalls:     0,
			wantCallbackCall: 1,
			wantToken:        "cb-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idp := testutil.NewIdentityProvider(t)
			issuer := testutil.NewCallbackIssuer(t)
			svc := newTestService(t, idp)

			src := &credentials.Source{}
			if tt.withExchange {
				src = exchangeSource()
			}
			if tt.withCallback {
				src.Callback = credentials.CallbackSection{URL: issuer.URL(), AuthToken: "cb-secret"}
			}

			accessToken, ok := svc.Acquire(context.Background(), src, "u@x.com")
			if !ok || accessToken != tt.wantToken {
				t.Fatalf("Acquire() = (%q, %v), want (%q, true)", accessToken, ok, tt.wantToken)
			}
			if got := idp.TotalCalls(); got != tt.wantIDPCalls {
				t.Errorf("identity provider calls = %d, want %d", got, tt.wantIDPCalls)
			}
			if got := issuer.Calls(); got != tt.wantCallbackCall {
				t.Errorf("callback calls = %d, want %d", got, tt.wantCallbackCall)
			}
		})
	}
}

func TestService_CallbackCached(t *testing.T) {
	issuer := testutil.NewCallbackIssuer(t)
	svc := newTestService(t, nil)

	src := &credentials.Source{
		Service:  credentials.ServiceSection{TenantID: "tenant-1"},
		Callback: credentials.CallbackSection{URL: issuer.URL()},
	}

	for i := 0; i < 3; i++ {
		if accessToken, ok := svc.Acquire(context.Background(), src, "u@x.com"); !ok || accessToken != "cb-1" {
			t.Fatalf("Acquire() = (%q, %v), want (cb-1, true)", accessToken, ok)
		}
	}
	if got := issuer.Calls(); got != 1 {
		t.Errorf("callback calls = %d, want 1", got)
	}

	body, _, _ := issuer.LastRequest()
	if body.Subject != "u@x.com" || body.TenantID != "tenant-1" || body.Scope != credentials.DefaultScope {
		t.Errorf("callback request = %+v", body)
	}
}

func TestService_ChainAborted(t *testing.T) {
	tests := []struct {
		name      string
		failGrant string
		status    int
		wantStage token.Stage
		wantUser  int
	}{
		{
			name:      "T1 unauthorized",
			failGrant: testutil.GrantClientCredentials,
			status:    http.StatusUnauthorized,
			wantStage: token.StageT1,
		},
		{
			name:      "T2 rejected",
			failGrant: testutil.GrantJWTBearer,
			status:    http.StatusBadRequest,
			wantStage: token.StageT2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idp := testutil.NewIdentityProvider(t)
			idp.Respond(tt.failGrant, testutil.Static(tt.status, testutil.ErrorBody("invalid_client", "bad credentials")))
			svc := newTestService(t, idp)

			if accessToken, ok := svc.Acquire(context.Background(), exchangeSource(), "u@x.com"); ok {
				t.Fatalf("Acquire() = %q, want absent", accessToken)
			}

			_, err := svc.AcquireToken(context.Background(), exchangeSource(), "u@x.com")
			var chainErr *token.ChainError
			if !errors.As(err, &chainErr) {
				t.Fatalf("AcquireToken() error = %v, want *token.ChainError", err)
			}
			if chainErr.Stage != tt.wantStage {
				t.Errorf("Stage = %q, want %q", chainErr.Stage, tt.wantStage)
			}
			if got := Describe(err); got != MessageUnavailable {
				t.Errorf("Describe() = %q, want %q", got, MessageUnavailable)
			}

			// Non-retryable: one request per acquisition, and User is never reached
			if got := idp.Calls(tt.failGrant); got != 2 {
				t.Errorf("%s calls = %d, want 2", tt.failGrant, got)
			}
			if got := idp.Calls(testutil.GrantUserFIC); got != 0 {
				t.Errorf("User stage calls = %d, want 0", got)
			}
		})
	}
}

func TestService_Retry(t *testing.T) {
	tests := []struct {
		name       string
		statuses   []int
		maxRetries int
		wantOK     bool
		wantCalls  int
	}{
		{name: "503 then success", statuses: []int{503, 200}, wantOK: true, wantCalls: 2},
		{name: "429 twice then success", statuses: []int{429, 429, 200}, wantOK: true, wantCalls: 3},
		{name: "persistent 503 exhausts retries", statuses: []int{503}, wantOK: false, wantCalls: 3},
		{name: "401 fails fast", statuses: []int{401, 200}, wantOK: false, wantCalls: 1},
		{name: "500 fails fast", statuses: []int{500, 200}, wantOK: false, wantCalls: 1},
		{name: "retries disabled", statuses: []int{503, 200}, maxRetries: -1, wantOK: false, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idp := testutil.NewIdentityProvider(t)
			idp.Respond(testutil.GrantClientCredentials, testutil.Sequence("t1-tok", tt.statuses...))
			svc := newTestService(t, idp, func(c *Config) { c.Retry.MaxRetries = tt.maxRetries })

			_, ok := svc.Acquire(context.Background(), exchangeSource(), "u@x.com")
			if ok != tt.wantOK {
				t.Errorf("Acquire() ok = %v, want %v", ok, tt.wantOK)
			}
			if got := idp.Calls(testutil.GrantClientCredentials); got != tt.wantCalls {
				t.Errorf("T1 calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestService_SingleFlight(t *testing.T) {
	idp := testutil.NewIdentityProvider(t)
	release := idp.Block(testutil.GrantClientCredentials)
	defer release()
	svc := newTestService(t, idp)

	const n = 25
	var wg sync.WaitGroup
	tokens := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], _ = svc.Acquire(context.Background(), exchangeSource(), "u@x.com")
		}(i)
	}

	waitFor(t, func() bool { return idp.Calls(testutil.GrantClientCredentials) == 1 })
	time.Sleep(20 * time.Millisecond)
	release()
	wg.Wait()

	for _, grant := range []string{testutil.GrantClientCredentials, testutil.GrantJWTBearer, testutil.GrantUserFIC} {
		if got := idp.Calls(grant); got != 1 {
			t.Errorf("%s calls = %d, want 1", grant, got)
		}
	}
	for i, tok := range tokens {
		if tok != "user-1" {
			t.Errorf("caller %d token = %q, want user-1", i, tok)
		}
	}
}

func TestService_SubjectIsolation(t *testing.T) {
	idp := testutil.NewIdentityProvider(t)
	svc := newTestService(t, idp)

	a, okA := svc.Acquire(context.Background(), exchangeSource(), "a@x.com")
	b, okB := svc.Acquire(context.Background(), exchangeSource(), "b@x.com")
	if !okA || !okB {
		t.Fatal("Acquire() failed")
	}
	if a == b {
		t.Errorf("subjects share token %q", a)
	}

	if got := idp.Calls(testutil.GrantUserFIC); got != 2 {
		t.Errorf("User stage calls = %d, want 2", got)
	}
	if got := idp.Calls(testutil.GrantClientCredentials); got != 2 {
		t.Errorf("T1 calls = %d, want 2 (one chain per subject)", got)
	}

	hints := map[string]bool{}
	for _, req := range idp.Requests(testutil.GrantUserFIC) {
		hints[req.Form.Get("login_hint")] = true
	}
	if !hints["a@x.com"] || !hints["b@x.com"] {
		t.Errorf("login hints = %v, want both subjects", hints)
	}
}

func TestService_ServiceOnlyToken(t *testing.T) {
	idp := testutil.NewIdentityProvider(t)
	svc := newTestService(t, idp)

	tok, err := svc.AcquireToken(context.Background(), exchangeSource(), "")
	if err != nil {
		t.Fatalf("AcquireToken() error = %v", err)
	}
	if tok.AccessToken != "t2-1" {
		t.Errorf("service-only token = %q, want t2-1", tok.AccessToken)
	}
	if tok.Delegated() {
		t.Error("service-only token reports a subject")
	}
	if got := idp.Calls(testutil.GrantUserFIC); got != 0 {
		t.Errorf("User stage calls = %d, want 0", got)
	}

	// A delegated token for the same client is a separate cache entry
	delegated, err := svc.AcquireToken(context.Background(), exchangeSource(), "u@x.com")
	if err != nil {
		t.Fatalf("AcquireToken() error = %v", err)
	}
	if delegated.AccessToken == tok.AccessToken {
		t.Error("delegated acquisition returned the service-only token")
	}
}

func TestService_DefaultSubject(t *testing.T) {
	idp := testutil.NewIdentityProvider(t)
	svc := newTestService(t, idp)

	src := exchangeSource()
	src.Subject = "default@x.com"

	if _, ok := svc.Acquire(context.Background(), src, ""); !ok {
		t.Fatal("Acquire() with default subject failed")
	}
	if _, ok := svc.Acquire(context.Background(), src, "explicit@x.com"); !ok {
		t.Fatal("Acquire() with explicit subject failed")
	}

	reqs := idp.Requests(testutil.GrantUserFIC)
	if len(reqs) != 2 {
		t.Fatalf("User stage calls = %d, want 2", len(reqs))
	}
	if got := reqs[0].Form.Get("login_hint"); got != "default@x.com" {
		t.Errorf("first login_hint = %q, want default@x.com", got)
	}
	if got := reqs[1].Form.Get("login_hint"); got != "explicit@x.com" {
		t.Errorf("second login_hint = %q, want explicit@x.com", got)
	}
}

func TestService_EnvironmentFallback(t *testing.T) {
	idp := testutil.NewIdentityProvider(t)
	env := map[string]string{
		credentials.EnvExchangeClientID:     "c-env",
		credentials.EnvExchangeClientSecret: "s-env",
		credentials.EnvExchangeInstanceID:   "instance-env",
		credentials.EnvServiceTenantID:      "tenant-env",
	}
	svc := newTestService(t, idp, func(c *Config) {
		c.LookupEnv = func(name string) (string, bool) {
			v, ok := env[name]
			return v, ok
		}
	})

	src := &credentials.Source{Exchange: credentials.ExchangeSection{ClientID: "c-cfg"}}
	if _, ok := svc.Acquire(context.Background(), src, "u@x.com"); !ok {
		t.Fatal("Acquire() failed")
	}

	t1 := idp.Requests(testutil.GrantClientCredentials)[0]
	if t1.TenantID != "tenant-env" {
		t.Errorf("tenant = %q, want tenant-env", t1.TenantID)
	}
	if got := t1.Form.Get("client_id"); got != "c-cfg" {
		t.Errorf("client_id = %q, want the configured c-cfg", got)
	}
	if got := t1.Form.Get("client_secret"); got != "s-env" {
		t.Errorf("client_secret = %q, want s-env", got)
	}
}

func TestService_InvalidateFor(t *testing.T) {
	idp := testutil.NewIdentityProvider(t)
	svc := newTestService(t, idp)

	first, _ := svc.Acquire(context.Background(), exchangeSource(), "u@x.com")
	other, _ := svc.Acquire(context.Background(), exchangeSource(), "other@x.com")

	svc.InvalidateFor(exchangeSource(), "u@x.com")

	second, ok := svc.Acquire(context.Background(), exchangeSource(), "u@x.com")
	if !ok || second == first {
		t.Errorf("Acquire() after InvalidateFor = (%q, %v), want a fresh token", second, ok)
	}
	if again, _ := svc.Acquire(context.Background(), exchangeSource(), "other@x.com"); again != other {
		t.Errorf("unrelated subject token changed from %q to %q", other, again)
	}

	svc.InvalidateAll()
	third, _ := svc.Acquire(context.Background(), exchangeSource(), "u@x.com")
	if third == second {
		t.Error("InvalidateAll() did not drop the cached token")
	}
}

func TestService_Cancellation(t *testing.T) {
	idp := testutil.NewIdentityProvider(t)
	release := idp.Block(testutil.GrantJWTBearer)
	svc := newTestService(t, idp)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := svc.AcquireToken(ctx, exchangeSource(), "u@x.com")
	if err == nil {
		t.Fatal("AcquireToken() should fail when the context times out")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("AcquireToken() error = %v, want context.DeadlineExceeded", err)
	}
	if svc.cache.Len() != 0 {
		t.Errorf("cache entries after cancellation = %d, want 0", svc.cache.Len())
	}

	release()
	waitFor(t, func() bool {
		_, ok := svc.Acquire(context.Background(), exchangeSource(), "u@x.com")
		return ok
	})
}

func TestService_AuditLogging(t *testing.T) {
	idp := testutil.NewIdentityProvider(t)
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	svc := newTestService(t, idp, func(c *Config) {
		c.Logger = logger
		c.EnableAuditLogging = true
	})

	accessToken, ok := svc.Acquire(context.Background(), exchangeSource(), "u@x.com")
	if !ok {
		t.Fatal("Acquire() failed")
	}

	out := buf.String()
	if !strings.Contains(out, "token_issued") {
		t.Error("audit log missing token_issued event")
	}
	for _, secret := range []string{"u@x.com", "s1", accessToken, "t1-1", "t2-1"} {
		if strings.Contains(out, "="+secret+" ") || strings.Contains(out, "="+secret+"\n") {
			t.Errorf("log output contains sensitive value %q", secret)
		}
	}
}

func TestService_ShortLivedTokenReturnedNotCached(t *testing.T) {
	idp := testutil.NewIdentityProvider(t)
	idp.Respond(testutil.GrantUserFIC, func(n int, _ testutil.TokenRequest) (int, string) {
		return http.StatusOK, testutil.TokenBody(fmt.Sprintf("short-%d", n), 120)
	})
	svc := newTestService(t, idp)

	for i := 1; i <= 2; i++ {
		tok, err := svc.AcquireToken(context.Background(), exchangeSource(), "u@x.com")
		if err != nil {
			t.Fatalf("AcquireToken() call %d error = %v", i, err)
		}
		if want := fmt.Sprintf("short-%d", i); tok.AccessToken != want {
			t.Errorf("call %d token = %q, want %q", i, tok.AccessToken, want)
		}
		if left := time.Until(tok.ExpiresAt); left > DefaultRefreshBuffer {
			t.Errorf("call %d lifetime left = %v, want less than the refresh buffer", i, left)
		}
	}

	if got := idp.Calls(testutil.GrantUserFIC); got != 2 {
		t.Errorf("User stage calls = %d, want 2 (short-lived token not cached)", got)
	}
	if svc.cache.Len() != 0 {
		t.Errorf("cache entries = %d, want 0", svc.cache.Len())
	}
}

func TestService_CallbackURLCredentialsNotLogged(t *testing.T) {
	issuer := testutil.NewCallbackIssuer(t)
	issuer.Respond(testutil.Static(http.StatusServiceUnavailable, testutil.ErrorBody("temporarily_unavailable", "busy")))

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	svc := newTestService(t, nil, func(c *Config) {
		c.Logger = logger
		c.EnableAuditLogging = true
	})

	src := &credentials.Source{
		Callback: credentials.CallbackSection{URL: issuer.URL() + "?api_key=s3cr3t"},
	}
	if _, ok := svc.Acquire(context.Background(), src, "u@x.com"); ok {
		t.Fatal("Acquire() should fail while the callback issuer is unavailable")
	}

	out := buf.String()
	if strings.Contains(out, "s3cr3t") {
		t.Errorf("callback URL credentials logged:\n%s", out)
	}
	if !strings.Contains(out, "callback_failed") {
		t.Error("audit log missing callback_failed event")
	}
	if !strings.Contains(out, issuer.URL()) {
		t.Error("log output missing the redacted callback endpoint")
	}
}

func TestCallbackClientID(t *testing.T) {
	plain := callbackClientID("https://issuer.example.com/token")
	if plain != "callback:https://issuer.example.com/token" {
		t.Errorf("callbackClientID() = %q", plain)
	}

	a := callbackClientID("https://issuer.example.com/token?key=a")
	b := callbackClientID("https://issuer.example.com/token?key=b")
	if a == b {
		t.Error("issuers differing only in query share a cache identity")
	}
	if strings.Contains(a, "key=a") {
		t.Errorf("callbackClientID() = %q, want query redacted", a)
	}
}

func TestNew_Config(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{name: "nil config", config: nil},
		{name: "empty config", config: &Config{}},
		{name: "invalid authority", config: &Config{AuthorityHost: "login.example.com"}, wantErr: true},
		{name: "jitter above 100", config: &Config{Retry: RetryConfig{JitterPercent: 150}}, wantErr: true},
		{name: "max delay below base", config: &Config{Retry: RetryConfig{BaseDelay: time.Second, MaxDelay: time.Millisecond}}, wantErr: true},
		{name: "negative rate", config: &Config{RateLimit: RateLimitConfig{Rate: -1}}, wantErr: true},
		{name: "rate limited", config: &Config{RateLimit: RateLimitConfig{Rate: 10}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if svc != nil {
				svc.Stop()
				svc.Stop()
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := applyDefaults(&Config{})

	if cfg.AuthorityHost != DefaultAuthorityHost {
		t.Errorf("AuthorityHost = %q", cfg.AuthorityHost)
	}
	if cfg.RefreshBuffer != 5*time.Minute {
		t.Errorf("RefreshBuffer = %v, want 5m", cfg.RefreshBuffer)
	}
	if cfg.MaxCacheEntries != 10000 {
		t.Errorf("MaxCacheEntries = %d, want 10000", cfg.MaxCacheEntries)
	}
	if cfg.HTTPClient == nil || cfg.HTTPClient.Timeout != 30*time.Second {
		t.Error("HTTPClient should default to a 30s timeout")
	}
	if cfg.Retry.MaxRetries != 2 || cfg.Retry.JitterPercent != 20 {
		t.Errorf("Retry = %+v", cfg.Retry)
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "not configured", err: ErrNotConfigured, want: MessageNotConfigured},
		{name: "chain aborted", err: &token.ChainError{Stage: token.StageT1, Err: errors.New("401")}, want: MessageUnavailable},
		{name: "network", err: &token.NetworkError{Stage: token.StageCallback, Err: context.DeadlineExceeded}, want: MessageUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Describe(tt.err); got != tt.want {
				t.Errorf("Describe() = %q, want %q", got, tt.want)
			}
		})
	}
}
