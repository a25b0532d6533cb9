package credentials

import (
	"log/slog"
	"os"

	"github.com/giantswarm/mcp-fic/internal/util"
)

// DefaultScope is the downstream API scope requested when none is configured
const DefaultScope = "https://graph.microsoft.com/.default"

// Environment variables consulted when the configuration leaves a field empty
const (
	EnvServiceClientID     = "FIC_SERVICE_CLIENT_ID"
	EnvServiceClientSecret = "FIC_SERVICE_CLIENT_SECRET" //nolint:gosec // variable name, not a secret
	EnvServiceTenantID     = "FIC_SERVICE_TENANT_ID"

	EnvExchangeClientID       = "FIC_EXCHANGE_CLIENT_ID"
	EnvExchangeClientSecret   = "FIC_EXCHANGE_CLIENT_SECRET" //nolint:gosec // variable name, not a secret
	EnvExchangeTenantID       = "FIC_EXCHANGE_TENANT_ID"
	EnvExchangeScope          = "FIC_EXCHANGE_SCOPE"
	EnvExchangeBootstrapScope = "FIC_EXCHANGE_BOOTSTRAP_SCOPE"
	EnvExchangeInstanceID     = "FIC_EXCHANGE_INSTANCE_ID"

	EnvCallbackURL       = "FIC_CALLBACK_URL"
	EnvCallbackAuthToken = "FIC_CALLBACK_AUTH_TOKEN" //nolint:gosec // variable name, not a secret

	EnvSubject = "FIC_SUBJECT"

	// EnvConfigPath points at the TOML configuration file
	EnvConfigPath = "FIC_CONFIG_PATH"
)

// ServiceCredentials identify the service itself
type ServiceCredentials struct {
	ClientID     string
	ClientSecret string
	TenantID     string
}

// LogValue implements slog.LogValuer and keeps the secret out of logs
func (c ServiceCredentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("client_id", c.ClientID),
		slog.String("tenant_id", c.TenantID),
	)
}

// ExchangeConfig carries everything the three-stage exchange needs
type ExchangeConfig struct {
	ClientID       string
	ClientSecret   string
	TenantID       string
	Scope          string
	BootstrapScope string
	InstanceID     string
}

// LogValue implements slog.LogValuer and keeps the secret out of logs
func (c ExchangeConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("client_id", c.ClientID),
		slog.String("tenant_id", c.TenantID),
		slog.String("scope", c.Scope),
		slog.String("instance_id", c.InstanceID),
	)
}

// CallbackConfig points at an external service that issues tokens
type CallbackConfig struct {
	URL       string
	AuthToken string
}

// LogValue implements slog.LogValuer and keeps the auth token out of logs
func (c CallbackConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("url", c.URL),
		slog.Bool("authenticated", c.AuthToken != ""),
	)
}

// Resolver merges a Source with the environment.
// It holds no state besides the lookup function and is safe for concurrent use.
type Resolver struct {
	lookupEnv func(string) (string, bool)
}

// NewResolver creates a resolver. A nil lookupEnv uses os.LookupEnv.
func NewResolver(lookupEnv func(string) (string, bool)) *Resolver {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	return &Resolver{lookupEnv: lookupEnv}
}

func (r *Resolver) env(name string) string {
	v, _ := r.lookupEnv(name)
	return v
}

// resolve returns the configured value, or the environment value when the
// configured one is empty.
func (r *Resolver) resolve(configured, envName string) string {
	return util.FirstNonEmpty(configured, r.env(envName))
}

// ResolveServiceCredentials returns the service credentials, or nil unless all
// three fields resolve to non-empty values.
func (r *Resolver) ResolveServiceCredentials(src *Source) *ServiceCredentials {
	if src == nil {
		src = &Source{}
	}
	creds := &ServiceCredentials{
		ClientID:     r.resolve(src.Service.ClientID, EnvServiceClientID),
		ClientSecret: r.resolve(src.Service.ClientSecret, EnvServiceClientSecret),
		TenantID:     r.resolve(src.Service.TenantID, EnvServiceTenantID),
	}
	if creds.ClientID == "" || creds.ClientSecret == "" || creds.TenantID == "" {
		return nil
	}
	return creds
}

// ResolveExchangeConfig returns the exchange parameters, or nil when the client
// id, client secret, instance id or tenant cannot be resolved. The tenant falls
// back to the service credentials' tenant and the scopes fall back to DefaultScope.
func (r *Resolver) ResolveExchangeConfig(src *Source) *ExchangeConfig {
	if src == nil {
		src = &Source{}
	}
	cfg := &ExchangeConfig{
		ClientID:       r.resolve(src.Exchange.ClientID, EnvExchangeClientID),
		ClientSecret:   r.resolve(src.Exchange.ClientSecret, EnvExchangeClientSecret),
		TenantID:       r.resolve(src.Exchange.TenantID, EnvExchangeTenantID),
		Scope:          r.resolve(src.Exchange.Scope, EnvExchangeScope),
		BootstrapScope: r.resolve(src.Exchange.BootstrapScope, EnvExchangeBootstrapScope),
		InstanceID:     r.resolve(src.Exchange.InstanceID, EnvExchangeInstanceID),
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.InstanceID == "" {
		return nil
	}

	if cfg.TenantID == "" {
		cfg.TenantID = r.ResolveServiceTenantID(src)
	}
	if cfg.TenantID == "" {
		return nil
	}

	if cfg.Scope == "" {
		cfg.Scope = DefaultScope
	}
	if cfg.BootstrapScope == "" {
		cfg.BootstrapScope = DefaultScope
	}
	return cfg
}

// ResolveCallbackConfig returns the callback issuer, or nil when no usable URL
// is configured.
func (r *Resolver) ResolveCallbackConfig(src *Source) *CallbackConfig {
	if src == nil {
		src = &Source{}
	}
	cfg := &CallbackConfig{
		URL:       r.resolve(src.Callback.URL, EnvCallbackURL),
		AuthToken: r.resolve(src.Callback.AuthToken, EnvCallbackAuthToken),
	}
	if cfg.URL == "" || !isHTTPURL(cfg.URL) {
		return nil
	}
	return cfg
}

// ResolveServiceTenantID returns the service tenant on its own, even when the
// rest of the service credentials is incomplete.
func (r *Resolver) ResolveServiceTenantID(src *Source) string {
	if src == nil {
		src = &Source{}
	}
	return r.resolve(src.Service.TenantID, EnvServiceTenantID)
}

// ResolveScope returns the downstream scope, DefaultScope when none is configured.
func (r *Resolver) ResolveScope(src *Source) string {
	if src == nil {
		src = &Source{}
	}
	return util.FirstNonEmpty(r.resolve(src.Exchange.Scope, EnvExchangeScope), DefaultScope)
}

// ResolveSubject returns the default subject, or "" for service-only tokens.
func (r *Resolver) ResolveSubject(src *Source) string {
	if src == nil {
		src = &Source{}
	}
	return r.resolve(src.Subject, EnvSubject)
}
