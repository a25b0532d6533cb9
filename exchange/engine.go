package exchange

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/google/uuid"

	"github.com/giantswarm/mcp-fic/credentials"
	"github.com/giantswarm/mcp-fic/instrumentation"
	"github.com/giantswarm/mcp-fic/token"
)

// Grant types and form parameters of the exchange
const (
	GrantTypeClientCredentials = "client_credentials"
	GrantTypeJWTBearer         = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	GrantTypeUserFIC           = "user_fic"

	// ParamInstance scopes the bootstrap token to the federated application instance
	ParamInstance = "fmi_path"

	ParamAssertion         = "assertion"
	ParamRequestedTokenUse = "requested_token_use"
	ParamLoginHint         = "login_hint"
	ParamUserID            = "user_id"

	onBehalfOf = "on_behalf_of"
)

// Engine runs the T1 -> T2 -> User exchange chain
type Engine struct {
	stages  *StageClient
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

// NewEngine creates an engine issuing its requests through stages
func NewEngine(stages *StageClient, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		stages: stages,
		logger: logger,
	}
	if stages.inst != nil {
		e.metrics = stages.inst.Metrics()
	}
	return e
}

// Run exchanges the service credentials in cfg for a token acting as subject.
// With an empty subject the chain stops after T2 and the service-only T2
// token is returned. Any stage failure returns a *token.ChainError and no token.
func (e *Engine) Run(ctx context.Context, cfg *credentials.ExchangeConfig, subject string) (*token.Grant, error) {
	if cfg == nil {
		return nil, token.ErrNotConfigured
	}

	t1, err := e.stages.Do(ctx, BootstrapRequest(cfg))
	if err != nil {
		return nil, e.abort(ctx, token.StageT1, err)
	}

	t2, err := e.stages.Do(ctx, FederatedRequest(cfg, t1.AccessToken))
	if err != nil {
		return nil, e.abort(ctx, token.StageT2, err)
	}

	if subject == "" {
		return t2, nil
	}

	user, err := e.stages.Do(ctx, DelegationRequest(cfg, t2.AccessToken, subject))
	if err != nil {
		return nil, e.abort(ctx, token.StageUser, err)
	}
	return user, nil
}

func (e *Engine) abort(ctx context.Context, stage token.Stage, err error) error {
	e.metrics.RecordChainAborted(ctx, stage.String())
	e.logger.Debug("Token exchange aborted", "stage", stage)
	return &token.ChainError{Stage: stage, Err: err}
}

// BootstrapRequest builds the T1 request: the service's own client
// credentials, scoped to the federated application instance.
func BootstrapRequest(cfg *credentials.ExchangeConfig) StageRequest {
	return StageRequest{
		Stage:        token.StageT1,
		TenantID:     cfg.TenantID,
		GrantType:    GrantTypeClientCredentials,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scope:        cfg.BootstrapScope,
		Params: url.Values{
			ParamInstance: {cfg.InstanceID},
		},
	}
}

// FederatedRequest builds the T2 request using the T1 token as assertion
func FederatedRequest(cfg *credentials.ExchangeConfig, t1 string) StageRequest {
	return StageRequest{
		Stage:     token.StageT2,
		TenantID:  cfg.TenantID,
		GrantType: GrantTypeJWTBearer,
		ClientID:  cfg.ClientID,
		Scope:     cfg.Scope,
		Params: url.Values{
			ParamAssertion:         {t1},
			ParamRequestedTokenUse: {onBehalfOf},
		},
	}
}

// DelegationRequest builds the User request using the T2 token as assertion.
// A subject that parses as a UUID is sent as a directory object id, anything
// else as a login hint (e-mail or UPN).
func DelegationRequest(cfg *credentials.ExchangeConfig, t2, subject string) StageRequest {
	params := url.Values{
		ParamAssertion:         {t2},
		ParamRequestedTokenUse: {onBehalfOf},
	}
	params.Set(SubjectParam(subject), subject)

	return StageRequest{
		Stage:     token.StageUser,
		TenantID:  cfg.TenantID,
		GrantType: GrantTypeUserFIC,
		ClientID:  cfg.ClientID,
		Scope:     cfg.Scope,
		Params:    params,
	}
}

// SubjectParam returns the form parameter carrying subject
func SubjectParam(subject string) string {
	if _, err := uuid.Parse(subject); err == nil {
		return ParamUserID
	}
	return ParamLoginHint
}
