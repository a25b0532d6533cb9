package credentials

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Source holds explicitly configured values. Any field may be empty, in which
// case the matching environment variable is consulted.
type Source struct {
	// Subject is the default user to act for when the caller passes none
	Subject string `toml:"subject" json:"subject"`

	Service  ServiceSection  `toml:"service" json:"service"`
	Exchange ExchangeSection `toml:"exchange" json:"exchange"`
	Callback CallbackSection `toml:"callback" json:"callback"`
}

// ServiceSection configures the service identity
type ServiceSection struct {
	ClientID     string `toml:"client_id" json:"client_id"`
	ClientSecret string `toml:"client_secret" json:"client_secret"`
	TenantID     string `toml:"tenant_id" json:"tenant_id"`
}

// ExchangeSection configures the federated exchange chain
type ExchangeSection struct {
	ClientID     string `toml:"client_id" json:"client_id"`
	ClientSecret string `toml:"client_secret" json:"client_secret"`
	TenantID     string `toml:"tenant_id" json:"tenant_id"`

	// Scope requested for the federated and delegated tokens (default: DefaultScope)
	Scope string `toml:"scope" json:"scope"`

	// BootstrapScope requested by the service bootstrap stage (default: DefaultScope)
	BootstrapScope string `toml:"bootstrap_scope" json:"bootstrap_scope"`

	// InstanceID identifies the federated application instance
	InstanceID string `toml:"instance_id" json:"instance_id"`
}

// CallbackSection configures the external token issuer
type CallbackSection struct {
	URL       string `toml:"url" json:"url"`
	AuthToken string `toml:"auth_token" json:"auth_token"`
}

// LoadFile reads a Source from a TOML file.
// A missing file is not an error: the returned Source is empty and every value
// comes from the environment.
func LoadFile(path string) (*Source, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator supplied configuration
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Source{}, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	src, err := LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return src, nil
}

// LoadBytes decodes a Source from TOML. Unknown keys are rejected so that a
// misspelled field does not silently fall through to the environment.
func LoadBytes(data []byte) (*Source, error) {
	var src Source
	md, err := toml.Decode(string(data), &src)
	if err != nil {
		return nil, err
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("unknown configuration keys: %s", strings.Join(keys, ", "))
	}

	return &src, nil
}

// Validate checks the explicitly configured values for obvious mistakes.
// Values that will come from the environment are not checked here.
func (s *Source) Validate() error {
	if s == nil {
		return nil
	}
	return validation.ValidateStruct(s,
		validation.Field(&s.Exchange),
		validation.Field(&s.Callback),
	)
}

// Validate reports a partially filled exchange block
func (e ExchangeSection) Validate() error {
	started := e.ClientID != "" || e.ClientSecret != "" || e.InstanceID != ""
	return validation.ValidateStruct(&e,
		validation.Field(&e.ClientID, validation.When(started, validation.Required)),
		validation.Field(&e.ClientSecret, validation.When(started, validation.Required)),
		validation.Field(&e.InstanceID, validation.When(started, validation.Required)),
	)
}

// Validate checks that the callback URL is usable
func (c CallbackSection) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.URL, validation.By(httpURL)),
		validation.Field(&c.AuthToken, validation.When(c.URL == "" && c.AuthToken != "",
			validation.Empty.Error("requires a callback url"))),
	)
}

// httpURL accepts empty values and absolute http(s) URLs
func httpURL(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if !isHTTPURL(s) {
		return errors.New("must be an absolute http or https URL")
	}
	return nil
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "https" || u.Scheme == "http") && u.Host != ""
}
