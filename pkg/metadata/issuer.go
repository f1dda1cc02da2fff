package metadata

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/tbd54566975/oid4vci/internal/validation"
	"github.com/tbd54566975/oid4vci/pkg/profile"
	"github.com/tbd54566975/oid4vci/pkg/variant"
)

// WellKnownPath is appended to the credential issuer identifier to locate its metadata.
const WellKnownPath = "/.well-known/openid-credential-issuer"

var ErrIssuerMismatch = errors.New("credential_issuer does not match the requested issuer")

// Encryption describes how the issuer can encrypt credential responses.
type Encryption struct {
	AlgValuesSupported []string `json:"alg_values_supported" validate:"required,min=1"`
	EncValuesSupported []string `json:"enc_values_supported" validate:"required,min=1"`
	EncryptionRequired bool     `json:"encryption_required"`
}

// CredentialIssuerMetadata is the metadata a credential issuer publishes at its well-known location.
type CredentialIssuerMetadata struct {
	CredentialIssuer string `json:"credential_issuer" validate:"required,url"`
	// AuthorizationServers lists the authorization servers the issuer relies on. When empty the issuer is
	// its own authorization server.
	AuthorizationServers []string `json:"authorization_servers,omitempty" validate:"omitempty,dive,url"`

	CredentialEndpoint         string `json:"credential_endpoint" validate:"required,url"`
	BatchCredentialEndpoint    string `json:"batch_credential_endpoint,omitempty" validate:"omitempty,url"`
	DeferredCredentialEndpoint string `json:"deferred_credential_endpoint,omitempty" validate:"omitempty,url"`
	NotificationEndpoint       string `json:"notification_endpoint,omitempty" validate:"omitempty,url"`

	CredentialResponseEncryption   *Encryption `json:"credential_response_encryption,omitempty"`
	CredentialIdentifiersSupported bool        `json:"credential_identifiers_supported,omitempty"`
	Display                        []Display   `json:"display,omitempty"`

	CredentialConfigurationsSupported map[string]CredentialConfiguration `json:"credential_configurations_supported" validate:"required,min=1"`
}

func (m CredentialIssuerMetadata) IsValid() error {
	return validation.Struct(m)
}

// Configurations returns the format profile of every credential configuration, keyed by its id.
func (m CredentialIssuerMetadata) Configurations() map[string]profile.Configuration {
	return lo.MapValues(m.CredentialConfigurationsSupported, func(c CredentialConfiguration, _ string) profile.Configuration {
		return c.Configuration
	})
}

// Configuration returns the credential configuration with the given id.
func (m CredentialIssuerMetadata) Configuration(id string) (*CredentialConfiguration, error) {
	c, ok := m.CredentialConfigurationsSupported[id]
	if !ok {
		return nil, errors.Wrapf(variant.ErrUnknownConfiguration, "credential configuration<%s>", id)
	}
	return &c, nil
}

// ConfigurationsForScope returns the ids of the configurations requested by an OAuth scope value.
func (m CredentialIssuerMetadata) ConfigurationsForScope(scope string) []string {
	scopes := strings.Fields(scope)
	ids := lo.Filter(lo.Keys(m.CredentialConfigurationsSupported), func(id string, _ int) bool {
		c := m.CredentialConfigurationsSupported[id]
		return c.Scope != "" && lo.Contains(scopes, c.Scope)
	})
	sort.Strings(ids)
	return ids
}

// AuthorizationServer returns the authorization server to use, which is the issuer itself unless it
// names others.
func (m CredentialIssuerMetadata) AuthorizationServer() string {
	if len(m.AuthorizationServers) > 0 {
		return m.AuthorizationServers[0]
	}
	return m.CredentialIssuer
}

// MetadataURL returns the well-known metadata URL of a credential issuer identifier, which may carry a path.
func MetadataURL(issuer string) string {
	return strings.TrimSuffix(issuer, "/") + WellKnownPath
}
