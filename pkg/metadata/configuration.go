package metadata

import (
	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/tbd54566975/oid4vci/pkg/profile"
	"github.com/tbd54566975/oid4vci/pkg/variant"
)

const (
	fieldScope          = "scope"
	fieldBindingMethods = "cryptographic_binding_methods_supported"
	fieldProofTypes     = "proof_types_supported"
	fieldDisplay        = "display"
)

var configurationEnvelope = []string{variant.FieldFormat, fieldScope, fieldBindingMethods, fieldProofTypes, fieldDisplay}

// Logo is an image shown with a credential or issuer.
type Logo struct {
	URI     string `json:"uri"`
	AltText string `json:"alt_text,omitempty"`
}

// Display is how a credential or issuer is presented in one locale.
type Display struct {
	Name            string `json:"name,omitempty"`
	Locale          string `json:"locale,omitempty"`
	Logo            *Logo  `json:"logo,omitempty"`
	Description     string `json:"description,omitempty"`
	BackgroundColor string `json:"background_color,omitempty"`
	TextColor       string `json:"text_color,omitempty"`
}

// ProofType describes a supported key proof type.
type ProofType struct {
	ProofSigningAlgValuesSupported []string `json:"proof_signing_alg_values_supported"`
}

// CredentialConfiguration is an entry of credential_configurations_supported: a format profile plus the
// members every format shares.
type CredentialConfiguration struct {
	profile.Configuration

	Scope                                string               `json:"scope,omitempty"`
	CryptographicBindingMethodsSupported []string             `json:"cryptographic_binding_methods_supported,omitempty"`
	ProofTypesSupported                  map[string]ProofType `json:"proof_types_supported,omitempty"`
	Display                              []Display            `json:"display,omitempty"`
}

// SupportsProofType reports whether the configuration accepts proofs of the given type. A configuration
// that lists no proof types accepts none.
func (c CredentialConfiguration) SupportsProofType(proofType string) bool {
	_, ok := c.ProofTypesSupported[proofType]
	return ok
}

func (c CredentialConfiguration) MarshalJSON() ([]byte, error) {
	if c.Configuration == nil {
		return nil, errors.New("credential configuration has no format profile")
	}
	fields, err := variant.EncodeProfile(c.Configuration)
	if err != nil {
		return nil, err
	}
	if fields[variant.FieldFormat], err = json.Marshal(c.Configuration.Format()); err != nil {
		return nil, err
	}

	type shared struct {
		Scope                                string               `json:"scope,omitempty"`
		CryptographicBindingMethodsSupported []string             `json:"cryptographic_binding_methods_supported,omitempty"`
		ProofTypesSupported                  map[string]ProofType `json:"proof_types_supported,omitempty"`
		Display                              []Display            `json:"display,omitempty"`
	}
	env, err := variant.EncodeProfile(shared{
		Scope:                                c.Scope,
		CryptographicBindingMethodsSupported: c.CryptographicBindingMethodsSupported,
		ProofTypesSupported:                  c.ProofTypesSupported,
		Display:                              c.Display,
	})
	if err != nil {
		return nil, err
	}
	return variant.Join(env, fields)
}

func (c *CredentialConfiguration) UnmarshalJSON(data []byte) error {
	env, rest, err := variant.Split(data, configurationEnvelope...)
	if err != nil {
		return err
	}
	if !env.Has(variant.FieldFormat) {
		return errors.Wrapf(variant.ErrMissingDiscriminator, "credential configuration requires %q", variant.FieldFormat)
	}
	var format profile.Format
	if err = json.Unmarshal(env[variant.FieldFormat], &format); err != nil {
		return errors.Wrapf(err, "field %q must be a string", variant.FieldFormat)
	}
	configuration, err := profile.NewConfiguration(format)
	if err != nil {
		return err
	}
	if err = variant.DecodeProfile(format, rest, configuration); err != nil {
		return err
	}

	parsed := CredentialConfiguration{Configuration: configuration}
	members := map[string]any{
		fieldScope:          &parsed.Scope,
		fieldBindingMethods: &parsed.CryptographicBindingMethodsSupported,
		fieldProofTypes:     &parsed.ProofTypesSupported,
		fieldDisplay:        &parsed.Display,
	}
	for name, target := range members {
		if !env.Has(name) {
			continue
		}
		if err = json.Unmarshal(env[name], target); err != nil {
			return errors.Wrapf(err, "parsing %s", name)
		}
	}
	*c = parsed
	return nil
}
