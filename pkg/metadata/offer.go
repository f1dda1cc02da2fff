package metadata

import (
	"net/url"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/tbd54566975/oid4vci/internal/validation"
	"github.com/tbd54566975/oid4vci/pkg/variant"
)

const (
	// OfferScheme is the URI scheme of credential offers passed to a wallet by reference or by value.
	OfferScheme = "openid-credential-offer"

	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypePreAuthorizedCode = "urn:ietf:params:oauth:grant-type:pre-authorized_code"

	TxCodeInputModeNumeric = "numeric"
	TxCodeInputModeText    = "text"
)

// CredentialOffer is sent by an issuer to start issuance of the listed credential configurations.
type CredentialOffer struct {
	CredentialIssuer           string   `json:"credential_issuer" validate:"required,url"`
	CredentialConfigurationIDs []string `json:"credential_configuration_ids" validate:"required,min=1,dive,required"`
	Grants                     *Grants  `json:"grants,omitempty"`
}

type Grants struct {
	AuthorizationCode *AuthorizationCodeGrant `json:"authorization_code,omitempty"`
	PreAuthorizedCode *PreAuthorizedCodeGrant `json:"urn:ietf:params:oauth:grant-type:pre-authorized_code,omitempty"`
}

type AuthorizationCodeGrant struct {
	// IssuerState binds the authorization request to this offer.
	IssuerState         string `json:"issuer_state,omitempty"`
	AuthorizationServer string `json:"authorization_server,omitempty" validate:"omitempty,url"`
}

type PreAuthorizedCodeGrant struct {
	PreAuthorizedCode string `json:"pre-authorized_code" validate:"required"`
	// TxCode is present when the token request must carry a transaction code sent out of band.
	TxCode              *TxCode `json:"tx_code,omitempty"`
	Interval            int     `json:"interval,omitempty" validate:"gte=0"`
	AuthorizationServer string  `json:"authorization_server,omitempty" validate:"omitempty,url"`
}

type TxCode struct {
	InputMode   string `json:"input_mode,omitempty" validate:"omitempty,oneof=numeric text"`
	Length      int    `json:"length,omitempty" validate:"gte=0"`
	Description string `json:"description,omitempty" validate:"max=300"`
}

func (o CredentialOffer) IsValid() error {
	return validation.Struct(o)
}

// Check verifies the offer against the metadata of the issuer it names.
func (o CredentialOffer) Check(m CredentialIssuerMetadata) error {
	if o.CredentialIssuer != m.CredentialIssuer {
		return errors.Wrapf(ErrIssuerMismatch, "offer from<%s>, metadata of<%s>", o.CredentialIssuer, m.CredentialIssuer)
	}
	unknown := lo.Filter(o.CredentialConfigurationIDs, func(id string, _ int) bool {
		_, ok := m.CredentialConfigurationsSupported[id]
		return !ok
	})
	if len(unknown) > 0 {
		return errors.Wrapf(variant.ErrUnknownConfiguration, "offered configurations %v", unknown)
	}
	grantServers := []string{}
	if o.Grants != nil && o.Grants.AuthorizationCode != nil && o.Grants.AuthorizationCode.AuthorizationServer != "" {
		grantServers = append(grantServers, o.Grants.AuthorizationCode.AuthorizationServer)
	}
	if o.Grants != nil && o.Grants.PreAuthorizedCode != nil && o.Grants.PreAuthorizedCode.AuthorizationServer != "" {
		grantServers = append(grantServers, o.Grants.PreAuthorizedCode.AuthorizationServer)
	}
	for _, server := range grantServers {
		if !lo.Contains(m.AuthorizationServers, server) {
			return errors.Errorf("grant authorization server<%s> is not listed in the issuer metadata", server)
		}
	}
	return nil
}

// OfferReference is a credential offer received by a wallet. It carries either the offer itself or the
// URI to fetch it from.
type OfferReference struct {
	Offer *CredentialOffer
	URI   string
}

// ParseOfferURI parses an offer URI such as openid-credential-offer://?credential_offer=... Any scheme is
// accepted so that issuers can use https links.
func ParseOfferURI(uri string) (*OfferReference, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, errors.Wrap(err, "parsing credential offer uri")
	}
	query := u.Query()
	byValue, byReference := query.Get("credential_offer"), query.Get("credential_offer_uri")
	switch {
	case byValue != "" && byReference != "":
		return nil, errors.New("credential_offer and credential_offer_uri cannot both be present")
	case byValue != "":
		var offer CredentialOffer
		if err = json.Unmarshal([]byte(byValue), &offer); err != nil {
			return nil, errors.Wrap(err, "parsing credential_offer")
		}
		if err = offer.IsValid(); err != nil {
			return nil, errors.Wrap(err, "invalid credential offer")
		}
		return &OfferReference{Offer: &offer}, nil
	case byReference != "":
		ref, err := url.Parse(byReference)
		if err != nil || ref.Scheme != "https" {
			return nil, errors.Errorf("credential_offer_uri<%s> must be an https url", byReference)
		}
		return &OfferReference{URI: byReference}, nil
	}
	return nil, errors.New("one of credential_offer or credential_offer_uri must be present")
}

// URI encodes the offer by value.
func (o CredentialOffer) URI() (string, error) {
	if err := o.IsValid(); err != nil {
		return "", errors.Wrap(err, "invalid credential offer")
	}
	data, err := json.Marshal(o)
	if err != nil {
		return "", errors.Wrap(err, "marshalling credential offer")
	}
	return OfferScheme + "://?" + url.Values{"credential_offer": {string(data)}}.Encode(), nil
}
