package profile

import (
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// Format identifies a credential format profile. It is the value carried by the "format" field.
type Format string

const (
	FormatJWTVC Format = "jwt_vc_json"
	FormatJWTLD Format = "jwt_vc_json-ld"
	FormatLDP   Format = "ldp_vc"
	FormatMDoc  Format = "mso_mdoc"
	FormatSDJWT Format = "vc+sd-jwt"
)

var ErrUnknownFormat = errors.New("unknown credential format")

// Formats returns every format in the catalog.
func Formats() []Format {
	return []Format{FormatJWTVC, FormatJWTLD, FormatLDP, FormatMDoc, FormatSDJWT}
}

func (f Format) String() string {
	return string(f)
}

// IsKnown reports whether the format has a profile in the catalog.
func (f Format) IsKnown() bool {
	switch f {
	case FormatJWTVC, FormatJWTLD, FormatLDP, FormatMDoc, FormatSDJWT:
		return true
	}
	return false
}

// Claims is an opaque claim description map. Its contents are not interpreted.
type Claims map[string]any

// Configuration is the profile-specific part of a credential configuration in issuer metadata.
// It is the descriptor consulted when an identifier-addressed payload is resolved.
type Configuration interface {
	Format() Format
	// DefaultRequest derives a format-addressed credential request for this configuration.
	DefaultRequest() Request
	configuration()
}

// AuthorizationDetail is the profile part of a format-addressed authorization_details entry.
type AuthorizationDetail interface {
	Format() Format
	authorizationDetail()
}

// AuthorizationDetailByID is the profile part of an authorization_details entry addressed by
// credential_configuration_id, once its format is known.
type AuthorizationDetailByID interface {
	Format() Format
	authorizationDetailByID()
}

// Request is the profile part of a format-addressed credential request.
type Request interface {
	Format() Format
	request()
}

// RequestByID is the profile part of a credential request addressed by credential_identifier,
// once its format is known.
type RequestByID interface {
	Format() Format
	requestByID()
}

// Credential is an issued credential as carried in a credential response.
type Credential interface {
	Format() Format
	credential()
}

// NewConfiguration returns an empty configuration for the format.
func NewConfiguration(f Format) (Configuration, error) {
	switch f {
	case FormatJWTVC:
		return new(JWTVCConfiguration), nil
	case FormatJWTLD:
		return new(JWTLDConfiguration), nil
	case FormatLDP:
		return new(LDPConfiguration), nil
	case FormatMDoc:
		return new(MDocConfiguration), nil
	case FormatSDJWT:
		return new(SDJWTConfiguration), nil
	}
	return nil, errors.Wrapf(ErrUnknownFormat, "configuration for format<%s>", f)
}

// NewAuthorizationDetail returns an empty format-addressed authorization detail for the format.
func NewAuthorizationDetail(f Format) (AuthorizationDetail, error) {
	switch f {
	case FormatJWTVC:
		return new(JWTVCAuthorizationDetail), nil
	case FormatJWTLD:
		return new(JWTLDAuthorizationDetail), nil
	case FormatLDP:
		return new(LDPAuthorizationDetail), nil
	case FormatMDoc:
		return new(MDocAuthorizationDetail), nil
	case FormatSDJWT:
		return new(SDJWTAuthorizationDetail), nil
	}
	return nil, errors.Wrapf(ErrUnknownFormat, "authorization detail for format<%s>", f)
}

// NewAuthorizationDetailByID returns an empty identifier-addressed authorization detail for the format.
func NewAuthorizationDetailByID(f Format) (AuthorizationDetailByID, error) {
	switch f {
	case FormatJWTVC:
		return new(JWTVCAuthorizationDetailByID), nil
	case FormatJWTLD:
		return new(JWTLDAuthorizationDetailByID), nil
	case FormatLDP:
		return new(LDPAuthorizationDetailByID), nil
	case FormatMDoc:
		return new(MDocAuthorizationDetailByID), nil
	case FormatSDJWT:
		return new(SDJWTAuthorizationDetailByID), nil
	}
	return nil, errors.Wrapf(ErrUnknownFormat, "authorization detail by id for format<%s>", f)
}

// NewRequest returns an empty format-addressed credential request for the format.
func NewRequest(f Format) (Request, error) {
	switch f {
	case FormatJWTVC:
		return new(JWTVCRequest), nil
	case FormatJWTLD:
		return new(JWTLDRequest), nil
	case FormatLDP:
		return new(LDPRequest), nil
	case FormatMDoc:
		return new(MDocRequest), nil
	case FormatSDJWT:
		return new(SDJWTRequest), nil
	}
	return nil, errors.Wrapf(ErrUnknownFormat, "request for format<%s>", f)
}

// NewRequestByID returns an empty identifier-addressed credential request for the format.
func NewRequestByID(f Format) (RequestByID, error) {
	switch f {
	case FormatJWTVC:
		return new(JWTVCRequestByID), nil
	case FormatJWTLD:
		return new(JWTLDRequestByID), nil
	case FormatLDP:
		return new(LDPRequestByID), nil
	case FormatMDoc:
		return new(MDocRequestByID), nil
	case FormatSDJWT:
		return new(SDJWTRequestByID), nil
	}
	return nil, errors.Wrapf(ErrUnknownFormat, "request by id for format<%s>", f)
}

// DecodeCredential decodes the "credential" member of a credential response for the format.
func DecodeCredential(f Format, data []byte) (Credential, error) {
	switch f {
	case FormatJWTVC:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, errors.Wrapf(err, "decoding %s credential", f)
		}
		return JWTVCCredential(s), nil
	case FormatJWTLD:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, errors.Wrapf(err, "decoding %s credential", f)
		}
		return JWTLDCredential(s), nil
	case FormatLDP:
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, errors.Wrapf(err, "decoding %s credential", f)
		}
		if m == nil {
			return nil, errors.Errorf("decoding %s credential: expected an object", f)
		}
		return LDPCredential(m), nil
	case FormatMDoc:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, errors.Wrapf(err, "decoding %s credential", f)
		}
		return MDocCredential(s), nil
	case FormatSDJWT:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, errors.Wrapf(err, "decoding %s credential", f)
		}
		return SDJWTCredential(s), nil
	}
	return nil, errors.Wrapf(ErrUnknownFormat, "credential for format<%s>", f)
}
