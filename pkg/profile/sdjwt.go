package profile

import (
	"encoding/base64"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

type SDJWTConfiguration struct {
	CredentialSigningAlgValuesSupported []string `json:"credential_signing_alg_values_supported,omitempty"`
	VCT                                 string   `json:"vct" validate:"required"`
	Claims                              Claims   `json:"claims,omitempty"`
	Order                               []string `json:"order,omitempty"`
}

func (*SDJWTConfiguration) Format() Format { return FormatSDJWT }
func (*SDJWTConfiguration) configuration() {}

func (c *SDJWTConfiguration) DefaultRequest() Request {
	return &SDJWTRequest{VCT: c.VCT}
}

type SDJWTAuthorizationDetail struct {
	VCT    string `json:"vct" validate:"required"`
	Claims Claims `json:"claims,omitempty"`
}

func (*SDJWTAuthorizationDetail) Format() Format      { return FormatSDJWT }
func (*SDJWTAuthorizationDetail) authorizationDetail() {}

type SDJWTAuthorizationDetailByID struct {
	Claims Claims `json:"claims,omitempty"`
}

func (*SDJWTAuthorizationDetailByID) Format() Format          { return FormatSDJWT }
func (*SDJWTAuthorizationDetailByID) authorizationDetailByID() {}

type SDJWTRequest struct {
	VCT    string `json:"vct" validate:"required"`
	Claims Claims `json:"claims,omitempty"`
}

func (*SDJWTRequest) Format() Format { return FormatSDJWT }
func (*SDJWTRequest) request()       {}

type SDJWTRequestByID struct {
	Claims Claims `json:"claims,omitempty"`
}

func (*SDJWTRequestByID) Format() Format { return FormatSDJWT }
func (*SDJWTRequestByID) requestByID()   {}

const sdJWTSeparator = "~"

// SDJWTCredential is an SD-JWT in combined issuance format: <issuer-jwt>~<disclosure>~...~[<kb-jwt>].
type SDJWTCredential string

func (SDJWTCredential) Format() Format { return FormatSDJWT }
func (SDJWTCredential) credential()    {}

// Split separates the issuer-signed JWT, the disclosures and the optional key binding JWT.
func (c SDJWTCredential) Split() (issuerJWT string, disclosures []string, keyBinding string, err error) {
	parts := strings.Split(string(c), sdJWTSeparator)
	if len(parts) < 2 || parts[0] == "" {
		return "", nil, "", errors.New("malformed sd-jwt: missing issuer jwt or separator")
	}
	issuerJWT = parts[0]
	keyBinding = parts[len(parts)-1]
	for _, d := range parts[1 : len(parts)-1] {
		if d == "" {
			return "", nil, "", errors.New("malformed sd-jwt: empty disclosure")
		}
		disclosures = append(disclosures, d)
	}
	return issuerJWT, disclosures, keyBinding, nil
}

// Disclosure is a decoded disclosure: [salt, name, value] for object properties or [salt, value]
// for array elements.
type Disclosure struct {
	Salt  string
	Name  string
	Value any
}

// Disclosures decodes every disclosure in the credential.
func (c SDJWTCredential) Disclosures() ([]Disclosure, error) {
	_, encoded, _, err := c.Split()
	if err != nil {
		return nil, err
	}
	decoded := make([]Disclosure, 0, len(encoded))
	for _, e := range encoded {
		raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(e, "="))
		if err != nil {
			return nil, errors.Wrap(err, "decoding disclosure")
		}
		var elements []any
		if err = json.Unmarshal(raw, &elements); err != nil {
			return nil, errors.Wrap(err, "disclosure is not a json array")
		}
		var d Disclosure
		switch len(elements) {
		case 2:
			d.Value = elements[1]
		case 3:
			name, ok := elements[1].(string)
			if !ok {
				return nil, errors.New("disclosure claim name is not a string")
			}
			d.Name, d.Value = name, elements[2]
		default:
			return nil, errors.Errorf("disclosure has %d elements, expected 2 or 3", len(elements))
		}
		salt, ok := elements[0].(string)
		if !ok {
			return nil, errors.New("disclosure salt is not a string")
		}
		d.Salt = salt
		decoded = append(decoded, d)
	}
	return decoded, nil
}
