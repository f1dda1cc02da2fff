package profile

import (
	"encoding/base64"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

// MDocClaims maps a namespace to its data elements and their claim descriptions.
type MDocClaims map[string]map[string]any

type MDocConfiguration struct {
	CredentialSigningAlgValuesSupported []string   `json:"credential_signing_alg_values_supported,omitempty"`
	Doctype                             string     `json:"doctype" validate:"required"`
	Claims                              MDocClaims `json:"claims,omitempty"`
	Order                               []string   `json:"order,omitempty"`
}

func (*MDocConfiguration) Format() Format { return FormatMDoc }
func (*MDocConfiguration) configuration() {}

func (c *MDocConfiguration) DefaultRequest() Request {
	return &MDocRequest{Doctype: c.Doctype}
}

type MDocAuthorizationDetail struct {
	Doctype string     `json:"doctype" validate:"required"`
	Claims  MDocClaims `json:"claims,omitempty"`
}

func (*MDocAuthorizationDetail) Format() Format      { return FormatMDoc }
func (*MDocAuthorizationDetail) authorizationDetail() {}

type MDocAuthorizationDetailByID struct {
	Claims MDocClaims `json:"claims,omitempty"`
}

func (*MDocAuthorizationDetailByID) Format() Format          { return FormatMDoc }
func (*MDocAuthorizationDetailByID) authorizationDetailByID() {}

type MDocRequest struct {
	Doctype string     `json:"doctype" validate:"required"`
	Claims  MDocClaims `json:"claims,omitempty"`
}

func (*MDocRequest) Format() Format { return FormatMDoc }
func (*MDocRequest) request()       {}

type MDocRequestByID struct {
	Claims MDocClaims `json:"claims,omitempty"`
}

func (*MDocRequestByID) Format() Format { return FormatMDoc }
func (*MDocRequestByID) requestByID()   {}

// MDocCredential is a base64url encoded CBOR IssuerSigned structure.
type MDocCredential string

func (MDocCredential) Format() Format { return FormatMDoc }
func (MDocCredential) credential()    {}

// IssuerSigned is the issuer-signed part of a mobile document: the per-namespace signed items
// and the COSE_Sign1 issuer authentication over the mobile security object.
type IssuerSigned struct {
	NameSpaces map[string][]cbor.RawMessage `cbor:"nameSpaces"`
	IssuerAuth cbor.RawMessage              `cbor:"issuerAuth"`
}

// IssuerSignedItem is a single disclosed data element.
type IssuerSignedItem struct {
	DigestID          uint64 `cbor:"digestID"`
	Random            []byte `cbor:"random"`
	ElementIdentifier string `cbor:"elementIdentifier"`
	ElementValue      any    `cbor:"elementValue"`
}

// encodedCBORTag is the CBOR tag for an embedded CBOR data item.
const encodedCBORTag = 24

// IssuerSigned decodes the credential. Padded and unpadded base64url are both accepted.
func (c MDocCredential) IssuerSigned() (*IssuerSigned, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(string(c), "="))
	if err != nil {
		return nil, errors.Wrap(err, "decoding base64url mso_mdoc credential")
	}
	var signed IssuerSigned
	if err = cbor.Unmarshal(raw, &signed); err != nil {
		return nil, errors.Wrap(err, "decoding cbor issuer signed structure")
	}
	if len(signed.IssuerAuth) == 0 {
		return nil, errors.New("issuer signed structure has no issuerAuth")
	}
	return &signed, nil
}

// Items decodes the signed items of a namespace.
func (s IssuerSigned) Items(namespace string) ([]IssuerSignedItem, error) {
	encoded, ok := s.NameSpaces[namespace]
	if !ok {
		return nil, errors.Errorf("namespace<%s> not present", namespace)
	}
	items := make([]IssuerSignedItem, 0, len(encoded))
	for i, e := range encoded {
		var tag cbor.Tag
		if err := cbor.Unmarshal(e, &tag); err != nil {
			return nil, errors.Wrapf(err, "decoding item %d of namespace<%s>", i, namespace)
		}
		content, ok := tag.Content.([]byte)
		if tag.Number != encodedCBORTag || !ok {
			return nil, errors.Errorf("item %d of namespace<%s> is not an embedded cbor data item", i, namespace)
		}
		var item IssuerSignedItem
		if err := cbor.Unmarshal(content, &item); err != nil {
			return nil, errors.Wrapf(err, "decoding item %d of namespace<%s>", i, namespace)
		}
		items = append(items, item)
	}
	return items, nil
}
