package credential

import (
	"github.com/goccy/go-json"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/pkg/errors"

	"github.com/tbd54566975/oid4vci/internal/validation"
	"github.com/tbd54566975/oid4vci/pkg/profile"
	"github.com/tbd54566975/oid4vci/pkg/proof"
	"github.com/tbd54566975/oid4vci/pkg/variant"
)

const (
	fieldProof      = "proof"
	fieldProofs     = "proofs"
	fieldEncryption = "credential_response_encryption"
)

var (
	ErrMissingProofJWT   = errors.New("proof of type jwt must carry a jwt")
	ErrTooManyProofs     = errors.New("proof and proofs cannot both be present")
	ErrInvalidEncryption = errors.New("invalid credential response encryption")
)

// Object is the profile-bearing part of a credential request.
type Object = variant.Object[profile.Request, profile.RequestByID]

// Proofs carries several key proofs of the same type, one credential being issued per proof.
type Proofs struct {
	JWT []string `json:"jwt" validate:"required,min=1,dive,required"`
}

// Encryption asks the issuer to encrypt the credential response to the given key.
type Encryption struct {
	JWK json.RawMessage `json:"jwk" validate:"required"`
	Alg string          `json:"alg" validate:"required"`
	Enc string          `json:"enc" validate:"required"`
}

// Key parses the encryption key. It must be a public key.
func (e Encryption) Key() (jwk.Key, error) {
	key, err := jwk.ParseKey(e.JWK)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidEncryption, err.Error())
	}
	if key.KeyType() == jwa.OctetSeq {
		return nil, errors.Wrap(ErrInvalidEncryption, "jwk must be an asymmetric key")
	}
	if _, isPrivate := key.Get("d"); isPrivate {
		return nil, errors.Wrap(ErrInvalidEncryption, "jwk must be a public key")
	}
	return key, nil
}

// Request is a request to the credential endpoint. It is addressed either by format or, when the token
// response listed credential identifiers, by credential_identifier.
type Request struct {
	Object

	// Proof is a proof of possession of the key the credential is bound to.
	Proof      *proof.Proof
	Proofs     *Proofs
	Encryption *Encryption
}

func NewWithFormat(payload profile.Request) Request {
	return Request{Object: variant.CredentialRequests.WithFormat(payload)}
}

func NewWithID(id string, payload profile.RequestByID) Request {
	return Request{Object: variant.CredentialRequests.WithID(id, payload)}
}

func NewUnresolved(id string, fields map[string]any) (Request, error) {
	obj, err := variant.CredentialRequests.Unresolved(id, fields)
	if err != nil {
		return Request{}, err
	}
	return Request{Object: obj}, nil
}

// ForConfiguration builds the default format-addressed request for a credential configuration.
func ForConfiguration(configuration profile.Configuration) Request {
	return NewWithFormat(configuration.DefaultRequest())
}

// NewJWTProof wraps a signed proof JWT as a credential request proof.
func NewJWTProof(token string) *proof.Proof {
	return &proof.Proof{ProofType: proof.TypeJWT, JWT: token}
}

// Resolve types an unresolved request against the issuer's credential configurations.
func (r Request) Resolve(configurations map[string]profile.Configuration) (Request, error) {
	obj, err := variant.CredentialRequests.Resolve(r.Object, configurations)
	if err != nil {
		return Request{}, err
	}
	resolved := r
	resolved.Object = obj
	return resolved, nil
}

func (r Request) IsValid() error {
	if r.Kind() == 0 {
		return variant.ErrEmptyVariant
	}
	if r.Proof != nil && r.Proofs != nil {
		return ErrTooManyProofs
	}
	if r.Proof != nil {
		if err := validation.Struct(r.Proof); err != nil {
			return errors.Wrap(err, "invalid proof")
		}
		if r.Proof.ProofType == proof.TypeJWT && r.Proof.JWT == "" {
			return ErrMissingProofJWT
		}
	}
	if r.Proofs != nil {
		if err := validation.Struct(r.Proofs); err != nil {
			return errors.Wrap(err, "invalid proofs")
		}
	}
	if r.Encryption != nil {
		if err := validation.Struct(r.Encryption); err != nil {
			return errors.Wrap(ErrInvalidEncryption, err.Error())
		}
	}
	return nil
}

func (r Request) MarshalJSON() ([]byte, error) {
	if err := r.IsValid(); err != nil {
		return nil, err
	}
	env := variant.Fields{}
	var err error
	if r.Proof != nil {
		if env[fieldProof], err = json.Marshal(r.Proof); err != nil {
			return nil, errors.Wrap(err, "marshalling proof")
		}
	}
	if r.Proofs != nil {
		if env[fieldProofs], err = json.Marshal(r.Proofs); err != nil {
			return nil, errors.Wrap(err, "marshalling proofs")
		}
	}
	if r.Encryption != nil {
		if env[fieldEncryption], err = json.Marshal(r.Encryption); err != nil {
			return nil, errors.Wrap(err, "marshalling credential response encryption")
		}
	}
	return variant.CredentialRequests.Marshal(r.Object, env)
}

func (r *Request) UnmarshalJSON(data []byte) error {
	env, obj, err := variant.CredentialRequests.Parse(data)
	if err != nil {
		return err
	}
	parsed := Request{Object: obj}
	if env.Has(fieldProof) {
		if err = json.Unmarshal(env[fieldProof], &parsed.Proof); err != nil {
			return errors.Wrap(err, "parsing proof")
		}
	}
	if env.Has(fieldProofs) {
		if err = json.Unmarshal(env[fieldProofs], &parsed.Proofs); err != nil {
			return errors.Wrap(err, "parsing proofs")
		}
	}
	if env.Has(fieldEncryption) {
		if err = json.Unmarshal(env[fieldEncryption], &parsed.Encryption); err != nil {
			return errors.Wrap(ErrInvalidEncryption, err.Error())
		}
	}
	if err = parsed.IsValid(); err != nil {
		return err
	}
	*r = parsed
	return nil
}
