package proof

import (
	"crypto"
	"net/url"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

const (
	// JWTType is the JWS "typ" header of a key proof.
	JWTType = "openid4vci-proof+jwt"

	// TypeJWT is the proof_type of a proof carried as a JWT.
	TypeJWT = "jwt"

	DefaultValidity = 5 * time.Minute
)

// DefaultAllowedAlgorithms are the asymmetric JWS algorithms a proof may be signed with.
var DefaultAllowedAlgorithms = []jwa.SignatureAlgorithm{
	jwa.ES256,
	jwa.ES256K,
	jwa.ES384,
	jwa.ES512,
	jwa.EdDSA,
	jwa.PS256,
	jwa.PS384,
	jwa.PS512,
	jwa.RS256,
	jwa.RS384,
	jwa.RS512,
}

// Proof is the proof object of a credential request.
type Proof struct {
	ProofType string `json:"proof_type" validate:"required"`
	JWT       string `json:"jwt,omitempty"`
}

// Body holds the claims of a key proof.
type Body struct {
	Issuer    string     `json:"iss"`
	Audience  string     `json:"aud"`
	NotBefore *Timestamp `json:"nbf,omitempty"`
	IssuedAt  *Timestamp `json:"iat,omitempty"`
	ExpiresAt Timestamp  `json:"exp"`
	// Nonce is the c_nonce supplied by the issuer, carried as the JWT id.
	Nonce string `json:"jti"`
}

// Controller identifies the key a proof is signed with and, when the key was found through a DID,
// the verification method and its controller.
type Controller struct {
	// VerificationMethod is the DID URL of the verification method holding the key.
	VerificationMethod string
	// DID is the controller of the verification method.
	DID string
	Key jwk.Key
	// Signer, when set, signs in place of Key, which then only needs to hold the public key and its
	// "alg". Keys held in a KMS or HSM are used this way.
	Signer crypto.Signer
}

// ProofOfPossession binds a wallet key to one credential issuance transaction.
type ProofOfPossession struct {
	Body       Body
	Controller Controller
}

type GenerateParams struct {
	Audience string
	Issuer   string
	// Nonce defaults to a random value when empty.
	Nonce      string
	Controller Controller
}

type options struct {
	clock   clock.Clock
	allowed []jwa.SignatureAlgorithm
}

type Option func(*options)

// WithClock sets the clock used to stamp and check validity windows.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithAllowedAlgorithms restricts the JWS algorithms accepted when signing and parsing.
func WithAllowedAlgorithms(algs ...jwa.SignatureAlgorithm) Option {
	return func(o *options) {
		o.allowed = algs
	}
}

func newOptions(opts []Option) options {
	o := options{clock: clock.New(), allowed: DefaultAllowedAlgorithms}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) isAllowed(alg jwa.SignatureAlgorithm) bool {
	return lo.Contains(o.allowed, alg)
}

// Generate builds an unsigned proof that is valid from now until now plus validity.
func Generate(params GenerateParams, validity time.Duration, opts ...Option) (*ProofOfPossession, error) {
	if params.Controller.Key == nil {
		return nil, ErrMissingKey
	}
	if aud, err := url.Parse(params.Audience); err != nil || !aud.IsAbs() {
		return nil, errors.Wrapf(ErrInvalidAudience, "audience<%s>", params.Audience)
	}
	o := newOptions(opts)

	now := o.clock.Now()
	issuedAt := NewTimestamp(now)
	notBefore := issuedAt
	nonce := params.Nonce
	if nonce == "" {
		nonce = uuid.NewString()
	}
	return &ProofOfPossession{
		Body: Body{
			Issuer:    params.Issuer,
			Audience:  params.Audience,
			NotBefore: &notBefore,
			IssuedAt:  &issuedAt,
			ExpiresAt: NewTimestamp(now.Add(validity)),
			Nonce:     nonce,
		},
		Controller: params.Controller,
	}, nil
}

// ToJWT signs the proof with the controller key, using the algorithm named by the key. The header
// locates the verification key by the verification method if there is one, else by the key's own id,
// else by embedding the public key.
func (p *ProofOfPossession) ToJWT(opts ...Option) (string, error) {
	key := p.Controller.Key
	if key == nil {
		return "", ErrMissingKey
	}
	if key.Algorithm() == nil || key.Algorithm().String() == "" {
		return "", ErrMissingJWKAlg
	}
	alg := jwa.SignatureAlgorithm(key.Algorithm().String())
	if !newOptions(opts).isAllowed(alg) {
		return "", errors.Wrapf(ErrDisallowedAlgorithm, "alg<%s>", alg)
	}

	hdrs := jws.NewHeaders()
	if err := hdrs.Set(jws.TypeKey, JWTType); err != nil {
		return "", errors.Wrap(err, "setting typ header")
	}
	switch {
	case p.Controller.VerificationMethod != "":
		if err := hdrs.Set(jws.KeyIDKey, p.Controller.VerificationMethod); err != nil {
			return "", errors.Wrap(err, "setting kid header")
		}
	case key.KeyID() != "":
		if err := hdrs.Set(jws.KeyIDKey, key.KeyID()); err != nil {
			return "", errors.Wrap(err, "setting kid header")
		}
	default:
		pub, err := jwk.PublicKeyOf(key)
		if err != nil {
			return "", errors.Wrap(err, "getting public key")
		}
		if err = hdrs.Set(jws.JWKKey, pub); err != nil {
			return "", errors.Wrap(err, "setting jwk header")
		}
	}

	payload, err := json.Marshal(p.Body)
	if err != nil {
		return "", errors.Wrap(err, "marshalling proof body")
	}

	signingKey, err := p.Controller.signingKey()
	if err != nil {
		return "", err
	}
	signed, err := jws.Sign(payload, jws.WithKey(alg, signingKey, jws.WithProtectedHeaders(hdrs)))
	if err != nil {
		return "", errors.Wrap(err, "signing proof")
	}
	return string(signed), nil
}

// signingKey returns the Signer, or the raw private key so the header key locator is not replaced by
// the jwk's own id.
func (c Controller) signingKey() (any, error) {
	if c.Signer != nil {
		return c.Signer, nil
	}
	var raw any
	if err := c.Key.Raw(&raw); err != nil {
		return nil, errors.Wrap(err, "getting raw signing key")
	}
	return raw, nil
}
