package proof

import (
	"crypto"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/pkg/errors"
)

// VerifyParams are the expectations a proof is checked against. Tolerances allow for clock skew.
type VerifyParams struct {
	Issuer   string
	Audience string
	// Nonce, when set, must equal the proof's jti.
	Nonce string
	// ExpectedKey, when set, must be the key the proof was verified with.
	ExpectedKey jwk.Key
	// ExpectedDID, when set, must be the DID controlling the verification key.
	ExpectedDID  string
	NBFTolerance time.Duration
	EXPTolerance time.Duration
}

// Verify checks the claims and controller of a parsed proof. Checks run in a fixed order and the first
// failure is returned.
func (p *ProofOfPossession) Verify(params VerifyParams, opts ...Option) error {
	now := newOptions(opts).clock.Now()

	if p.Body.NotBefore != nil {
		if nbf := p.Body.NotBefore.Time(); now.Add(params.NBFTolerance).Before(nbf) {
			return errors.Wrapf(ErrNotYetValid, "not before %s", nbf.Format(time.RFC3339))
		}
	}
	if exp := p.Body.ExpiresAt.Time(); now.Add(-params.EXPTolerance).After(exp) {
		return errors.Wrapf(ErrExpired, "expired at %s", exp.Format(time.RFC3339))
	}
	if p.Body.Issuer != params.Issuer {
		return errors.Wrapf(ErrIssuerMismatch, "must be '%s'", params.Issuer)
	}
	if p.Body.Audience != params.Audience {
		return errors.Wrapf(ErrAudienceMismatch, "must be '%s'", params.Audience)
	}
	if params.ExpectedKey != nil {
		same, err := sameKey(params.ExpectedKey, p.Controller.Key)
		if err != nil {
			return errors.Wrapf(ErrKeyMismatch, "%s", err)
		}
		if !same {
			return ErrKeyMismatch
		}
	}
	if params.ExpectedDID != "" && params.ExpectedDID != p.Controller.DID {
		return errors.Wrapf(ErrDIDMismatch, "must be %s", params.ExpectedDID)
	}
	if params.Nonce != "" && params.Nonce != p.Body.Nonce {
		return ErrNonceMismatch
	}
	return nil
}

// sameKey compares the thumbprints of the public parts of two keys.
func sameKey(a, b jwk.Key) (bool, error) {
	if a == nil || b == nil {
		return false, nil
	}
	aPub, err := jwk.PublicKeyOf(a)
	if err != nil {
		return false, err
	}
	bPub, err := jwk.PublicKeyOf(b)
	if err != nil {
		return false, err
	}
	aThumb, err := aPub.Thumbprint(crypto.SHA256)
	if err != nil {
		return false, err
	}
	bThumb, err := bPub.Thumbprint(crypto.SHA256)
	if err != nil {
		return false, err
	}
	return string(aThumb) == string(bThumb), nil
}
