package proof

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// construction errors
var (
	ErrMissingJWKAlg       = errors.New("unable to select JWT algorithm, please specify in JWK")
	ErrMissingKey          = errors.New("controller key cannot be nil")
	ErrInvalidAudience     = errors.New("audience must be an absolute URL")
	ErrUnsupportedProof    = errors.New("unsupported proof type")
	ErrDisallowedAlgorithm = errors.New("algorithm is not allowed")
)

// parsing errors
var (
	ErrMalformedJWT                = errors.New("malformed proof jwt")
	ErrInvalidType                 = errors.New("invalid JWS header type, must be " + JWTType)
	ErrAlgorithmNone               = errors.New("algorithm cannot be none")
	ErrMissingKeyParameters        = errors.New("jwt header must contain one of: kid, jwk, x5c")
	ErrTooManyKeyParameters        = errors.New("exactly one of the following parameters needs to be present: kid, jwk, x5c")
	ErrCertificateChainUnsupported = errors.New("x5c key parameter is not supported")
	ErrMalformedDID                = errors.New("malformed did")
	ErrKeyResolution               = errors.New("could not resolve key")
	ErrInvalidSignature            = errors.New("invalid proof signature")
)

// verification errors
var (
	ErrNotYetValid      = errors.New("proof of possession is not yet valid")
	ErrExpired          = errors.New("proof of possession has expired")
	ErrIssuerMismatch   = errors.New("issuer does not match")
	ErrAudienceMismatch = errors.New("audience does not match")
	ErrKeyMismatch      = errors.New("JWK does not match")
	ErrDIDMismatch      = errors.New("DID does not match")
	ErrNonceMismatch    = errors.New("nonce does not match")
)

var invalidProofErrors = []error{
	ErrUnsupportedProof,
	ErrDisallowedAlgorithm,
	ErrMalformedJWT,
	ErrInvalidType,
	ErrAlgorithmNone,
	ErrMissingKeyParameters,
	ErrTooManyKeyParameters,
	ErrCertificateChainUnsupported,
	ErrMalformedDID,
	ErrKeyResolution,
	ErrInvalidSignature,
	ErrNotYetValid,
	ErrExpired,
	ErrIssuerMismatch,
	ErrAudienceMismatch,
	ErrKeyMismatch,
	ErrDIDMismatch,
	ErrNonceMismatch,
}

// IsInvalidProof reports whether err rejects a received proof, as opposed to a failure to build one.
func IsInvalidProof(err error) bool {
	if err == nil {
		return false
	}
	return lo.ContainsBy(invalidProofErrors, func(target error) bool {
		return errors.Is(err, target)
	})
}
