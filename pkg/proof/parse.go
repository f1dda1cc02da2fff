package proof

import (
	"context"
	"net/url"

	"github.com/TBD54566975/ssi-sdk/did/resolution"
	"github.com/goccy/go-json"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	didint "github.com/tbd54566975/oid4vci/internal/did"
	"github.com/tbd54566975/oid4vci/internal/util"
)

// KeyResolver dereferences the "kid" of a proof header to the controller of the verification key.
type KeyResolver interface {
	ResolveKey(ctx context.Context, kid string) (*Controller, error)
}

// DIDKeyResolver resolves kids that are DID URLs.
type DIDKeyResolver struct {
	resolver resolution.Resolver
}

var _ KeyResolver = (*DIDKeyResolver)(nil)

func NewDIDKeyResolver(resolver resolution.Resolver) *DIDKeyResolver {
	return &DIDKeyResolver{resolver: resolver}
}

// ResolveKey resolves the DID of the kid and selects the verification method the kid names. A bare DID
// selects the document's first verification method.
func (r *DIDKeyResolver) ResolveKey(ctx context.Context, kid string) (*Controller, error) {
	did, _ := util.SplitDIDURL(kid)
	if _, err := util.GetMethodForDID(did); err != nil {
		return nil, errors.Wrapf(ErrMalformedDID, "kid<%s>: %s", util.SanitizeLog(kid), err)
	}
	if r.resolver == nil {
		return nil, errors.Wrap(ErrKeyResolution, "no DID resolver configured")
	}

	resolved, err := r.resolver.Resolve(ctx, did)
	if err != nil {
		logrus.WithError(err).Debugf("could not resolve DID<%s>", util.SanitizeLog(did))
		return nil, errors.Wrapf(ErrKeyResolution, "resolving DID<%s>: %s", did, err)
	}
	method, err := didint.FindVerificationMethod(resolved.Document, kid)
	if err != nil {
		return nil, errors.Wrapf(ErrKeyResolution, "%s", err)
	}
	key, err := didint.KeyFromVerificationMethod(*method)
	if err != nil {
		return nil, errors.Wrapf(ErrKeyResolution, "verification method<%s> does not contain a usable key: %s", method.ID, err)
	}

	controller := method.Controller
	if controller == "" {
		controller = resolved.Document.ID
	}
	return &Controller{VerificationMethod: kid, DID: controller, Key: key}, nil
}

// FromProof parses the proof object of a credential request. Only JWT proofs are supported.
func FromProof(ctx context.Context, proof Proof, resolver KeyResolver, opts ...Option) (*ProofOfPossession, error) {
	switch proof.ProofType {
	case TypeJWT:
		if proof.JWT == "" {
			return nil, errors.Wrap(ErrMalformedJWT, "jwt proof without a jwt")
		}
		return FromJWT(ctx, proof.JWT, resolver, opts...)
	}
	return nil, errors.Wrapf(ErrUnsupportedProof, "proof_type<%s>", proof.ProofType)
}

// FromJWT parses a proof JWT, locates its verification key and verifies its signature. The claims are
// not checked; see Verify.
func FromJWT(ctx context.Context, token string, resolver KeyResolver, opts ...Option) (*ProofOfPossession, error) {
	msg, err := jws.Parse([]byte(token))
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedJWT, "%s", err)
	}
	signatures := msg.Signatures()
	if len(signatures) != 1 {
		return nil, errors.Wrapf(ErrMalformedJWT, "expected 1 signature, got %d", len(signatures))
	}
	headers := signatures[0].ProtectedHeaders()

	if headers.Type() != JWTType {
		return nil, errors.Wrapf(ErrInvalidType, "got<%s>", headers.Type())
	}
	alg := headers.Algorithm()
	if alg == jwa.NoSignature {
		return nil, ErrAlgorithmNone
	}
	if !newOptions(opts).isAllowed(alg) {
		return nil, errors.Wrapf(ErrDisallowedAlgorithm, "alg<%s>", alg)
	}

	controller, err := locateKey(ctx, headers, resolver)
	if err != nil {
		return nil, err
	}

	var raw any
	if err = controller.Key.Raw(&raw); err != nil {
		return nil, errors.Wrapf(ErrKeyResolution, "getting raw verification key: %s", err)
	}
	payload, err := jws.Verify([]byte(token), jws.WithKey(alg, raw))
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidSignature, "%s", err)
	}

	var body Body
	if err = json.Unmarshal(payload, &body); err != nil {
		return nil, errors.Wrapf(ErrMalformedJWT, "decoding claims: %s", err)
	}
	if aud, err := url.Parse(body.Audience); err != nil || !aud.IsAbs() {
		return nil, errors.Wrapf(ErrMalformedJWT, "aud<%s> must be an absolute URL", util.SanitizeLog(body.Audience))
	}
	return &ProofOfPossession{Body: body, Controller: *controller}, nil
}

// locateKey requires exactly one of kid, jwk and x5c in the header. An empty kid still counts as present.
func locateKey(ctx context.Context, headers jws.Headers, resolver KeyResolver) (*Controller, error) {
	kid, embedded, chain := headers.KeyID(), headers.JWK(), headers.X509CertChain()
	_, hasKID := headers.Get(jws.KeyIDKey)
	present := 0
	for _, ok := range []bool{hasKID, embedded != nil, chain != nil} {
		if ok {
			present++
		}
	}
	switch {
	case present == 0:
		return nil, ErrMissingKeyParameters
	case present > 1:
		return nil, ErrTooManyKeyParameters
	case chain != nil:
		return nil, ErrCertificateChainUnsupported
	case embedded != nil:
		pub, err := jwk.PublicKeyOf(embedded)
		if err != nil {
			return nil, errors.Wrapf(ErrKeyResolution, "embedded jwk: %s", err)
		}
		return &Controller{Key: pub}, nil
	}

	if resolver == nil {
		return nil, errors.Wrap(ErrKeyResolution, "no key resolver for kid")
	}
	controller, err := resolver.ResolveKey(ctx, kid)
	if err != nil {
		if errors.Is(err, ErrMalformedDID) || errors.Is(err, ErrKeyResolution) {
			return nil, err
		}
		return nil, errors.Wrapf(ErrKeyResolution, "kid<%s>: %s", util.SanitizeLog(kid), err)
	}
	if controller == nil || controller.Key == nil {
		return nil, errors.Wrapf(ErrKeyResolution, "no key for kid<%s>", util.SanitizeLog(kid))
	}
	return controller, nil
}
