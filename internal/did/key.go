package did

import (
	"github.com/TBD54566975/ssi-sdk/crypto"
	"github.com/TBD54566975/ssi-sdk/crypto/jwx"
	didsdk "github.com/TBD54566975/ssi-sdk/did"
	sdkutil "github.com/TBD54566975/ssi-sdk/util"
	"github.com/goccy/go-json"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/mr-tron/base58"
	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-varint"
	"github.com/pkg/errors"

	"github.com/tbd54566975/oid4vci/internal/util"
)

// multicodec identifiers of the public key types found in multibase encoded verification methods
// https://github.com/multiformats/multicodec/blob/master/table.csv
const (
	secp256k1PubCodec uint64 = 0xe7
	x25519PubCodec    uint64 = 0xec
	ed25519PubCodec   uint64 = 0xed
	p256PubCodec      uint64 = 0x1200
	p384PubCodec      uint64 = 0x1201
	p521PubCodec      uint64 = 0x1202
)

var codecKeyTypes = map[uint64]crypto.KeyType{
	secp256k1PubCodec: crypto.SECP256k1,
	x25519PubCodec:    crypto.X25519,
	ed25519PubCodec:   crypto.Ed25519,
	p256PubCodec:      crypto.P256,
	p384PubCodec:      crypto.P384,
	p521PubCodec:      crypto.P521,
}

// verification method types whose base58 key material is untagged
var base58KeyTypes = map[string]crypto.KeyType{
	"Ed25519VerificationKey2018":        crypto.Ed25519,
	"Ed25519VerificationKey2020":        crypto.Ed25519,
	"X25519KeyAgreementKey2019":         crypto.X25519,
	"X25519KeyAgreementKey2020":         crypto.X25519,
	"EcdsaSecp256k1VerificationKey2019": crypto.SECP256k1,
}

// FindVerificationMethod selects the verification method a DID URL dereferences to. A DID URL with a
// fragment must match a method by absolute id or by relative fragment; a bare DID selects the first method.
func FindVerificationMethod(doc didsdk.Document, didURL string) (*didsdk.VerificationMethod, error) {
	if len(doc.VerificationMethod) == 0 {
		return nil, errors.Errorf("did doc<%s> has no verification methods", doc.ID)
	}
	_, fragment := util.SplitDIDURL(didURL)
	if fragment == "" {
		return &doc.VerificationMethod[0], nil
	}
	for i, method := range doc.VerificationMethod {
		switch method.ID {
		case didURL, "#" + fragment, doc.ID + "#" + fragment:
			return &doc.VerificationMethod[i], nil
		}
	}
	return nil, errors.Errorf("did doc<%s> has no verification method<%s>", doc.ID, util.SanitizeLog(didURL))
}

// KeyFromVerificationMethod extracts the public key of a verification method as a JWK. Keys expressed
// as JWKs, as multibase multicodec values, or as base58 values of a known method type are supported.
func KeyFromVerificationMethod(method didsdk.VerificationMethod) (jwk.Key, error) {
	var (
		key jwk.Key
		err error
	)
	switch {
	case method.PublicKeyJWK != nil:
		jwkBytes, marshalErr := json.Marshal(method.PublicKeyJWK)
		if marshalErr != nil {
			return nil, errors.Wrap(marshalErr, "marshalling verification method jwk")
		}
		if key, err = jwk.ParseKey(jwkBytes); err != nil {
			return nil, errors.Wrap(err, "parsing verification method jwk")
		}
	case method.PublicKeyMultibase != "":
		keyType, pubKeyBytes, mbErr := multibaseToPubKeyBytes(method.PublicKeyMultibase)
		if mbErr != nil {
			return nil, mbErr
		}
		if key, err = bytesToJWK(method.ID, pubKeyBytes, keyType); err != nil {
			return nil, err
		}
	case method.PublicKeyBase58 != "":
		keyType, ok := base58KeyTypes[string(method.Type)]
		if !ok {
			return nil, errors.Errorf("unsupported base58 verification method type<%s>", method.Type)
		}
		pubKeyBytes, b58Err := base58.Decode(method.PublicKeyBase58)
		if b58Err != nil {
			return nil, errors.Wrap(b58Err, "decoding base58 public key")
		}
		if key, err = bytesToJWK(method.ID, pubKeyBytes, keyType); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Errorf("no public key found in verification method<%s>", method.ID)
	}

	if key.KeyID() == "" && method.ID != "" {
		if err = key.Set(jwk.KeyIDKey, method.ID); err != nil {
			return nil, errors.Wrap(err, "setting key id")
		}
	}
	return key, nil
}

func bytesToJWK(kid string, pubKeyBytes []byte, keyType crypto.KeyType) (jwk.Key, error) {
	pubKey, err := crypto.BytesToPubKey(pubKeyBytes, keyType)
	if err != nil {
		return nil, errors.Wrapf(err, "converting bytes to %s public key", keyType)
	}
	publicKeyJWK, err := jwx.PublicKeyToPublicKeyJWK(kid, pubKey)
	if err != nil {
		return nil, errors.Wrapf(err, "converting %s public key to jwk", keyType)
	}
	jwkBytes, err := json.Marshal(publicKeyJWK)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling jwk")
	}
	return jwk.ParseKey(jwkBytes)
}

// multibaseToPubKeyBytes decodes a base58btc multibase multicodec public key into its key type and raw bytes
func multibaseToPubKeyBytes(mb string) (crypto.KeyType, []byte, error) {
	encoding, decoded, err := multibase.Decode(mb)
	if err != nil {
		return "", nil, sdkutil.LoggingErrorMsg(err, "could not decode multibase public key")
	}
	if encoding != multibase.Base58BTC {
		return "", nil, sdkutil.LoggingNewErrorf("expected %d encoding but found %d", multibase.Base58BTC, encoding)
	}

	codec, n, err := varint.FromUvarint(decoded)
	if err != nil {
		return "", nil, errors.Wrap(err, "reading multicodec prefix")
	}
	keyType, ok := codecKeyTypes[codec]
	if !ok {
		return "", nil, errors.Errorf("unsupported multicodec<%#x>", codec)
	}
	return keyType, decoded[n:], nil
}
