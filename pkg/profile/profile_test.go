package profile

import (
	"encoding/base64"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormats(t *testing.T) {
	for _, f := range Formats() {
		assert.True(t, f.IsKnown(), f)
	}
	assert.False(t, Format("spruce-vc+sd-jwt").IsKnown())
	assert.False(t, Format("").IsKnown())
}

func TestConstructorsSelectMatchingArm(t *testing.T) {
	for _, f := range Formats() {
		t.Run(f.String(), func(tt *testing.T) {
			c, err := NewConfiguration(f)
			require.NoError(tt, err)
			assert.Equal(tt, f, c.Format())
			assert.Equal(tt, f, c.DefaultRequest().Format())

			ad, err := NewAuthorizationDetail(f)
			require.NoError(tt, err)
			assert.Equal(tt, f, ad.Format())

			adID, err := NewAuthorizationDetailByID(f)
			require.NoError(tt, err)
			assert.Equal(tt, f, adID.Format())

			r, err := NewRequest(f)
			require.NoError(tt, err)
			assert.Equal(tt, f, r.Format())

			rID, err := NewRequestByID(f)
			require.NoError(tt, err)
			assert.Equal(tt, f, rID.Format())
		})
	}

	t.Run("unknown format", func(tt *testing.T) {
		_, err := NewConfiguration("unknown")
		assert.True(tt, errors.Is(err, ErrUnknownFormat))
		_, err = NewAuthorizationDetail("unknown")
		assert.True(tt, errors.Is(err, ErrUnknownFormat))
		_, err = NewAuthorizationDetailByID("unknown")
		assert.True(tt, errors.Is(err, ErrUnknownFormat))
		_, err = NewRequest("unknown")
		assert.True(tt, errors.Is(err, ErrUnknownFormat))
		_, err = NewRequestByID("unknown")
		assert.True(tt, errors.Is(err, ErrUnknownFormat))
		_, err = DecodeCredential("unknown", []byte(`"x"`))
		assert.True(tt, errors.Is(err, ErrUnknownFormat))
	})
}

func TestDefaultRequest(t *testing.T) {
	t.Run("jwt_vc_json copies the credential type", func(tt *testing.T) {
		c := &JWTVCConfiguration{
			CredentialDefinition: JWTVCDefinition{
				Type:              []string{"VerifiableCredential", "UniversityDegreeCredential"},
				CredentialSubject: Claims{"given_name": map[string]any{}},
			},
		}
		r, ok := c.DefaultRequest().(*JWTVCRequest)
		require.True(tt, ok)
		assert.Equal(tt, c.CredentialDefinition.Type, r.CredentialDefinition.Type)
		assert.Empty(tt, r.CredentialDefinition.CredentialSubject)

		r.CredentialDefinition.Type[0] = "changed"
		assert.Equal(tt, "VerifiableCredential", c.CredentialDefinition.Type[0])
	})

	t.Run("jwt_vc_json-ld keeps its own format", func(tt *testing.T) {
		c := &JWTLDConfiguration{
			CredentialDefinition: LDDefinition{
				Context: []any{"https://www.w3.org/2018/credentials/v1"},
				Type:    []string{"VerifiableCredential"},
			},
		}
		r, ok := c.DefaultRequest().(*JWTLDRequest)
		require.True(tt, ok)
		assert.Equal(tt, FormatJWTLD, r.Format())
		assert.Equal(tt, c.CredentialDefinition.Context, r.CredentialDefinition.Context)
	})

	t.Run("mso_mdoc and sd-jwt copy their type identifiers", func(tt *testing.T) {
		mdoc := (&MDocConfiguration{Doctype: "org.iso.18013.5.1.mDL"}).DefaultRequest().(*MDocRequest)
		assert.Equal(tt, "org.iso.18013.5.1.mDL", mdoc.Doctype)

		sd := (&SDJWTConfiguration{VCT: "https://credentials.example.com/identity_credential"}).DefaultRequest().(*SDJWTRequest)
		assert.Equal(tt, "https://credentials.example.com/identity_credential", sd.VCT)
	})
}

func TestDecodeCredential(t *testing.T) {
	t.Run("string formats", func(tt *testing.T) {
		for _, f := range []Format{FormatJWTVC, FormatJWTLD, FormatMDoc, FormatSDJWT} {
			c, err := DecodeCredential(f, []byte(`"abc"`))
			require.NoError(tt, err, f)
			assert.Equal(tt, f, c.Format())
		}
	})

	t.Run("ldp_vc requires an object", func(tt *testing.T) {
		c, err := DecodeCredential(FormatLDP, []byte(`{"type":["VerifiableCredential"]}`))
		require.NoError(tt, err)
		assert.Equal(tt, FormatLDP, c.Format())

		_, err = DecodeCredential(FormatLDP, []byte(`"abc"`))
		assert.Error(tt, err)
		_, err = DecodeCredential(FormatLDP, []byte(`null`))
		assert.Error(tt, err)
	})

	t.Run("jwt credential must be a string", func(tt *testing.T) {
		_, err := DecodeCredential(FormatJWTVC, []byte(`{"a":1}`))
		assert.Error(tt, err)
	})
}

func TestMDocIssuerSigned(t *testing.T) {
	item := IssuerSignedItem{
		DigestID:          3,
		Random:            []byte{0x01, 0x02, 0x03},
		ElementIdentifier: "family_name",
		ElementValue:      "Doe",
	}
	itemBytes, err := cbor.Marshal(item)
	require.NoError(t, err)
	tagged, err := cbor.Marshal(cbor.Tag{Number: encodedCBORTag, Content: itemBytes})
	require.NoError(t, err)
	issuerAuth, err := cbor.Marshal([]any{[]byte{0xa0}, map[string]any{}, nil, []byte("signature")})
	require.NoError(t, err)

	encoded, err := cbor.Marshal(IssuerSigned{
		NameSpaces: map[string][]cbor.RawMessage{"org.iso.18013.5.1": {tagged}},
		IssuerAuth: issuerAuth,
	})
	require.NoError(t, err)

	t.Run("unpadded", func(tt *testing.T) {
		signed, err := MDocCredential(base64.RawURLEncoding.EncodeToString(encoded)).IssuerSigned()
		require.NoError(tt, err)

		items, err := signed.Items("org.iso.18013.5.1")
		require.NoError(tt, err)
		require.Len(tt, items, 1)
		assert.Equal(tt, "family_name", items[0].ElementIdentifier)
		assert.Equal(tt, "Doe", items[0].ElementValue)
		assert.Equal(tt, uint64(3), items[0].DigestID)

		_, err = signed.Items("org.example.missing")
		assert.Error(tt, err)
	})

	t.Run("padded", func(tt *testing.T) {
		_, err := MDocCredential(base64.URLEncoding.EncodeToString(encoded)).IssuerSigned()
		assert.NoError(tt, err)
	})

	t.Run("not base64", func(tt *testing.T) {
		_, err := MDocCredential("***").IssuerSigned()
		assert.Error(tt, err)
	})

	t.Run("untagged item", func(tt *testing.T) {
		signed := IssuerSigned{
			NameSpaces: map[string][]cbor.RawMessage{"ns": {itemBytes}},
			IssuerAuth: issuerAuth,
		}
		_, err := signed.Items("ns")
		assert.Error(tt, err)
	})
}

func TestSDJWTCredential(t *testing.T) {
	d1 := base64.RawURLEncoding.EncodeToString([]byte(`["2GLC42sKQveCfGfryNRN9w","given_name","John"]`))
	d2 := base64.RawURLEncoding.EncodeToString([]byte(`["lklxF5jMYlGTPUovMNIvCA","FR"]`))

	t.Run("split and decode", func(tt *testing.T) {
		c := SDJWTCredential("eyJhbGciOiJFUzI1NiJ9.eyJ2Y3QiOiJ4In0.sig~" + d1 + "~" + d2 + "~")
		issuerJWT, disclosures, kb, err := c.Split()
		require.NoError(tt, err)
		assert.Equal(tt, "eyJhbGciOiJFUzI1NiJ9.eyJ2Y3QiOiJ4In0.sig", issuerJWT)
		assert.Equal(tt, []string{d1, d2}, disclosures)
		assert.Empty(tt, kb)

		decoded, err := c.Disclosures()
		require.NoError(tt, err)
		require.Len(tt, decoded, 2)
		assert.Equal(tt, Disclosure{Salt: "2GLC42sKQveCfGfryNRN9w", Name: "given_name", Value: "John"}, decoded[0])
		assert.Equal(tt, Disclosure{Salt: "lklxF5jMYlGTPUovMNIvCA", Value: "FR"}, decoded[1])
	})

	t.Run("key binding jwt", func(tt *testing.T) {
		_, disclosures, kb, err := SDJWTCredential("a.b.c~" + d1 + "~kb.jwt.sig").Split()
		require.NoError(tt, err)
		assert.Equal(tt, []string{d1}, disclosures)
		assert.Equal(tt, "kb.jwt.sig", kb)
	})

	t.Run("malformed", func(tt *testing.T) {
		_, _, _, err := SDJWTCredential("a.b.c").Split()
		assert.Error(tt, err)
		_, _, _, err = SDJWTCredential("a.b.c~~").Split()
		assert.Error(tt, err)

		bad := base64.RawURLEncoding.EncodeToString([]byte(`["only"]`))
		_, err = SDJWTCredential("a.b.c~" + bad + "~").Disclosures()
		assert.Error(tt, err)
	})
}
