package metadata

import (
	"context"
	_ "embed"
	"net/url"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/h2non/gock.v1"

	"github.com/tbd54566975/oid4vci/pkg/authorization"
	"github.com/tbd54566975/oid4vci/pkg/profile"
	"github.com/tbd54566975/oid4vci/pkg/variant"
)

var (
	//go:embed testdata/issuer_metadata.json
	exampleIssuerMetadata []byte
	//go:embed testdata/credential_offer.json
	exampleCredentialOffer []byte
)

const exampleIssuer = "https://credential-issuer.example.com"

func newTestClient(maxRetries uint64) *Client {
	c := NewClient(time.Second, maxRetries)
	c.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	gock.InterceptClient(c.client)
	return c
}

func TestIssuerMetadataUnmarshalAndMarshallIsLossless(t *testing.T) {
	var m CredentialIssuerMetadata
	require.NoError(t, json.Unmarshal(exampleIssuerMetadata, &m))
	require.NoError(t, m.IsValid())

	jsonData, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, string(exampleIssuerMetadata), string(jsonData))
}

func TestCredentialConfigurations(t *testing.T) {
	var m CredentialIssuerMetadata
	require.NoError(t, json.Unmarshal(exampleIssuerMetadata, &m))

	t.Run("formats", func(tt *testing.T) {
		formats := map[string]profile.Format{}
		for id, c := range m.Configurations() {
			formats[id] = c.Format()
		}
		want := map[string]profile.Format{
			"UniversityDegreeCredential":      profile.FormatJWTVC,
			"UniversityDegree_LDP_VC":         profile.FormatLDP,
			"org.iso.18013.5.1.mDL":           profile.FormatMDoc,
			"SD_JWT_VC_example_in_OpenID4VCI": profile.FormatSDJWT,
		}
		if diff := cmp.Diff(want, formats); diff != "" {
			tt.Errorf("configuration formats mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("shared members", func(tt *testing.T) {
		c, err := m.Configuration("UniversityDegreeCredential")
		require.NoError(tt, err)
		assert.Equal(tt, "UniversityDegree", c.Scope)
		assert.True(tt, c.SupportsProofType("jwt"))
		assert.False(tt, c.SupportsProofType("cwt"))
		require.Len(tt, c.Display, 1)
		assert.Equal(tt, "a square logo of a university", c.Display[0].Logo.AltText)

		jwtVC, ok := c.Configuration.(*profile.JWTVCConfiguration)
		require.True(tt, ok)
		assert.Equal(tt, []string{"ES256"}, jwtVC.CredentialSigningAlgValuesSupported)

		_, err = m.Configuration("unknown")
		assert.True(tt, errors.Is(err, variant.ErrUnknownConfiguration))
	})

	t.Run("scopes", func(tt *testing.T) {
		assert.Equal(tt, []string{"SD_JWT_VC_example_in_OpenID4VCI", "UniversityDegreeCredential"},
			m.ConfigurationsForScope("openid UniversityDegree SD_JWT_VC_example_in_OpenID4VCI"))
		assert.Empty(tt, m.ConfigurationsForScope("openid"))
	})

	t.Run("resolves authorization details", func(tt *testing.T) {
		var details authorization.Details
		require.NoError(tt, json.Unmarshal([]byte(`[
			{"type":"openid_credential","credential_configuration_id":"org.iso.18013.5.1.mDL"},
			{"type":"openid_credential","credential_configuration_id":"SD_JWT_VC_example_in_OpenID4VCI","claims":{"given_name":{}}}
		]`), &details))
		resolved, err := details.Resolve(m.Configurations())
		require.NoError(tt, err)
		assert.Equal(tt, profile.FormatMDoc, resolved[0].Format())
		assert.Equal(tt, profile.FormatSDJWT, resolved[1].Format())
	})

	t.Run("authorization server", func(tt *testing.T) {
		assert.Equal(tt, "https://server.example.com", m.AuthorizationServer())
		assert.Equal(tt, exampleIssuer, CredentialIssuerMetadata{CredentialIssuer: exampleIssuer}.AuthorizationServer())
	})

	t.Run("invalid configurations", func(tt *testing.T) {
		tests := []struct {
			name string
			data string
			err  error
		}{
			{name: "no format", data: `{"vct":"x"}`, err: variant.ErrMissingDiscriminator},
			{name: "unknown format", data: `{"format":"ac_vc"}`, err: variant.ErrUnknownFormat},
			{name: "profile mismatch", data: `{"format":"mso_mdoc","doctype":7}`, err: variant.ErrProfileMismatch},
			{name: "missing required profile member", data: `{"format":"vc+sd-jwt","scope":"x"}`, err: variant.ErrProfileMismatch},
		}
		for _, test := range tests {
			tt.Run(test.name, func(ttt *testing.T) {
				var c CredentialConfiguration
				err := json.Unmarshal([]byte(test.data), &c)
				require.Error(ttt, err)
				assert.True(ttt, errors.Is(err, test.err), err.Error())
			})
		}

		var c CredentialConfiguration
		assert.Error(tt, json.Unmarshal([]byte(`{"format":"vc+sd-jwt","vct":"x","display":"wrong"}`), &c))
		_, err := json.Marshal(CredentialConfiguration{})
		assert.Error(tt, err)
	})

	t.Run("invalid metadata", func(tt *testing.T) {
		invalid := m
		invalid.CredentialEndpoint = ""
		assert.Error(tt, invalid.IsValid())

		invalid = m
		invalid.CredentialConfigurationsSupported = nil
		assert.Error(tt, invalid.IsValid())

		invalid = m
		invalid.AuthorizationServers = []string{"not a url"}
		assert.Error(tt, invalid.IsValid())
	})
}

func TestCredentialOffer(t *testing.T) {
	var m CredentialIssuerMetadata
	require.NoError(t, json.Unmarshal(exampleIssuerMetadata, &m))

	var offer CredentialOffer
	require.NoError(t, json.Unmarshal(exampleCredentialOffer, &offer))
	require.NoError(t, offer.IsValid())
	require.NoError(t, offer.Check(m))

	jsonData, err := json.Marshal(offer)
	require.NoError(t, err)
	assert.JSONEq(t, string(exampleCredentialOffer), string(jsonData))

	require.NotNil(t, offer.Grants.PreAuthorizedCode)
	assert.Equal(t, TxCodeInputModeNumeric, offer.Grants.PreAuthorizedCode.TxCode.InputMode)

	t.Run("check", func(tt *testing.T) {
		other := offer
		other.CredentialIssuer = "https://other.example.com"
		assert.True(tt, errors.Is(other.Check(m), ErrIssuerMismatch))

		unknown := offer
		unknown.CredentialConfigurationIDs = []string{"UniversityDegreeCredential", "Missing"}
		assert.True(tt, errors.Is(unknown.Check(m), variant.ErrUnknownConfiguration))

		unlisted := offer
		unlisted.Grants = &Grants{AuthorizationCode: &AuthorizationCodeGrant{AuthorizationServer: "https://as.other.example.com"}}
		assert.Error(tt, unlisted.Check(m))
	})

	t.Run("by value", func(tt *testing.T) {
		uri, err := offer.URI()
		require.NoError(tt, err)
		u, err := url.Parse(uri)
		require.NoError(tt, err)
		assert.Equal(tt, OfferScheme, u.Scheme)

		ref, err := ParseOfferURI(uri)
		require.NoError(tt, err)
		require.NotNil(tt, ref.Offer)
		assert.Empty(tt, ref.URI)
		assert.Equal(tt, offer, *ref.Offer)
	})

	t.Run("by reference", func(tt *testing.T) {
		ref, err := ParseOfferURI("openid-credential-offer://?credential_offer_uri=" +
			url.QueryEscape("https://server.example.com/credential-offer/GkurKxf5T0Y-mnPFCHqWOMiZi4VS138cQO_V7PZHAdM"))
		require.NoError(tt, err)
		assert.Nil(tt, ref.Offer)
		assert.Equal(tt, "https://server.example.com/credential-offer/GkurKxf5T0Y-mnPFCHqWOMiZi4VS138cQO_V7PZHAdM", ref.URI)
	})

	t.Run("invalid uris", func(tt *testing.T) {
		for _, uri := range []string{
			"openid-credential-offer://",
			"openid-credential-offer://?credential_offer=%7B%7D",
			"openid-credential-offer://?credential_offer=notjson",
			"openid-credential-offer://?credential_offer_uri=http%3A%2F%2Fserver.example.com%2Foffer",
			"openid-credential-offer://?credential_offer=%7B%7D&credential_offer_uri=https%3A%2F%2Fserver.example.com%2Foffer",
		} {
			_, err := ParseOfferURI(uri)
			assert.Error(tt, err, uri)
		}
	})

	t.Run("invalid tx code", func(tt *testing.T) {
		invalid := CredentialOffer{
			CredentialIssuer:           exampleIssuer,
			CredentialConfigurationIDs: []string{"UniversityDegreeCredential"},
			Grants: &Grants{PreAuthorizedCode: &PreAuthorizedCodeGrant{
				PreAuthorizedCode: "code",
				TxCode:            &TxCode{InputMode: "emoji"},
			}},
		}
		assert.Error(tt, invalid.IsValid())
	})
}

func TestClient(t *testing.T) {
	defer gock.Off()

	t.Run("issuer metadata", func(tt *testing.T) {
		c := newTestClient(2)
		gock.New(exampleIssuer).
			Get(WellKnownPath).
			Reply(200).
			BodyString(string(exampleIssuerMetadata))

		m, err := c.IssuerMetadata(context.Background(), exampleIssuer)
		require.NoError(tt, err)
		assert.Equal(tt, exampleIssuer, m.CredentialIssuer)
		assert.Len(tt, m.Configurations(), 4)
		assert.True(tt, gock.IsDone())
	})

	t.Run("retries server errors", func(tt *testing.T) {
		c := newTestClient(2)
		gock.New(exampleIssuer).Get(WellKnownPath).Times(2).Reply(503)
		gock.New(exampleIssuer).Get(WellKnownPath).Reply(200).BodyString(string(exampleIssuerMetadata))

		_, err := c.IssuerMetadata(context.Background(), exampleIssuer)
		require.NoError(tt, err)
		assert.True(tt, gock.IsDone())
	})

	t.Run("gives up after max retries", func(tt *testing.T) {
		c := newTestClient(1)
		gock.New(exampleIssuer).Get(WellKnownPath).Times(2).Reply(500)

		_, err := c.IssuerMetadata(context.Background(), exampleIssuer)
		assert.Error(tt, err)
		assert.Contains(tt, err.Error(), "status<500>")
		assert.True(tt, gock.IsDone())
	})

	t.Run("client errors are not retried", func(tt *testing.T) {
		c := newTestClient(3)
		gock.New(exampleIssuer).Get(WellKnownPath).Times(1).Reply(404).BodyString("not found")

		_, err := c.IssuerMetadata(context.Background(), exampleIssuer)
		assert.Error(tt, err)
		assert.Contains(tt, err.Error(), "status<404>")
		assert.True(tt, gock.IsDone())
	})

	t.Run("issuer mismatch", func(tt *testing.T) {
		c := newTestClient(0)
		gock.New("https://impostor.example.com").
			Get(WellKnownPath).
			Reply(200).
			BodyString(string(exampleIssuerMetadata))

		_, err := c.IssuerMetadata(context.Background(), "https://impostor.example.com")
		assert.True(tt, errors.Is(err, ErrIssuerMismatch))
	})

	t.Run("credential offer by reference", func(tt *testing.T) {
		c := newTestClient(0)
		gock.New("https://server.example.com").
			Get("/credential-offer/123").
			Reply(200).
			BodyString(string(exampleCredentialOffer))

		offer, err := c.CredentialOffer(context.Background(), OfferReference{URI: "https://server.example.com/credential-offer/123"})
		require.NoError(tt, err)
		assert.Equal(tt, exampleIssuer, offer.CredentialIssuer)

		byValue := &CredentialOffer{CredentialIssuer: exampleIssuer}
		same, err := c.CredentialOffer(context.Background(), OfferReference{Offer: byValue})
		require.NoError(tt, err)
		assert.Same(tt, byValue, same)

		_, err = c.CredentialOffer(context.Background(), OfferReference{})
		assert.Error(tt, err)
	})
}

func TestMetadataURL(t *testing.T) {
	assert.Equal(t, "https://issuer.example.com/.well-known/openid-credential-issuer", MetadataURL("https://issuer.example.com/"))
	assert.Equal(t, "https://issuer.example.com/tenant/.well-known/openid-credential-issuer", MetadataURL("https://issuer.example.com/tenant"))
}
