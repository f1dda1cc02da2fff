package credential

import (
	_ "embed"
	"testing"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbd54566975/oid4vci/pkg/profile"
	"github.com/tbd54566975/oid4vci/pkg/proof"
	"github.com/tbd54566975/oid4vci/pkg/variant"
)

var (
	//go:embed testdata/jwt_vc_credential_request.json
	exampleJWTVCCredentialRequest []byte
	//go:embed testdata/credential_request_by_identifier.json
	exampleCredentialRequestByIdentifier []byte
	//go:embed testdata/credential_response.json
	exampleCredentialResponse []byte
	//go:embed testdata/batch_credential_request.json
	exampleBatchCredentialRequest []byte
)

func TestCredentialRequestUnmarshalAndMarshallIsLossless(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		kind variant.Kind
	}{
		{name: "format addressed", data: exampleJWTVCCredentialRequest, kind: variant.KindWithFormat},
		{name: "identifier addressed", data: exampleCredentialRequestByIdentifier, kind: variant.KindWithIDUnresolved},
	}
	for _, test := range tests {
		t.Run(test.name, func(tt *testing.T) {
			var r Request
			require.NoError(tt, json.Unmarshal(test.data, &r))
			assert.Equal(tt, test.kind, r.Kind())

			jsonData, err := json.Marshal(r)
			require.NoError(tt, err)
			assert.JSONEq(tt, string(test.data), string(jsonData))
		})
	}
}

func TestCredentialRequest(t *testing.T) {
	t.Run("envelope", func(tt *testing.T) {
		var r Request
		require.NoError(tt, json.Unmarshal(exampleJWTVCCredentialRequest, &r))
		require.NotNil(tt, r.Proof)
		assert.Equal(tt, proof.TypeJWT, r.Proof.ProofType)
		assert.Nil(tt, r.Proofs)
		assert.Nil(tt, r.Encryption)

		payload, ok := r.WithFormat()
		require.True(tt, ok)
		jwtVC, ok := payload.(*profile.JWTVCRequest)
		require.True(tt, ok)
		assert.Equal(tt, []string{"VerifiableCredential", "UniversityDegreeCredential"}, jwtVC.CredentialDefinition.Type)
	})

	t.Run("encryption key", func(tt *testing.T) {
		var r Request
		require.NoError(tt, json.Unmarshal(exampleCredentialRequestByIdentifier, &r))
		require.NotNil(tt, r.Encryption)
		key, err := r.Encryption.Key()
		require.NoError(tt, err)
		assert.Equal(tt, "1", key.KeyID())
		require.NotNil(tt, r.Proofs)
		assert.Len(tt, r.Proofs.JWT, 2)
	})

	t.Run("resolve", func(tt *testing.T) {
		var r Request
		require.NoError(tt, json.Unmarshal(exampleCredentialRequestByIdentifier, &r))
		resolved, err := r.Resolve(map[string]profile.Configuration{
			"CivilEngineeringDegree-2023": &profile.JWTVCConfiguration{
				CredentialDefinition: profile.JWTVCDefinition{Type: []string{"VerifiableCredential"}},
			},
		})
		require.NoError(tt, err)
		assert.Equal(tt, variant.KindWithID, resolved.Kind())
		assert.Equal(tt, profile.FormatJWTVC, resolved.Format())
		assert.Equal(tt, r.Encryption, resolved.Encryption)

		jsonData, err := json.Marshal(resolved)
		require.NoError(tt, err)
		assert.JSONEq(tt, string(exampleCredentialRequestByIdentifier), string(jsonData))
	})

	t.Run("for configuration", func(tt *testing.T) {
		r := ForConfiguration(&profile.SDJWTConfiguration{VCT: "https://credentials.example.com/identity_credential"})
		r.Proof = NewJWTProof("a.b.c")
		jsonData, err := json.Marshal(r)
		require.NoError(tt, err)
		assert.JSONEq(tt, `{
			"format": "vc+sd-jwt",
			"vct": "https://credentials.example.com/identity_credential",
			"proof": {"proof_type": "jwt", "jwt": "a.b.c"}
		}`, string(jsonData))
	})

	t.Run("invalid", func(tt *testing.T) {
		tests := []struct {
			name string
			data string
			err  error
		}{
			{
				name: "ambiguous",
				data: `{"format":"vc+sd-jwt","vct":"x","credential_identifier":"y"}`,
				err:  variant.ErrAmbiguousVariant,
			},
			{
				name: "no discriminator",
				data: `{"vct":"x"}`,
				err:  variant.ErrMissingDiscriminator,
			},
			{
				name: "jwt proof without token",
				data: `{"format":"vc+sd-jwt","vct":"x","proof":{"proof_type":"jwt"}}`,
				err:  ErrMissingProofJWT,
			},
			{
				name: "proof and proofs",
				data: `{"format":"vc+sd-jwt","vct":"x","proof":{"proof_type":"jwt","jwt":"a.b.c"},"proofs":{"jwt":["a.b.c"]}}`,
				err:  ErrTooManyProofs,
			},
			{
				name: "incomplete encryption",
				data: `{"credential_identifier":"y","credential_response_encryption":{"alg":"ECDH-ES"}}`,
				err:  ErrInvalidEncryption,
			},
		}
		for _, test := range tests {
			tt.Run(test.name, func(ttt *testing.T) {
				var r Request
				err := json.Unmarshal([]byte(test.data), &r)
				require.Error(ttt, err)
				assert.True(ttt, errors.Is(err, test.err), err.Error())
			})
		}

		_, err := json.Marshal(Request{})
		assert.Error(tt, err)
	})

	t.Run("private encryption key", func(tt *testing.T) {
		e := Encryption{
			JWK: json.RawMessage(`{"kty":"OKP","crv":"X25519","x":"hSDwCYkwp1R0i33ctD73Wg2_Og0mOBr066SpjqqbTmo","d":"dwdtCnMYpX08FsFyUbJmRd9ML4frwJkqsXf7pR25LCo"}`),
			Alg: "ECDH-ES",
			Enc: "A256GCM",
		}
		_, err := e.Key()
		assert.True(tt, errors.Is(err, ErrInvalidEncryption))
	})
}

func TestCredentialResponse(t *testing.T) {
	t.Run("lossless", func(tt *testing.T) {
		var r Response
		require.NoError(tt, json.Unmarshal(exampleCredentialResponse, &r))
		assert.False(tt, r.IsDeferred())

		jsonData, err := json.Marshal(r)
		require.NoError(tt, err)
		assert.JSONEq(tt, string(exampleCredentialResponse), string(jsonData))

		c, err := r.DecodeCredential(profile.FormatSDJWT)
		require.NoError(tt, err)
		assert.Equal(tt, profile.FormatSDJWT, c.Format())
	})

	t.Run("issued credential", func(tt *testing.T) {
		r, err := NewResponse(profile.LDPCredential{"type": []any{"VerifiableCredential"}})
		require.NoError(tt, err)
		c, err := r.DecodeCredential(profile.FormatLDP)
		require.NoError(tt, err)
		assert.Equal(tt, profile.LDPCredential{"type": []any{"VerifiableCredential"}}, c)
	})

	t.Run("deferred", func(tt *testing.T) {
		r := NewDeferredResponse("8xLOxBtZp8")
		assert.True(tt, r.IsDeferred())
		_, err := r.DecodeCredential(profile.FormatJWTVC)
		assert.True(tt, errors.Is(err, ErrNotIssued))

		deferred, err := DeferredRequestFor(*r)
		require.NoError(tt, err)
		assert.Equal(tt, "8xLOxBtZp8", deferred.TransactionID)
		assert.NoError(tt, deferred.IsValid())

		_, err = DeferredRequestFor(Response{Credential: json.RawMessage(`"x"`)})
		assert.True(tt, errors.Is(err, ErrNotDeferred))
		assert.Error(tt, DeferredRequest{}.IsValid())
	})

	t.Run("exactly one of credential or transaction_id", func(tt *testing.T) {
		for _, data := range []string{
			`{}`,
			`{"credential":null}`,
			`{"credential":"x","transaction_id":"y"}`,
		} {
			var r Response
			err := json.Unmarshal([]byte(data), &r)
			assert.True(tt, errors.Is(err, ErrInvalidResponse), data)
		}

		var r Response
		assert.Error(tt, json.Unmarshal([]byte(`{"transaction_id":"y","notification_id":"z"}`), &r))
		_, err := json.Marshal(Response{})
		assert.Error(tt, err)
	})

	t.Run("error response", func(tt *testing.T) {
		_, err := ParseResponse([]byte(`{"error":"invalid_proof","error_description":"nonce expired","c_nonce":"8YE9hCnyV2"}`))
		var errResp *ErrorResponse
		require.True(tt, errors.As(err, &errResp))
		assert.Equal(tt, ErrorInvalidProof, errResp.Code)
		assert.Equal(tt, "8YE9hCnyV2", errResp.CNonce)
		assert.Equal(tt, "invalid_proof: nonce expired", errResp.Error())

		r, err := ParseResponse(exampleCredentialResponse)
		require.NoError(tt, err)
		assert.Equal(tt, "3fwe98js", r.NotificationID)

		_, err = ParseResponse([]byte(`{`))
		assert.Error(tt, err)
	})
}

func TestBatch(t *testing.T) {
	var b BatchRequest
	require.NoError(t, json.Unmarshal(exampleBatchCredentialRequest, &b))
	require.Len(t, b.CredentialRequests, 2)
	assert.NoError(t, b.IsValid())
	assert.Equal(t, profile.FormatMDoc, b.CredentialRequests[0].Format())
	assert.Equal(t, profile.FormatSDJWT, b.CredentialRequests[1].Format())

	jsonData, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, string(exampleBatchCredentialRequest), string(jsonData))

	assert.Error(t, BatchRequest{}.IsValid())

	resp := BatchResponse{CredentialResponses: []Response{{Credential: json.RawMessage(`"a"`)}, {TransactionID: "b"}}}
	assert.NoError(t, resp.Matches(b))
	resp.CredentialResponses = resp.CredentialResponses[:1]
	assert.Error(t, resp.Matches(b))
}

func TestNotification(t *testing.T) {
	issued := Response{Credential: json.RawMessage(`"x"`), NotificationID: "3fwe98js"}
	n, err := NotificationFor(issued, EventCredentialAccepted, "")
	require.NoError(t, err)
	jsonData, err := json.Marshal(n)
	require.NoError(t, err)
	assert.JSONEq(t, `{"notification_id":"3fwe98js","event":"credential_accepted"}`, string(jsonData))

	_, err = NotificationFor(issued, Event("credential_lost"), "")
	assert.True(t, errors.Is(err, ErrInvalidNotification))
	_, err = NotificationFor(Response{Credential: json.RawMessage(`"x"`)}, EventCredentialDeleted, "")
	assert.True(t, errors.Is(err, ErrInvalidNotification))
}

func TestErrorCodeFor(t *testing.T) {
	tests := []struct {
		err  error
		code ErrorCode
	}{
		{err: errors.Wrap(proof.ErrExpired, "verifying"), code: ErrorInvalidProof},
		{err: ErrMissingProofJWT, code: ErrorInvalidProof},
		{err: errors.Wrap(variant.ErrUnknownFormat, "classifying"), code: ErrorUnsupportedCredentialFormat},
		{err: variant.ErrUnknownConfiguration, code: ErrorUnsupportedCredentialType},
		{err: ErrInvalidEncryption, code: ErrorInvalidEncryptionParameters},
		{err: ErrInvalidNotification, code: ErrorInvalidNotificationRequest},
		{err: &variant.AmbiguousVariantError{Field: "format", Discriminator: "credential_identifier"}, code: ErrorInvalidRequest},
		{err: &ErrorResponse{Code: ErrorIssuancePending}, code: ErrorIssuancePending},
		{err: errors.New("anything else"), code: ErrorInvalidRequest},
	}
	for _, test := range tests {
		t.Run(test.err.Error(), func(tt *testing.T) {
			assert.Equal(tt, test.code, ErrorCodeFor(test.err))
		})
	}

	resp := NewErrorResponse(errors.Wrap(proof.ErrNonceMismatch, "verifying proof"))
	assert.Equal(t, ErrorInvalidProof, resp.Code)
	assert.Equal(t, "verifying proof: nonce does not match", resp.Description)
	assert.Empty(t, ErrorCodeFor(nil))
}
