package credential

import (
	"bytes"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/tbd54566975/oid4vci/pkg/profile"
)

var (
	ErrInvalidResponse = errors.New("exactly one of credential or transaction_id must be present")
	ErrNotIssued       = errors.New("credential has not been issued")
)

// Response is the response of the credential and deferred credential endpoints. Either the credential is
// issued immediately, or a transaction id is returned to fetch it later from the deferred credential endpoint.
type Response struct {
	// Credential is a JSON string or object depending on the credential format.
	Credential json.RawMessage `json:"credential,omitempty"`
	// TransactionID identifies a deferred issuance transaction.
	TransactionID string `json:"transaction_id,omitempty"`

	// CNonce is a nonce to be used in the proofs of subsequent credential requests.
	CNonce string `json:"c_nonce,omitempty"`
	// CNonceExpiresIn is the lifetime of the c_nonce in seconds.
	CNonceExpiresIn int `json:"c_nonce_expires_in,omitempty"`

	// NotificationID identifies the issued credential in later notification requests.
	NotificationID string `json:"notification_id,omitempty"`
}

// NewResponse builds the response of an issued credential.
func NewResponse(credential profile.Credential) (*Response, error) {
	if credential == nil {
		return nil, errors.New("credential cannot be nil")
	}
	data, err := json.Marshal(credential)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling credential")
	}
	return &Response{Credential: data}, nil
}

// NewDeferredResponse builds the response of a credential whose issuance is deferred.
func NewDeferredResponse(transactionID string) *Response {
	return &Response{TransactionID: transactionID}
}

func (r Response) hasCredential() bool {
	trimmed := bytes.TrimSpace(r.Credential)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

func (r Response) IsValid() error {
	if r.hasCredential() == (r.TransactionID != "") {
		return ErrInvalidResponse
	}
	if r.NotificationID != "" && !r.hasCredential() {
		return errors.New("notification_id requires an issued credential")
	}
	if r.CNonceExpiresIn < 0 {
		return errors.New("c_nonce_expires_in cannot be negative")
	}
	return nil
}

// IsDeferred reports whether the credential must be fetched from the deferred credential endpoint.
func (r Response) IsDeferred() bool {
	return r.TransactionID != "" && !r.hasCredential()
}

// DecodeCredential decodes the issued credential as the given format.
func (r Response) DecodeCredential(format profile.Format) (profile.Credential, error) {
	if !r.hasCredential() {
		return nil, ErrNotIssued
	}
	return profile.DecodeCredential(format, r.Credential)
}

func (r Response) MarshalJSON() ([]byte, error) {
	if err := r.IsValid(); err != nil {
		return nil, err
	}
	type plain Response
	return json.Marshal(plain(r))
}

func (r *Response) UnmarshalJSON(data []byte) error {
	type plain Response
	var parsed plain
	if err := json.Unmarshal(data, &parsed); err != nil {
		return err
	}
	if err := Response(parsed).IsValid(); err != nil {
		return err
	}
	*r = Response(parsed)
	return nil
}

// ParseResponse parses the body of a credential or deferred credential endpoint response, which is
// either a credential response or an error response. The error response is returned as the error.
func ParseResponse(data []byte) (*Response, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid json")
	}
	if gjson.GetBytes(data, "error").Exists() {
		var errResp ErrorResponse
		if err := json.Unmarshal(data, &errResp); err != nil {
			return nil, errors.Wrap(err, "parsing error response")
		}
		return nil, &errResp
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, errors.Wrap(err, "parsing credential response")
	}
	return &resp, nil
}
