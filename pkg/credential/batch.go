package credential

import (
	"github.com/pkg/errors"
)

// BatchRequest requests several credentials in one call to the batch credential endpoint.
type BatchRequest struct {
	CredentialRequests []Request `json:"credential_requests"`
}

func (b BatchRequest) IsValid() error {
	if len(b.CredentialRequests) == 0 {
		return errors.New("credential_requests cannot be empty")
	}
	for i, r := range b.CredentialRequests {
		if err := r.IsValid(); err != nil {
			return errors.Wrapf(err, "credential request %d", i)
		}
	}
	return nil
}

// BatchResponse holds one response per request, in request order.
type BatchResponse struct {
	CredentialResponses []Response `json:"credential_responses"`
	CNonce              string     `json:"c_nonce,omitempty"`
	CNonceExpiresIn     int        `json:"c_nonce_expires_in,omitempty"`
}

// Matches checks the response against the batch it answers.
func (b BatchResponse) Matches(request BatchRequest) error {
	if len(b.CredentialResponses) != len(request.CredentialRequests) {
		return errors.Errorf("expected %d credential responses, got %d", len(request.CredentialRequests), len(b.CredentialResponses))
	}
	return nil
}
