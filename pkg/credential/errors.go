package credential

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/tbd54566975/oid4vci/pkg/proof"
	"github.com/tbd54566975/oid4vci/pkg/variant"
)

// ErrorCode is the error value of a credential endpoint error response.
type ErrorCode string

const (
	ErrorInvalidRequest              ErrorCode = "invalid_request"
	ErrorInvalidToken                ErrorCode = "invalid_token"
	ErrorUnsupportedCredentialType   ErrorCode = "unsupported_credential_type"
	ErrorUnsupportedCredentialFormat ErrorCode = "unsupported_credential_format"
	ErrorInvalidProof                ErrorCode = "invalid_proof"
	ErrorInvalidEncryptionParameters ErrorCode = "invalid_encryption_parameters"
	ErrorInvalidNotificationID       ErrorCode = "invalid_notification_id"
	ErrorInvalidNotificationRequest  ErrorCode = "invalid_notification_request"
	ErrorIssuancePending             ErrorCode = "issuance_pending"
	ErrorInvalidTransactionID        ErrorCode = "invalid_transaction_id"
	ErrorCredentialRequestDenied     ErrorCode = "credential_request_denied"
)

var ErrNotDeferred = errors.New("response is not deferred")

// ErrorResponse is the error response of the credential, batch, deferred and notification endpoints.
type ErrorResponse struct {
	Code        ErrorCode `json:"error"`
	Description string    `json:"error_description,omitempty"`
	// CNonce is a fresh nonce, typically returned with invalid_proof.
	CNonce          string `json:"c_nonce,omitempty"`
	CNonceExpiresIn int    `json:"c_nonce_expires_in,omitempty"`
}

func (e *ErrorResponse) Error() string {
	if e.Description == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// NewErrorResponse builds the error response to return for err.
func NewErrorResponse(err error) *ErrorResponse {
	var errResp *ErrorResponse
	if errors.As(err, &errResp) {
		return errResp
	}
	return &ErrorResponse{Code: ErrorCodeFor(err), Description: err.Error()}
}

// ErrorCodeFor maps an error of this module to its credential error code. Unknown errors are
// invalid_request.
func ErrorCodeFor(err error) ErrorCode {
	var errResp *ErrorResponse
	switch {
	case err == nil:
		return ""
	case errors.As(err, &errResp):
		return errResp.Code
	case proof.IsInvalidProof(err), errors.Is(err, ErrMissingProofJWT), errors.Is(err, ErrTooManyProofs):
		return ErrorInvalidProof
	case errors.Is(err, variant.ErrUnknownFormat):
		return ErrorUnsupportedCredentialFormat
	case errors.Is(err, variant.ErrUnknownConfiguration):
		return ErrorUnsupportedCredentialType
	case errors.Is(err, ErrInvalidEncryption):
		return ErrorInvalidEncryptionParameters
	case errors.Is(err, ErrInvalidNotification):
		return ErrorInvalidNotificationRequest
	}
	return ErrorInvalidRequest
}
