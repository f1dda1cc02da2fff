package credential

import (
	"github.com/tbd54566975/oid4vci/internal/validation"
)

// DeferredRequest polls the deferred credential endpoint for the credential of an earlier response. It is
// answered with a Response.
type DeferredRequest struct {
	TransactionID string `json:"transaction_id" validate:"required"`
}

// DeferredRequestFor builds the request following a deferred response.
func DeferredRequestFor(response Response) (*DeferredRequest, error) {
	if !response.IsDeferred() {
		return nil, ErrNotDeferred
	}
	return &DeferredRequest{TransactionID: response.TransactionID}, nil
}

func (d DeferredRequest) IsValid() error {
	return validation.Struct(d)
}
