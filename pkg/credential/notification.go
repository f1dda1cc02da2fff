package credential

import (
	"github.com/pkg/errors"

	"github.com/tbd54566975/oid4vci/internal/validation"
)

// Event is what the wallet did with an issued credential.
type Event string

const (
	EventCredentialAccepted Event = "credential_accepted"
	EventCredentialFailure  Event = "credential_failure"
	EventCredentialDeleted  Event = "credential_deleted"
)

var ErrInvalidNotification = errors.New("invalid notification request")

// NotificationRequest informs the issuer of the fate of a credential issued with a notification_id.
type NotificationRequest struct {
	NotificationID   string `json:"notification_id" validate:"required"`
	Event            Event  `json:"event" validate:"required,oneof=credential_accepted credential_failure credential_deleted"`
	EventDescription string `json:"event_description,omitempty"`
}

// NotificationFor builds a notification for the credential carried by a response.
func NotificationFor(response Response, event Event, description string) (*NotificationRequest, error) {
	if response.NotificationID == "" {
		return nil, errors.Wrap(ErrInvalidNotification, "response has no notification_id")
	}
	n := NotificationRequest{NotificationID: response.NotificationID, Event: event, EventDescription: description}
	if err := n.IsValid(); err != nil {
		return nil, err
	}
	return &n, nil
}

func (n NotificationRequest) IsValid() error {
	if err := validation.Struct(n); err != nil {
		return errors.Wrap(ErrInvalidNotification, err.Error())
	}
	return nil
}
