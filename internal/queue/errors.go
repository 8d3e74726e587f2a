package queue

import (
	"errors"
	"fmt"

	"schedbot/internal/transport"
)

var (
	// ErrConfigMissing is fatal at startup.
	ErrConfigMissing = errors.New("required configuration missing")
	// ErrStoreUnavailable means the backing store could not be read or written.
	ErrStoreUnavailable = errors.New("queue store unavailable")
	// ErrValidation wraps every submission rejection.
	ErrValidation = errors.New("invalid submission")
	// ErrAuth is returned for a wrong shared secret. Its text is shown to users as-is.
	ErrAuth = errors.New("wrong password")

	ErrEmptyMessage = fmt.Errorf("%w: message is empty", ErrValidation)
	ErrBadSendTime  = fmt.Errorf("%w: send time must be YYYY-MM-DDTHH:MM", ErrValidation)
)

// DeliveryError describes one failed delivery attempt. Kind is one of the
// transport delivery kinds (ErrNotFound, ErrPermissionDenied, ErrTransient).
type DeliveryError struct {
	ItemID    int64
	ChannelID string
	Kind      error
	Err       error
}

func NewDeliveryError(it Item, err error) *DeliveryError {
	return &DeliveryError{ItemID: it.ID, ChannelID: it.ChannelID, Kind: transport.Classify(err), Err: err}
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver item %d to channel %s: %v", e.ItemID, e.ChannelID, e.Err)
}

func (e *DeliveryError) Unwrap() []error { return []error{e.Kind, e.Err} }
