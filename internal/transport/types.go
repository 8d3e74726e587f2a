package transport

import (
	"context"
	"errors"
)

// Delivery error kinds. Adapters wrap their native errors with one of these so
// callers can classify a failed send with errors.Is.
var (
	ErrNotFound         = errors.New("channel not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrTransient        = errors.New("transient send error")
)

type TextChannel struct {
	ID      string
	Name    string
	CanSend bool // bot may view the channel and post messages
}

type Role struct {
	ID        string
	Name      string
	IsDefault bool // implicit @everyone role
	IsManaged bool // integration/bot-managed role
}

// Guild is a point-in-time view of one server the bot belongs to.
type Guild struct {
	ID       string
	Name     string
	Channels []TextChannel
	Roles    []Role
}

// Roster enumerates the live guild list.
type Roster interface {
	Guilds(ctx context.Context) ([]Guild, error)
}

// Sender posts plain text to a channel.
type Sender interface {
	Send(ctx context.Context, channelID, text string) error
}

// Adapter is a connected platform client.
type Adapter interface {
	Roster
	Sender

	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	// Ready is closed once the session has received its initial guild state.
	Ready() <-chan struct{}
}

// Classify maps an error to one of the delivery kinds. Unknown errors are transient.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrPermissionDenied):
		return ErrPermissionDenied
	default:
		return ErrTransient
	}
}
