package queue

import (
	"strings"
	"time"
)

// TimeLayout is the persisted send_time format. Lexical order equals
// chronological order, which the store relies on for due selection.
const TimeLayout = "2006-01-02T15:04"

// Item is one scheduled message.
type Item struct {
	ID          int64
	Message     string
	SendTime    string
	ChannelID   string
	ChannelName string
	Mention     Mention
}

// Payload is the text actually posted to the channel.
func (it Item) Payload() string {
	return it.Mention.Prefix() + it.Message
}

// DisplayTime renders SendTime with a space instead of the T separator.
func (it Item) DisplayTime() string {
	return strings.Replace(it.SendTime, "T", " ", 1)
}

// Due reports whether the item is eligible at the given tick stamp.
func (it Item) Due(now string) bool {
	return it.SendTime <= now
}

// Stamp formats t in the persisted layout (local wall clock, minute precision).
func Stamp(t time.Time) string {
	return t.Format(TimeLayout)
}
