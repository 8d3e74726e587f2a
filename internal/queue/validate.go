package queue

import (
	"crypto/subtle"
	"strings"
	"time"
)

// Submission holds the raw form fields. Tokens are never passed beyond Validate.
type Submission struct {
	Content       string
	DateTime      string
	ChannelSelect string // "id|name"
	RoleSelect    string // "none" | "everyone" | "here" | "id|name"
}

// Defaults are applied when the channel selection is unusable.
type Defaults struct {
	ChannelID string
}

// Fallback tells why the default channel was used.
type Fallback int

const (
	FallbackNone Fallback = iota
	FallbackMissing
	FallbackParseError
)

func (f Fallback) String() string {
	switch f {
	case FallbackMissing:
		return "missing"
	case FallbackParseError:
		return "parse_error"
	default:
		return "none"
	}
}

const (
	LabelDefault           = "Default"
	LabelDefaultParseError = "Default (Parse Error)"
	LabelUnknown           = "Unknown"
)

var sendTimeLayouts = []string{
	TimeLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

// Validate turns a raw submission into a queue item. It never touches the store.
func Validate(sub Submission, def Defaults) (Item, Fallback, error) {
	msg := sub.Content
	if strings.TrimSpace(msg) == "" {
		return Item{}, FallbackNone, ErrEmptyMessage
	}
	sendTime, err := ParseSendTime(sub.DateTime)
	if err != nil {
		return Item{}, FallbackNone, err
	}

	it := Item{
		Message:  msg,
		SendTime: sendTime,
		Mention:  ParseMention(sub.RoleSelect),
	}

	id, name, fb := ParseChannel(sub.ChannelSelect)
	switch fb {
	case FallbackMissing:
		it.ChannelID, it.ChannelName = def.ChannelID, LabelDefault
	case FallbackParseError:
		it.ChannelID, it.ChannelName = def.ChannelID, LabelDefaultParseError
	default:
		it.ChannelID, it.ChannelName = id, name
	}
	return it, fb, nil
}

// ParseSendTime accepts the datetime-local format (with or without seconds, T or
// space separated) and normalizes it to TimeLayout.
func ParseSendTime(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrBadSendTime
	}
	for _, layout := range sendTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return Stamp(t), nil
		}
	}
	return "", ErrBadSendTime
}

// ParseChannel splits an "id|name" token. The name may itself contain "|".
func ParseChannel(token string) (id, name string, fb Fallback) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", "", FallbackMissing
	}
	id, name, ok := strings.Cut(token, "|")
	id = strings.TrimSpace(id)
	if !ok || !isSnowflake(id) {
		return "", "", FallbackParseError
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = LabelUnknown
	}
	return id, name, FallbackNone
}

// ParseMention maps a role token to a Mention; unrecognized values mean none.
func ParseMention(token string) Mention {
	token = strings.TrimSpace(token)
	switch strings.ToLower(token) {
	case "", "none":
		return Mention{}
	case "everyone":
		return Everyone()
	case "here":
		return Here()
	}
	id, name, ok := strings.Cut(token, "|")
	id = strings.TrimSpace(id)
	if !ok || !isSnowflake(id) {
		return Mention{}
	}
	return Role(id, strings.TrimSpace(name))
}

// CheckPassword compares in constant time. The error carries no detail.
func CheckPassword(given, want string) error {
	if want == "" || subtle.ConstantTimeCompare([]byte(given), []byte(want)) != 1 {
		return ErrAuth
	}
	return nil
}

func isSnowflake(s string) bool {
	if s == "" || len(s) > 20 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
