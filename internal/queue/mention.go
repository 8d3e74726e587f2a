package queue

import "strings"

type MentionKind int

const (
	MentionNone MentionKind = iota
	MentionEveryone
	MentionHere
	MentionRole
)

func (k MentionKind) String() string {
	switch k {
	case MentionEveryone:
		return "everyone"
	case MentionHere:
		return "here"
	case MentionRole:
		return "role"
	default:
		return "none"
	}
}

// Mention is the optional ping placed in front of a message.
// RoleID and RoleName are only set for MentionRole.
type Mention struct {
	Kind     MentionKind
	RoleID   string
	RoleName string
}

func Everyone() Mention { return Mention{Kind: MentionEveryone} }
func Here() Mention     { return Mention{Kind: MentionHere} }
func Role(id, name string) Mention {
	return Mention{Kind: MentionRole, RoleID: id, RoleName: name}
}

// Prefix returns the mention token followed by a space, or "" for none.
func (m Mention) Prefix() string {
	switch m.Kind {
	case MentionEveryone:
		return "@everyone "
	case MentionHere:
		return "@here "
	case MentionRole:
		if m.RoleID == "" {
			return ""
		}
		return "<@&" + m.RoleID + "> "
	default:
		return ""
	}
}

// Label is the denormalized display name stored next to the mention.
func (m Mention) Label() string {
	switch m.Kind {
	case MentionEveryone:
		return "@everyone"
	case MentionHere:
		return "@here"
	case MentionRole:
		return m.RoleName
	default:
		return ""
	}
}

// Column encodes the mention for the role_id column.
func (m Mention) Column() string {
	switch m.Kind {
	case MentionEveryone:
		return "everyone"
	case MentionHere:
		return "here"
	case MentionRole:
		return m.RoleID
	default:
		return ""
	}
}

// MentionFromColumns is the inverse of Column/Label.
func MentionFromColumns(roleID, roleName string) Mention {
	switch id := strings.TrimSpace(roleID); id {
	case "":
		return Mention{}
	case "everyone":
		return Everyone()
	case "here":
		return Here()
	default:
		if !isSnowflake(id) {
			return Mention{}
		}
		return Role(id, roleName)
	}
}
