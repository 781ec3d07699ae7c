package types

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// GlobalConversationID is the distinguished unencrypted public channel.
const GlobalConversationID ConversationID = "global_public_channel"

const (
	directPrefix    = "dm_"
	directSeparator = "_"
	groupPrefix     = "group_"
)

// ConversationKind distinguishes how a conversation's envelopes are sealed.
type ConversationKind string

const (
	KindDirect ConversationKind = "direct"
	KindGroup  ConversationKind = "group"
	KindGlobal ConversationKind = "global"
)

// Conversation is an entry in the local conversation list.
type Conversation struct {
	ID           ConversationID   `json:"id"`
	Kind         ConversationKind `json:"kind"`
	Name         string           `json:"name"`
	Participants []ParticipantID  `json:"participants"`
	UnreadCount  int              `json:"unread_count"`
}

// DirectConversationID returns the id shared by both members of a direct
// conversation, independent of argument order.
func DirectConversationID(a, b ParticipantID) ConversationID {
	pair := []string{string(a), string(b)}
	sort.Strings(pair)
	return ConversationID(directPrefix + pair[0] + directSeparator + pair[1])
}

// NewGroupConversationID returns a fresh group conversation id.
func NewGroupConversationID() ConversationID {
	return ConversationID(groupPrefix + uuid.NewString())
}

// KindOf classifies a conversation id.
func KindOf(id ConversationID) ConversationKind {
	switch {
	case id == GlobalConversationID:
		return KindGlobal
	case strings.HasPrefix(string(id), groupPrefix):
		return KindGroup
	default:
		return KindDirect
	}
}

// Counterpart returns the other member of the direct conversation id that
// me belongs to. Ids that do not name exactly two members are rejected.
func Counterpart(id ConversationID, me ParticipantID) (ParticipantID, bool) {
	rest, ok := strings.CutPrefix(string(id), directPrefix)
	if !ok || me == "" {
		return "", false
	}
	members := strings.Split(rest, directSeparator)
	if len(members) != 2 || members[0] == "" || members[1] == "" {
		return "", false
	}
	switch string(me) {
	case members[0]:
		return ParticipantID(members[1]), true
	case members[1]:
		return ParticipantID(members[0]), true
	default:
		return "", false
	}
}

// NewConversation builds a list entry for id as seen by me.
func NewConversation(id ConversationID, me ParticipantID) Conversation {
	c := Conversation{ID: id, Kind: KindOf(id)}
	switch c.Kind {
	case KindGlobal:
		c.Name = "Global"
	case KindDirect:
		if peer, ok := Counterpart(id, me); ok {
			c.Name = ShortLabel(peer)
			c.Participants = []ParticipantID{me, peer}
		}
	default:
		c.Name = string(id)
	}
	return c
}
