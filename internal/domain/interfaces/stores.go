package interfaces

import (
	"context"

	domaintypes "cyphertext/internal/domain/types"
)

// LocalCache holds decrypted records per conversation.
type LocalCache interface {
	Get(ctx context.Context, conversationID domaintypes.ConversationID) ([]domaintypes.MessageRecord, error)
	// Put inserts or replaces the record with the same ID.
	Put(ctx context.Context, conversationID domaintypes.ConversationID, record domaintypes.MessageRecord) error
}

// IdentityStore persists your long-term identity keys.
type IdentityStore interface {
	SaveIdentity(passphrase string, id domaintypes.Identity) error
	LoadIdentity(passphrase string) (domaintypes.Identity, error)
	HasIdentity() (bool, error)
}

// ConversationStore keeps the conversation list and unread counters.
type ConversationStore interface {
	SaveConversation(conversation domaintypes.Conversation) error
	ListConversations() ([]domaintypes.Conversation, error)
}
