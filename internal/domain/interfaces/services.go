package interfaces

import (
	"context"

	domaintypes "cyphertext/internal/domain/types"
)

// IdentityService creates, retrieves, and inspects your identity keys.
type IdentityService interface {
	GenerateIdentity(participant domaintypes.ParticipantID, passphrase string) (
		domaintypes.Identity,
		domaintypes.Fingerprint,
		error,
	)
	LoadIdentity(passphrase string) (domaintypes.Identity, error)
	FingerprintIdentity(passphrase string) (domaintypes.Fingerprint, error)
}

// KeyResolver yields the symmetric key shared with a peer.
type KeyResolver interface {
	SharedKey(ctx context.Context, peer domaintypes.ParticipantID) (domaintypes.SymmetricKey, error)
}

// Notifier surfaces user-facing events.
type Notifier interface {
	Notify(n domaintypes.Notification)
}

// MessageService opens, receives and sends conversation messages.
type MessageService interface {
	OpenConversation(ctx context.Context, conversationID domaintypes.ConversationID) (domaintypes.SyncResult, error)
	HandleEnvelope(ctx context.Context, envelope domaintypes.Envelope) error
	SendMessage(ctx context.Context, conversationID domaintypes.ConversationID, text string) (domaintypes.MessageRecord, error)
	TransportAvailable() bool
}
