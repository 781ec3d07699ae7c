package domain

import (
	interfaces "cyphertext/internal/domain/interfaces"
	types "cyphertext/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	ParticipantID    = types.ParticipantID
	Fingerprint      = types.Fingerprint
	ConversationID   = types.ConversationID
	ConversationKind = types.ConversationKind
	Conversation     = types.Conversation
	Identity         = types.Identity
	IdentityKeyPair  = types.IdentityKeyPair
	PublicKeyRecord  = types.PublicKeyRecord
	SymmetricKey     = types.SymmetricKey
	Sealed           = types.Sealed
	Envelope         = types.Envelope
	MessageRecord    = types.MessageRecord
	Notification     = types.Notification
	SyncResult       = types.SyncResult
	Payload          = types.Payload
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	Directory         = interfaces.Directory
	Transport         = interfaces.Transport
	Configurable      = interfaces.Configurable
	Relay             = interfaces.Relay
	LocalCache        = interfaces.LocalCache
	IdentityStore     = interfaces.IdentityStore
	ConversationStore = interfaces.ConversationStore
	IdentityService   = interfaces.IdentityService
	KeyResolver       = interfaces.KeyResolver
	Notifier          = interfaces.Notifier
	MessageService    = interfaces.MessageService
)
