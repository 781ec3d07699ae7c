package interfaces

import (
	"context"

	domaintypes "cyphertext/internal/domain/types"
)

// Directory maps participants to their published public keys.
type Directory interface {
	// GetPublicKey returns the base64 SPKI key for participant, or ok=false
	// when none has been published.
	GetPublicKey(ctx context.Context, participant domaintypes.ParticipantID) (string, bool, error)
	// Publish stores or overwrites the participant's key.
	Publish(ctx context.Context, participant domaintypes.ParticipantID, publicKey string) error
}

// Transport is the append-only envelope log shared by all participants.
type Transport interface {
	Append(ctx context.Context, conversationID domaintypes.ConversationID, envelope domaintypes.Envelope) error
	// History returns envelopes ordered by creation time.
	History(ctx context.Context, conversationID domaintypes.ConversationID) ([]domaintypes.Envelope, error)
	// Subscribe delivers every newly appended envelope to fn until the
	// returned function is called.
	Subscribe(ctx context.Context, fn func(domaintypes.Envelope)) (func(), error)
}

// Configurable is implemented by transports that may be present but not
// usable, for example a relay client without a URL.
type Configurable interface {
	Configured() bool
}

// Relay is a backend that serves both the directory and the envelope log.
type Relay interface {
	Directory
	Transport
}
