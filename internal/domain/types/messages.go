package types

// Envelope is the wire-format message stored by the transport. For direct
// conversations Ciphertext and Nonce are base64 AES-GCM output; for the
// global channel Ciphertext carries the plaintext and Nonce is empty.
type Envelope struct {
	ID             string         `json:"id" cbor:"1,keyasint" validate:"required,numeric"`
	ConversationID ConversationID `json:"conversation_id" cbor:"2,keyasint" validate:"required"`
	SenderID       ParticipantID  `json:"sender_id" cbor:"3,keyasint" validate:"required,excludes=_"`
	Ciphertext     string         `json:"ciphertext" cbor:"4,keyasint"`
	Nonce          string         `json:"nonce,omitempty" cbor:"5,keyasint,omitempty"`
	CreatedAt      int64          `json:"created_at" cbor:"6,keyasint"`
}

// MessageRecord is a decrypted message as held by the local cache and shown
// to the user. At most one record per ID exists in a conversation.
type MessageRecord struct {
	ID              string         `json:"id"`
	ConversationID  ConversationID `json:"conversation_id"`
	SenderID        ParticipantID  `json:"sender_id"`
	SenderLabel     string         `json:"sender_label"`
	Text            string         `json:"text"`
	SentByLocalUser bool           `json:"sent_by_local_user"`
	Timestamp       int64          `json:"timestamp"`
}

// Severity classifies a user-facing notification.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityError Severity = "error"
)

// Notification is a user-facing event raised by the sync engine.
type Notification struct {
	Severity       Severity       `json:"severity"`
	Title          string         `json:"title"`
	Body           string         `json:"body"`
	ConversationID ConversationID `json:"conversation_id,omitempty"`
}

// SyncResult reports the outcome of opening a conversation.
type SyncResult struct {
	Records           []MessageRecord `json:"records"`
	Added             int             `json:"added"`
	Undecryptable     []string        `json:"undecryptable,omitempty"`
	RemoteUnavailable bool            `json:"remote_unavailable"`
}
