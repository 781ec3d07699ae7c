package types

import (
	"fmt"
	"strings"
)

// ParticipantID is the stable identifier a participant logs in with
// (a wallet address or a guest handle).
type ParticipantID string

// String returns the string form of the participant identifier.
func (p ParticipantID) String() string { return string(p) }

// ValidateParticipant rejects ids containing the direct conversation
// separator.
func ValidateParticipant(p ParticipantID) error {
	if strings.Contains(string(p), directSeparator) {
		return fmt.Errorf("%w: %q", ErrInvalidParticipant, p)
	}
	return nil
}

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// ConversationID identifies a conversation: a direct pair, a group or the
// global channel.
type ConversationID string

// String returns the string form of the conversation identifier.
func (id ConversationID) String() string { return string(id) }

// shortLabelLength is how much of a participant id is shown as a sender label.
const shortLabelLength = 6

// LocalSenderLabel is shown for messages written by the local participant.
const LocalSenderLabel = "YOU"

// ShortLabel returns the display label for a remote sender.
func ShortLabel(p ParticipantID) string {
	s := string(p)
	if len(s) <= shortLabelLength {
		return s
	}
	return s[:shortLabelLength]
}
