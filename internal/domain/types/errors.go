package types

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyFormat is returned when public or private key material cannot be
	// parsed as a P-256 key.
	ErrKeyFormat = errors.New("malformed key material")
	// ErrKeyAgreement is returned when an ECDH agreement cannot be computed.
	ErrKeyAgreement = errors.New("key agreement failed")
	// ErrDecryption covers every authenticated-decryption failure.
	ErrDecryption = errors.New("decryption failed")
	// ErrInvalidParticipant is returned for participant ids that cannot be
	// embedded in a direct conversation id.
	ErrInvalidParticipant = errors.New("participant id must not contain \"_\"")
	// ErrNoPublishedKey means the directory has no key for the participant.
	ErrNoPublishedKey = errors.New("participant has not published a key")
	// ErrTransport is matched by every *TransportError.
	ErrTransport = errors.New("transport failure")
	// ErrUnsupportedConversation is returned for conversations that cannot
	// be sealed, currently groups.
	ErrUnsupportedConversation = errors.New("unsupported conversation")
)

// TransportError wraps a failed directory or transport call.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is reports true for ErrTransport so callers can match the class.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }
