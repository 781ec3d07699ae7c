package identity

import (
	"fmt"
	"time"
	"unicode"

	"cyphertext/internal/crypto"
	"cyphertext/internal/domain"
	domaintypes "cyphertext/internal/domain/types"
)

const (
	// minPassphraseLength defines the minimum number of characters required for a passphrase.
	minPassphraseLength = 12
)

var (
	// ErrWeakPassphrase is returned when the passphrase fails the strength policy.
	ErrWeakPassphrase = fmt.Errorf(
		"passphrase is too weak (must be at least %d characters and include upper, lower, "+
			"number, and symbol)",
		minPassphraseLength,
	)
	// ErrNoParticipant is returned when an identity is requested without a participant id.
	ErrNoParticipant = fmt.Errorf("participant id required")
)

// Service manages identity key creation and access using a backing store.
//
// The identity is a single P-256 key pair used for ECDH with every peer,
// bound to the participant id it was created for.
type Service struct {
	store domain.IdentityStore
	now   func() time.Time
}

// New returns an identity service backed by the given store.
func New(s domain.IdentityStore) *Service { return &Service{store: s, now: time.Now} }

// GenerateIdentity creates a new identity, saves it encrypted with the passphrase,
// and returns the identity plus a short fingerprint of the public key.
func (s *Service) GenerateIdentity(
	participant domain.ParticipantID,
	passphrase string,
) (domain.Identity, domain.Fingerprint, error) {
	if participant == "" {
		return domain.Identity{}, "", ErrNoParticipant
	}
	if err := domaintypes.ValidateParticipant(participant); err != nil {
		return domain.Identity{}, "", err
	}
	if !isSecurePassphrase(passphrase) {
		return domain.Identity{}, "", ErrWeakPassphrase
	}

	id, err := NewIdentity(participant, s.now())
	if err != nil {
		return domain.Identity{}, "", err
	}
	if err := s.store.SaveIdentity(passphrase, id); err != nil {
		return domain.Identity{}, "", err
	}
	fp, err := crypto.FingerprintPublicKey(id.PublicKey)
	if err != nil {
		return domain.Identity{}, "", err
	}
	return id, fp, nil
}

// LoadIdentity decrypts and returns the local identity.
func (s *Service) LoadIdentity(passphrase string) (domain.Identity, error) {
	return s.store.LoadIdentity(passphrase)
}

// FingerprintIdentity returns a short fingerprint of the local public key.
func (s *Service) FingerprintIdentity(passphrase string) (domain.Fingerprint, error) {
	id, err := s.store.LoadIdentity(passphrase)
	if err != nil {
		return "", err
	}
	return crypto.FingerprintPublicKey(id.PublicKey)
}

// NewIdentity generates a key pair for participant without persisting it.
// Guest sessions use it directly.
func NewIdentity(participant domain.ParticipantID, now time.Time) (domain.Identity, error) {
	kp, err := crypto.GenerateIdentityKeyPair()
	if err != nil {
		return domain.Identity{}, err
	}
	der, err := crypto.MarshalPrivateKey(kp.Private)
	if err != nil {
		return domain.Identity{}, err
	}
	pub, err := crypto.ExportPublicKey(kp.Public)
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{
		Participant: participant,
		PrivateKey:  der,
		PublicKey:   pub,
		CreatedUTC:  now.Unix(),
	}, nil
}

// isSecurePassphrase enforces a basic strength policy.
func isSecurePassphrase(passphrase string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len(passphrase) < minPassphraseLength {
		return false
	}
	for _, r := range passphrase {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}

// Compile-time assertion that Service implements domain.IdentityService.
var _ domain.IdentityService = (*Service)(nil)
