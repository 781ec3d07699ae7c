package types

import "crypto/ecdh"

// IdentityKeyPair is the participant's P-256 key-agreement pair. It lives for
// the duration of a session and is never transmitted.
type IdentityKeyPair struct {
	Private *ecdh.PrivateKey
	Public  *ecdh.PublicKey
}

// SymmetricKeySize is the size of a derived conversation key (AES-256).
const SymmetricKeySize = 32

// SymmetricKey is the AES-256-GCM key shared by the two members of a direct
// conversation.
type SymmetricKey [SymmetricKeySize]byte

// Slice returns the key as a []byte.
func (k SymmetricKey) Slice() []byte { return k[:] }

// Sealed is the base64 output of a single authenticated encryption.
type Sealed struct {
	Ciphertext string `json:"ciphertext"`
	Nonce      string `json:"nonce"`
}
