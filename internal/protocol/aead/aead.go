package aead

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"cyphertext/internal/crypto"
	"cyphertext/internal/domain"
	domaintypes "cyphertext/internal/domain/types"
)

// NonceSize is the GCM standard nonce length in bytes.
const NonceSize = 12

// Encrypt seals plaintext under key with a fresh random nonce.
func Encrypt(key domain.SymmetricKey, plaintext string) (domain.Sealed, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return domain.Sealed{}, err
	}
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return domain.Sealed{}, fmt.Errorf("nonce: %w", err)
	}
	ct := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	return domain.Sealed{Ciphertext: crypto.B64(ct), Nonce: crypto.B64(nonce)}, nil
}

// Decrypt opens a ciphertext produced by Encrypt.
func Decrypt(key domain.SymmetricKey, ciphertext, nonce string) (string, error) {
	ct, err := crypto.UnB64(ciphertext)
	if err != nil {
		return "", domaintypes.ErrDecryption
	}
	n, err := crypto.UnB64(nonce)
	if err != nil || len(n) != NonceSize {
		return "", domaintypes.ErrDecryption
	}
	gcm, err := newGCM(key)
	if err != nil {
		return "", domaintypes.ErrDecryption
	}
	pt, err := gcm.Open(nil, n, ct, nil)
	if err != nil {
		return "", domaintypes.ErrDecryption
	}
	return string(pt), nil
}

func newGCM(key domain.SymmetricKey) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key.Slice())
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
