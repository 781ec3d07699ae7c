package agreement

import (
	"crypto/ecdh"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"cyphertext/internal/domain"
	domaintypes "cyphertext/internal/domain/types"
	"cyphertext/internal/util/memzero"
)

var directKeyInfo = []byte("cyphertext/dm/aes-256-gcm")

// DeriveSharedKey returns the conversation key for ours and peer. The result
// is identical when the roles are swapped.
func DeriveSharedKey(ours *ecdh.PrivateKey, peer *ecdh.PublicKey) (domain.SymmetricKey, error) {
	var key domain.SymmetricKey
	if ours == nil || peer == nil {
		return key, domaintypes.ErrKeyAgreement
	}
	secret, err := ours.ECDH(peer)
	if err != nil {
		return key, fmt.Errorf("%w: %v", domaintypes.ErrKeyAgreement, err)
	}
	defer memzero.Zero(secret)

	r := hkdf.New(sha256.New, secret, nil, directKeyInfo)
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return domain.SymmetricKey{}, fmt.Errorf("%w: %v", domaintypes.ErrKeyAgreement, err)
	}
	return key, nil
}
