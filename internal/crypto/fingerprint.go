package crypto

import (
	"crypto/sha256"
	"encoding/hex"

	"cyphertext/internal/domain"
)

// Fingerprint returns a short hex fingerprint of a public key.
//
// It hashes with SHA-256 and truncates to 10 bytes (20 hex chars).
func Fingerprint(pub []byte) domain.Fingerprint {
	sum := sha256.Sum256(pub)
	return domain.Fingerprint(hex.EncodeToString(sum[:10]))
}

// FingerprintPublicKey fingerprints the DER behind an exported public key.
func FingerprintPublicKey(material string) (domain.Fingerprint, error) {
	der, err := UnB64(material)
	if err != nil {
		return "", err
	}
	return Fingerprint(der), nil
}
