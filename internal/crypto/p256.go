package crypto

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/x509"
	"fmt"

	"cyphertext/internal/domain"
	domaintypes "cyphertext/internal/domain/types"
)

// GenerateIdentityKeyPair returns a fresh P-256 key-agreement pair.
func GenerateIdentityKeyPair() (domain.IdentityKeyPair, error) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return domain.IdentityKeyPair{}, err
	}
	return domain.IdentityKeyPair{Private: priv, Public: priv.PublicKey()}, nil
}

// ExportPublicKey encodes pub as base64 SubjectPublicKeyInfo DER.
func ExportPublicKey(pub *ecdh.PublicKey) (string, error) {
	if pub == nil {
		return "", domaintypes.ErrKeyFormat
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domaintypes.ErrKeyFormat, err)
	}
	return B64(der), nil
}

// ImportPublicKey is the inverse of ExportPublicKey. Anything that is not a
// base64 SPKI encoding of an EC key fails with ErrKeyFormat.
func ImportPublicKey(material string) (*ecdh.PublicKey, error) {
	der, err := UnB64(material)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domaintypes.ErrKeyFormat, err)
	}
	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domaintypes.ErrKeyFormat, err)
	}
	switch k := parsed.(type) {
	case *ecdh.PublicKey:
		return k, nil
	case *ecdsa.PublicKey:
		pub, err := k.ECDH()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domaintypes.ErrKeyFormat, err)
		}
		return pub, nil
	default:
		return nil, fmt.Errorf("%w: unexpected key type %T", domaintypes.ErrKeyFormat, parsed)
	}
}

// MarshalPrivateKey encodes priv as PKCS#8 DER for encrypted storage.
func MarshalPrivateKey(priv *ecdh.PrivateKey) ([]byte, error) {
	if priv == nil {
		return nil, domaintypes.ErrKeyFormat
	}
	return x509.MarshalPKCS8PrivateKey(priv)
}

// ParsePrivateKey reads a PKCS#8 P-256 key written by MarshalPrivateKey.
func ParsePrivateKey(der []byte) (*ecdh.PrivateKey, error) {
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domaintypes.ErrKeyFormat, err)
	}
	switch k := parsed.(type) {
	case *ecdh.PrivateKey:
		return k, nil
	case *ecdsa.PrivateKey:
		priv, err := k.ECDH()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domaintypes.ErrKeyFormat, err)
		}
		return priv, nil
	default:
		return nil, fmt.Errorf("%w: unexpected key type %T", domaintypes.ErrKeyFormat, parsed)
	}
}

// KeyPairFromIdentity restores the key pair held in a persisted identity.
func KeyPairFromIdentity(id domain.Identity) (domain.IdentityKeyPair, error) {
	priv, err := ParsePrivateKey(id.PrivateKey)
	if err != nil {
		return domain.IdentityKeyPair{}, err
	}
	return domain.IdentityKeyPair{Private: priv, Public: priv.PublicKey()}, nil
}
