// Package crypto exposes the key-handling primitives used by cyphertext.
//
// Contents
//
//   - P-256 key-agreement pair generation (GenerateIdentityKeyPair)
//   - Public key exchange format, base64 SPKI DER (ExportPublicKey,
//     ImportPublicKey)
//   - PKCS#8 private key encoding for encrypted-at-rest identities
//     (MarshalPrivateKey, ParsePrivateKey, KeyPairFromIdentity)
//   - Short public-key fingerprints for display/logging (Fingerprint)
//
// # Notes
//
// Import failures are reported as domain ErrKeyFormat so callers can treat
// every malformed directory entry the same way.
package crypto
