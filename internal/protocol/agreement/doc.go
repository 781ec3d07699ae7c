// Package agreement derives the symmetric key two participants share for a
// direct conversation.
//
// # Overview
//
// Each participant holds a long-lived P-256 key pair and publishes the public
// half. Either side combines its private key with the other's public key:
//
//  1. ECDH over P-256 produces the same raw secret for both parties.
//  2. HKDF-SHA256 over that secret, bound to a fixed label, expands it to a
//     32-byte AES-256-GCM key.
//
// The raw ECDH output is wiped as soon as the key has been expanded.
//
// # Errors
//
// ErrKeyAgreement (domain) is returned when the keys are missing or belong
// to different curves.
//
// # Security notes
//
// The derived key is static for a pair of identities. There is no forward
// secrecy: compromise of either long-term private key exposes every message
// in the conversation, including the sender's own history.
package agreement
