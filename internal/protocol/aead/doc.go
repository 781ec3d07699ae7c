// Package aead seals and opens direct-conversation messages with AES-256-GCM.
//
// Every call to Encrypt draws a fresh random 96-bit nonce; nonces are never
// derived from counters or timestamps. Ciphertext and nonce travel as
// standard base64 strings. Decrypt collapses every failure (encoding, nonce
// size, authentication) into ErrDecryption so callers cannot distinguish a
// tampered message from a wrong key.
package aead
