// Package peerkey resolves the symmetric key shared with a peer.
//
// It looks up the peer's published key in the directory, imports it, and
// runs the agreement with the session's private key. Derived keys are kept
// in an LRU keyed by a hash of both public keys, so a peer that republishes
// a new key never gets a stale secret.
package peerkey
