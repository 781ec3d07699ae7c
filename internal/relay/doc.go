// Package relay provides the HTTP relay used by cyphertext clients: a gin
// Server exposing a domain.Relay backend, and a resty-based Client that
// implements domain.Directory and domain.Transport against it.
//
// The relay is a store-and-forward service for ciphertext envelopes and
// public keys. It never sees plaintext of direct conversations or any
// private key.
//
// HTTP API
//
//	PUT  /directory/{participant}                {"public_key": "<base64 SPKI>"}
//	GET  /directory/{participant}                404 when nothing was published
//	POST /conversations/{conversation}/envelopes append one envelope
//	GET  /conversations/{conversation}/envelopes full log ordered by created_at
//	GET  /subscribe                              websocket, CBOR envelope frames
//	GET  /healthz
//	GET  /metrics                                when enabled
//
// Non-2xx responses carry an ApiError body. The client maps transport
// failures and non-2xx statuses to *TransportError (domain).
package relay
