// Package main runs the cyphertext relay. It serves the public-key
// directory and the append-only envelope log, and pushes new envelopes to
// websocket subscribers.
//
// HTTP API
//
//	PUT /directory/{participant}   {"public_key": "<base64 SPKI>"}
//	    Store or overwrite a participant's public key.
//
//	GET /directory/{participant}
//	    Return the published key, or 404.
//
//	POST /conversations/{id}/envelopes
//	    Append an envelope. An existing id is replaced, not duplicated.
//	    created_at is filled in when zero.
//
//	GET /conversations/{id}/envelopes
//	    Return the log ordered by created_at.
//
//	GET /subscribe
//	    Websocket; every appended envelope arrives as a CBOR frame.
//
//	GET /healthz, GET /metrics
//
// Behaviour
//
//   - The memory backend loses all state on exit; the redis backend keeps
//     it in hashes and sorted sets and fans out through pub/sub.
//   - The relay never sees private keys or the plaintext of direct
//     conversations. Global channel envelopes are plaintext.
//   - The default listen address is :8080.
package main
