// Package message is the sync engine.
//
// It reconciles the shared envelope log with the local cache of decrypted
// records. OpenConversation pulls history and decrypts only envelopes the
// cache has not seen. HandleEnvelope applies live pushes. SendMessage
// echoes locally first and then seals and appends. Direct conversations
// use the key shared with the counterpart; the global channel carries
// plaintext.
package message
