// Package store provides on-disk persistence for cyphertext's local state.
//
// It contains concrete implementations of the domain storage interfaces.
// JSON files are written atomically via a temp file and rename; all methods
// are concurrency-safe via internal locking. Stored files typically live
// under the user's configured home directory.
//
// The package includes stores for:
//   - The passphrase-encrypted identity key pair (IdentityFileStore)
//   - Decrypted message records, as JSON files (MessageFileStore) or in
//     SQLite (MessageSQLiteStore)
//   - The conversation list and unread counters (ConversationFileStore)
package store
