package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"cyphertext/internal/domain"
)

// MessageSQLiteStore caches decrypted records in a SQLite database. It is
// the alternative to MessageFileStore for long histories.
type MessageSQLiteStore struct {
	db *sql.DB
}

// NewMessageSQLiteStore opens (or creates) the database at path.
func NewMessageSQLiteStore(path string) (*MessageSQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open message cache: %w", err)
	}
	s := &MessageSQLiteStore{db: db}
	if err := s.createTable(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create message cache: %w", err)
	}
	return s, nil
}

func (s *MessageSQLiteStore) createTable() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS messages (
		conversation_id TEXT NOT NULL,
		id TEXT NOT NULL,
		sender_id TEXT NOT NULL,
		sender_label TEXT NOT NULL,
		text TEXT NOT NULL,
		sent_by_local_user INTEGER NOT NULL,
		timestamp_ms INTEGER NOT NULL,
		PRIMARY KEY (conversation_id, id)
	);
	CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(conversation_id, timestamp_ms);
	`)
	return err
}

// Get returns every cached record of conversationID in timestamp order.
func (s *MessageSQLiteStore) Get(ctx context.Context, conversationID domain.ConversationID) ([]domain.MessageRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, sender_id, sender_label, text, sent_by_local_user, timestamp_ms
	FROM messages WHERE conversation_id = ? ORDER BY timestamp_ms, id`, conversationID.String())
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []domain.MessageRecord
	for rows.Next() {
		rec := domain.MessageRecord{ConversationID: conversationID}
		var sender string
		if err := rows.Scan(&rec.ID, &sender, &rec.SenderLabel, &rec.Text, &rec.SentByLocalUser, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		rec.SenderID = domain.ParticipantID(sender)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Put inserts record, replacing a cached record with the same ID.
func (s *MessageSQLiteStore) Put(ctx context.Context, conversationID domain.ConversationID, record domain.MessageRecord) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT OR REPLACE INTO messages
		(conversation_id, id, sender_id, sender_label, text, sent_by_local_user, timestamp_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		conversationID.String(),
		record.ID,
		record.SenderID.String(),
		record.SenderLabel,
		record.Text,
		record.SentByLocalUser,
		record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("save message %s: %w", record.ID, err)
	}
	return nil
}

// Close releases the database handle.
func (s *MessageSQLiteStore) Close() error { return s.db.Close() }

// Compile-time assertion that MessageSQLiteStore implements domain.LocalCache.
var _ domain.LocalCache = (*MessageSQLiteStore)(nil)
