package store

import (
	"context"
	"net/url"
	"path/filepath"
	"sync"

	"cyphertext/internal/domain"
)

const messagesDir = "messages"

// MessageFileStore caches decrypted records as one JSON file per
// conversation.
type MessageFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewMessageFileStore returns a MessageFileStore rooted at dir.
func NewMessageFileStore(dir string) *MessageFileStore {
	return &MessageFileStore{dir: filepath.Join(dir, messagesDir)}
}

// Get returns every cached record of conversationID.
func (s *MessageFileStore) Get(_ context.Context, conversationID domain.ConversationID) ([]domain.MessageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []domain.MessageRecord
	if err := readJSON(s.path(conversationID), &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Put inserts record, replacing a cached record with the same ID.
func (s *MessageFileStore) Put(_ context.Context, conversationID domain.ConversationID, record domain.MessageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(conversationID)
	var records []domain.MessageRecord
	if err := readJSON(path, &records); err != nil {
		return err
	}
	replaced := false
	for i := range records {
		if records[i].ID == record.ID {
			records[i] = record
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, record)
	}
	return writeJSON(path, records, 0o600)
}

func (s *MessageFileStore) path(conversationID domain.ConversationID) string {
	return filepath.Join(s.dir, url.PathEscape(conversationID.String())+".json")
}

// Compile-time assertion that MessageFileStore implements domain.LocalCache.
var _ domain.LocalCache = (*MessageFileStore)(nil)
