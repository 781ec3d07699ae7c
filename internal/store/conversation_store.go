package store

import (
	"path/filepath"
	"sort"
	"sync"

	"cyphertext/internal/domain"
)

const conversationsFile = "conversations.json"

// ConversationFileStore persists the conversation list and unread counters.
type ConversationFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewConversationFileStore returns a ConversationFileStore rooted at dir.
func NewConversationFileStore(dir string) *ConversationFileStore {
	return &ConversationFileStore{dir: dir}
}

// SaveConversation stores or updates the given conversation.
func (s *ConversationFileStore) SaveConversation(conversation domain.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, conversationsFile)
	conversations := make(map[domain.ConversationID]domain.Conversation)
	if err := readJSON(path, &conversations); err != nil {
		return err
	}
	conversations[conversation.ID] = conversation
	return writeJSON(path, conversations, 0o600)
}

// ListConversations returns all stored conversations ordered by id.
func (s *ConversationFileStore) ListConversations() ([]domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conversations := make(map[domain.ConversationID]domain.Conversation)
	if err := readJSON(filepath.Join(s.dir, conversationsFile), &conversations); err != nil {
		return nil, err
	}
	out := make([]domain.Conversation, 0, len(conversations))
	for _, c := range conversations {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Compile-time assertion that ConversationFileStore implements domain.ConversationStore.
var _ domain.ConversationStore = (*ConversationFileStore)(nil)
