package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-memory Store for development and tests.
type Memory struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
	messages      map[string][]*Message
	vocabulary    map[string]*Vocabulary
	lastStamp     time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		conversations: make(map[string]*Conversation),
		messages:      make(map[string][]*Message),
		vocabulary:    make(map[string]*Vocabulary),
	}
}

// now returns a strictly increasing timestamp so that creation order is
// always recoverable by timestamp comparison.
func (m *Memory) now() time.Time {
	t := time.Now().UTC()
	if !t.After(m.lastStamp) {
		t = m.lastStamp.Add(time.Microsecond)
	}
	m.lastStamp = t
	return t
}

// CreateConversation creates a conversation for the user.
func (m *Memory) CreateConversation(_ context.Context, userID, title string) (*Conversation, error) {
	if title == "" {
		title = DefaultTitle
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	c := &Conversation{
		ID:        uuid.New().String(),
		Title:     title,
		Status:    StatusActive,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.conversations[c.ID] = c
	return cloneConversation(c), nil
}

// GetConversation returns the user's conversation or ErrNotFound.
func (m *Memory) GetConversation(_ context.Context, id, userID string) (*Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.conversations[id]
	if !ok || c.UserID != userID {
		return nil, ErrNotFound
	}
	return cloneConversation(c), nil
}

// GetOrCreateConversation resolves the id, creating a conversation when
// id is empty.
func (m *Memory) GetOrCreateConversation(ctx context.Context, id, userID string) (*Conversation, error) {
	if id == "" {
		return m.CreateConversation(ctx, userID, "")
	}
	return m.GetConversation(ctx, id, userID)
}

// ListConversations returns the user's conversations, newest first.
func (m *Memory) ListConversations(_ context.Context, userID string) ([]*Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Conversation, 0)
	for _, c := range m.conversations {
		if c.UserID == userID {
			out = append(out, cloneConversation(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// UpdateTitle rewrites the conversation title.
func (m *Memory) UpdateTitle(_ context.Context, id, userID, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.conversations[id]
	if !ok || c.UserID != userID {
		return ErrNotFound
	}
	c.Title = title
	c.UpdatedAt = m.now()
	return nil
}

// DeleteConversation removes the conversation and its messages.
func (m *Memory) DeleteConversation(_ context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.conversations[id]
	if !ok || c.UserID != userID {
		return ErrNotFound
	}
	delete(m.messages, id)
	delete(m.conversations, id)
	return nil
}

// CleanupEmptyConversations removes the user's conversations without
// messages and reports how many were deleted.
func (m *Memory) CleanupEmptyConversations(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, c := range m.conversations {
		if c.UserID == userID && len(m.messages[id]) == 0 {
			delete(m.conversations, id)
			removed++
		}
	}
	return removed, nil
}

// CreateMessage appends a message to a conversation the user owns.
func (m *Memory) CreateMessage(_ context.Context, conversationID, userID, role, content string) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.conversations[conversationID]
	if !ok || c.UserID != userID {
		return nil, ErrNotFound
	}

	msg := &Message{
		ID:             uuid.New().String(),
		Role:           role,
		Content:        content,
		ConversationID: conversationID,
		UserID:         userID,
		CreatedAt:      m.now(),
	}
	m.messages[conversationID] = append(m.messages[conversationID], msg)
	c.UpdatedAt = msg.CreatedAt
	return cloneMessage(msg), nil
}

// ListMessages returns messages in creation order. A positive limit keeps
// only the most recent limit messages.
func (m *Memory) ListMessages(_ context.Context, conversationID, userID string, limit int) ([]*Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.conversations[conversationID]
	if !ok || c.UserID != userID {
		return nil, ErrNotFound
	}

	msgs := m.messages[conversationID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]*Message, len(msgs))
	for i, msg := range msgs {
		out[i] = cloneMessage(msg)
	}
	return out, nil
}

// AddVocabulary stores a captured word.
func (m *Memory) AddVocabulary(_ context.Context, v *Vocabulary) (*Vocabulary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := *v
	entry.ID = uuid.New().String()
	entry.CreatedAt = m.now()
	m.vocabulary[entry.ID] = &entry

	out := entry
	return &out, nil
}

// ListVocabulary returns the user's vocabulary, newest first.
func (m *Memory) ListVocabulary(_ context.Context, userID string) ([]*Vocabulary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Vocabulary, 0)
	for _, v := range m.vocabulary {
		if v.UserID == userID {
			entry := *v
			out = append(out, &entry)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// DeleteVocabulary removes one vocabulary entry.
func (m *Memory) DeleteVocabulary(_ context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.vocabulary[id]
	if !ok || v.UserID != userID {
		return ErrNotFound
	}
	delete(m.vocabulary, id)
	return nil
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error { return nil }

func cloneConversation(c *Conversation) *Conversation {
	out := *c
	return &out
}

func cloneMessage(msg *Message) *Message {
	out := *msg
	return &out
}

// Verify Memory implements Store at compile time.
var _ Store = (*Memory)(nil)
