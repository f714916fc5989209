// Package store persists conversations, messages and vocabulary entries.
//
// Two implementations are provided: Postgres (pgx) for production and an
// in-memory store for development and tests. Every operation is scoped to
// the owning user; a lookup that crosses an ownership boundary reports
// ErrNotFound, never another user's data.
package store

import (
	"context"
	"errors"
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation statuses.
const (
	StatusActive   = "active"
	StatusArchived = "archived"
)

// DefaultTitle is the placeholder title for new conversations.
const DefaultTitle = "New Conversation"

// Sentinel errors.
var (
	// ErrNotFound is returned when a record does not exist for the
	// requesting user.
	ErrNotFound = errors.New("store: not found")
)

// Conversation is one chat thread owned by a user.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Message is one immutable utterance inside a conversation.
type Message struct {
	ID             string    `json:"id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	ConversationID string    `json:"conversationId"`
	UserID         string    `json:"userId"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Vocabulary is one captured word with its study notes.
type Vocabulary struct {
	ID        string    `json:"id"`
	Word      string    `json:"word"`
	Lang      string    `json:"lang"`
	MeaningVI string    `json:"meaningVi,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	Source    string    `json:"source,omitempty"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store is the persistence interface for conversations and messages.
type Store interface {
	// CreateConversation creates a conversation for the user. An empty
	// title defaults to DefaultTitle.
	CreateConversation(ctx context.Context, userID, title string) (*Conversation, error)

	// GetConversation returns the user's conversation or ErrNotFound.
	GetConversation(ctx context.Context, id, userID string) (*Conversation, error)

	// GetOrCreateConversation resolves the id for the user, creating a
	// fresh conversation when id is empty. A non-empty id that does not
	// belong to the user yields ErrNotFound.
	GetOrCreateConversation(ctx context.Context, id, userID string) (*Conversation, error)

	// ListConversations returns the user's conversations, newest first.
	ListConversations(ctx context.Context, userID string) ([]*Conversation, error)

	// UpdateTitle rewrites the conversation title.
	UpdateTitle(ctx context.Context, id, userID, title string) error

	// DeleteConversation removes the conversation and its messages.
	DeleteConversation(ctx context.Context, id, userID string) error

	// CleanupEmptyConversations deletes the user's conversations that
	// contain no messages and returns how many were removed.
	CleanupEmptyConversations(ctx context.Context, userID string) (int, error)

	// CreateMessage appends an immutable message to a conversation.
	CreateMessage(ctx context.Context, conversationID, userID, role, content string) (*Message, error)

	// ListMessages returns messages in creation order (ascending).
	// A limit > 0 keeps only the most recent limit messages, still in
	// ascending order.
	ListMessages(ctx context.Context, conversationID, userID string, limit int) ([]*Message, error)

	// AddVocabulary stores a captured word for the user.
	AddVocabulary(ctx context.Context, v *Vocabulary) (*Vocabulary, error)

	// ListVocabulary returns the user's vocabulary, newest first.
	ListVocabulary(ctx context.Context, userID string) ([]*Vocabulary, error)

	// DeleteVocabulary removes one vocabulary entry.
	DeleteVocabulary(ctx context.Context, id, userID string) error

	// Close releases the underlying resources.
	Close() error
}
