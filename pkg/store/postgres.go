package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tivivu/tivivu/pkg/store/migrations"
)

// Postgres implements Store on a pgx connection pool.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres connects to the database, runs pending migrations and
// returns a ready store.
func NewPostgres(ctx context.Context, databaseURL string, logger *slog.Logger) (*Postgres, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	if err := migrations.Up(ctx, databaseURL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	logger.Info("database ready")
	return &Postgres{pool: pool, logger: logger.With("component", "store.postgres")}, nil
}

// CreateConversation creates a conversation for the user.
func (p *Postgres) CreateConversation(ctx context.Context, userID, title string) (*Conversation, error) {
	if title == "" {
		title = DefaultTitle
	}

	var c Conversation
	err := p.pool.QueryRow(ctx, `
		INSERT INTO conversations (title, status, user_id)
		VALUES ($1, $2, $3)
		RETURNING id, title, status, user_id, created_at, updated_at`,
		title, StatusActive, userID,
	).Scan(&c.ID, &c.Title, &c.Status, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: create conversation: %w", err)
	}
	return &c, nil
}

// GetConversation returns the user's conversation or ErrNotFound.
func (p *Postgres) GetConversation(ctx context.Context, id, userID string) (*Conversation, error) {
	var c Conversation
	err := p.pool.QueryRow(ctx, `
		SELECT id, title, status, user_id, created_at, updated_at
		FROM conversations
		WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&c.ID, &c.Title, &c.Status, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get conversation: %w", err)
	}
	return &c, nil
}

// GetOrCreateConversation resolves the id, creating a conversation when
// id is empty.
func (p *Postgres) GetOrCreateConversation(ctx context.Context, id, userID string) (*Conversation, error) {
	if id == "" {
		return p.CreateConversation(ctx, userID, "")
	}
	return p.GetConversation(ctx, id, userID)
}

// ListConversations returns the user's conversations, newest first.
func (p *Postgres) ListConversations(ctx context.Context, userID string) ([]*Conversation, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, title, status, user_id, created_at, updated_at
		FROM conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list conversations: %w", err)
	}
	defer rows.Close()

	out := make([]*Conversation, 0)
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.Title, &c.Status, &c.UserID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan conversation: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// UpdateTitle rewrites the conversation title.
func (p *Postgres) UpdateTitle(ctx context.Context, id, userID, title string) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE conversations
		SET title = $1, updated_at = now()
		WHERE id = $2 AND user_id = $3`,
		title, id, userID,
	)
	if err != nil {
		return fmt.Errorf("store: update title: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteConversation removes the conversation and its messages in one
// transaction, messages first.
func (p *Postgres) DeleteConversation(ctx context.Context, id, userID string) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM messages
		WHERE conversation_id = $1 AND user_id = $2`,
		id, userID,
	); err != nil {
		return fmt.Errorf("store: delete messages: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		DELETE FROM conversations
		WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("store: delete conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

// CleanupEmptyConversations removes the user's conversations without
// messages.
func (p *Postgres) CleanupEmptyConversations(ctx context.Context, userID string) (int, error) {
	tag, err := p.pool.Exec(ctx, `
		DELETE FROM conversations c
		WHERE c.user_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM messages m WHERE m.conversation_id = c.id
		  )`,
		userID,
	)
	if err != nil {
		return 0, fmt.Errorf("store: cleanup conversations: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// CreateMessage appends a message to a conversation the user owns and
// bumps the conversation's updated_at.
func (p *Postgres) CreateMessage(ctx context.Context, conversationID, userID, role, content string) (*Message, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var owner string
	err = tx.QueryRow(ctx, `
		SELECT user_id FROM conversations WHERE id = $1 AND user_id = $2`,
		conversationID, userID,
	).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: check conversation: %w", err)
	}

	var msg Message
	err = tx.QueryRow(ctx, `
		INSERT INTO messages (role, content, conversation_id, user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, role, content, conversation_id, user_id, created_at`,
		role, content, conversationID, userID,
	).Scan(&msg.ID, &msg.Role, &msg.Content, &msg.ConversationID, &msg.UserID, &msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: create message: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE conversations SET updated_at = now() WHERE id = $1`,
		conversationID,
	); err != nil {
		return nil, fmt.Errorf("store: touch conversation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("store: commit: %w", err)
	}
	return &msg, nil
}

// ListMessages returns messages in creation order. A positive limit keeps
// only the most recent limit messages.
func (p *Postgres) ListMessages(ctx context.Context, conversationID, userID string, limit int) ([]*Message, error) {
	if _, err := p.GetConversation(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	query := `
		SELECT id, role, content, conversation_id, user_id, created_at
		FROM messages
		WHERE conversation_id = $1 AND user_id = $2
		ORDER BY created_at ASC`
	args := []interface{}{conversationID, userID}
	if limit > 0 {
		query = `
			SELECT id, role, content, conversation_id, user_id, created_at
			FROM (
				SELECT id, role, content, conversation_id, user_id, created_at
				FROM messages
				WHERE conversation_id = $1 AND user_id = $2
				ORDER BY created_at DESC
				LIMIT $3
			) recent
			ORDER BY created_at ASC`
		args = append(args, limit)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list messages: %w", err)
	}
	defer rows.Close()

	out := make([]*Message, 0)
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &msg.ConversationID, &msg.UserID, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan message: %w", err)
		}
		out = append(out, &msg)
	}
	return out, rows.Err()
}

// AddVocabulary stores a captured word.
func (p *Postgres) AddVocabulary(ctx context.Context, v *Vocabulary) (*Vocabulary, error) {
	var out Vocabulary
	err := p.pool.QueryRow(ctx, `
		INSERT INTO vocabulary (word, lang, meaning_vi, notes, source, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, word, lang, meaning_vi, notes, source, user_id, created_at`,
		v.Word, v.Lang, v.MeaningVI, v.Notes, v.Source, v.UserID,
	).Scan(&out.ID, &out.Word, &out.Lang, &out.MeaningVI, &out.Notes, &out.Source, &out.UserID, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: add vocabulary: %w", err)
	}
	return &out, nil
}

// ListVocabulary returns the user's vocabulary, newest first.
func (p *Postgres) ListVocabulary(ctx context.Context, userID string) ([]*Vocabulary, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, word, lang, meaning_vi, notes, source, user_id, created_at
		FROM vocabulary
		WHERE user_id = $1
		ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list vocabulary: %w", err)
	}
	defer rows.Close()

	out := make([]*Vocabulary, 0)
	for rows.Next() {
		var v Vocabulary
		if err := rows.Scan(&v.ID, &v.Word, &v.Lang, &v.MeaningVI, &v.Notes, &v.Source, &v.UserID, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan vocabulary: %w", err)
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}

// DeleteVocabulary removes one vocabulary entry.
func (p *Postgres) DeleteVocabulary(ctx context.Context, id, userID string) error {
	tag, err := p.pool.Exec(ctx, `
		DELETE FROM vocabulary WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("store: delete vocabulary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// Verify Postgres implements Store at compile time.
var _ Store = (*Postgres)(nil)
