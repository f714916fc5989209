// Package assistant assembles chat history into provider requests and
// turns the replies into conversation content and titles.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tivivu/tivivu/pkg/llm"
	"github.com/tivivu/tivivu/pkg/store"
)

const (
	// DefaultHistoryLimit caps the history window for reply generation.
	DefaultHistoryLimit = 12

	// DefaultTitleHistoryLimit caps the transcript used for titling.
	DefaultTitleHistoryLimit = 8

	// DefaultTitleMaxTokens bounds the title completion.
	DefaultTitleMaxTokens = 64

	titleTemperature = 0.2
)

// Config holds assistant configuration.
type Config struct {
	SystemPrompt      string
	HistoryLimit      int
	TitleHistoryLimit int
	Temperature       float64
	MaxTokens         int
	TitleMaxTokens    int
	Logger            *slog.Logger

	// OnTitleError is invoked when background title generation fails.
	// Title failures never fail the calling operation.
	OnTitleError func(error)
}

// Option is a functional option for configuring the assistant.
type Option func(*Config)

// WithSystemPrompt overrides the default persona prompt.
func WithSystemPrompt(prompt string) Option {
	return func(c *Config) { c.SystemPrompt = prompt }
}

// WithHistoryLimit caps the reply history window.
func WithHistoryLimit(n int) Option {
	return func(c *Config) { c.HistoryLimit = n }
}

// WithTitleHistoryLimit caps the titling transcript.
func WithTitleHistoryLimit(n int) Option {
	return func(c *Config) { c.TitleHistoryLimit = n }
}

// WithTemperature sets the reply sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *Config) { c.Temperature = t }
}

// WithMaxTokens bounds reply completions. Zero leaves the bound to the
// provider.
func WithMaxTokens(n int) Option {
	return func(c *Config) { c.MaxTokens = n }
}

// WithTitleMaxTokens bounds title completions.
func WithTitleMaxTokens(n int) Option {
	return func(c *Config) { c.TitleMaxTokens = n }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// WithTitleErrorHook registers a callback for title generation failures.
func WithTitleErrorHook(fn func(error)) Option {
	return func(c *Config) { c.OnTitleError = fn }
}

// Assistant generates replies and titles over a provider and a store.
type Assistant struct {
	provider llm.Provider
	store    store.Store
	config   *Config
	logger   *slog.Logger
}

// New creates an assistant over the given provider and store.
func New(provider llm.Provider, st store.Store, opts ...Option) *Assistant {
	cfg := &Config{
		SystemPrompt:      SystemPrompt,
		HistoryLimit:      DefaultHistoryLimit,
		TitleHistoryLimit: DefaultTitleHistoryLimit,
		Temperature:       0.7,
		TitleMaxTokens:    DefaultTitleMaxTokens,
		Logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Assistant{
		provider: provider,
		store:    st,
		config:   cfg,
		logger:   cfg.Logger.With("component", "assistant"),
	}
}

// ReplyOptions tune a single reply generation.
type ReplyOptions struct {
	// ExtraSystemPrompt is appended after the persona prompt, for
	// channel-specific instructions such as voice brevity.
	ExtraSystemPrompt string

	// MaxTokens overrides the configured bound when > 0.
	MaxTokens int
}

// Reply generates an assistant reply for userText in the context of the
// conversation's recent history. The user message itself is appended to
// the request; persisting it is the caller's job.
func (a *Assistant) Reply(ctx context.Context, conversationID, userID, userText string, opts *ReplyOptions) (string, error) {
	history, err := a.history(ctx, conversationID, userID, a.config.HistoryLimit)
	if err != nil {
		return "", fmt.Errorf("assistant: load history: %w", err)
	}

	messages := make([]llm.Message, 0, len(history)+3)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: a.config.SystemPrompt})
	if opts != nil && opts.ExtraSystemPrompt != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: opts.ExtraSystemPrompt})
	}
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userText})

	maxTokens := a.config.MaxTokens
	if opts != nil && opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}

	resp, err := a.provider.Complete(ctx, &llm.Request{
		Messages:    messages,
		Temperature: a.config.Temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("assistant: reply: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}

// SimplePrompt sends one user prompt with the persona but no history.
func (a *Assistant) SimplePrompt(ctx context.Context, prompt string) (string, error) {
	resp, err := a.provider.Complete(ctx, &llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: a.config.SystemPrompt},
			{Role: llm.RoleUser, Content: prompt},
		},
		Temperature: a.config.Temperature,
		MaxTokens:   a.config.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("assistant: prompt: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}

// history returns the most recent limit messages as provider messages,
// oldest first.
func (a *Assistant) history(ctx context.Context, conversationID, userID string, limit int) ([]llm.Message, error) {
	msgs, err := a.store.ListMessages(ctx, conversationID, userID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]llm.Message, len(msgs))
	for i, m := range msgs {
		out[i] = llm.Message{Role: llm.Role(m.Role), Content: m.Content}
	}
	return out, nil
}
