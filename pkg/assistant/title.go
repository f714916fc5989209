package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/tivivu/tivivu/pkg/llm"
)

// FallbackTitle replaces an empty or unusable generated title.
const FallbackTitle = "Conversation"

const maxTitleRunes = 60

const titlePromptFormat = "Given the conversation transcript below, produce a concise, clear subject title (3-6 words) that describes the conversation context. Do not use quotes, punctuation-heavy strings, or emojis.\n\nTranscript:\n%s\n\nTitle:"

// GenerateTitle derives a short title from the conversation's recent
// transcript. The result is sanitized and never empty.
func (a *Assistant) GenerateTitle(ctx context.Context, conversationID, userID string) (string, error) {
	history, err := a.history(ctx, conversationID, userID, a.config.TitleHistoryLimit)
	if err != nil {
		return "", fmt.Errorf("assistant: load transcript: %w", err)
	}

	lines := make([]string, len(history))
	for i, m := range history {
		lines[i] = fmt.Sprintf("%s: %s", m.Role, m.Content)
	}
	prompt := fmt.Sprintf(titlePromptFormat, strings.Join(lines, "\n"))

	resp, err := a.provider.Complete(ctx, &llm.Request{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		Temperature: titleTemperature,
		MaxTokens:   a.config.TitleMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("assistant: generate title: %w", err)
	}
	return SanitizeTitle(resp.Content), nil
}

// RetitleIfGeneric regenerates the conversation title when the current
// one is still a placeholder. It returns the new title and true when a
// rewrite happened. Failures are absorbed: the prior title is kept and
// the configured hook, if any, is notified.
func (a *Assistant) RetitleIfGeneric(ctx context.Context, conversationID, userID string) (string, bool) {
	convo, err := a.store.GetConversation(ctx, conversationID, userID)
	if err != nil {
		a.titleError(fmt.Errorf("assistant: retitle lookup: %w", err))
		return "", false
	}
	if !IsGenericTitle(convo.Title) {
		return "", false
	}

	title, err := a.GenerateTitle(ctx, conversationID, userID)
	if err != nil {
		a.titleError(err)
		return "", false
	}
	if err := a.store.UpdateTitle(ctx, conversationID, userID, title); err != nil {
		a.titleError(fmt.Errorf("assistant: save title: %w", err))
		return "", false
	}
	a.logger.Debug("conversation retitled", "conversation_id", conversationID, "title", title)
	return title, true
}

func (a *Assistant) titleError(err error) {
	a.logger.Warn("title generation skipped", "error", err)
	if a.config.OnTitleError != nil {
		a.config.OnTitleError(err)
	}
}

// SanitizeTitle normalizes a model-generated title: wrapping quotes are
// stripped, newlines collapse to spaces, whitespace is trimmed and the
// result is capped at 60 runes. An empty result becomes FallbackTitle.
// Sanitizing an already-sanitized title is a no-op.
func SanitizeTitle(s string) string {
	s = strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Trim(s, `" `)
	// Truncation can expose a quote or space at the new boundary, so the
	// trim runs again on the capped string.
	if runes := []rune(s); len(runes) > maxTitleRunes {
		s = strings.Trim(string(runes[:maxTitleRunes]), `" `)
	}
	if s == "" {
		return FallbackTitle
	}
	return s
}

// IsGenericTitle reports whether a title is still a placeholder that the
// auto-titler may overwrite.
func IsGenericTitle(title string) bool {
	switch strings.ToLower(strings.TrimSpace(title)) {
	case "", "new chat", "new conversation":
		return true
	}
	return false
}
