// Package llm provides a unified interface for chat-completion providers.
//
// The package abstracts the OpenAI API and the OpenRouter routing API behind
// a single Provider interface. The backend is selected once at startup from
// configuration; callers never branch on the provider.
//
// Example usage:
//
//	provider, _ := llm.NewOpenAI(
//	    llm.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	    llm.WithModel("gpt-4o-mini"),
//	)
//	defer provider.Close()
//
//	resp, _ := provider.Complete(ctx, &llm.Request{
//	    Messages: []llm.Message{{Role: llm.RoleUser, Content: "Hello!"}},
//	})
package llm

import (
	"context"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request for a chat completion.
type Request struct {
	// Messages is the full prompt: system instructions, history, user turn.
	Messages []Message

	// Model overrides the provider's default model.
	Model string

	// MaxTokens limits the response length. Zero means provider default.
	MaxTokens int

	// Temperature controls randomness (0.0-2.0).
	Temperature float64
}

// Response from a chat completion.
type Response struct {
	// Content is the assistant's reply text, as returned by the provider.
	Content string

	// Model used for generation.
	Model string

	// Usage tracks token consumption.
	Usage Usage

	// LatencyMs is the response time in milliseconds.
	LatencyMs int64
}

// Usage tracks token consumption for billing and limits.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Provider is the interface for chat-completion backends.
// All implementations must satisfy this interface so the dialogue
// assembler stays polymorphic over the backend.
type Provider interface {
	// Complete generates a response from a sequence of messages.
	Complete(ctx context.Context, req *Request) (*Response, error)

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}
