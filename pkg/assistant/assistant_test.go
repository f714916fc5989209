package assistant_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/tivivu/tivivu/pkg/assistant"
	"github.com/tivivu/tivivu/pkg/llm"
	"github.com/tivivu/tivivu/pkg/store"
)

func seedConversation(t *testing.T, s store.Store, userID string, turns int) string {
	t.Helper()
	c, err := s.CreateConversation(context.Background(), userID, "")
	if err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
	for i := 0; i < turns; i++ {
		role := store.RoleUser
		if i%2 == 1 {
			role = store.RoleAssistant
		}
		if _, err := s.CreateMessage(context.Background(), c.ID, userID, role, fmt.Sprintf("msg-%d", i)); err != nil {
			t.Fatalf("seed message: %v", err)
		}
	}
	return c.ID
}

func TestReply(t *testing.T) {
	ctx := context.Background()

	t.Run("prompt layout", func(t *testing.T) {
		mock := llm.WithReply("  Chào bạn!  ")
		s := store.NewMemory()
		a := assistant.New(mock, s)
		id := seedConversation(t, s, "alice", 2)

		reply, err := a.Reply(ctx, id, "alice", "How do I say hello?", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reply != "Chào bạn!" {
			t.Errorf("expected trimmed reply, got %q", reply)
		}

		req := mock.LastCall().Request
		if len(req.Messages) != 4 {
			t.Fatalf("expected system + 2 history + user, got %d messages", len(req.Messages))
		}
		if req.Messages[0].Role != llm.RoleSystem || !strings.Contains(req.Messages[0].Content, "TiViVu") {
			t.Error("expected persona system prompt first")
		}
		if req.Messages[1].Content != "msg-0" || req.Messages[2].Content != "msg-1" {
			t.Error("expected history in chronological order")
		}
		last := req.Messages[len(req.Messages)-1]
		if last.Role != llm.RoleUser || last.Content != "How do I say hello?" {
			t.Errorf("expected user message last, got %+v", last)
		}
	})

	t.Run("extra system prompt", func(t *testing.T) {
		mock := llm.WithReply("ok")
		s := store.NewMemory()
		a := assistant.New(mock, s)
		id := seedConversation(t, s, "alice", 0)

		_, err := a.Reply(ctx, id, "alice", "hi", &assistant.ReplyOptions{
			ExtraSystemPrompt: assistant.VoiceBrevityPrompt,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		req := mock.LastCall().Request
		if len(req.Messages) != 3 {
			t.Fatalf("expected 3 messages, got %d", len(req.Messages))
		}
		if req.Messages[1].Role != llm.RoleSystem || req.Messages[1].Content != assistant.VoiceBrevityPrompt {
			t.Error("expected extra system prompt after persona")
		}
	})

	t.Run("history window caps", func(t *testing.T) {
		limit := assistant.DefaultHistoryLimit
		for _, turns := range []int{0, 1, limit - 1, limit, limit + 1} {
			t.Run(fmt.Sprintf("%d stored messages", turns), func(t *testing.T) {
				mock := llm.WithReply("ok")
				s := store.NewMemory()
				a := assistant.New(mock, s)
				id := seedConversation(t, s, "alice", turns)

				if _, err := a.Reply(ctx, id, "alice", "next", nil); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}

				want := turns
				if want > limit {
					want = limit
				}
				req := mock.LastCall().Request
				got := len(req.Messages) - 2 // minus system and user turn
				if got != want {
					t.Errorf("expected %d history messages, got %d", want, got)
				}
				if turns > limit {
					// window keeps the most recent messages
					first := req.Messages[1]
					if first.Content != fmt.Sprintf("msg-%d", turns-limit) {
						t.Errorf("expected window to start at msg-%d, got %q", turns-limit, first.Content)
					}
				}
			})
		}
	})

	t.Run("provider failure propagates", func(t *testing.T) {
		boom := errors.New("backend down")
		s := store.NewMemory()
		a := assistant.New(llm.WithError(boom), s)
		id := seedConversation(t, s, "alice", 0)

		if _, err := a.Reply(ctx, id, "alice", "hi", nil); !errors.Is(err, boom) {
			t.Errorf("expected wrapped provider error, got %v", err)
		}
	})

	t.Run("foreign conversation", func(t *testing.T) {
		s := store.NewMemory()
		a := assistant.New(llm.WithReply("ok"), s)
		id := seedConversation(t, s, "alice", 0)

		if _, err := a.Reply(ctx, id, "bob", "hi", nil); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestSimplePrompt(t *testing.T) {
	mock := llm.WithReply(" pong ")
	a := assistant.New(mock, store.NewMemory())

	reply, err := a.SimplePrompt(context.Background(), "Say 'pong' in one short sentence.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "pong" {
		t.Errorf("expected trimmed reply, got %q", reply)
	}
	req := mock.LastCall().Request
	if len(req.Messages) != 2 {
		t.Fatalf("expected system + user only, got %d messages", len(req.Messages))
	}
}

func TestGenerateTitle(t *testing.T) {
	ctx := context.Background()

	t.Run("transcript prompt and sanitize", func(t *testing.T) {
		mock := llm.WithReply("\"Ordering Coffee Practice\"\n")
		s := store.NewMemory()
		a := assistant.New(mock, s)
		id := seedConversation(t, s, "alice", 3)

		title, err := a.GenerateTitle(ctx, id, "alice")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if title != "Ordering Coffee Practice" {
			t.Errorf("expected sanitized title, got %q", title)
		}

		req := mock.LastCall().Request
		if len(req.Messages) != 1 || req.Messages[0].Role != llm.RoleUser {
			t.Fatal("expected a single user prompt")
		}
		prompt := req.Messages[0].Content
		if !strings.Contains(prompt, "user: msg-0") || !strings.Contains(prompt, "assistant: msg-1") {
			t.Error("expected role-tagged transcript in prompt")
		}
		if req.Temperature != 0.2 {
			t.Errorf("expected low title temperature, got %v", req.Temperature)
		}
		if req.MaxTokens != assistant.DefaultTitleMaxTokens {
			t.Errorf("expected title token bound, got %d", req.MaxTokens)
		}
	})

	t.Run("transcript cap", func(t *testing.T) {
		mock := llm.WithReply("Title")
		s := store.NewMemory()
		a := assistant.New(mock, s)
		id := seedConversation(t, s, "alice", assistant.DefaultTitleHistoryLimit+4)

		if _, err := a.GenerateTitle(ctx, id, "alice"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		prompt := mock.LastCall().Request.Messages[0].Content
		if strings.Contains(prompt, "msg-0\n") {
			t.Error("expected oldest messages outside the window to be dropped")
		}
		if !strings.Contains(prompt, fmt.Sprintf("msg-%d", assistant.DefaultTitleHistoryLimit+3)) {
			t.Error("expected most recent message in transcript")
		}
	})
}

func TestRetitleIfGeneric(t *testing.T) {
	ctx := context.Background()

	t.Run("generic title gets replaced", func(t *testing.T) {
		s := store.NewMemory()
		a := assistant.New(llm.WithReply("Daily Vocabulary Review"), s)
		id := seedConversation(t, s, "alice", 2)

		title, ok := a.RetitleIfGeneric(ctx, id, "alice")
		if !ok || title != "Daily Vocabulary Review" {
			t.Errorf("expected rewrite, got %q ok=%v", title, ok)
		}
		c, _ := s.GetConversation(ctx, id, "alice")
		if c.Title != "Daily Vocabulary Review" {
			t.Errorf("expected new title, got %q", c.Title)
		}
	})

	t.Run("custom title untouched", func(t *testing.T) {
		mock := llm.WithReply("Should Not Appear")
		s := store.NewMemory()
		a := assistant.New(mock, s)
		id := seedConversation(t, s, "alice", 2)
		s.UpdateTitle(ctx, id, "alice", "My Custom Title")

		if _, ok := a.RetitleIfGeneric(ctx, id, "alice"); ok {
			t.Error("expected no rewrite for a custom title")
		}

		c, _ := s.GetConversation(ctx, id, "alice")
		if c.Title != "My Custom Title" {
			t.Errorf("expected title preserved, got %q", c.Title)
		}
		if mock.CallCount("Complete") != 0 {
			t.Error("expected no provider call for a custom title")
		}
	})

	t.Run("failure keeps prior title and fires hook", func(t *testing.T) {
		var hookErr error
		s := store.NewMemory()
		a := assistant.New(llm.WithError(errors.New("backend down")), s,
			assistant.WithTitleErrorHook(func(err error) { hookErr = err }),
		)
		id := seedConversation(t, s, "alice", 2)

		if _, ok := a.RetitleIfGeneric(ctx, id, "alice"); ok {
			t.Error("expected no rewrite on provider failure")
		}

		c, _ := s.GetConversation(ctx, id, "alice")
		if c.Title != store.DefaultTitle {
			t.Errorf("expected prior title preserved, got %q", c.Title)
		}
		if hookErr == nil {
			t.Error("expected title error hook to fire")
		}
	})
}

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Ordering Coffee", "Ordering Coffee"},
		{"wrapping quotes", `"Ordering Coffee"`, "Ordering Coffee"},
		{"newlines collapse", "Ordering\nCoffee\r\nPractice", "Ordering Coffee Practice"},
		{"whitespace trimmed", "  Ordering Coffee  ", "Ordering Coffee"},
		{"empty becomes fallback", "", "Conversation"},
		{"quotes only becomes fallback", `""`, "Conversation"},
		{"long title capped", strings.Repeat("a", 80), strings.Repeat("a", 60)},
		{"quote at cap boundary stripped", strings.Repeat("a", 59) + `" trailing words`, strings.Repeat("a", 59)},
		{"space at cap boundary trimmed", strings.Repeat("b", 59) + " trailing words", strings.Repeat("b", 59)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := assistant.SanitizeTitle(tt.in)
			if got != tt.want {
				t.Errorf("SanitizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if again := assistant.SanitizeTitle(got); again != got {
				t.Errorf("sanitize not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestIsGenericTitle(t *testing.T) {
	tests := []struct {
		title string
		want  bool
	}{
		{"", true},
		{"new chat", true},
		{"New Chat", true},
		{"  NEW CONVERSATION  ", true},
		{"New Conversation", true},
		{"Ordering Coffee", false},
		{"new chatter", false},
	}

	for _, tt := range tests {
		if got := assistant.IsGenericTitle(tt.title); got != tt.want {
			t.Errorf("IsGenericTitle(%q) = %v, want %v", tt.title, got, tt.want)
		}
	}
}
