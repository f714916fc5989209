package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/tivivu/tivivu/pkg/store"
)

func TestMemoryConversations(t *testing.T) {
	ctx := context.Background()

	t.Run("create defaults the title", func(t *testing.T) {
		s := store.NewMemory()
		c, err := s.CreateConversation(ctx, "alice", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.Title != store.DefaultTitle {
			t.Errorf("expected %q, got %q", store.DefaultTitle, c.Title)
		}
		if c.Status != store.StatusActive {
			t.Errorf("expected active status, got %q", c.Status)
		}
		if c.ID == "" {
			t.Error("expected generated id")
		}
	})

	t.Run("get is scoped to the owner", func(t *testing.T) {
		s := store.NewMemory()
		c, _ := s.CreateConversation(ctx, "alice", "Practice")

		if _, err := s.GetConversation(ctx, c.ID, "alice"); err != nil {
			t.Fatalf("owner lookup failed: %v", err)
		}
		if _, err := s.GetConversation(ctx, c.ID, "bob"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected ErrNotFound for other user, got %v", err)
		}
	})

	t.Run("list is newest first", func(t *testing.T) {
		s := store.NewMemory()
		first, _ := s.CreateConversation(ctx, "alice", "First")
		second, _ := s.CreateConversation(ctx, "alice", "Second")
		s.CreateConversation(ctx, "bob", "Other user")

		list, err := s.ListConversations(ctx, "alice")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("expected 2 conversations, got %d", len(list))
		}
		if list[0].ID != second.ID || list[1].ID != first.ID {
			t.Error("expected newest conversation first")
		}
	})

	t.Run("get or create with empty id", func(t *testing.T) {
		s := store.NewMemory()
		c, err := s.GetOrCreateConversation(ctx, "", "alice")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.Title != store.DefaultTitle {
			t.Errorf("expected default title, got %q", c.Title)
		}
	})

	t.Run("get or create with unknown id", func(t *testing.T) {
		s := store.NewMemory()
		if _, err := s.GetOrCreateConversation(ctx, "missing", "alice"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("update title", func(t *testing.T) {
		s := store.NewMemory()
		c, _ := s.CreateConversation(ctx, "alice", "")

		if err := s.UpdateTitle(ctx, c.ID, "alice", "Ordering coffee"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, _ := s.GetConversation(ctx, c.ID, "alice")
		if got.Title != "Ordering coffee" {
			t.Errorf("expected updated title, got %q", got.Title)
		}
		if err := s.UpdateTitle(ctx, c.ID, "bob", "hijack"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected ErrNotFound for other user, got %v", err)
		}
	})

	t.Run("delete removes messages too", func(t *testing.T) {
		s := store.NewMemory()
		c, _ := s.CreateConversation(ctx, "alice", "")
		s.CreateMessage(ctx, c.ID, "alice", store.RoleUser, "hello")

		if err := s.DeleteConversation(ctx, c.ID, "alice"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := s.GetConversation(ctx, c.ID, "alice"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		if _, err := s.ListMessages(ctx, c.ID, "alice", 0); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected ErrNotFound for deleted conversation, got %v", err)
		}
	})

	t.Run("cleanup removes only empty conversations", func(t *testing.T) {
		s := store.NewMemory()
		empty1, _ := s.CreateConversation(ctx, "alice", "")
		s.CreateConversation(ctx, "alice", "")
		withMsgs, _ := s.CreateConversation(ctx, "alice", "")
		s.CreateMessage(ctx, withMsgs.ID, "alice", store.RoleUser, "hi")
		otherEmpty, _ := s.CreateConversation(ctx, "bob", "")

		removed, err := s.CleanupEmptyConversations(ctx, "alice")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if removed != 2 {
			t.Errorf("expected 2 removed, got %d", removed)
		}
		if _, err := s.GetConversation(ctx, empty1.ID, "alice"); !errors.Is(err, store.ErrNotFound) {
			t.Error("expected empty conversation to be gone")
		}
		if _, err := s.GetConversation(ctx, withMsgs.ID, "alice"); err != nil {
			t.Errorf("conversation with messages should survive: %v", err)
		}
		if _, err := s.GetConversation(ctx, otherEmpty.ID, "bob"); err != nil {
			t.Errorf("other user's conversation should survive: %v", err)
		}
	})
}

func TestMemoryMessages(t *testing.T) {
	ctx := context.Background()

	t.Run("ascending order with increasing timestamps", func(t *testing.T) {
		s := store.NewMemory()
		c, _ := s.CreateConversation(ctx, "alice", "")
		s.CreateMessage(ctx, c.ID, "alice", store.RoleUser, "one")
		s.CreateMessage(ctx, c.ID, "alice", store.RoleAssistant, "two")
		s.CreateMessage(ctx, c.ID, "alice", store.RoleUser, "three")

		msgs, err := s.ListMessages(ctx, c.ID, "alice", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(msgs) != 3 {
			t.Fatalf("expected 3 messages, got %d", len(msgs))
		}
		for i, want := range []string{"one", "two", "three"} {
			if msgs[i].Content != want {
				t.Errorf("message %d: expected %q, got %q", i, want, msgs[i].Content)
			}
		}
		for i := 1; i < len(msgs); i++ {
			if !msgs[i].CreatedAt.After(msgs[i-1].CreatedAt) {
				t.Errorf("message %d not strictly after predecessor", i)
			}
		}
	})

	t.Run("limit keeps the most recent messages", func(t *testing.T) {
		s := store.NewMemory()
		c, _ := s.CreateConversation(ctx, "alice", "")
		for _, content := range []string{"a", "b", "c", "d"} {
			s.CreateMessage(ctx, c.ID, "alice", store.RoleUser, content)
		}

		msgs, err := s.ListMessages(ctx, c.ID, "alice", 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(msgs) != 2 {
			t.Fatalf("expected 2 messages, got %d", len(msgs))
		}
		if msgs[0].Content != "c" || msgs[1].Content != "d" {
			t.Errorf("expected [c d], got [%s %s]", msgs[0].Content, msgs[1].Content)
		}
	})

	t.Run("create in foreign conversation fails", func(t *testing.T) {
		s := store.NewMemory()
		c, _ := s.CreateConversation(ctx, "alice", "")
		if _, err := s.CreateMessage(ctx, c.ID, "bob", store.RoleUser, "hi"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("message bumps conversation updated_at", func(t *testing.T) {
		s := store.NewMemory()
		c, _ := s.CreateConversation(ctx, "alice", "")
		before, _ := s.GetConversation(ctx, c.ID, "alice")
		s.CreateMessage(ctx, c.ID, "alice", store.RoleUser, "hi")
		after, _ := s.GetConversation(ctx, c.ID, "alice")
		if !after.UpdatedAt.After(before.UpdatedAt) {
			t.Error("expected updated_at to advance")
		}
	})
}

func TestMemoryVocabulary(t *testing.T) {
	ctx := context.Background()

	t.Run("add and list newest first", func(t *testing.T) {
		s := store.NewMemory()
		s.AddVocabulary(ctx, &store.Vocabulary{Word: "hello", Lang: "en", MeaningVI: "xin chào", UserID: "alice"})
		s.AddVocabulary(ctx, &store.Vocabulary{Word: "coffee", Lang: "en", MeaningVI: "cà phê", UserID: "alice"})
		s.AddVocabulary(ctx, &store.Vocabulary{Word: "other", Lang: "en", UserID: "bob"})

		list, err := s.ListVocabulary(ctx, "alice")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(list))
		}
		if list[0].Word != "coffee" || list[1].Word != "hello" {
			t.Errorf("expected newest first, got [%s %s]", list[0].Word, list[1].Word)
		}
	})

	t.Run("delete is scoped to the owner", func(t *testing.T) {
		s := store.NewMemory()
		v, _ := s.AddVocabulary(ctx, &store.Vocabulary{Word: "hello", Lang: "en", UserID: "alice"})

		if err := s.DeleteVocabulary(ctx, v.ID, "bob"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected ErrNotFound for other user, got %v", err)
		}
		if err := s.DeleteVocabulary(ctx, v.ID, "alice"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		list, _ := s.ListVocabulary(ctx, "alice")
		if len(list) != 0 {
			t.Errorf("expected empty list, got %d entries", len(list))
		}
	})
}
