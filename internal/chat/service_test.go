package chat

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ashureev/chatpad/internal/domain"
	"github.com/ashureev/chatpad/internal/storage"
)

func newTestService() *Service {
	return NewService(storage.NewMemory())
}

func TestCreateTrimsTitle(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	tests := []struct {
		title string
		want  string
	}{
		{"  Project ideas  ", "Project ideas"},
		{"", domain.DefaultConversationTitle},
		{"   ", domain.DefaultConversationTitle},
	}

	for _, tt := range tests {
		conv, err := svc.Create(ctx, tt.title)
		if err != nil {
			t.Fatalf("Create(%q): %v", tt.title, err)
		}
		if conv.Title != tt.want {
			t.Errorf("Create(%q) title = %q, want %q", tt.title, conv.Title, tt.want)
		}
		if len(conv.Messages) != 0 {
			t.Errorf("New conversation should have no messages, got %d", len(conv.Messages))
		}

		got := svc.Get(ctx, conv.ID)
		if got == nil {
			t.Fatalf("Get(%s) returned nil after Create", conv.ID)
		}
		if got.Title != tt.want {
			t.Errorf("Persisted title = %q, want %q", got.Title, tt.want)
		}
	}
}

func TestCreatePrependsNewestFirst(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	first, _ := svc.Create(ctx, "first")
	second, _ := svc.Create(ctx, "second")

	convs := svc.List(ctx)
	if len(convs) != 2 {
		t.Fatalf("Expected 2 conversations, got %d", len(convs))
	}
	if convs[0].ID != second.ID || convs[1].ID != first.ID {
		t.Error("Expected newest-first ordering")
	}
}

func TestAddMessageUpdatesDenormalizedFields(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	conv, _ := svc.Create(ctx, "chat")

	var last *domain.Message
	for _, text := range []string{"one", "two", "three"} {
		msg, err := svc.AddMessage(ctx, conv.ID, text, true)
		if err != nil {
			t.Fatalf("AddMessage(%q): %v", text, err)
		}
		last = msg
	}

	got := svc.Get(ctx, conv.ID)
	if got == nil {
		t.Fatal("Conversation vanished")
	}
	if len(got.Messages) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(got.Messages))
	}
	if got.LastMessage != last.Text {
		t.Errorf("lastMessage = %q, want %q", got.LastMessage, last.Text)
	}
	if !got.LastMessageTime.Equal(last.Timestamp.Time) {
		t.Errorf("lastMessageTime = %v, want %v", got.LastMessageTime, last.Timestamp)
	}
	if got.Messages[2].ConversationID != conv.ID {
		t.Errorf("Message conversationId = %q, want %q", got.Messages[2].ConversationID, conv.ID)
	}
}

func TestAddMessageMissingConversation(t *testing.T) {
	svc := newTestService()

	_, err := svc.AddMessage(context.Background(), "ghost", "hello", true)
	if !errorsIsNotFound(err) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestUpdateMissingConversation(t *testing.T) {
	svc := newTestService()

	err := svc.Update(context.Background(), domain.Conversation{ID: "ghost", Title: "x"})
	if !errorsIsNotFound(err) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	conv, _ := svc.Create(ctx, "doomed")
	keep, _ := svc.Create(ctx, "keeper")

	if err := svc.Delete(ctx, conv.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, conv.ID); err != nil {
		t.Fatalf("Second delete should be a no-op, got %v", err)
	}
	if err := svc.Delete(ctx, "never-existed"); err != nil {
		t.Fatalf("Deleting unknown ID should be a no-op, got %v", err)
	}

	convs := svc.List(ctx)
	if len(convs) != 1 || convs[0].ID != keep.ID {
		t.Errorf("Expected only keeper to survive, got %+v", convs)
	}
}

func TestMessagesPaging(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	conv, _ := svc.Create(ctx, "chat")
	for _, text := range []string{"a", "b", "c", "d", "e"} {
		if _, err := svc.AddMessage(ctx, conv.ID, text, true); err != nil {
			t.Fatalf("AddMessage: %v", err)
		}
	}

	tests := []struct {
		name          string
		limit, offset int
		want          []string
	}{
		{"all", 0, 0, []string{"a", "b", "c", "d", "e"}},
		{"offset then limit", 2, 1, []string{"b", "c"}},
		{"offset beyond end", 0, 10, []string{}},
		{"limit beyond end", 10, 3, []string{"d", "e"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := svc.Messages(ctx, conv.ID, tt.limit, tt.offset)
			if len(msgs) != len(tt.want) {
				t.Fatalf("Expected %d messages, got %d", len(tt.want), len(msgs))
			}
			for i, text := range tt.want {
				if msgs[i].Text != text {
					t.Errorf("msgs[%d] = %q, want %q", i, msgs[i].Text, text)
				}
			}
		})
	}

	if got := svc.Messages(ctx, "ghost", 0, 0); len(got) != 0 {
		t.Errorf("Absent conversation should yield empty slice, got %d", len(got))
	}
}

func TestSearchMatchesTitleAndMessages(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	groceries, _ := svc.Create(ctx, "Groceries")
	travel, _ := svc.Create(ctx, "Travel plans")
	if _, err := svc.AddMessage(ctx, travel.ID, "Remember the PASSPORT", true); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}

	if got := svc.Search(ctx, "grocer"); len(got) != 1 || got[0].ID != groceries.ID {
		t.Errorf("Title search failed: %+v", got)
	}
	if got := svc.Search(ctx, "passport"); len(got) != 1 || got[0].ID != travel.ID {
		t.Errorf("Message search failed: %+v", got)
	}
	if got := svc.Search(ctx, "nothing"); len(got) != 0 {
		t.Errorf("Expected no matches, got %d", len(got))
	}
}

func TestListDegradesOnCorruptData(t *testing.T) {
	store := storage.NewMemory()
	svc := NewService(store)
	ctx := context.Background()

	// Not an array at all.
	if err := store.Set(ctx, storage.KeyConversations, map[string]string{"bad": "shape"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := svc.List(ctx); len(got) != 0 {
		t.Errorf("Corrupt collection should degrade to empty, got %d", len(got))
	}

	// Mixed array: one valid record, one junk entry.
	mixed := []json.RawMessage{
		json.RawMessage(`{"id":"c1","title":"ok","lastMessage":"","lastMessageTime":"2024-01-02T10:00:00Z","messages":[]}`),
		json.RawMessage(`{"title":"no id"}`),
	}
	if err := store.Set(ctx, storage.KeyConversations, mixed); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got := svc.List(ctx)
	if len(got) != 1 || got[0].ID != "c1" {
		t.Errorf("Expected only the valid record, got %+v", got)
	}
}

func TestClearRemovesCollection(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, "chat"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got := svc.List(ctx); len(got) != 0 {
		t.Errorf("Expected empty after clear, got %d", len(got))
	}
}

func errorsIsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
