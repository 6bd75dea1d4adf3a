package state

import (
	"context"
	"errors"
	"testing"

	"github.com/ashureev/chatpad/internal/chat"
	"github.com/ashureev/chatpad/internal/storage"
)

// failingStore rejects all writes while reads pass through.
type failingStore struct {
	*storage.MemoryStore
}

func (f *failingStore) Set(context.Context, string, any) error {
	return errors.New("disk full")
}

func newConversationState() *ConversationState {
	return NewConversationState(chat.NewService(storage.NewMemory()))
}

func TestConversationCreateSelectsNew(t *testing.T) {
	s := newConversationState()
	ctx := context.Background()

	conv := s.Create(ctx, "plans")
	if conv == nil {
		t.Fatal("Create returned nil")
	}

	snap := s.Snapshot()
	if len(snap.Conversations) != 1 {
		t.Fatalf("Expected 1 cached conversation, got %d", len(snap.Conversations))
	}
	if snap.CurrentID != conv.ID {
		t.Errorf("CurrentID = %q, want %q", snap.CurrentID, conv.ID)
	}
	if snap.Loading {
		t.Error("Loading should be false after action completes")
	}
	if snap.LastError != "" {
		t.Errorf("Unexpected lastError %q", snap.LastError)
	}
}

func TestConversationAddMessageReconcilesCache(t *testing.T) {
	s := newConversationState()
	ctx := context.Background()

	conv := s.Create(ctx, "chat")
	msg := s.AddMessage(ctx, conv.ID, "hello there", true)
	if msg == nil {
		t.Fatal("AddMessage returned nil")
	}

	snap := s.Snapshot()
	cached := snap.Conversations[0]
	if len(cached.Messages) != 1 {
		t.Fatalf("Expected 1 cached message, got %d", len(cached.Messages))
	}
	if cached.LastMessage != "hello there" {
		t.Errorf("Cached lastMessage = %q", cached.LastMessage)
	}
	if !cached.LastMessageTime.Equal(msg.Timestamp.Time) {
		t.Errorf("Cached lastMessageTime = %v, want %v", cached.LastMessageTime, msg.Timestamp)
	}
}

func TestConversationAddMessageMissingSetsError(t *testing.T) {
	s := newConversationState()

	if msg := s.AddMessage(context.Background(), "ghost", "hi", true); msg != nil {
		t.Fatal("Expected nil message for missing conversation")
	}
	if s.Snapshot().LastError == "" {
		t.Error("Expected lastError to be set")
	}
}

func TestConversationDeleteClearsSelection(t *testing.T) {
	s := newConversationState()
	ctx := context.Background()

	conv := s.Create(ctx, "doomed")
	s.Delete(ctx, conv.ID)

	snap := s.Snapshot()
	if len(snap.Conversations) != 0 {
		t.Errorf("Expected empty cache, got %d", len(snap.Conversations))
	}
	if snap.CurrentID != "" {
		t.Errorf("Expected cleared selection, got %q", snap.CurrentID)
	}
	if s.Current() != nil {
		t.Error("Current should be nil after deleting the selected conversation")
	}
}

func TestConversationWriteFailureSetsError(t *testing.T) {
	s := NewConversationState(chat.NewService(&failingStore{storage.NewMemory()}))

	if conv := s.Create(context.Background(), "will fail"); conv != nil {
		t.Fatal("Expected nil conversation on write failure")
	}
	snap := s.Snapshot()
	if snap.LastError != "Failed to create conversation" {
		t.Errorf("lastError = %q", snap.LastError)
	}
	if len(snap.Conversations) != 0 {
		t.Error("Failed create must not touch the cache")
	}
}

func TestConversationSubscribeReceivesTick(t *testing.T) {
	s := newConversationState()

	ch, cancel := s.Subscribe()
	defer cancel()

	s.Create(context.Background(), "ping")

	select {
	case <-ch:
	default:
		t.Error("Expected a change tick after Create")
	}
}

func TestConversationLoadFillsCache(t *testing.T) {
	store := storage.NewMemory()
	svc := chat.NewService(store)
	ctx := context.Background()
	if _, err := svc.Create(ctx, "pre-existing"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	s := NewConversationState(svc)
	s.Load(ctx)

	if got := s.Snapshot().Conversations; len(got) != 1 || got[0].Title != "pre-existing" {
		t.Errorf("Load cache = %+v", got)
	}
}
