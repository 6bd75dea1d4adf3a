package state

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ashureev/chatpad/internal/chat"
	"github.com/ashureev/chatpad/internal/domain"
)

// ConversationSnapshot is a point-in-time copy of the conversation
// container state.
type ConversationSnapshot struct {
	Conversations []domain.Conversation `json:"conversations"`
	CurrentID     string                `json:"currentId,omitempty"`
	Loading       bool                  `json:"loading"`
	LastError     string                `json:"lastError,omitempty"`
}

// ConversationState caches the conversation collection and tracks the
// currently selected conversation. Service errors are converted to a
// human-readable lastError and never propagate to callers.
type ConversationState struct {
	notifier

	svc *chat.Service

	mu            sync.RWMutex
	conversations []domain.Conversation
	currentID     string
	loading       bool
	lastError     string
}

// NewConversationState creates an empty container over the service.
func NewConversationState(svc *chat.Service) *ConversationState {
	return &ConversationState{svc: svc, conversations: []domain.Conversation{}}
}

// Load eagerly fills the cache from storage.
func (s *ConversationState) Load(ctx context.Context) {
	s.begin()
	conversations := s.svc.List(ctx)

	s.mu.Lock()
	s.conversations = conversations
	s.loading = false
	s.mu.Unlock()
	s.notify()
}

// Create adds a new conversation, selects it and returns it; nil on
// failure.
func (s *ConversationState) Create(ctx context.Context, title string) *domain.Conversation {
	s.begin()
	conv, err := s.svc.Create(ctx, title)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.lastError = "Failed to create conversation"
		slog.Error("Create conversation failed", "error", err)
	} else {
		s.conversations = append([]domain.Conversation{*conv}, s.conversations...)
		s.currentID = conv.ID
	}
	s.mu.Unlock()
	s.notify()
	return conv
}

// Delete removes a conversation and deselects it if it was current.
func (s *ConversationState) Delete(ctx context.Context, id string) {
	s.begin()
	err := s.svc.Delete(ctx, id)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.lastError = "Failed to delete conversation"
		slog.Error("Delete conversation failed", "conversation_id", id, "error", err)
	} else {
		kept := s.conversations[:0]
		for _, c := range s.conversations {
			if c.ID != id {
				kept = append(kept, c)
			}
		}
		s.conversations = kept
		if s.currentID == id {
			s.currentID = ""
		}
	}
	s.mu.Unlock()
	s.notify()
}

// AddMessage appends a message to a conversation and reconciles the
// cached copy, including its denormalized last-message fields. Returns
// nil on failure.
func (s *ConversationState) AddMessage(ctx context.Context, conversationID, text string, isUser bool) *domain.Message {
	s.begin()
	msg, err := s.svc.AddMessage(ctx, conversationID, text, isUser)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.lastError = "Failed to send message"
		slog.Error("Add message failed", "conversation_id", conversationID, "error", err)
	} else {
		for i := range s.conversations {
			if s.conversations[i].ID == conversationID {
				s.conversations[i].Messages = append(s.conversations[i].Messages, *msg)
				s.conversations[i].LastMessage = msg.Text
				s.conversations[i].LastMessageTime = msg.Timestamp
				break
			}
		}
	}
	s.mu.Unlock()
	s.notify()
	return msg
}

// Select marks a conversation as current. Selection is pure container
// state; no service call is involved.
func (s *ConversationState) Select(id string) {
	s.mu.Lock()
	s.currentID = id
	s.mu.Unlock()
	s.notify()
}

// Current returns a copy of the selected conversation, or nil.
func (s *ConversationState) Current() *domain.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.conversations {
		if c.ID == s.currentID {
			return &c
		}
	}
	return nil
}

// Snapshot returns a copy of the container state.
func (s *ConversationState) Snapshot() ConversationSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := ConversationSnapshot{
		Conversations: make([]domain.Conversation, len(s.conversations)),
		CurrentID:     s.currentID,
		Loading:       s.loading,
		LastError:     s.lastError,
	}
	copy(snap.Conversations, s.conversations)
	return snap
}

func (s *ConversationState) begin() {
	s.mu.Lock()
	s.loading = true
	s.lastError = ""
	s.mu.Unlock()
	s.notify()
}
