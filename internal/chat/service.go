// Package chat implements the conversation record service. It owns the
// conversations collection key and is the only writer to it.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/chatpad/internal/domain"
	"github.com/ashureev/chatpad/internal/storage"
)

// Service provides CRUD and queries over the conversations collection.
// Every mutating call is a whole-collection read-modify-write; concurrent
// mutations race and the later write wins (accepted single-device
// limitation).
type Service struct {
	store storage.Store
}

// NewService creates a conversation service on the given store.
func NewService(store storage.Store) *Service {
	return &Service{store: store}
}

// List returns all conversations, newest first. Read faults and corrupt
// records degrade to an empty (or partial) result: they are logged, never
// surfaced, so callers cannot distinguish "no data" from a failed read.
func (s *Service) List(ctx context.Context) []domain.Conversation {
	var raw []json.RawMessage
	ok, err := s.store.Get(ctx, storage.KeyConversations, &raw)
	if err != nil {
		slog.Warn("Reading conversations failed, returning empty", "error", err)
		return []domain.Conversation{}
	}
	if !ok {
		return []domain.Conversation{}
	}
	return domain.SanitizeSlice[domain.Conversation](raw)
}

// Get returns the conversation with the given ID, or nil when absent.
func (s *Service) Get(ctx context.Context, id string) *domain.Conversation {
	for _, c := range s.List(ctx) {
		if c.ID == id {
			return &c
		}
	}
	return nil
}

// Create builds a new conversation with the trimmed title (falling back to
// the default on blank input), prepends it to the collection and persists.
func (s *Service) Create(ctx context.Context, title string) (*domain.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = domain.DefaultConversationTitle
	}

	conv := domain.Conversation{
		ID:              domain.NewID(),
		Title:           title,
		LastMessage:     "",
		LastMessageTime: domain.NewFlexTime(time.Now()),
		Messages:        []domain.Message{},
	}

	conversations := append([]domain.Conversation{conv}, s.List(ctx)...)
	if err := s.store.Set(ctx, storage.KeyConversations, conversations); err != nil {
		return nil, fmt.Errorf("persist conversations: %w", err)
	}
	return &conv, nil
}

// Update replaces the conversation with the same ID in the collection.
func (s *Service) Update(ctx context.Context, conv domain.Conversation) error {
	conversations := s.List(ctx)
	replaced := false
	for i := range conversations {
		if conversations[i].ID == conv.ID {
			conversations[i] = conv
			replaced = true
			break
		}
	}
	if !replaced {
		return fmt.Errorf("update conversation %s: %w", conv.ID, domain.ErrNotFound)
	}
	if err := s.store.Set(ctx, storage.KeyConversations, conversations); err != nil {
		return fmt.Errorf("persist conversations: %w", err)
	}
	return nil
}

// Delete removes the conversation with the given ID. Deleting an absent ID
// is a no-op, not an error.
func (s *Service) Delete(ctx context.Context, id string) error {
	conversations := s.List(ctx)
	kept := conversations[:0]
	for _, c := range conversations {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	if err := s.store.Set(ctx, storage.KeyConversations, kept); err != nil {
		return fmt.Errorf("persist conversations: %w", err)
	}
	return nil
}

// AddMessage appends a message to the conversation and refreshes the
// denormalized lastMessage/lastMessageTime fields.
func (s *Service) AddMessage(ctx context.Context, conversationID, text string, isUser bool) (*domain.Message, error) {
	conv := s.Get(ctx, conversationID)
	if conv == nil {
		return nil, fmt.Errorf("add message to conversation %s: %w", conversationID, domain.ErrNotFound)
	}

	msg := domain.Message{
		ID:             domain.NewID(),
		Text:           text,
		IsUser:         isUser,
		Timestamp:      domain.NewFlexTime(time.Now()),
		ConversationID: conversationID,
	}

	conv.Messages = append(conv.Messages, msg)
	conv.LastMessage = msg.Text
	conv.LastMessageTime = msg.Timestamp

	if err := s.Update(ctx, *conv); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Messages returns a slice of the conversation's messages: offset drops
// the first N, then limit keeps the first M of the remainder. limit <= 0
// means no limit. An absent conversation yields an empty slice.
func (s *Service) Messages(ctx context.Context, conversationID string, limit, offset int) []domain.Message {
	conv := s.Get(ctx, conversationID)
	if conv == nil {
		return []domain.Message{}
	}

	msgs := conv.Messages
	if offset > 0 {
		if offset >= len(msgs) {
			return []domain.Message{}
		}
		msgs = msgs[offset:]
	}
	if limit > 0 && limit < len(msgs) {
		msgs = msgs[:limit]
	}
	return msgs
}

// Search returns conversations whose title or any message text contains
// the query, case-insensitively.
func (s *Service) Search(ctx context.Context, query string) []domain.Conversation {
	query = strings.ToLower(query)
	matches := []domain.Conversation{}
	for _, c := range s.List(ctx) {
		if conversationMatches(c, query) {
			matches = append(matches, c)
		}
	}
	return matches
}

func conversationMatches(c domain.Conversation, lowerQuery string) bool {
	if strings.Contains(strings.ToLower(c.Title), lowerQuery) {
		return true
	}
	for _, m := range c.Messages {
		if strings.Contains(strings.ToLower(m.Text), lowerQuery) {
			return true
		}
	}
	return false
}

// Clear removes the whole conversations collection.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.store.Remove(ctx, storage.KeyConversations); err != nil {
		return fmt.Errorf("clear conversations: %w", err)
	}
	return nil
}
