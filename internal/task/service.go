// Package task implements the task record service. It owns the tasks
// collection key and is the only writer to it.
package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/ashureev/chatpad/internal/domain"
	"github.com/ashureev/chatpad/internal/storage"
)

// Stats summarizes the task collection.
type Stats struct {
	Total          int     `json:"total"`
	Completed      int     `json:"completed"`
	Pending        int     `json:"pending"`
	CompletionRate float64 `json:"completionRate"`
}

// Service provides CRUD and queries over the tasks collection. Mutations
// follow the same whole-collection read-modify-write cycle as the
// conversation service.
type Service struct {
	store storage.Store
}

// NewService creates a task service on the given store.
func NewService(store storage.Store) *Service {
	return &Service{store: store}
}

// List returns all tasks, newest first. Read faults degrade to an empty
// result, logged but not surfaced.
func (s *Service) List(ctx context.Context) []domain.Task {
	var raw []json.RawMessage
	ok, err := s.store.Get(ctx, storage.KeyTasks, &raw)
	if err != nil {
		slog.Warn("Reading tasks failed, returning empty", "error", err)
		return []domain.Task{}
	}
	if !ok {
		return []domain.Task{}
	}
	return domain.SanitizeSlice[domain.Task](raw)
}

// Get returns the task with the given ID, or nil when absent.
func (s *Service) Get(ctx context.Context, id string) *domain.Task {
	for _, t := range s.List(ctx) {
		if t.ID == id {
			return &t
		}
	}
	return nil
}

// Create builds a new task with a fresh ID and creation timestamp,
// prepends it to the collection and persists. The title must be non-empty
// after trimming.
func (s *Service) Create(ctx context.Context, title, description, conversationID string) (*domain.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("create task with empty title: %w", domain.ErrInvalidData)
	}

	t := domain.Task{
		ID:             domain.NewID(),
		Title:          title,
		Description:    strings.TrimSpace(description),
		Completed:      false,
		CreatedAt:      domain.NewFlexTime(time.Now()),
		ConversationID: conversationID,
	}

	tasks := append([]domain.Task{t}, s.List(ctx)...)
	if err := s.store.Set(ctx, storage.KeyTasks, tasks); err != nil {
		return nil, fmt.Errorf("persist tasks: %w", err)
	}
	return &t, nil
}

// Update replaces the task with the same ID in the collection. CreatedAt
// is preserved from the stored record; it is set once at creation and
// never mutated.
func (s *Service) Update(ctx context.Context, t domain.Task) error {
	tasks := s.List(ctx)
	replaced := false
	for i := range tasks {
		if tasks[i].ID == t.ID {
			t.CreatedAt = tasks[i].CreatedAt
			tasks[i] = t
			replaced = true
			break
		}
	}
	if !replaced {
		return fmt.Errorf("update task %s: %w", t.ID, domain.ErrNotFound)
	}
	if err := s.store.Set(ctx, storage.KeyTasks, tasks); err != nil {
		return fmt.Errorf("persist tasks: %w", err)
	}
	return nil
}

// Delete removes the task with the given ID; absent IDs are a no-op.
func (s *Service) Delete(ctx context.Context, id string) error {
	tasks := s.List(ctx)
	kept := tasks[:0]
	for _, t := range tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	if err := s.store.Set(ctx, storage.KeyTasks, kept); err != nil {
		return fmt.Errorf("persist tasks: %w", err)
	}
	return nil
}

// ToggleCompletion flips the completed flag of the task and returns the
// updated record.
func (s *Service) ToggleCompletion(ctx context.Context, id string) (*domain.Task, error) {
	t := s.Get(ctx, id)
	if t == nil {
		return nil, fmt.Errorf("toggle task %s: %w", id, domain.ErrNotFound)
	}
	t.Completed = !t.Completed
	if err := s.Update(ctx, *t); err != nil {
		return nil, err
	}
	return t, nil
}

// FilterByStatus returns tasks with the given completed flag.
func (s *Service) FilterByStatus(ctx context.Context, completed bool) []domain.Task {
	matches := []domain.Task{}
	for _, t := range s.List(ctx) {
		if t.Completed == completed {
			matches = append(matches, t)
		}
	}
	return matches
}

// FilterByConversation returns tasks originating from the conversation.
func (s *Service) FilterByConversation(ctx context.Context, conversationID string) []domain.Task {
	matches := []domain.Task{}
	for _, t := range s.List(ctx) {
		if t.ConversationID == conversationID {
			matches = append(matches, t)
		}
	}
	return matches
}

// Search returns tasks whose title or description contains the query,
// case-insensitively.
func (s *Service) Search(ctx context.Context, query string) []domain.Task {
	query = strings.ToLower(query)
	matches := []domain.Task{}
	for _, t := range s.List(ctx) {
		if strings.Contains(strings.ToLower(t.Title), query) ||
			strings.Contains(strings.ToLower(t.Description), query) {
			matches = append(matches, t)
		}
	}
	return matches
}

// Stats computes collection totals. The completion rate is a percentage
// rounded to two decimals, 0 for an empty collection.
func (s *Service) Stats(ctx context.Context) Stats {
	tasks := s.List(ctx)
	stats := Stats{Total: len(tasks)}
	for _, t := range tasks {
		if t.Completed {
			stats.Completed++
		}
	}
	stats.Pending = stats.Total - stats.Completed
	if stats.Total > 0 {
		rate := float64(stats.Completed) / float64(stats.Total) * 100
		stats.CompletionRate = math.Round(rate*100) / 100
	}
	return stats
}

// Clear removes the whole tasks collection.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.store.Remove(ctx, storage.KeyTasks); err != nil {
		return fmt.Errorf("clear tasks: %w", err)
	}
	return nil
}
