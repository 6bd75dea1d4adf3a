package state

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ashureev/chatpad/internal/domain"
	"github.com/ashureev/chatpad/internal/task"
)

// TaskFilter selects which tasks the derived view shows.
type TaskFilter string

const (
	FilterAll       TaskFilter = "all"
	FilterCompleted TaskFilter = "completed"
	FilterPending   TaskFilter = "pending"
)

// TaskSnapshot is a point-in-time copy of the task container state.
// Filtered is the derived view for the active filter.
type TaskSnapshot struct {
	Tasks     []domain.Task `json:"tasks"`
	Filtered  []domain.Task `json:"filtered"`
	Filter    TaskFilter    `json:"filter"`
	Loading   bool          `json:"loading"`
	LastError string        `json:"lastError,omitempty"`
}

// TaskState caches the task collection and maintains a filtered view that
// is recomputed whenever the tasks or the filter change.
type TaskState struct {
	notifier

	svc *task.Service

	mu        sync.RWMutex
	tasks     []domain.Task
	filtered  []domain.Task
	filter    TaskFilter
	loading   bool
	lastError string
}

// NewTaskState creates an empty container over the service.
func NewTaskState(svc *task.Service) *TaskState {
	return &TaskState{
		svc:      svc,
		tasks:    []domain.Task{},
		filtered: []domain.Task{},
		filter:   FilterAll,
	}
}

// Load eagerly fills the cache from storage.
func (s *TaskState) Load(ctx context.Context) {
	s.begin()
	tasks := s.svc.List(ctx)

	s.mu.Lock()
	s.tasks = tasks
	s.loading = false
	s.refilter()
	s.mu.Unlock()
	s.notify()
}

// Create adds a new task and returns it; nil on failure.
func (s *TaskState) Create(ctx context.Context, title, description, conversationID string) *domain.Task {
	s.begin()
	t, err := s.svc.Create(ctx, title, description, conversationID)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.lastError = "Failed to create task"
		slog.Error("Create task failed", "error", err)
	} else {
		s.tasks = append([]domain.Task{*t}, s.tasks...)
		s.refilter()
	}
	s.mu.Unlock()
	s.notify()
	return t
}

// Toggle flips a task's completed flag.
func (s *TaskState) Toggle(ctx context.Context, id string) {
	s.begin()
	t, err := s.svc.ToggleCompletion(ctx, id)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.lastError = "Failed to update task"
		slog.Error("Toggle task failed", "task_id", id, "error", err)
	} else {
		for i := range s.tasks {
			if s.tasks[i].ID == id {
				s.tasks[i] = *t
				break
			}
		}
		s.refilter()
	}
	s.mu.Unlock()
	s.notify()
}

// Delete removes a task.
func (s *TaskState) Delete(ctx context.Context, id string) {
	s.begin()
	err := s.svc.Delete(ctx, id)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.lastError = "Failed to delete task"
		slog.Error("Delete task failed", "task_id", id, "error", err)
	} else {
		kept := s.tasks[:0]
		for _, t := range s.tasks {
			if t.ID != id {
				kept = append(kept, t)
			}
		}
		s.tasks = kept
		s.refilter()
	}
	s.mu.Unlock()
	s.notify()
}

// SetFilter switches the active filter and recomputes the derived view.
func (s *TaskState) SetFilter(f TaskFilter) {
	switch f {
	case FilterAll, FilterCompleted, FilterPending:
	default:
		f = FilterAll
	}
	s.mu.Lock()
	s.filter = f
	s.refilter()
	s.mu.Unlock()
	s.notify()
}

// Snapshot returns a copy of the container state.
func (s *TaskState) Snapshot() TaskSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := TaskSnapshot{
		Tasks:     make([]domain.Task, len(s.tasks)),
		Filtered:  make([]domain.Task, len(s.filtered)),
		Filter:    s.filter,
		Loading:   s.loading,
		LastError: s.lastError,
	}
	copy(snap.Tasks, s.tasks)
	copy(snap.Filtered, s.filtered)
	return snap
}

// refilter recomputes the derived view. Caller holds s.mu.
func (s *TaskState) refilter() {
	s.filtered = s.filtered[:0]
	for _, t := range s.tasks {
		switch s.filter {
		case FilterCompleted:
			if !t.Completed {
				continue
			}
		case FilterPending:
			if t.Completed {
				continue
			}
		}
		s.filtered = append(s.filtered, t)
	}
}

func (s *TaskState) begin() {
	s.mu.Lock()
	s.loading = true
	s.lastError = ""
	s.mu.Unlock()
	s.notify()
}
