// Package profile implements the user-profile singleton service plus the
// cross-collection operations that hang off it: export/import, data clear
// and usage stats.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/ashureev/chatpad/internal/chat"
	"github.com/ashureev/chatpad/internal/domain"
	"github.com/ashureev/chatpad/internal/storage"
	"github.com/ashureev/chatpad/internal/task"
)

// ExportVersion tags export documents.
const ExportVersion = "1.0.0"

// DefaultAIModel is the model preset for freshly synthesized profiles.
const DefaultAIModel = "gpt-3.5-turbo"

// ExportData is the record snapshot inside an export document.
type ExportData struct {
	Chats   []domain.Conversation `json:"chats"`
	Tasks   []domain.Task         `json:"tasks"`
	Profile domain.UserProfile    `json:"profile"`
}

// ExportDocument is the full export/import wire shape.
type ExportDocument struct {
	ExportDate time.Time  `json:"exportDate"`
	Version    string     `json:"version"`
	Data       ExportData `json:"data"`
}

// UsageStats aggregates storage usage across all collections.
type UsageStats struct {
	Conversations int        `json:"conversations"`
	Messages      int        `json:"messages"`
	Tasks         task.Stats `json:"tasks"`
	StorageKB     float64    `json:"storageKB"`
}

// Update is a partial profile change; nil fields are left untouched.
// Preferences are deep-merged field by field.
type Update struct {
	Name        *string            `json:"name,omitempty"`
	Avatar      *string            `json:"avatar,omitempty"`
	Preferences *PreferencesUpdate `json:"preferences,omitempty"`
}

// PreferencesUpdate is a partial preferences change.
type PreferencesUpdate struct {
	Theme         *domain.Theme `json:"theme,omitempty"`
	Notifications *bool         `json:"notifications,omitempty"`
	AIModel       *string       `json:"aiModel,omitempty"`
}

// Service owns the profile and settings singleton keys.
type Service struct {
	store storage.Store
	chats *chat.Service
	tasks *task.Service
}

// NewService creates a profile service. It needs the chat and task
// services for export, import and aggregate stats.
func NewService(store storage.Store, chats *chat.Service, tasks *task.Service) *Service {
	return &Service{store: store, chats: chats, tasks: tasks}
}

// DefaultProfile returns a freshly synthesized profile.
func DefaultProfile() domain.UserProfile {
	return domain.UserProfile{
		Preferences: domain.Preferences{
			Theme:         domain.ThemeAuto,
			Notifications: true,
			AIModel:       DefaultAIModel,
		},
	}
}

// Get returns the stored profile. When the key is absent or the stored
// value fails validation, a default profile is synthesized, persisted and
// returned; persistence failures on this path are logged, not surfaced.
func (s *Service) Get(ctx context.Context) domain.UserProfile {
	var p domain.UserProfile
	ok, err := s.store.Get(ctx, storage.KeyProfile, &p)
	if err != nil {
		slog.Warn("Reading profile failed, falling back to default", "error", err)
	}
	if err == nil && ok && p.Valid() {
		return p
	}

	p = DefaultProfile()
	if err := s.store.Set(ctx, storage.KeyProfile, p); err != nil {
		slog.Warn("Persisting default profile failed", "error", err)
	}
	return p
}

// ApplyUpdate merges a partial update into the current profile: top-level
// fields are shallow-merged, preferences deep-merged. The merged result
// must pass validation.
func (s *Service) ApplyUpdate(ctx context.Context, u Update) (domain.UserProfile, error) {
	p := s.Get(ctx)

	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Avatar != nil {
		p.Avatar = *u.Avatar
	}
	if u.Preferences != nil {
		if u.Preferences.Theme != nil {
			p.Preferences.Theme = *u.Preferences.Theme
		}
		if u.Preferences.Notifications != nil {
			p.Preferences.Notifications = *u.Preferences.Notifications
		}
		if u.Preferences.AIModel != nil {
			p.Preferences.AIModel = *u.Preferences.AIModel
		}
	}

	if !p.Valid() {
		return domain.UserProfile{}, fmt.Errorf("merged profile failed validation: %w", domain.ErrInvalidData)
	}
	if err := s.store.Set(ctx, storage.KeyProfile, p); err != nil {
		return domain.UserProfile{}, fmt.Errorf("persist profile: %w", err)
	}
	return p, nil
}

// UpdatePreferences merges a partial preferences change.
func (s *Service) UpdatePreferences(ctx context.Context, u PreferencesUpdate) (domain.UserProfile, error) {
	return s.ApplyUpdate(ctx, Update{Preferences: &u})
}

// Reset overwrites the profile with a fresh default, bypassing merge
// logic.
func (s *Service) Reset(ctx context.Context) (domain.UserProfile, error) {
	p := DefaultProfile()
	if err := s.store.Set(ctx, storage.KeyProfile, p); err != nil {
		return domain.UserProfile{}, fmt.Errorf("persist default profile: %w", err)
	}
	return p, nil
}

// ClearData removes conversations, tasks, profile and settings
// concurrently; the first failure aggregates out.
func (s *Service) ClearData(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, key := range []string{
		storage.KeyConversations,
		storage.KeyTasks,
		storage.KeyProfile,
		storage.KeySettings,
	} {
		g.Go(func() error {
			return s.store.Remove(ctx, key)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("clear app data: %w", err)
	}
	return nil
}

// Export snapshots all conversations, tasks and the profile into a single
// JSON document tagged with an export timestamp and format version.
func (s *Service) Export(ctx context.Context) (string, error) {
	doc := ExportDocument{
		ExportDate: time.Now().UTC(),
		Version:    ExportVersion,
		Data: ExportData{
			Chats:   s.chats.List(ctx),
			Tasks:   s.tasks.List(ctx),
			Profile: s.Get(ctx),
		},
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode export document: %w", err)
	}
	return string(encoded), nil
}

// Import restores collections from an export document. Chats and tasks
// arrays overwrite their storage keys wholesale, without validation; the
// profile is only applied if it passes validation. A document without a
// top-level data field is rejected.
func (s *Service) Import(ctx context.Context, doc string) error {
	if !gjson.Valid(doc) {
		return fmt.Errorf("parse import document: %w", domain.ErrInvalidFormat)
	}
	data := gjson.Get(doc, "data")
	if !data.Exists() {
		return fmt.Errorf("import document has no data field: %w", domain.ErrInvalidFormat)
	}

	// Collections overwrite wholesale, in one batched write.
	var pairs []storage.Pair
	if chats := data.Get("chats"); chats.IsArray() {
		pairs = append(pairs, storage.Pair{Key: storage.KeyConversations, Value: json.RawMessage(chats.Raw)})
	}
	if tasks := data.Get("tasks"); tasks.IsArray() {
		pairs = append(pairs, storage.Pair{Key: storage.KeyTasks, Value: json.RawMessage(tasks.Raw)})
	}
	if profileRaw := data.Get("profile"); profileRaw.Exists() {
		var p domain.UserProfile
		if err := json.Unmarshal([]byte(profileRaw.Raw), &p); err == nil && p.Valid() {
			pairs = append(pairs, storage.Pair{Key: storage.KeyProfile, Value: p})
		} else {
			slog.Warn("Import document carried an invalid profile, keeping current one")
		}
	}

	if len(pairs) == 0 {
		return nil
	}
	if err := s.store.SetMultiple(ctx, pairs); err != nil {
		return fmt.Errorf("import collections: %w", err)
	}
	return nil
}

// UsageStats aggregates counts across collections and approximates the
// storage footprint from the serialized collection sizes.
func (s *Service) UsageStats(ctx context.Context) UsageStats {
	stats := UsageStats{Tasks: s.tasks.Stats(ctx)}

	conversations := s.chats.List(ctx)
	stats.Conversations = len(conversations)
	for _, c := range conversations {
		stats.Messages += len(c.Messages)
	}

	raw, err := s.store.GetMultiple(ctx, []string{storage.KeyConversations, storage.KeyTasks})
	if err != nil {
		slog.Warn("Sizing stored collections failed", "error", err)
		return stats
	}
	size := 0
	for _, v := range raw {
		size += len(v)
	}
	stats.StorageKB = math.Round(float64(size)/1024*100) / 100
	return stats
}

// Settings returns the app settings singleton, zero-valued when absent.
func (s *Service) Settings(ctx context.Context) domain.Settings {
	var settings domain.Settings
	if _, err := s.store.Get(ctx, storage.KeySettings, &settings); err != nil {
		slog.Warn("Reading settings failed, falling back to defaults", "error", err)
		return domain.Settings{}
	}
	return settings
}

// SetOnboarded marks first-run onboarding as complete.
func (s *Service) SetOnboarded(ctx context.Context) error {
	settings := s.Settings(ctx)
	settings.Onboarded = true
	if err := s.store.Set(ctx, storage.KeySettings, settings); err != nil {
		return fmt.Errorf("persist settings: %w", err)
	}
	return nil
}
