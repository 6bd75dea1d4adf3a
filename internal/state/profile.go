package state

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ashureev/chatpad/internal/domain"
	"github.com/ashureev/chatpad/internal/profile"
)

// ProfileSnapshot is a point-in-time copy of the profile container state.
type ProfileSnapshot struct {
	Profile   domain.UserProfile `json:"profile"`
	Usage     profile.UsageStats `json:"usage"`
	Loading   bool               `json:"loading"`
	LastError string             `json:"lastError,omitempty"`
}

// ProfileState caches the profile singleton and the latest usage-stats
// snapshot.
type ProfileState struct {
	notifier

	svc *profile.Service

	mu        sync.RWMutex
	profile   domain.UserProfile
	usage     profile.UsageStats
	loading   bool
	lastError string
}

// NewProfileState creates an empty container over the service.
func NewProfileState(svc *profile.Service) *ProfileState {
	return &ProfileState{svc: svc}
}

// Load eagerly fills profile and usage stats.
func (s *ProfileState) Load(ctx context.Context) {
	s.begin()
	p := s.svc.Get(ctx)
	usage := s.svc.UsageStats(ctx)

	s.mu.Lock()
	s.profile = p
	s.usage = usage
	s.loading = false
	s.mu.Unlock()
	s.notify()
}

// ApplyUpdate merges a partial profile change into the singleton.
func (s *ProfileState) ApplyUpdate(ctx context.Context, u profile.Update) {
	s.begin()
	p, err := s.svc.ApplyUpdate(ctx, u)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.lastError = "Failed to update profile"
		slog.Error("Update profile failed", "error", err)
	} else {
		s.profile = p
	}
	s.mu.Unlock()
	s.notify()
}

// UpdatePreferences merges a partial preferences change.
func (s *ProfileState) UpdatePreferences(ctx context.Context, u profile.PreferencesUpdate) {
	s.ApplyUpdate(ctx, profile.Update{Preferences: &u})
}

// Reset overwrites the profile with the synthesized default.
func (s *ProfileState) Reset(ctx context.Context) {
	s.begin()
	p, err := s.svc.Reset(ctx)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.lastError = "Failed to reset profile"
		slog.Error("Reset profile failed", "error", err)
	} else {
		s.profile = p
	}
	s.mu.Unlock()
	s.notify()
}

// ClearData wipes all app data, then reloads the (resynthesized) profile
// and usage stats.
func (s *ProfileState) ClearData(ctx context.Context) {
	s.begin()
	err := s.svc.ClearData(ctx)

	if err != nil {
		s.mu.Lock()
		s.loading = false
		s.lastError = "Failed to clear app data"
		s.mu.Unlock()
		slog.Error("Clear app data failed", "error", err)
		s.notify()
		return
	}

	p := s.svc.Get(ctx)
	usage := s.svc.UsageStats(ctx)
	s.mu.Lock()
	s.profile = p
	s.usage = usage
	s.loading = false
	s.mu.Unlock()
	s.notify()
}

// RefreshUsage recomputes the usage-stats snapshot.
func (s *ProfileState) RefreshUsage(ctx context.Context) {
	usage := s.svc.UsageStats(ctx)
	s.mu.Lock()
	s.usage = usage
	s.mu.Unlock()
	s.notify()
}

// Snapshot returns a copy of the container state.
func (s *ProfileState) Snapshot() ProfileSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ProfileSnapshot{
		Profile:   s.profile,
		Usage:     s.usage,
		Loading:   s.loading,
		LastError: s.lastError,
	}
}

func (s *ProfileState) begin() {
	s.mu.Lock()
	s.loading = true
	s.lastError = ""
	s.mu.Unlock()
	s.notify()
}
