package domain

import (
	"encoding/json"
	"log/slog"
)

// Validator is implemented by record types that can check their own
// structure after deserialization.
type Validator interface {
	Valid() bool
}

// Valid reports whether the message has all required fields.
func (m Message) Valid() bool {
	return m.ID != "" && m.Text != "" && !m.Timestamp.IsZero()
}

// Valid reports whether the conversation and all nested messages are
// structurally sound.
func (c Conversation) Valid() bool {
	if c.ID == "" || c.Title == "" || c.LastMessageTime.IsZero() {
		return false
	}
	for _, m := range c.Messages {
		if !m.Valid() {
			return false
		}
	}
	return true
}

// Valid reports whether the task has all required fields.
func (t Task) Valid() bool {
	return t.ID != "" && t.Title != "" && !t.CreatedAt.IsZero()
}

// Valid reports whether the preferences are structurally sound, including
// theme enum membership.
func (p Preferences) Valid() bool {
	switch p.Theme {
	case ThemeLight, ThemeDark, ThemeAuto:
	default:
		return false
	}
	return p.AIModel != ""
}

// Valid reports whether the profile is structurally sound.
func (p UserProfile) Valid() bool {
	return p.Preferences.Valid()
}

// SanitizeSlice decodes each raw element independently and keeps only the
// structurally valid records. Elements that fail to decode — including
// date-like fields that are neither RFC 3339 strings nor epoch millis —
// or fail validation are dropped, never repaired: malformed persisted
// records are treated as if absent.
func SanitizeSlice[T Validator](raw []json.RawMessage) []T {
	out := make([]T, 0, len(raw))
	dropped := 0
	for _, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			dropped++
			continue
		}
		if !v.Valid() {
			dropped++
			continue
		}
		out = append(out, v)
	}
	if dropped > 0 {
		slog.Warn("Dropped structurally invalid records during sanitize", "dropped", dropped, "kept", len(out))
	}
	return out
}
