// Package domain contains core record types for the chatpad data layer.
package domain

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"
)

// Theme selects the app color scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeAuto  Theme = "auto"
)

// DefaultConversationTitle is used when a conversation is created with a
// blank or whitespace-only title.
const DefaultConversationTitle = "New Chat"

// Message is a single chat message. Messages are owned by their
// conversation; they are never stored or looked up independently.
type Message struct {
	ID             string   `json:"id"`
	Text           string   `json:"text"`
	IsUser         bool     `json:"isUser"`
	Timestamp      FlexTime `json:"timestamp"`
	ConversationID string   `json:"conversationId"`
}

// Conversation is a chat thread with its full message history.
// LastMessage and LastMessageTime are denormalized copies of the newest
// message, maintained by the mutating code path rather than recomputed on
// read.
type Conversation struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	LastMessage     string    `json:"lastMessage"`
	LastMessageTime FlexTime  `json:"lastMessageTime"`
	Messages        []Message `json:"messages"`
}

// Task is a to-do item, optionally linked to the conversation it came from.
type Task struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	Completed      bool     `json:"completed"`
	CreatedAt      FlexTime `json:"createdAt"`
	ConversationID string   `json:"conversationId,omitempty"`
}

// Preferences holds per-user app preferences.
type Preferences struct {
	Theme         Theme  `json:"theme"`
	Notifications bool   `json:"notifications"`
	AIModel       string `json:"aiModel"`
}

// UserProfile is the per-installation profile singleton. It is identified
// by its storage key, not by an ID field.
type UserProfile struct {
	Name        string      `json:"name,omitempty"`
	Avatar      string      `json:"avatar,omitempty"`
	Preferences Preferences `json:"preferences"`
}

// Settings is the per-installation app settings singleton.
type Settings struct {
	Onboarded bool `json:"onboarded"`
}

// FlexTime is a time.Time that also accepts epoch milliseconds when
// decoding, so records persisted by older builds still load. It marshals
// as RFC 3339 like a plain time.Time.
type FlexTime struct {
	time.Time
}

// NewFlexTime wraps t, truncated to millisecond precision to match the
// persisted representation.
func NewFlexTime(t time.Time) FlexTime {
	return FlexTime{t.UTC().Truncate(time.Millisecond)}
}

// UnmarshalJSON decodes an RFC 3339 string or an epoch-millisecond number.
func (t *FlexTime) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return t.Time.UnmarshalJSON(data)
	}
	ms, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("timestamp is neither RFC 3339 nor epoch millis: %w", err)
	}
	t.Time = time.UnixMilli(ms).UTC()
	return nil
}

var _ json.Unmarshaler = (*FlexTime)(nil)

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewID returns a fresh record identifier: millisecond timestamp plus a
// random base36 suffix. Collisions are treated as negligible; this is not
// a cryptographic guarantee.
func NewID() string {
	var suffix [9]byte
	for i := range suffix {
		suffix[i] = idAlphabet[rand.IntN(len(idAlphabet))]
	}
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + string(suffix[:])
}
