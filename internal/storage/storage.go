// Package storage provides the key-value persistence layer. Every record
// collection is serialized as one JSON value under a single key; this is
// the sole point of contact with the persistent store.
package storage

import (
	"context"
	"encoding/json"
)

// Storage keys, one JSON-serialized value each.
const (
	KeyConversations = "chat_conversations"
	KeyTasks         = "chat_tasks"
	KeyProfile       = "user_profile"
	KeySettings      = "app_settings"
)

// Pair is a key/value pair for batched writes.
type Pair struct {
	Key   string
	Value any
}

// Store defines the key-value storage contract. Values are JSON-encoded on
// write and decoded on read. A missing key is reported as absent, not as
// an error; store faults and decode failures are returned to the caller.
type Store interface {
	// Get decodes the value under key into dest. Returns false when the
	// key is absent.
	Get(ctx context.Context, key string, dest any) (bool, error)

	// GetRaw returns the raw serialized value under key.
	GetRaw(ctx context.Context, key string) ([]byte, bool, error)

	// Set encodes value and upserts it under key.
	Set(ctx context.Context, key string, value any) error

	// Remove deletes the value under key. Removing an absent key is a
	// no-op.
	Remove(ctx context.Context, key string) error

	// Clear deletes every key.
	Clear(ctx context.Context) error

	// GetMultiple returns the raw values for the given keys. Absent keys
	// are omitted from the result.
	GetMultiple(ctx context.Context, keys []string) (map[string]json.RawMessage, error)

	// SetMultiple upserts all pairs in a single transaction.
	SetMultiple(ctx context.Context, pairs []Pair) error

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases the backing store.
	Close() error
}
