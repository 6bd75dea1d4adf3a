package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore implements Store in process memory. It backs ephemeral runs
// (no DB_PATH configured) and service tests.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get decodes the value under key into dest.
func (s *MemoryStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, ok, err := s.GetRaw(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode value for %q: %w", key, err)
	}
	return true, nil
}

// GetRaw returns the raw serialized value under key.
func (s *MemoryStore) GetRaw(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	return []byte(value), true, nil
}

// Set encodes value and stores it under key.
func (s *MemoryStore) Set(_ context.Context, key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value for %q: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = string(encoded)
	return nil
}

// Remove deletes the value under key.
func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// Clear deletes every key.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]string)
	return nil
}

// GetMultiple returns the raw values for the given keys; absent keys are
// omitted.
func (s *MemoryStore) GetMultiple(_ context.Context, keys []string) (map[string]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]json.RawMessage, len(keys))
	for _, k := range keys {
		if value, ok := s.values[k]; ok {
			result[k] = json.RawMessage(value)
		}
	}
	return result, nil
}

// SetMultiple stores all pairs; the write is atomic with respect to other
// MemoryStore calls.
func (s *MemoryStore) SetMultiple(_ context.Context, pairs []Pair) error {
	encoded := make(map[string]string, len(pairs))
	for _, p := range pairs {
		raw, err := json.Marshal(p.Value)
		if err != nil {
			return fmt.Errorf("encode value for %q: %w", p.Key, err)
		}
		encoded[p.Key] = string(raw)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range encoded {
		s.values[k] = v
	}
	return nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
