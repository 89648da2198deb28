package storage

import (
	"context"
	"encoding/json"
	"sync"
)

// Memory is an in-process Collections used by tests and as a fallback when
// no database is configured.
type Memory struct {
	mu    sync.Mutex
	slots map[string][]byte
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{slots: make(map[string][]byte)}
}

// Get returns the entries stored under key.
func (m *Memory) Get(ctx context.Context, key string) ([]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	body := m.slots[key]
	m.mu.Unlock()
	entries, err := decodeArray(body)
	if err != nil {
		return []json.RawMessage{}, nil
	}
	return entries, nil
}

// Append adds item to the collection under key.
func (m *Memory) Append(ctx context.Context, key string, item any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out, _, err := appendEntry(m.slots[key], item)
	if err != nil {
		return err
	}
	m.slots[key] = out
	return nil
}

// Raw returns the serialized collection under key.
func (m *Memory) Raw(key string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.slots[key]...)
}

// SetRaw replaces the serialized collection under key.
func (m *Memory) SetRaw(key string, body []byte) {
	m.mu.Lock()
	m.slots[key] = append([]byte(nil), body...)
	m.mu.Unlock()
}
