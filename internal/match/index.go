package match

import (
	"context"
	"sync"
)

// Index maps a player to the live session they take part in.
// The service is its only writer.
type Index interface {
	Bind(ctx context.Context, userID int64, sessionID string) error
	Lookup(ctx context.Context, userID int64) (string, bool, error)
	// Release drops the entry only while it still points at sessionID.
	Release(ctx context.Context, userID int64, sessionID string) error
}

// MemoryIndex is the in-process Index.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries map[int64]string
}

var _ Index = (*MemoryIndex)(nil)

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{entries: make(map[int64]string)}
}

func (m *MemoryIndex) Bind(_ context.Context, userID int64, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[userID] = sessionID
	return nil
}

func (m *MemoryIndex) Lookup(_ context.Context, userID int64) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.entries[userID]
	return id, ok, nil
}

func (m *MemoryIndex) Release(_ context.Context, userID int64, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries[userID] == sessionID {
		delete(m.entries, userID)
	}
	return nil
}

// Len reports the number of bound players.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
