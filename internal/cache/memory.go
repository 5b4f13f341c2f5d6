package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jonathan/listing-customizer/internal/types"
)

// Memory is an in-process Store. Listings are stored by pointer and must not
// be mutated after Put.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	now     Clock
}

// NewMemory creates an in-memory store. A nil clock uses time.Now.
func NewMemory(now Clock) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{entries: make(map[string]*Entry), now: now}
}

// Get returns the entry for key when it is still fresh.
func (m *Memory) Get(_ context.Context, key string) (*Entry, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || !e.Fresh(m.now()) {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

// Put stores listing under key, replacing any previous entry.
func (m *Memory) Put(_ context.Context, key string, listing *types.ExtractedListing, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = &Entry{Key: key, Listing: listing, StoredAt: m.now(), TTL: ttl}
	return nil
}

// Invalidate removes key. Missing keys are not an error.
func (m *Memory) Invalidate(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// ClearAll removes every entry.
func (m *Memory) ClearAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*Entry)
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
