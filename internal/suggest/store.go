// Package suggest holds AI suggestions awaiting user confirmation.
package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

var (
	ErrNotFound        = errors.New("suggestion not found")
	ErrExpired         = errors.New("suggestion expired")
	ErrProjectMismatch = errors.New("suggestion belongs to another project")
)

// Pending is a suggestion shown to the user and not yet confirmed.
type Pending struct {
	ActionID  string          `json:"action_id"`
	ProjectID string          `json:"project_id"`
	Raw       json.RawMessage `json:"raw"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

func (p *Pending) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

type Store interface {
	Put(ctx context.Context, p *Pending) error
	// Get returns ErrNotFound for unknown ids. Expired entries may still be
	// returned; callers check Expired.
	Get(ctx context.Context, actionID string) (*Pending, error)
	Delete(ctx context.Context, actionID string) error
	Close() error
}

// MemoryStore keeps pending suggestions in process.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*Pending
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]*Pending{}}
}

func (m *MemoryStore) Put(ctx context.Context, p *Pending) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.entries[p.ActionID] = &cp
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, actionID string) (*Pending, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.entries[actionID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) Delete(ctx context.Context, actionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, actionID)
	return nil
}

// Sweep drops entries that expired before now and returns how many.
func (m *MemoryStore) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, p := range m.entries {
		if p.Expired(now) {
			delete(m.entries, id)
			n++
		}
	}
	return n
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryStore) Close() error { return nil }
