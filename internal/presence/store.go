// Package presence records which peers a server has verified. The in-memory store
// serves a single process; the Redis store lets several instances and dashboards see
// each other's peers.
package presence

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Entry describes one verified peer.
type Entry struct {
	ID          string    `json:"id"`
	Remote      string    `json:"remote"`
	Instance    string    `json:"instance"`
	ConnectedAt time.Time `json:"connected_at"`
}

// Store abstracts presence bookkeeping.
type Store interface {
	Register(ctx context.Context, e Entry) error
	Unregister(ctx context.Context, id string) error
	List(ctx context.Context) ([]Entry, error)
	Close() error
}

// MemoryStore keeps entries in a map.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) Register(_ context.Context, e Entry) error {
	m.mu.Lock()
	m.entries[e.ID] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Unregister(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
	return nil
}

// List returns entries ordered by connection time.
func (m *MemoryStore) List(_ context.Context) ([]Entry, error) {
	m.mu.Lock()
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	m.mu.Unlock()
	sortEntries(out)
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }

func sortEntries(es []Entry) {
	sort.Slice(es, func(i, j int) bool {
		if es[i].ConnectedAt.Equal(es[j].ConnectedAt) {
			return es[i].ID < es[j].ID
		}
		return es[i].ConnectedAt.Before(es[j].ConnectedAt)
	})
}
