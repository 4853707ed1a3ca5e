package hosting

import (
	"context"
	"sync"

	"survivor/internal/ports"
)

// MemoryStore is a process-local HostStore for the console host and tests.
type MemoryStore struct {
	mu       sync.Mutex
	counters ports.HostCounters
	host     string
	Saves    int
}

var _ ports.HostStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(ports.HostCounters)}
}

func (m *MemoryStore) LoadCounters(ctx context.Context) (ports.HostCounters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(ports.HostCounters, len(m.counters))
	for id, entries := range m.counters {
		out[id] = append([]int64(nil), entries...)
	}
	return out, nil
}

func (m *MemoryStore) SaveCounters(ctx context.Context, counters ports.HostCounters) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = counters
	m.Saves++
	return nil
}

func (m *MemoryStore) LoadHost(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.host, nil
}

func (m *MemoryStore) SaveHost(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.host = userID
	return nil
}
